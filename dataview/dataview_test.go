package dataview

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/callisto-kernel/callisto/comm"
	"github.com/callisto-kernel/callisto/wire"
)

// ------------------------------------------------------------------------
// Store
// ------------------------------------------------------------------------

var testColumns = []Column{
	{Name: "name", Type: "string"},
	{Name: "city", Type: "string"},
}

func testRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("person-%d", i), fmt.Sprintf("city-%d", i)}
	}
	return rows
}

func TestStore_PageInLoadOrder(t *testing.T) {
	store, err := NewStore(testColumns, testRows(10))
	if err != nil {
		t.Fatalf("NewStore() error = %s", err.Error())
	}
	defer store.Close()

	if store.RowCount() != 10 {
		t.Errorf("RowCount() = %d, want 10", store.RowCount())
	}

	page, err := store.Page(3, 2)
	if err != nil {
		t.Fatalf("Page() error = %s", err.Error())
	}
	want := [][]string{
		{"person-3", "city-3"},
		{"person-4", "city-4"},
	}
	if !reflect.DeepEqual(page, want) {
		t.Errorf("Page(3, 2) = %v, want %v", page, want)
	}
}

func TestStore_PagePastEnd(t *testing.T) {
	store, err := NewStore(testColumns, testRows(3))
	if err != nil {
		t.Fatalf("NewStore() error = %s", err.Error())
	}
	defer store.Close()

	page, err := store.Page(2, 10)
	if err != nil {
		t.Fatalf("Page() error = %s", err.Error())
	}
	if len(page) != 1 {
		t.Errorf("rows past end = %d, want 1", len(page))
	}

	page, err = store.Page(50, 10)
	if err != nil {
		t.Fatalf("Page() error = %s", err.Error())
	}
	if len(page) != 0 {
		t.Errorf("rows at empty offset = %d, want 0", len(page))
	}
}

func TestStore_RejectsBadInput(t *testing.T) {
	if _, err := NewStore(nil, nil); err == nil {
		t.Error("NewStore accepted a dataset with no columns")
	}
	if _, err := NewStore(testColumns, [][]string{{"only-one-value"}}); err == nil {
		t.Error("NewStore accepted a ragged row")
	}

	store, err := NewStore(testColumns, testRows(1))
	if err != nil {
		t.Fatalf("NewStore() error = %s", err.Error())
	}
	defer store.Close()
	if _, err := store.Page(-1, 5); err == nil {
		t.Error("Page accepted a negative start")
	}
	if _, err := store.Page(0, 0); err == nil {
		t.Error("Page accepted a zero count")
	}
}

// ------------------------------------------------------------------------
// Viewer RPC
// ------------------------------------------------------------------------

type viewerFixture struct {
	reg      *comm.Registry
	viewer   *Viewer
	outbound chan outboundMsg
}

type outboundMsg struct {
	content wire.Content
	buffers [][]byte
}

func newViewerFixture(t *testing.T, rows int, pageSize int) *viewerFixture {
	t.Helper()
	f := &viewerFixture{outbound: make(chan outboundMsg, 16)}
	f.reg = comm.NewRegistry(func(content wire.Content, buffers [][]byte) {
		f.outbound <- outboundMsg{content: content, buffers: buffers}
	})
	v, err := Show(f.reg, "people", testColumns, testRows(rows), pageSize)
	if err != nil {
		t.Fatalf("Show() error = %s", err.Error())
	}
	f.viewer = v
	return f
}

func (f *viewerFixture) recv(t *testing.T) outboundMsg {
	t.Helper()
	select {
	case msg := <-f.outbound:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound comm traffic")
	}
	panic("unreachable")
}

// call routes one RPC to the viewer's comm and decodes the response.
func (f *viewerFixture) call(t *testing.T, commID, method string, start, count int) (rpcResponse, [][]byte) {
	t.Helper()
	req := map[string]any{
		"msg_id": fmt.Sprintf("rpc-%s", method),
		"method": method,
		"params": map[string]int{"start": start, "count": count},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %s", err.Error())
	}
	f.reg.RouteMsg(commID, payload, nil)

	msg := f.recv(t)
	cm, ok := msg.content.(*wire.CommMsg)
	if !ok {
		t.Fatalf("response type = %T, want *wire.CommMsg", msg.content)
	}
	var resp rpcResponse
	if err := json.Unmarshal(cm.Data, &resp); err != nil {
		t.Fatalf("unmarshal response: %s", err.Error())
	}
	if resp.MsgID != req["msg_id"] {
		t.Errorf("response msg_id = %q, want %q", resp.MsgID, req["msg_id"])
	}
	return resp, msg.buffers
}

func TestShow_AnnouncesDataset(t *testing.T) {
	f := newViewerFixture(t, 5, 2)

	msg := f.recv(t)
	open, ok := msg.content.(*wire.CommOpen)
	if !ok {
		t.Fatalf("announcement type = %T, want *wire.CommOpen", msg.content)
	}
	if open.TargetName != TargetName {
		t.Errorf("target = %q, want %q", open.TargetName, TargetName)
	}

	var summary Summary
	if err := json.Unmarshal(open.Data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %s", err.Error())
	}
	if summary.Title != "people" {
		t.Errorf("title = %q, want people", summary.Title)
	}
	if summary.RowCount != 5 {
		t.Errorf("row count = %d, want 5", summary.RowCount)
	}
	if len(summary.Columns) != 2 {
		t.Errorf("columns = %d, want 2", len(summary.Columns))
	}
	if summary.ID == "" {
		t.Error("summary has no dataset id")
	}
}

func TestViewer_GetRowsPagesAsCBOR(t *testing.T) {
	f := newViewerFixture(t, 5, 10)
	open := f.recv(t).content.(*wire.CommOpen)

	resp, buffers := f.call(t, open.CommID, "get_rows", 1, 2)
	if resp.Error != "" {
		t.Fatalf("get_rows failed: %s", resp.Error)
	}
	if len(buffers) != 1 {
		t.Fatalf("buffer frames = %d, want 1", len(buffers))
	}

	page, err := DecodePage(buffers[0])
	if err != nil {
		t.Fatalf("DecodePage() error = %s", err.Error())
	}
	if page.Start != 1 {
		t.Errorf("page start = %d, want 1", page.Start)
	}
	want := [][]string{
		{"person-1", "city-1"},
		{"person-2", "city-2"},
	}
	if !reflect.DeepEqual(page.Rows, want) {
		t.Errorf("page rows = %v, want %v", page.Rows, want)
	}
}

func TestViewer_PageSizeCapsRequests(t *testing.T) {
	f := newViewerFixture(t, 10, 3)
	open := f.recv(t).content.(*wire.CommOpen)

	resp, buffers := f.call(t, open.CommID, "get_rows", 0, 100)
	if resp.Error != "" {
		t.Fatalf("get_rows failed: %s", resp.Error)
	}
	page, err := DecodePage(buffers[0])
	if err != nil {
		t.Fatalf("DecodePage() error = %s", err.Error())
	}
	if len(page.Rows) != 3 {
		t.Errorf("rows = %d, want the page size cap of 3", len(page.Rows))
	}
}

func TestViewer_GetSchema(t *testing.T) {
	f := newViewerFixture(t, 4, 2)
	open := f.recv(t).content.(*wire.CommOpen)

	resp, _ := f.call(t, open.CommID, "get_schema", 0, 0)
	if resp.Error != "" {
		t.Fatalf("get_schema failed: %s", resp.Error)
	}
	result, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %s", err.Error())
	}
	var summary Summary
	if err := json.Unmarshal(result, &summary); err != nil {
		t.Fatalf("unmarshal schema: %s", err.Error())
	}
	if summary.RowCount != 4 {
		t.Errorf("row count = %d, want 4", summary.RowCount)
	}
	if summary.ID != f.viewer.ID {
		t.Errorf("dataset id = %q, want %q", summary.ID, f.viewer.ID)
	}
}

func TestViewer_UnknownMethodFails(t *testing.T) {
	f := newViewerFixture(t, 2, 2)
	open := f.recv(t).content.(*wire.CommOpen)

	resp, _ := f.call(t, open.CommID, "drop_table", 0, 0)
	if resp.Error == "" {
		t.Error("unknown method produced no error")
	}
	if resp.Result != nil {
		t.Errorf("unknown method produced result %v", resp.Result)
	}
}
