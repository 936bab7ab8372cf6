package dataview

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/callisto-kernel/callisto/comm"
)

var log = commonlog.GetLogger("callisto.dataview")

// TargetName is the comm target front ends subscribe to for tabular data.
const TargetName = "positron.dataViewer"

// cbor encoding uses canonical mode for deterministic page payloads.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dataview: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Summary is the open payload announcing a dataset to the front end.
type Summary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Columns  []Column `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// rpcRequest is one viewer RPC carried in comm_msg data. Correlation is by
// the application-level msg_id, not by the envelope header.
type rpcRequest struct {
	MsgID  string `json:"msg_id"`
	Method string `json:"method"`
	Params struct {
		Start int `json:"start"`
		Count int `json:"count"`
	} `json:"params"`
}

type rpcResponse struct {
	MsgID  string `json:"msg_id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Page is the binary row payload attached to a get_rows response as a
// CBOR buffer frame.
type Page struct {
	Start int        `cbor:"start"`
	Rows  [][]string `cbor:"rows"`
}

// Viewer serves one dataset over a kernel-opened comm. It owns a worker
// goroutine consuming inbound RPCs until the comm is closed.
type Viewer struct {
	ID    string
	Title string

	comm     *comm.Comm
	store    *Store
	pageSize int
}

// Show loads the dataset into a store, opens the viewer comm, and starts
// the serving goroutine. pageSize caps the rows returned per RPC.
func Show(reg *comm.Registry, title string, columns []Column, rows [][]string, pageSize int) (*Viewer, error) {
	store, err := NewStore(columns, rows)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	v := &Viewer{
		ID:       uuid.New().String(),
		Title:    title,
		store:    store,
		pageSize: pageSize,
	}
	c, err := reg.OpenFromKernel(TargetName, Summary{
		ID:       v.ID,
		Title:    title,
		Columns:  store.Columns(),
		RowCount: store.RowCount(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	v.comm = c
	go v.serve()
	return v, nil
}

// serve consumes RPCs until the comm is retired.
func (v *Viewer) serve() {
	defer v.store.Close()
	for delivery := range v.comm.Messages() {
		var req rpcRequest
		if err := json.Unmarshal(delivery.Data, &req); err != nil {
			log.Warningf("viewer %s: bad RPC payload: %s", v.ID, err.Error())
			continue
		}
		v.handle(req)
	}
	log.Debugf("viewer %s closed", v.ID)
}

func (v *Viewer) handle(req rpcRequest) {
	switch req.Method {
	case "get_schema":
		v.respond(req, Summary{
			ID:       v.ID,
			Title:    v.Title,
			Columns:  v.store.Columns(),
			RowCount: v.store.RowCount(),
		}, nil)
	case "get_rows":
		count := req.Params.Count
		if count <= 0 || count > v.pageSize {
			count = v.pageSize
		}
		rows, err := v.store.Page(req.Params.Start, count)
		if err != nil {
			v.fail(req, err)
			return
		}
		page, err := cborEncMode.Marshal(Page{Start: req.Params.Start, Rows: rows})
		if err != nil {
			v.fail(req, err)
			return
		}
		v.respond(req, map[string]int{"start": req.Params.Start, "count": len(rows)}, page)
	default:
		v.fail(req, fmt.Errorf("unknown method %q", req.Method))
	}
}

func (v *Viewer) respond(req rpcRequest, result any, page []byte) {
	resp := rpcResponse{MsgID: req.MsgID, Result: result}
	var err error
	if page != nil {
		err = v.comm.Send(resp, page)
	} else {
		err = v.comm.Send(resp)
	}
	if err != nil {
		log.Errorf("viewer %s: could not send response: %s", v.ID, err.Error())
	}
}

func (v *Viewer) fail(req rpcRequest, cause error) {
	log.Warningf("viewer %s: %s failed: %s", v.ID, req.Method, cause.Error())
	if err := v.comm.Send(rpcResponse{MsgID: req.MsgID, Error: cause.Error()}); err != nil {
		log.Errorf("viewer %s: could not send error response: %s", v.ID, err.Error())
	}
}

// DecodePage decodes a CBOR page buffer, for consumers on the receiving
// side.
func DecodePage(data []byte) (*Page, error) {
	var p Page
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("dataview: unmarshal page: %w", err)
	}
	return &p, nil
}
