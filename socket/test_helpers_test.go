package socket

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/callisto-kernel/callisto/comm"
	"github.com/callisto-kernel/callisto/session"
	"github.com/callisto-kernel/callisto/wire"
)

// fakeTransport is an in-memory Transport for exercising the socket loops
// without ZeroMQ.
type fakeTransport struct {
	in  chan [][]byte
	out chan [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:  make(chan [][]byte, 16),
		out: make(chan [][]byte, 16),
	}
}

func (t *fakeTransport) Recv() ([][]byte, error) {
	frames, ok := <-t.in
	if !ok {
		return nil, io.EOF
	}
	return frames, nil
}

func (t *fakeTransport) Send(frames [][]byte) error {
	t.out <- frames
	return nil
}

func (t *fakeTransport) Close() error {
	return nil
}

// deliver queues raw frames for the loop under test.
func (t *fakeTransport) deliver(frames [][]byte) {
	t.in <- frames
}

// stop ends the loop under test.
func (t *fakeTransport) stop() {
	close(t.in)
}

func kernelSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("kernel", []byte("test-signing-key"), session.SchemeHMACSHA256)
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}
	return s
}

func frontSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("frontend", []byte("test-signing-key"), session.SchemeHMACSHA256)
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}
	return s
}

// request builds signed request frames the way a front end would.
func request(t *testing.T, front *session.Session, content wire.Content) ([][]byte, *wire.Message) {
	t.Helper()
	msg := &wire.Message{
		Identities: [][]byte{[]byte("client-1")},
		Header:     wire.NewHeader(content.MessageType(), front),
		Content:    content,
	}
	frames, err := msg.Frames(front)
	if err != nil {
		t.Fatalf("could not frame request: %v", err)
	}
	return frames, msg
}

// recvReply waits for one outbound message and classifies it.
func recvReply(t *testing.T, transport *fakeTransport, s *session.Session) *wire.Message {
	t.Helper()
	select {
	case frames := <-transport.out:
		raw, err := wire.ReadFrames(frames, s)
		if err != nil {
			t.Fatalf("could not read reply: %v", err)
		}
		msg, err := wire.FromRaw(raw)
		if err != nil {
			t.Fatalf("could not classify reply: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply")
		return nil
	}
}

// recvStatus waits for one IOPub event and asserts it is a status change.
func recvStatus(t *testing.T, iopub <-chan IOPubMessage) (wire.ExecutionState, *wire.Header) {
	t.Helper()
	item := recvIOPub(t, iopub)
	status, ok := item.Content.(*wire.KernelStatus)
	if !ok {
		t.Fatalf("IOPub content type = %T, want *wire.KernelStatus", item.Content)
	}
	return status.ExecutionState, item.Parent
}

func recvIOPub(t *testing.T, iopub <-chan IOPubMessage) IOPubMessage {
	t.Helper()
	select {
	case item := <-iopub:
		return item
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an IOPub event")
		return IOPubMessage{}
	}
}

// stubHandler implements language.ShellHandler and language.ControlHandler
// with overridable behavior.
type stubHandler struct {
	iopub chan<- IOPubMessage

	executeErr *wire.Exception
	blockUntil chan struct{} // execute blocks on this when set
	emitInput  bool
}

func (h *stubHandler) HandleInfoRequest(req *wire.KernelInfoRequest) (*wire.KernelInfoReply, *wire.Exception) {
	return &wire.KernelInfoReply{
		Status:          wire.StatusOk,
		ProtocolVersion: wire.ProtocolVersion,
		Implementation:  "stub",
		Banner:          "stub kernel",
		LanguageInfo:    wire.LanguageInfo{Name: "stub", Version: "1.0"},
	}, nil
}

func (h *stubHandler) HandleExecuteRequest(req *wire.ExecuteRequest, parent *wire.Header) (*wire.ExecuteReply, *wire.Exception) {
	if h.blockUntil != nil {
		<-h.blockUntil
	}
	if h.emitInput {
		h.iopub <- IOPubMessage{Parent: parent, Content: &wire.ExecuteInput{Code: req.Code, ExecutionCount: 1}}
	}
	if h.executeErr != nil {
		return nil, h.executeErr
	}
	return &wire.ExecuteReply{Status: wire.StatusOk, ExecutionCount: 1}, nil
}

func (h *stubHandler) HandleIsCompleteRequest(req *wire.IsCompleteRequest) (*wire.IsCompleteReply, *wire.Exception) {
	return &wire.IsCompleteReply{Status: wire.Complete}, nil
}

func (h *stubHandler) HandleCompleteRequest(req *wire.CompleteRequest) (*wire.CompleteReply, *wire.Exception) {
	return &wire.CompleteReply{Status: wire.StatusOk, Matches: []string{}}, nil
}

func (h *stubHandler) HandleInspectRequest(req *wire.InspectRequest) (*wire.InspectReply, *wire.Exception) {
	return &wire.InspectReply{Status: wire.StatusOk}, nil
}

func (h *stubHandler) HandleShutdownRequest(req *wire.ShutdownRequest) (*wire.ShutdownReply, *wire.Exception) {
	return &wire.ShutdownReply{Status: wire.StatusOk, Restart: req.Restart}, nil
}

func (h *stubHandler) HandleInterruptRequest(req *wire.InterruptRequest) (*wire.InterruptReply, *wire.Exception) {
	return &wire.InterruptReply{Status: wire.StatusOk}, nil
}

// shellFixture wires a Shell loop over fake transports.
type shellFixture struct {
	transport *fakeTransport
	iopub     chan IOPubMessage
	kernel    *session.Session
	front     *session.Session
	handler   *stubHandler
	comms     *comm.Registry
}

func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()
	f := &shellFixture{
		transport: newFakeTransport(),
		iopub:     make(chan IOPubMessage, 32),
		kernel:    kernelSession(t),
		front:     frontSession(t),
	}
	f.handler = &stubHandler{iopub: f.iopub}
	f.comms = comm.NewRegistry(func(content wire.Content, buffers [][]byte) {
		f.iopub <- IOPubMessage{Content: content, Buffers: buffers}
	})

	shell := NewShell(New("shell", f.kernel, f.transport), f.iopub, f.handler, &sync.Mutex{}, f.comms)
	go shell.Listen()
	t.Cleanup(f.transport.stop)
	return f
}
