package comm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/callisto-kernel/callisto/wire"
)

var log = commonlog.GetLogger("callisto.comm")

// Sender publishes kernel-originated comm traffic (comm_open, comm_msg,
// comm_close) on the broadcast path. The kernel wires it to the IOPub
// queue, so any goroutine may call it.
type Sender func(content wire.Content, buffers [][]byte)

// TargetHandler is invoked when a front end opens a comm for a registered
// target name. It receives the open payload and the comm to own; a
// returned error cancels the registration.
type TargetHandler func(c *Comm, data json.RawMessage) error

// Registry tracks open comms by id. One mutex guards it because any socket
// loop or worker goroutine may open, route, or close comms concurrently.
// A comm id is never reassigned to a different logical comm for the life
// of the process.
type Registry struct {
	mu      sync.Mutex
	targets map[string]TargetHandler
	open    map[string]*Comm
	retired map[string]struct{}
	send    Sender
}

// NewRegistry creates a Registry publishing outbound traffic through send.
func NewRegistry(send Sender) *Registry {
	return &Registry{
		targets: make(map[string]TargetHandler),
		open:    make(map[string]*Comm),
		retired: make(map[string]struct{}),
		send:    send,
	}
}

// RegisterTarget makes a target name available for front-end comm_open
// requests.
func (r *Registry) RegisterTarget(name string, handler TargetHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[name] = handler
}

// Open registers a front-end-opened comm. An unrecognized target name is
// logged and not registered; the protocol defines no error reply for this
// case. Reuse of a retired or already-open id is likewise logged and
// refused.
func (r *Registry) Open(id, target string, data json.RawMessage) {
	r.mu.Lock()
	handler, known := r.targets[target]
	if !known {
		r.mu.Unlock()
		log.Warningf("request to open comm for unknown target %q (comm id %s)", target, id)
		return
	}
	if _, dup := r.open[id]; dup {
		r.mu.Unlock()
		log.Warningf("comm id %s is already open", id)
		return
	}
	if _, gone := r.retired[id]; gone {
		r.mu.Unlock()
		log.Warningf("comm id %s was retired and cannot be reopened", id)
		return
	}
	c := newComm(id, target, FrontEnd, r.send)
	r.open[id] = c
	r.mu.Unlock()

	if err := handler(c, data); err != nil {
		log.Warningf("target %q rejected comm %s: %s", target, id, err.Error())
		r.Close(id, nil)
	}
}

// OpenFromKernel opens a kernel-side comm: allocates a process-unique id,
// registers it, and announces it to the front end with a comm_open.
func (r *Registry) OpenFromKernel(target string, data any) (*Comm, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("comm: marshal open payload for %q: %w", target, err)
	}
	c := newComm(newID(), target, BackEnd, r.send)

	r.mu.Lock()
	r.open[c.ID] = c
	r.mu.Unlock()

	r.send(&wire.CommOpen{CommID: c.ID, TargetName: target, Data: raw}, nil)
	return c, nil
}

// RouteMsg forwards an inbound comm_msg payload to the comm's owner. An
// unknown or retired id is logged and dropped. A consumer that has fallen
// too far behind also drops the payload rather than stalling the socket
// loop.
func (r *Registry) RouteMsg(id string, data json.RawMessage, buffers [][]byte) {
	r.mu.Lock()
	c, ok := r.open[id]
	if !ok {
		r.mu.Unlock()
		log.Warningf("dropping comm message for unknown comm id %s", id)
		return
	}
	// The send stays under the lock so Close cannot retire the channel
	// between lookup and send; the default arm keeps it non-blocking.
	var dropped bool
	select {
	case c.deliveries <- Delivery{Data: data, Buffers: buffers}:
	default:
		dropped = true
	}
	r.mu.Unlock()
	if dropped {
		log.Warningf("comm %s consumer is not keeping up; dropping message", id)
	}
}

// Close retires a comm from either side. The id stays retired forever;
// closing an id that is not open is logged and otherwise a no-op.
func (r *Registry) Close(id string, data json.RawMessage) {
	r.mu.Lock()
	c, ok := r.open[id]
	if ok {
		delete(r.open, id)
		r.retired[id] = struct{}{}
		// Closed under the same lock that guards RouteMsg's send.
		close(c.deliveries)
	}
	r.mu.Unlock()
	if !ok {
		log.Warningf("request to close comm id %s, which is not open", id)
	}
}

// CloseFromKernel retires a kernel-owned comm and notifies the front end.
func (r *Registry) CloseFromKernel(id string) {
	r.Close(id, nil)
	r.send(&wire.CommClose{CommID: id}, nil)
}

// Comms snapshots the open comms for a comm_info reply, optionally
// filtered by target name.
func (r *Registry) Comms(target string) map[string]wire.CommDescription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]wire.CommDescription, len(r.open))
	for id, c := range r.open {
		if target != "" && c.TargetName != target {
			continue
		}
		out[id] = wire.CommDescription{TargetName: c.TargetName}
	}
	return out
}
