package socket

import (
	"fmt"

	"github.com/callisto-kernel/callisto/language"
	"github.com/callisto-kernel/callisto/wire"
)

// Control is the out-of-band role serving shutdown and interrupt. It runs
// on its own goroutine and deliberately does not take the shared handler
// lock, so it stays responsive while Shell is deep inside an execution.
type Control struct {
	socket  *Socket
	iopub   chan<- IOPubMessage
	handler language.ControlHandler

	// onShutdown is invoked after a shutdown reply has been delivered.
	onShutdown func(restart bool)
}

// NewControl creates the Control role. onShutdown may be nil.
func NewControl(socket *Socket, iopub chan<- IOPubMessage, handler language.ControlHandler,
	onShutdown func(restart bool)) *Control {
	return &Control{
		socket:     socket,
		iopub:      iopub,
		handler:    handler,
		onShutdown: onShutdown,
	}
}

// Listen runs the receive/dispatch loop until the transport closes.
func (c *Control) Listen() {
	for {
		frames, err := c.socket.RecvFrames()
		if err != nil {
			c.socket.log.Infof("control socket closed: %s", err.Error())
			return
		}
		raw, err := wire.ReadFrames(frames, c.socket.Session)
		if err != nil {
			c.socket.log.Warningf("could not read message from control socket: %s", err.Error())
			continue
		}
		msg, err := wire.FromRaw(raw)
		if err != nil {
			c.socket.log.Warningf("could not classify control message: %s", err.Error())
			continue
		}
		if err := c.process(msg); err != nil {
			c.socket.log.Warningf("could not handle control message: %s", err.Error())
		}
	}
}

func (c *Control) process(msg *wire.Message) error {
	switch content := msg.Content.(type) {
	case *wire.ShutdownRequest:
		return c.bracket(msg, func() error { return c.handleShutdownRequest(msg, content) })
	case *wire.InterruptRequest:
		return c.bracket(msg, func() error { return c.handleInterruptRequest(msg, content) })
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedMessage,
			msg.Content.MessageType(), c.socket.Name)
	}
}

// bracket surrounds a control request with busy/idle status events. No
// handler lock is taken here.
func (c *Control) bracket(msg *wire.Message, fn func() error) error {
	parent := msg.Header
	c.iopub <- IOPubMessage{Parent: &parent, Content: &wire.KernelStatus{ExecutionState: wire.StateBusy}}
	err := fn()
	c.iopub <- IOPubMessage{Parent: &parent, Content: &wire.KernelStatus{ExecutionState: wire.StateIdle}}
	return err
}

func (c *Control) handleShutdownRequest(msg *wire.Message, req *wire.ShutdownRequest) error {
	reply, exc := c.handler.HandleShutdownRequest(req)
	var err error
	if exc != nil {
		err = c.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeShutdownReply, *exc, c.socket.Session))
	} else {
		err = c.socket.SendMessage(wire.NewReply(msg, reply, c.socket.Session))
	}
	if exc == nil && c.onShutdown != nil {
		c.onShutdown(req.Restart)
	}
	return err
}

func (c *Control) handleInterruptRequest(msg *wire.Message, req *wire.InterruptRequest) error {
	reply, exc := c.handler.HandleInterruptRequest(req)
	if exc != nil {
		return c.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeInterruptReply, *exc, c.socket.Session))
	}
	return c.socket.SendMessage(wire.NewReply(msg, reply, c.socket.Session))
}
