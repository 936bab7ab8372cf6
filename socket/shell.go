package socket

import (
	"fmt"
	"sync"

	"github.com/callisto-kernel/callisto/comm"
	"github.com/callisto-kernel/callisto/language"
	"github.com/callisto-kernel/callisto/wire"
)

// Shell is the execution role: it receives requests from the front end and
// dispatches them to the language handler, bracketing every request with
// busy/idle status events on IOPub.
type Shell struct {
	socket  *Socket
	iopub   chan<- IOPubMessage
	handler language.ShellHandler
	comms   *comm.Registry

	// handlerMu serializes access to the shared handler capability; at
	// most one logical request is inside the handler at a time.
	handlerMu *sync.Mutex
}

// NewShell creates the Shell role. handlerMu is shared with whoever else
// may reach into the handler.
func NewShell(socket *Socket, iopub chan<- IOPubMessage, handler language.ShellHandler,
	handlerMu *sync.Mutex, comms *comm.Registry) *Shell {
	return &Shell{
		socket:    socket,
		iopub:     iopub,
		handler:   handler,
		comms:     comms,
		handlerMu: handlerMu,
	}
}

// Listen runs the receive/dispatch loop until the transport closes.
// Decode and signature failures drop the message and keep serving; only a
// transport-level receive error ends the loop.
func (s *Shell) Listen() {
	for {
		frames, err := s.socket.RecvFrames()
		if err != nil {
			s.socket.log.Infof("shell socket closed: %s", err.Error())
			return
		}
		raw, err := wire.ReadFrames(frames, s.socket.Session)
		if err != nil {
			s.socket.log.Warningf("could not read message from shell socket: %s", err.Error())
			continue
		}
		msg, err := wire.FromRaw(raw)
		if err != nil {
			s.socket.log.Warningf("could not classify shell message: %s", err.Error())
			continue
		}
		if err := s.process(msg); err != nil {
			s.socket.log.Warningf("could not handle shell message: %s", err.Error())
		}
	}
}

// process routes one classified message. Failures while handling are
// delivered to the client as error replies, so errors surfacing here are
// mostly "can't deliver to client".
func (s *Shell) process(msg *wire.Message) error {
	switch content := msg.Content.(type) {
	case *wire.KernelInfoRequest:
		return s.handleRequest(msg, func() error { return s.handleInfoRequest(msg, content) })
	case *wire.ExecuteRequest:
		return s.handleRequest(msg, func() error { return s.handleExecuteRequest(msg, content) })
	case *wire.IsCompleteRequest:
		return s.handleRequest(msg, func() error { return s.handleIsCompleteRequest(msg, content) })
	case *wire.CompleteRequest:
		return s.handleRequest(msg, func() error { return s.handleCompleteRequest(msg, content) })
	case *wire.InspectRequest:
		return s.handleRequest(msg, func() error { return s.handleInspectRequest(msg, content) })
	case *wire.CommInfoRequest:
		return s.handleRequest(msg, func() error { return s.handleCommInfoRequest(msg, content) })
	case *wire.CommOpen:
		return s.handleRequest(msg, func() error {
			s.comms.Open(content.CommID, content.TargetName, content.Data)
			return nil
		})
	case *wire.CommMsg:
		return s.handleRequest(msg, func() error {
			s.comms.RouteMsg(content.CommID, content.Data, msg.Buffers)
			return nil
		})
	case *wire.CommClose:
		return s.handleRequest(msg, func() error {
			s.comms.Close(content.CommID, content.Data)
			return nil
		})
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedMessage,
			msg.Content.MessageType(), s.socket.Name)
	}
}

// handleRequest wraps every shell handler invocation: it announces busy,
// locks the shared handler, runs the handler, and always returns to idle,
// even when the handler failed. Front ends will not submit further work
// until they see idle.
func (s *Shell) handleRequest(msg *wire.Message, fn func() error) error {
	s.publishStatus(msg, wire.StateBusy)

	s.handlerMu.Lock()
	err := fn()
	s.handlerMu.Unlock()

	s.publishStatus(msg, wire.StateIdle)
	return err
}

// publishStatus queues a status event on IOPub, parented to the request.
func (s *Shell) publishStatus(msg *wire.Message, state wire.ExecutionState) {
	parent := msg.Header
	s.iopub <- IOPubMessage{
		Parent:  &parent,
		Content: &wire.KernelStatus{ExecutionState: state},
	}
}

func (s *Shell) handleInfoRequest(msg *wire.Message, req *wire.KernelInfoRequest) error {
	reply, exc := s.handler.HandleInfoRequest(req)
	if exc != nil {
		return s.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeKernelInfoReply, *exc, s.socket.Session))
	}
	return s.socket.SendMessage(wire.NewReply(msg, reply, s.socket.Session))
}

func (s *Shell) handleExecuteRequest(msg *wire.Message, req *wire.ExecuteRequest) error {
	reply, exc := s.handler.HandleExecuteRequest(req, &msg.Header)
	if exc != nil {
		return s.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeExecuteReply, *exc, s.socket.Session))
	}
	return s.socket.SendMessage(wire.NewReply(msg, reply, s.socket.Session))
}

func (s *Shell) handleIsCompleteRequest(msg *wire.Message, req *wire.IsCompleteRequest) error {
	reply, exc := s.handler.HandleIsCompleteRequest(req)
	if exc != nil {
		return s.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeIsCompleteReply, *exc, s.socket.Session))
	}
	return s.socket.SendMessage(wire.NewReply(msg, reply, s.socket.Session))
}

func (s *Shell) handleCompleteRequest(msg *wire.Message, req *wire.CompleteRequest) error {
	reply, exc := s.handler.HandleCompleteRequest(req)
	if exc != nil {
		return s.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeCompleteReply, *exc, s.socket.Session))
	}
	return s.socket.SendMessage(wire.NewReply(msg, reply, s.socket.Session))
}

func (s *Shell) handleInspectRequest(msg *wire.Message, req *wire.InspectRequest) error {
	reply, exc := s.handler.HandleInspectRequest(req)
	if exc != nil {
		return s.socket.SendMessage(wire.NewErrorReply(msg, wire.TypeInspectReply, *exc, s.socket.Session))
	}
	return s.socket.SendMessage(wire.NewReply(msg, reply, s.socket.Session))
}

func (s *Shell) handleCommInfoRequest(msg *wire.Message, req *wire.CommInfoRequest) error {
	reply := &wire.CommInfoReply{
		Status: wire.StatusOk,
		Comms:  s.comms.Comms(req.TargetName),
	}
	return s.socket.SendMessage(wire.NewReply(msg, reply, s.socket.Session))
}
