// Package socket owns the four kernel transport roles (Shell, Control,
// IOPub, Heartbeat): one bound socket and one goroutine-driven loop per
// role.
package socket

import (
	"errors"
	"fmt"

	"github.com/go-zeromq/zmq4"
	"github.com/tliron/commonlog"

	"github.com/callisto-kernel/callisto/session"
	"github.com/callisto-kernel/callisto/wire"
)

// ErrUnsupportedMessage reports a recognized message arriving on a socket
// with no handler for it, e.g. a reply-only type arriving as a request.
var ErrUnsupportedMessage = errors.New("socket: unsupported message")

// Transport is the multipart frame transport beneath a Socket. The zmq
// implementation is used in production; tests substitute an in-memory one.
type Transport interface {
	// Recv blocks for the next inbound frame set. It returns io.EOF when
	// the transport has been closed.
	Recv() ([][]byte, error)
	Send(frames [][]byte) error
	Close() error
}

type zmqTransport struct {
	sock zmq4.Socket
}

func (t zmqTransport) Recv() ([][]byte, error) {
	msg, err := t.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Frames, nil
}

func (t zmqTransport) Send(frames [][]byte) error {
	return t.sock.Send(zmq4.NewMsgFrom(frames...))
}

func (t zmqTransport) Close() error {
	return t.sock.Close()
}

// ZMQ wraps a zmq socket as a Transport.
func ZMQ(sock zmq4.Socket) Transport {
	return zmqTransport{sock: sock}
}

// Socket pairs a bound transport with the kernel session used to sign and
// verify its traffic. A Socket binds once at startup and is never rebound;
// a front-end disconnect does not tear it down.
type Socket struct {
	Name    string
	Session *session.Session

	transport Transport
	log       commonlog.Logger
}

// New creates a Socket for an already-bound transport.
func New(name string, s *session.Session, t Transport) *Socket {
	return &Socket{
		Name:      name,
		Session:   s,
		transport: t,
		log:       commonlog.GetLogger(fmt.Sprintf("callisto.%s", name)),
	}
}

// RecvFrames blocks for the next raw frame set.
func (s *Socket) RecvFrames() ([][]byte, error) {
	return s.transport.Recv()
}

// SendFrames sends a raw frame set.
func (s *Socket) SendFrames(frames [][]byte) error {
	return s.transport.Send(frames)
}

// RecvMessage blocks for the next inbound message, verifies its signature,
// and classifies it against the catalog.
func (s *Socket) RecvMessage() (*wire.Message, error) {
	frames, err := s.transport.Recv()
	if err != nil {
		return nil, err
	}
	raw, err := wire.ReadFrames(frames, s.Session)
	if err != nil {
		return nil, err
	}
	return wire.FromRaw(raw)
}

// SendMessage signs and sends a message.
func (s *Socket) SendMessage(msg *wire.Message) error {
	frames, err := msg.Frames(s.Session)
	if err != nil {
		return err
	}
	return s.transport.Send(frames)
}

// Close closes the underlying transport.
func (s *Socket) Close() error {
	return s.transport.Close()
}
