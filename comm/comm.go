// Package comm multiplexes secondary sub-protocols over the primary
// kernel transport. Each comm is a logical channel identified by an
// opaque id; the registry demultiplexes inbound payloads to whichever
// in-process consumer owns that id.
package comm

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/callisto-kernel/callisto/wire"
)

// Initiator records which side opened a comm.
type Initiator int

const (
	FrontEnd Initiator = iota
	BackEnd
)

// Delivery is one inbound comm_msg payload handed to the comm's owner.
type Delivery struct {
	Data    json.RawMessage
	Buffers [][]byte
}

// Comm is one open logical channel. The owner consumes inbound payloads
// from Messages and sends outbound traffic with Send; both directions ride
// the Shell/IOPub transports, no socket is created per comm.
type Comm struct {
	ID         string
	TargetName string
	Initiator  Initiator

	deliveries chan Delivery
	send       Sender
}

// Messages returns the channel of inbound payloads for this comm. The
// registry closes it when the comm is retired.
func (c *Comm) Messages() <-chan Delivery {
	return c.deliveries
}

// Send publishes a comm_msg from the kernel side, with optional binary
// buffer frames.
func (c *Comm) Send(data any, buffers ...[]byte) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("comm %s: marshal payload: %w", c.ID, err)
	}
	c.send(&wire.CommMsg{CommID: c.ID, Data: raw}, buffers)
	return nil
}

func newComm(id, target string, init Initiator, send Sender) *Comm {
	return &Comm{
		ID:         id,
		TargetName: target,
		Initiator:  init,
		deliveries: make(chan Delivery, 16),
		send:       send,
	}
}

func newID() string {
	return uuid.New().String()
}
