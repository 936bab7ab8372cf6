package socket

import (
	"github.com/callisto-kernel/callisto/wire"
)

// IOPubMessage is one event queued for broadcast: the content to publish
// and the header of the request it is correlated to, if any.
type IOPubMessage struct {
	Parent  *wire.Header
	Content wire.Content
	Buffers [][]byte
}

// IOPub is the broadcast role. Unlike the other roles it never receives
// from the front end: it drains a fan-in queue that any goroutine may feed
// and publishes each item in arrival order. Ordering is FIFO per producer
// only; events from racing producers may interleave either way.
type IOPub struct {
	socket *Socket
	queue  <-chan IOPubMessage
}

// NewIOPub creates the IOPub role over a bound publish socket.
func NewIOPub(socket *Socket, queue <-chan IOPubMessage) *IOPub {
	return &IOPub{socket: socket, queue: queue}
}

// Listen drains the queue until it is closed. Delivery failures are
// logged and do not stop the loop; a publish socket tolerates having no
// subscriber.
func (p *IOPub) Listen() {
	for item := range p.queue {
		msg := wire.NewMessage(item.Content, p.socket.Session)
		msg.ParentHeader = item.Parent
		msg.Buffers = item.Buffers
		if err := p.socket.SendMessage(msg); err != nil {
			p.socket.log.Errorf("could not publish %s event: %s",
				item.Content.MessageType(), err.Error())
		}
	}
}
