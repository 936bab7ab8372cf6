package socket

// Heartbeat is the liveness role: it echoes every frame set back verbatim
// and immediately. It never touches shared kernel state, so it stays
// responsive no matter what the other roles are doing.
type Heartbeat struct {
	socket *Socket
}

// NewHeartbeat creates the Heartbeat role over a bound reply socket.
func NewHeartbeat(socket *Socket) *Heartbeat {
	return &Heartbeat{socket: socket}
}

// Listen echoes until the transport closes.
func (h *Heartbeat) Listen() {
	for {
		frames, err := h.socket.RecvFrames()
		if err != nil {
			h.socket.log.Infof("heartbeat socket closed: %s", err.Error())
			return
		}
		if err := h.socket.SendFrames(frames); err != nil {
			h.socket.log.Errorf("could not echo heartbeat: %s", err.Error())
		}
	}
}
