package wire

import (
	"time"

	"github.com/google/uuid"

	"github.com/callisto-kernel/callisto/session"
)

// ProtocolVersion is the Jupyter messaging protocol version this kernel
// speaks.
const ProtocolVersion = "5.3"

// Header identifies one message: a unique id, the originating session, and
// the type tag that selects the content schema.
type Header struct {
	MsgID     string `json:"msg_id"`
	SessionID string `json:"session"`
	Username  string `json:"username"`
	Date      string `json:"date"`
	MsgType   string `json:"msg_type"`
	Version   string `json:"version"`
}

// NewHeader stamps a fresh header for an outgoing message of the given
// type, using the kernel's session identity.
func NewHeader(msgType string, s *session.Session) Header {
	return Header{
		MsgID:     uuid.New().String(),
		SessionID: s.ID,
		Username:  s.Username,
		Date:      time.Now().UTC().Format(time.RFC3339),
		MsgType:   msgType,
		Version:   ProtocolVersion,
	}
}
