package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/callisto-kernel/callisto/session"
)

// ErrUnknownMessageType reports a type tag outside the closed catalog.
var ErrUnknownMessageType = errors.New("wire: unknown message type")

// Message is a fully classified protocol message: routing identities,
// headers, and typed content.
type Message struct {
	Identities   [][]byte
	Header       Header
	ParentHeader *Header
	Content      Content
	Buffers      [][]byte
}

// newContent returns a zero content value for a catalog type tag.
func newContent(msgType string) (Content, bool) {
	switch msgType {
	case TypeKernelInfoRequest:
		return &KernelInfoRequest{}, true
	case TypeKernelInfoReply:
		return &KernelInfoReply{}, true
	case TypeExecuteRequest:
		return &ExecuteRequest{}, true
	case TypeExecuteReply:
		return &ExecuteReply{}, true
	case TypeExecuteInput:
		return &ExecuteInput{}, true
	case TypeExecuteResult:
		return &ExecuteResult{}, true
	case TypeExecuteError:
		return &ExecuteError{}, true
	case TypeIsCompleteRequest:
		return &IsCompleteRequest{}, true
	case TypeIsCompleteReply:
		return &IsCompleteReply{}, true
	case TypeCompleteRequest:
		return &CompleteRequest{}, true
	case TypeCompleteReply:
		return &CompleteReply{}, true
	case TypeInspectRequest:
		return &InspectRequest{}, true
	case TypeInspectReply:
		return &InspectReply{}, true
	case TypeCommInfoRequest:
		return &CommInfoRequest{}, true
	case TypeCommInfoReply:
		return &CommInfoReply{}, true
	case TypeCommOpen:
		return &CommOpen{}, true
	case TypeCommMsg:
		return &CommMsg{}, true
	case TypeCommClose:
		return &CommClose{}, true
	case TypeShutdownRequest:
		return &ShutdownRequest{}, true
	case TypeShutdownReply:
		return &ShutdownReply{}, true
	case TypeInterruptRequest:
		return &InterruptRequest{}, true
	case TypeInterruptReply:
		return &InterruptReply{}, true
	case TypeStatus:
		return &KernelStatus{}, true
	case TypeStream:
		return &Stream{}, true
	}
	return nil, false
}

// FromRaw classifies a raw envelope by its header type tag and decodes the
// content into the matching catalog type. Tags outside the catalog are a
// hard decode failure, never silently skipped.
func FromRaw(raw *RawMessage) (*Message, error) {
	content, ok := newContent(raw.Header.MsgType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, raw.Header.MsgType)
	}
	if err := json.Unmarshal(raw.Content, content); err != nil {
		return nil, fmt.Errorf("wire: invalid %s content: %w", raw.Header.MsgType, err)
	}
	return &Message{
		Identities:   raw.Identities,
		Header:       raw.Header,
		ParentHeader: raw.ParentHeader,
		Content:      content,
		Buffers:      raw.Buffers,
	}, nil
}

// ToRaw serializes the typed content back into a raw envelope.
func (m *Message) ToRaw() (*RawMessage, error) {
	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s content: %w", m.Content.MessageType(), err)
	}
	return &RawMessage{
		Identities:   m.Identities,
		Header:       m.Header,
		ParentHeader: m.ParentHeader,
		Content:      json.RawMessage(content),
		Buffers:      m.Buffers,
	}, nil
}

// Frames serializes and signs the message for the wire.
func (m *Message) Frames(s *session.Session) ([][]byte, error) {
	raw, err := m.ToRaw()
	if err != nil {
		return nil, err
	}
	return raw.Frames(s)
}

// NewMessage creates an originating message with a fresh kernel-session
// header and no parent.
func NewMessage(content Content, s *session.Session) *Message {
	return &Message{
		Header:  NewHeader(content.MessageType(), s),
		Content: content,
	}
}

// NewReply creates a reply to req carrying the given content. The reply
// keeps the request's routing identities, uses the kernel session identity
// in its own header (never the requester's), and records the request
// header as its parent.
func NewReply(req *Message, content Content, s *session.Session) *Message {
	parent := req.Header
	return &Message{
		Identities:   req.Identities,
		Header:       NewHeader(content.MessageType(), s),
		ParentHeader: &parent,
		Content:      content,
	}
}

// ErrorReply substitutes an exception for the content of a successful
// reply. Error replies do not get their own type tag; they reuse the tag
// of the reply they stand in for, which is why the tag is a field here
// rather than a constant.
type ErrorReply struct {
	Status string `json:"status"`
	Exception

	replyType string
}

func (e *ErrorReply) MessageType() string { return e.replyType }

// NewErrorReply creates a reply to req reporting a handler failure. The
// correlation rules match NewReply; replyType must be the tag of the
// successful reply the error stands in for.
func NewErrorReply(req *Message, replyType string, exc Exception, s *session.Session) *Message {
	parent := req.Header
	return &Message{
		Identities:   req.Identities,
		Header:       NewHeader(replyType, s),
		ParentHeader: &parent,
		Content: &ErrorReply{
			Status:    StatusError,
			Exception: exc,
			replyType: replyType,
		},
	}
}
