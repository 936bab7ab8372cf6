// Package wire implements the Jupyter message envelope: the signed
// multipart framing, the message header, and the closed catalog of typed
// message contents with reply construction.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/callisto-kernel/callisto/session"
)

// delimiter separates routing identities from the signed frames of an
// envelope on router-style sockets.
var delimiter = []byte("<IDS|MSG>")

// emptyDict is the serialization of an absent parent header or metadata
// dictionary.
var emptyDict = []byte("{}")

var (
	ErrMissingDelimiter = errors.New("wire: no <IDS|MSG> delimiter in message")
	ErrTooFewFrames     = errors.New("wire: not enough frames after delimiter")
	ErrBadSignature     = errors.New("wire: message signature does not validate")
)

// RawMessage is the decoded but not yet classified form of one wire
// envelope: parsed header, optional parent header, and the metadata and
// content frames kept as raw JSON until the catalog types them.
type RawMessage struct {
	Identities   [][]byte
	Header       Header
	ParentHeader *Header
	Metadata     json.RawMessage
	Content      json.RawMessage
	Buffers      [][]byte
}

// ReadFrames decodes a multipart frame set into a RawMessage. The
// signature frame is verified against the session key before any of the
// signed frames are parsed; a failed verification returns ErrBadSignature
// and nothing else.
func ReadFrames(frames [][]byte, s *session.Session) (*RawMessage, error) {
	pos := -1
	for i, f := range frames {
		if bytes.Equal(f, delimiter) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrMissingDelimiter
	}
	body := frames[pos+1:]
	if len(body) < 5 {
		return nil, fmt.Errorf("%w: got %d, need 5", ErrTooFewFrames, len(body))
	}
	sig, header, parent, metadata, content := body[0], body[1], body[2], body[3], body[4]

	if !s.Verify(sig, header, parent, metadata, content) {
		return nil, ErrBadSignature
	}

	msg := RawMessage{
		Identities: frames[:pos],
		Metadata:   json.RawMessage(metadata),
		Content:    json.RawMessage(content),
		Buffers:    body[5:],
	}
	if err := json.Unmarshal(header, &msg.Header); err != nil {
		return nil, fmt.Errorf("wire: invalid header: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(parent), emptyDict) {
		var p Header
		if err := json.Unmarshal(parent, &p); err != nil {
			return nil, fmt.Errorf("wire: invalid parent header: %w", err)
		}
		msg.ParentHeader = &p
	}
	return &msg, nil
}

// Frames serializes the message back into the multipart wire form,
// computing the signature with the session key. Read of the result yields
// an equal RawMessage.
func (m *RawMessage) Frames(s *session.Session) ([][]byte, error) {
	header, err := json.Marshal(m.Header)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal header: %w", err)
	}
	parent := emptyDict
	if m.ParentHeader != nil {
		parent, err = json.Marshal(m.ParentHeader)
		if err != nil {
			return nil, fmt.Errorf("wire: marshal parent header: %w", err)
		}
	}
	metadata := []byte(m.Metadata)
	if len(metadata) == 0 {
		metadata = emptyDict
	}
	content := []byte(m.Content)
	if len(content) == 0 {
		content = emptyDict
	}

	sig := []byte(s.Sign(header, parent, metadata, content))

	frames := make([][]byte, 0, len(m.Identities)+6+len(m.Buffers))
	frames = append(frames, m.Identities...)
	frames = append(frames, delimiter, sig, header, parent, metadata, content)
	frames = append(frames, m.Buffers...)
	return frames, nil
}
