// Package session holds the kernel's per-process identity and the keyed-hash
// signer used to authenticate every message exchanged with the front end.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/google/uuid"
)

// SchemeHMACSHA256 is the only signature scheme Callisto implements. It is
// also the only scheme Jupyter front ends emit in practice.
const SchemeHMACSHA256 = "hmac-sha256"

// Session is the immutable identity of one kernel process: a unique session
// id, the username reported in message headers, and the shared signing key
// from the connection file. It is created once at startup and shared
// read-only by every socket; no component may mutate it.
type Session struct {
	ID       string
	Username string

	key    []byte
	scheme string
}

// New creates a Session with a fresh unique id. An empty key disables
// signing entirely, which the protocol permits for local transports.
func New(username string, key []byte, scheme string) (*Session, error) {
	if len(key) > 0 && scheme != SchemeHMACSHA256 {
		return nil, fmt.Errorf("session: unsupported signature scheme %q", scheme)
	}
	return &Session{
		ID:       uuid.New().String(),
		Username: username,
		key:      key,
		scheme:   scheme,
	}, nil
}

// Sign computes the lowercase-hex keyed hash over the given frames, in
// order. With no signing key configured the signature is the empty string.
func (s *Session) Sign(frames ...[]byte) string {
	if len(s.key) == 0 {
		return ""
	}
	mac := s.newMAC()
	for _, f := range frames {
		mac.Write(f)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature for the given frames.
// The comparison is constant-time. With no signing key configured every
// message verifies.
func (s *Session) Verify(sig []byte, frames ...[]byte) bool {
	if len(s.key) == 0 {
		return true
	}
	want := s.Sign(frames...)
	return hmac.Equal(sig, []byte(want))
}

func (s *Session) newMAC() hash.Hash {
	return hmac.New(sha256.New, s.key)
}
