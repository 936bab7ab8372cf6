// Package lspbridge hosts a language-server bridge as a comm target. The
// front end opens the comm with a client address; the bridge runs a glsp
// server there, while control traffic stays on the comm envelope types.
package lspbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/callisto-kernel/callisto/comm"
)

const lspName = "callisto-lsp"

// TargetName is the comm target front ends open to start the bridge.
const TargetName = "positron.lsp"

var log = commonlog.GetLogger("callisto.lsp")

// Completer is the slice of the language handler the bridge needs:
// completion candidates for a prefix and hover text for a word.
type Completer interface {
	Complete(prefix string) []string
	Hover(word string) string
}

// startParams is the comm_open payload for the bridge.
type startParams struct {
	ClientAddress string `json:"client_address"`
}

// RegisterTarget registers the bridge target on the comm registry.
func RegisterTarget(reg *comm.Registry, completer Completer) {
	reg.RegisterTarget(TargetName, func(c *comm.Comm, data json.RawMessage) error {
		var params startParams
		if err := json.Unmarshal(data, &params); err != nil {
			return fmt.Errorf("lspbridge: bad open payload: %w", err)
		}
		if params.ClientAddress == "" {
			return fmt.Errorf("lspbridge: open payload has no client_address")
		}

		srv := NewServer(completer)
		go func() {
			// Unlike the four kernel sockets, the bridge is per-session
			// and keeps accepting new clients after a disconnect.
			if err := srv.RunTCP(params.ClientAddress); err != nil {
				log.Errorf("bridge server stopped: %s", err.Error())
			}
		}()
		go func() {
			// No control sub-protocol is defined yet; drain until close.
			for range c.Messages() {
			}
			log.Debugf("lsp comm %s closed", c.ID)
		}()

		log.Infof("starting LSP bridge for client at %s", params.ClientAddress)
		return nil
	})
}

// Server bridges LSP editor features to the language handler.
type Server struct {
	completer Completer

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewServer creates a new LSP bridge server.
func NewServer(completer Completer) *Server {
	s := &Server{
		completer: completer,
		docs:      make(map[string]string),
		version:   "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// RunTCP serves LSP clients on the given address. Blocks for the life of
// the bridge; clients may connect, disconnect, and reconnect.
func (s *Server) RunTCP(address string) error {
	return s.server.RunTCP(address)
}

// --- LSP lifecycle handlers ---

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.mu.Lock()
	s.docs[string(params.TextDocument.URI)] = params.TextDocument.Text
	s.mu.Unlock()
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.docs, string(params.TextDocument.URI))
	s.mu.Unlock()
	return nil
}

// --- Language features ---

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	prefix := wordBefore(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	var items []protocol.CompletionItem
	for _, match := range s.completer.Complete(prefix) {
		items = append(items, protocol.CompletionItem{Label: match})
	}
	return items, nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := wordBefore(text, params.Position)
	if word == "" {
		return nil, nil
	}
	doc := s.completer.Hover(word)
	if doc == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: doc,
		},
	}, nil
}

// wordBefore extracts the identifier ending at the given position.
func wordBefore(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	start := col
	for start > 0 {
		b := line[start-1]
		if b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' {
			start--
			continue
		}
		break
	}
	return line[start:col]
}

func boolPtr(b bool) *bool {
	return &b
}
