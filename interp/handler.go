package interp

import (
	"bytes"
	"fmt"
	"go/scanner"
	"go/token"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	yaegi "github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/callisto-kernel/callisto/comm"
	"github.com/callisto-kernel/callisto/dataview"
	"github.com/callisto-kernel/callisto/manifest"
	"github.com/callisto-kernel/callisto/socket"
	"github.com/callisto-kernel/callisto/wire"
)

var log = commonlog.GetLogger("callisto.interp")

// Handler serves the shell and control sockets for an embedded Go
// interpreter. All interpreter access goes through the Worker; the
// handler itself only runs on the shell loop goroutine, except for the
// control methods, which are safe because they never touch the
// interpreter.
type Handler struct {
	worker *Worker
	iopub  chan<- socket.IOPubMessage
	config *manifest.Manifest
	comms  *comm.Registry

	stdout streamBuffer
	stderr streamBuffer

	executionCount int
}

// New creates a Handler with a fresh interpreter preloaded with the Go
// standard library symbols and, when a comm registry is given, the
// "callisto" package exposing kernel front-end helpers to user code.
func New(iopub chan<- socket.IOPubMessage, config *manifest.Manifest, comms *comm.Registry) (*Handler, error) {
	h := &Handler{
		iopub:  iopub,
		config: config,
		comms:  comms,
	}
	i := yaegi.New(yaegi.Options{
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("interp: cannot load stdlib symbols: %w", err)
	}
	if comms != nil {
		err := i.Use(yaegi.Exports{
			"callisto/callisto": {
				"View": reflect.ValueOf(h.view),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("interp: cannot export kernel helpers: %w", err)
		}
	}
	h.worker = NewWorker(i)
	return h, nil
}

// view is exported to user code as callisto.View: it opens a data viewer
// comm for a table of string values.
func (h *Handler) view(title string, columns []string, rows [][]string) error {
	cols := make([]dataview.Column, len(columns))
	for i, name := range columns {
		cols[i] = dataview.Column{Name: name, Type: "string"}
	}
	_, err := dataview.Show(h.comms, title, cols, rows, h.config.DataView.PageSize)
	return err
}

// Stop shuts down the interpreter worker.
func (h *Handler) Stop() {
	h.worker.Stop()
}

func (h *Handler) HandleInfoRequest(_ *wire.KernelInfoRequest) (*wire.KernelInfoReply, *wire.Exception) {
	return &wire.KernelInfoReply{
		Status:                wire.StatusOk,
		ProtocolVersion:       wire.ProtocolVersion,
		Implementation:        h.config.Kernel.Implementation,
		ImplementationVersion: h.config.Kernel.ImplementationVersion,
		Banner:                h.config.Kernel.Banner,
		LanguageInfo: wire.LanguageInfo{
			Name:          "go",
			Version:       strings.TrimPrefix(runtime.Version(), "go"),
			FileExtension: ".go",
			Mimetype:      "text/x-go",
			PygmentsLexer: "go",
		},
		HelpLinks: []wire.HelpLink{
			{Text: "Go documentation", URL: "https://go.dev/doc/"},
		},
	}, nil
}

func (h *Handler) HandleExecuteRequest(req *wire.ExecuteRequest, parent *wire.Header) (*wire.ExecuteReply, *wire.Exception) {
	if !req.Silent {
		h.executionCount++
		h.publish(parent, &wire.ExecuteInput{
			Code:           req.Code,
			ExecutionCount: h.executionCount,
		})
	}

	value, err := h.worker.Do(func(i *yaegi.Interpreter) (any, error) {
		return i.Eval(req.Code)
	})
	h.flushStreams(parent)

	if err != nil {
		exc := wire.Exception{
			Name:      "EvalError",
			Value:     err.Error(),
			Traceback: []string{err.Error()},
		}
		h.publish(parent, &wire.ExecuteError{Exception: exc})
		return nil, &exc
	}

	if v, ok := value.(reflect.Value); ok && v.IsValid() && !req.Silent {
		h.publish(parent, &wire.ExecuteResult{
			ExecutionCount: h.executionCount,
			Data:           map[string]any{"text/plain": fmt.Sprintf("%v", v)},
			Metadata:       map[string]any{},
		})
	}
	return &wire.ExecuteReply{
		Status:         wire.StatusOk,
		ExecutionCount: h.executionCount,
	}, nil
}

func (h *Handler) HandleIsCompleteRequest(req *wire.IsCompleteRequest) (*wire.IsCompleteReply, *wire.Exception) {
	return completeness(req.Code), nil
}

func (h *Handler) HandleCompleteRequest(req *wire.CompleteRequest) (*wire.CompleteReply, *wire.Exception) {
	start, end := wordAt(req.Code, req.CursorPos)
	return &wire.CompleteReply{
		Status:      wire.StatusOk,
		Matches:     h.Complete(req.Code[start:end]),
		CursorStart: start,
		CursorEnd:   end,
		Metadata:    map[string]any{},
	}, nil
}

// Complete returns the sorted completion candidates for a prefix: Go
// keywords plus every symbol defined in the interpreter session. Also
// serves the LSP bridge.
func (h *Handler) Complete(prefix string) []string {
	seen := make(map[string]struct{})
	var matches []string
	add := func(name string) {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		matches = append(matches, name)
	}
	for _, kw := range goKeywords {
		add(kw)
	}
	globals, err := h.worker.Do(func(i *yaegi.Interpreter) (any, error) {
		return i.Symbols("main"), nil
	})
	if err == nil {
		if pkgs, ok := globals.(map[string]map[string]reflect.Value); ok {
			for _, syms := range pkgs {
				for name := range syms {
					add(name)
				}
			}
		}
	}
	sort.Strings(matches)
	return matches
}

// Hover returns documentation for a word, or "" when there is none. Also
// serves the LSP bridge.
func (h *Handler) Hover(word string) string {
	return keywordDocs[word]
}

func (h *Handler) HandleInspectRequest(req *wire.InspectRequest) (*wire.InspectReply, *wire.Exception) {
	start, end := wordAt(req.Code, req.CursorPos)
	word := req.Code[start:end]
	doc, found := keywordDocs[word]

	reply := &wire.InspectReply{
		Status:   wire.StatusOk,
		Found:    found,
		Data:     map[string]any{},
		Metadata: map[string]any{},
	}
	if found {
		reply.Data["text/plain"] = doc
	}
	return reply, nil
}

func (h *Handler) HandleShutdownRequest(req *wire.ShutdownRequest) (*wire.ShutdownReply, *wire.Exception) {
	return &wire.ShutdownReply{Status: wire.StatusOk, Restart: req.Restart}, nil
}

func (h *Handler) HandleInterruptRequest(_ *wire.InterruptRequest) (*wire.InterruptReply, *wire.Exception) {
	// yaegi has no preemption point; the request is acknowledged so the
	// front end does not hang, but a running evaluation cannot be stopped.
	log.Warning("interrupt requested, but the Go interpreter cannot preempt a running evaluation")
	return &wire.InterruptReply{Status: wire.StatusOk}, nil
}

func (h *Handler) publish(parent *wire.Header, content wire.Content) {
	h.iopub <- socket.IOPubMessage{Parent: parent, Content: content}
}

// flushStreams forwards captured stdout/stderr from the last evaluation.
func (h *Handler) flushStreams(parent *wire.Header) {
	if out := h.stdout.take(); out != "" {
		h.publish(parent, &wire.Stream{Name: "stdout", Text: out})
	}
	if errOut := h.stderr.take(); errOut != "" {
		h.publish(parent, &wire.Stream{Name: "stderr", Text: errOut})
	}
}

// streamBuffer collects interpreter output. User code may spawn its own
// goroutines that are still writing when an evaluation returns, so every
// access is locked.
type streamBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *streamBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// take returns the buffered text and clears the buffer.
func (b *streamBuffer) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

// completeness decides whether a fragment is a finished statement by
// scanning for unbalanced delimiters.
func completeness(code string) *wire.IsCompleteReply {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(code))

	var s scanner.Scanner
	s.Init(file, []byte(code), func(token.Position, string) {}, 0)

	depth := 0
	for {
		_, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		switch tok {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			depth--
		}
	}
	switch {
	case depth > 0:
		return &wire.IsCompleteReply{
			Status: wire.Incomplete,
			Indent: strings.Repeat("    ", depth),
		}
	case depth < 0:
		return &wire.IsCompleteReply{Status: wire.Invalid}
	default:
		return &wire.IsCompleteReply{Status: wire.Complete}
	}
}

// wordAt returns the bounds of the identifier surrounding pos.
func wordAt(code string, pos int) (int, int) {
	if pos > len(code) {
		pos = len(code)
	}
	isWord := func(b byte) bool {
		return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
	}
	start := pos
	for start > 0 && isWord(code[start-1]) {
		start--
	}
	end := pos
	for end < len(code) && isWord(code[end]) {
		end++
	}
	return start, end
}

var goKeywords = []string{
	"break", "case", "chan", "const", "continue", "default", "defer",
	"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
	"interface", "map", "package", "range", "return", "select", "struct",
	"switch", "type", "var",
}

var keywordDocs = map[string]string{
	"func":   "func declares a function or method.",
	"go":     "go starts a new goroutine running the given function call.",
	"chan":   "chan declares a channel type for communicating between goroutines.",
	"defer":  "defer schedules a function call to run when the surrounding function returns.",
	"select": "select waits on multiple channel operations.",
	"range":  "range iterates over slices, maps, strings, channels, and integers.",
}
