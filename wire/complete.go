package wire

// IsCompleteRequest asks whether a code fragment forms a complete
// statement or needs continuation input.
type IsCompleteRequest struct {
	Code string `json:"code"`
}

func (*IsCompleteRequest) MessageType() string { return TypeIsCompleteRequest }

// Completeness states for IsCompleteReply.
const (
	Complete   = "complete"
	Incomplete = "incomplete"
	Invalid    = "invalid"
	Unknown    = "unknown"
)

// IsCompleteReply reports the completeness verdict; Indent is the
// suggested indentation for the continuation prompt.
type IsCompleteReply struct {
	Status string `json:"status"`
	Indent string `json:"indent"`
}

func (*IsCompleteReply) MessageType() string { return TypeIsCompleteReply }

// CompleteRequest asks for completion candidates at a cursor position.
type CompleteRequest struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

func (*CompleteRequest) MessageType() string { return TypeCompleteRequest }

// CompleteReply lists completion candidates and the code span they
// replace.
type CompleteReply struct {
	Status      string         `json:"status"`
	Matches     []string       `json:"matches"`
	CursorStart int            `json:"cursor_start"`
	CursorEnd   int            `json:"cursor_end"`
	Metadata    map[string]any `json:"metadata"`
}

func (*CompleteReply) MessageType() string { return TypeCompleteReply }

// InspectRequest asks for documentation or details about the object at a
// cursor position.
type InspectRequest struct {
	Code        string `json:"code"`
	CursorPos   int    `json:"cursor_pos"`
	DetailLevel int    `json:"detail_level"`
}

func (*InspectRequest) MessageType() string { return TypeInspectRequest }

// InspectReply carries a MIME bundle describing the inspected object.
type InspectReply struct {
	Status   string         `json:"status"`
	Found    bool           `json:"found"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

func (*InspectReply) MessageType() string { return TypeInspectReply }
