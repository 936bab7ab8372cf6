package wire

import "encoding/json"

// ExecuteRequest asks the kernel to evaluate a code fragment.
type ExecuteRequest struct {
	Code            string          `json:"code"`
	Silent          bool            `json:"silent"`
	StoreHistory    bool            `json:"store_history"`
	UserExpressions json.RawMessage `json:"user_expressions,omitempty"`
	AllowStdin      bool            `json:"allow_stdin"`
	StopOnError     bool            `json:"stop_on_error"`
}

func (*ExecuteRequest) MessageType() string { return TypeExecuteRequest }

// ExecuteReply reports the outcome of an execution request.
type ExecuteReply struct {
	Status          string          `json:"status"`
	ExecutionCount  int             `json:"execution_count"`
	UserExpressions json.RawMessage `json:"user_expressions,omitempty"`
}

func (*ExecuteReply) MessageType() string { return TypeExecuteReply }

// ExecuteInput is broadcast before evaluation so every connected front end
// sees the code being run.
type ExecuteInput struct {
	Code           string `json:"code"`
	ExecutionCount int    `json:"execution_count"`
}

func (*ExecuteInput) MessageType() string { return TypeExecuteInput }

// ExecuteResult is broadcast when evaluation produces a value, as a bundle
// of MIME representations.
type ExecuteResult struct {
	ExecutionCount int            `json:"execution_count"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata"`
}

func (*ExecuteResult) MessageType() string { return TypeExecuteResult }

// ExecuteError is broadcast when evaluation fails.
type ExecuteError struct {
	Exception
}

func (*ExecuteError) MessageType() string { return TypeExecuteError }

// Stream carries captured stdout or stderr text to the front end.
type Stream struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (*Stream) MessageType() string { return TypeStream }

// ExecutionState is the two-valued kernel status broadcast around each
// request, plus the one-shot starting state at boot.
type ExecutionState string

const (
	StateBusy     ExecutionState = "busy"
	StateIdle     ExecutionState = "idle"
	StateStarting ExecutionState = "starting"
)

// KernelStatus announces a change of execution state on the IOPub channel.
type KernelStatus struct {
	ExecutionState ExecutionState `json:"execution_state"`
}

func (*KernelStatus) MessageType() string { return TypeStatus }
