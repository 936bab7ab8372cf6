package wire

// ShutdownRequest asks the kernel to exit, or to restart when Restart is
// set.
type ShutdownRequest struct {
	Restart bool `json:"restart"`
}

func (*ShutdownRequest) MessageType() string { return TypeShutdownRequest }

// ShutdownReply acknowledges a shutdown request; Restart echoes the
// request flag.
type ShutdownReply struct {
	Status  string `json:"status"`
	Restart bool   `json:"restart"`
}

func (*ShutdownReply) MessageType() string { return TypeShutdownReply }

// InterruptRequest asks the kernel to interrupt the in-flight execution.
type InterruptRequest struct{}

func (*InterruptRequest) MessageType() string { return TypeInterruptRequest }

// InterruptReply acknowledges an interrupt request.
type InterruptReply struct {
	Status string `json:"status"`
}

func (*InterruptReply) MessageType() string { return TypeInterruptReply }
