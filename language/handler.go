// Package language defines the capability an embedded language runtime
// must provide to be served as a kernel.
package language

import "github.com/callisto-kernel/callisto/wire"

// ShellHandler is the abstract handler capability behind the Shell
// socket: one method per request variant. A single implementation exists
// per embedded language. The Shell loop serializes calls, so at most one
// logical request is inside the handler at a time; implementations may
// still hand long-running work to their own worker goroutine.
//
// Handlers report failures as a *wire.Exception, which the socket layer
// converts into a protocol error reply.
type ShellHandler interface {
	HandleInfoRequest(req *wire.KernelInfoRequest) (*wire.KernelInfoReply, *wire.Exception)

	// HandleExecuteRequest receives the originating header so it can
	// correlate the IOPub traffic it emits (execute_input, stream,
	// execute_result) to the request.
	HandleExecuteRequest(req *wire.ExecuteRequest, parent *wire.Header) (*wire.ExecuteReply, *wire.Exception)

	HandleIsCompleteRequest(req *wire.IsCompleteRequest) (*wire.IsCompleteReply, *wire.Exception)
	HandleCompleteRequest(req *wire.CompleteRequest) (*wire.CompleteReply, *wire.Exception)
	HandleInspectRequest(req *wire.InspectRequest) (*wire.InspectReply, *wire.Exception)
}

// ControlHandler serves the out-of-band Control socket. It must be
// callable while a ShellHandler invocation is still in flight: interrupt
// and shutdown exist precisely to reach a busy kernel, so implementations
// must not share the execution lock.
type ControlHandler interface {
	HandleShutdownRequest(req *wire.ShutdownRequest) (*wire.ShutdownReply, *wire.Exception)
	HandleInterruptRequest(req *wire.InterruptRequest) (*wire.InterruptReply, *wire.Exception)
}
