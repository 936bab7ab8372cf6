// Package kernel assembles a running kernel: it binds the four protocol
// sockets from a connection file and hosts their goroutines.
package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/tliron/commonlog"

	"github.com/callisto-kernel/callisto/comm"
	"github.com/callisto-kernel/callisto/connection"
	"github.com/callisto-kernel/callisto/language"
	"github.com/callisto-kernel/callisto/session"
	"github.com/callisto-kernel/callisto/socket"
	"github.com/callisto-kernel/callisto/wire"
)

var log = commonlog.GetLogger("callisto.kernel")

// Kernel hosts one kernel session: the immutable session identity, the
// four socket roles, the IOPub fan-in queue, and the comm registry.
type Kernel struct {
	connection *connection.File
	session    *session.Session

	iopub chan socket.IOPubMessage
	comms *comm.Registry

	// handlerMu is the single lock serializing shell handler access.
	handlerMu sync.Mutex

	shutdown chan bool
	cancel   context.CancelFunc
	sockets  []*socket.Socket
}

// New creates a Kernel from a parsed connection file.
func New(conn *connection.File, username string) (*Kernel, error) {
	sess, err := session.New(username, []byte(conn.Key), conn.SignatureScheme)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		connection: conn,
		session:    sess,
		iopub:      make(chan socket.IOPubMessage, 64),
		shutdown:   make(chan bool, 1),
	}
	k.comms = comm.NewRegistry(func(content wire.Content, buffers [][]byte) {
		k.iopub <- socket.IOPubMessage{Content: content, Buffers: buffers}
	})
	return k, nil
}

// Session returns the kernel session identity.
func (k *Kernel) Session() *session.Session {
	return k.session
}

// Comms returns the comm registry, for registering target handlers and
// opening kernel-side comms.
func (k *Kernel) Comms() *comm.Registry {
	return k.comms
}

// IOPub returns the broadcast queue. Any goroutine may enqueue; ordering
// is FIFO per producer.
func (k *Kernel) IOPub() chan<- socket.IOPubMessage {
	return k.iopub
}

// Connect binds the four sockets and starts one goroutine per role. A
// bind failure on any socket is fatal and aborts startup; after Connect
// returns nil the sockets stay bound for the life of the process.
func (k *Kernel) Connect(shellHandler language.ShellHandler, controlHandler language.ControlHandler) error {
	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel

	shellSock, err := k.bind(ctx, "shell", zmq4.NewRouter(ctx), k.connection.ShellPort)
	if err != nil {
		return err
	}
	iopubSock, err := k.bind(ctx, "iopub", zmq4.NewPub(ctx), k.connection.IOPubPort)
	if err != nil {
		return err
	}
	hbSock, err := k.bind(ctx, "heartbeat", zmq4.NewRep(ctx), k.connection.HeartbeatPort)
	if err != nil {
		return err
	}
	controlSock, err := k.bind(ctx, "control", zmq4.NewRouter(ctx), k.connection.ControlPort)
	if err != nil {
		return err
	}

	shell := socket.NewShell(shellSock, k.iopub, shellHandler, &k.handlerMu, k.comms)
	iopub := socket.NewIOPub(iopubSock, k.iopub)
	heartbeat := socket.NewHeartbeat(hbSock)
	control := socket.NewControl(controlSock, k.iopub, controlHandler, k.requestShutdown)

	go shell.Listen()
	go iopub.Listen()
	go heartbeat.Listen()
	go control.Listen()

	// Announce the one-shot starting state so front ends connecting early
	// see a live kernel.
	k.iopub <- socket.IOPubMessage{Content: &wire.KernelStatus{ExecutionState: wire.StateStarting}}

	log.Infof("kernel session %s listening on %s", k.session.ID, k.connection.IP)
	return nil
}

func (k *Kernel) bind(ctx context.Context, name string, zsock zmq4.Socket, port int) (*socket.Socket, error) {
	endpoint := k.connection.Endpoint(port)
	if err := zsock.Listen(endpoint); err != nil {
		return nil, fmt.Errorf("cannot bind %s socket to %s: %w", name, endpoint, err)
	}
	s := socket.New(name, k.session, socket.ZMQ(zsock))
	k.sockets = append(k.sockets, s)
	return s, nil
}

func (k *Kernel) requestShutdown(restart bool) {
	select {
	case k.shutdown <- restart:
	default:
	}
}

// WaitForShutdown blocks until a shutdown request has been served on the
// Control socket and reports whether a restart was asked for.
func (k *Kernel) WaitForShutdown() bool {
	return <-k.shutdown
}

// Close tears down the sockets and the IOPub queue. Only meant for process
// exit; the protocol has no mid-session rebind.
func (k *Kernel) Close() {
	if k.cancel != nil {
		k.cancel()
	}
	for _, s := range k.sockets {
		if err := s.Close(); err != nil {
			log.Warningf("could not close %s socket: %s", s.Name, err.Error())
		}
	}
}
