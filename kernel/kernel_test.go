package kernel

import (
	"testing"
	"time"

	"github.com/callisto-kernel/callisto/connection"
	"github.com/callisto-kernel/callisto/wire"
)

func testConnection() *connection.File {
	return &connection.File{
		ControlPort:     50160,
		ShellPort:       57503,
		IOPubPort:       48423,
		HeartbeatPort:   43325,
		StdinPort:       52858,
		Transport:       "tcp",
		IP:              "127.0.0.1",
		Key:             "test-key",
		SignatureScheme: "hmac-sha256",
	}
}

func TestNew(t *testing.T) {
	k, err := New(testConnection(), "tester")
	if err != nil {
		t.Fatalf("New() error = %s", err.Error())
	}
	if k.Session() == nil || k.Session().ID == "" {
		t.Error("kernel has no session identity")
	}
	if k.Session().Username != "tester" {
		t.Errorf("username = %q, want tester", k.Session().Username)
	}
	if k.Comms() == nil {
		t.Error("kernel has no comm registry")
	}
}

func TestNew_RejectsBadScheme(t *testing.T) {
	conn := testConnection()
	conn.SignatureScheme = "hmac-md5"
	if _, err := New(conn, "tester"); err == nil {
		t.Error("New() accepted an unsupported signature scheme")
	}
}

func TestRegistryTrafficReachesIOPubQueue(t *testing.T) {
	k, err := New(testConnection(), "tester")
	if err != nil {
		t.Fatalf("New() error = %s", err.Error())
	}

	if _, err := k.Comms().OpenFromKernel("probe", nil); err != nil {
		t.Fatalf("OpenFromKernel() error = %s", err.Error())
	}

	select {
	case msg := <-k.iopub:
		if _, ok := msg.Content.(*wire.CommOpen); !ok {
			t.Errorf("queued type = %T, want *wire.CommOpen", msg.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("comm announcement never reached the broadcast queue")
	}
}

func TestRequestShutdown(t *testing.T) {
	k, err := New(testConnection(), "tester")
	if err != nil {
		t.Fatalf("New() error = %s", err.Error())
	}

	k.requestShutdown(true)
	// A second request while one is pending must not block the control loop.
	k.requestShutdown(false)

	if restart := k.WaitForShutdown(); !restart {
		t.Error("WaitForShutdown() = false, want the first request's restart flag")
	}
}
