// Package connection loads the JSON connection file a front end writes
// before launching the kernel. The file names the transport, the bind
// address, one port per socket role, and the signing key.
package connection

import (
	"encoding/json"
	"fmt"
	"os"
)

// File is the parsed connection descriptor.
type File struct {
	ControlPort     int    `json:"control_port"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	HeartbeatPort   int    `json:"hb_port"`
	StdinPort       int    `json:"stdin_port"`
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	Key             string `json:"key"`
	SignatureScheme string `json:"signature_scheme"`
}

// Load parses a connection file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read connection file %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse error in connection file %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid connection file %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Transport == "" {
		return fmt.Errorf("missing transport")
	}
	if f.IP == "" {
		return fmt.Errorf("missing ip address")
	}
	for _, p := range []struct {
		name string
		port int
	}{
		{"control_port", f.ControlPort},
		{"shell_port", f.ShellPort},
		{"iopub_port", f.IOPubPort},
		{"hb_port", f.HeartbeatPort},
	} {
		if p.port <= 0 {
			return fmt.Errorf("missing or invalid %s", p.name)
		}
	}
	return nil
}

// Endpoint formats the bind endpoint for one of the ports in the file,
// e.g. "tcp://127.0.0.1:53421".
func (f *File) Endpoint(port int) string {
	return fmt.Sprintf("%s://%s:%d", f.Transport, f.IP, port)
}
