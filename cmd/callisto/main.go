// Callisto kernel - serves an embedded Go interpreter over the Jupyter
// wire protocol.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/callisto-kernel/callisto/connection"
	"github.com/callisto-kernel/callisto/interp"
	"github.com/callisto-kernel/callisto/kernel"
	"github.com/callisto-kernel/callisto/lspbridge"
	"github.com/callisto-kernel/callisto/manifest"
	"github.com/callisto-kernel/callisto/uibridge"
)

func main() {
	connectionFile := flag.String("connection-file", "", "Path to the connection file written by the front end (required)")
	configDir := flag.String("config-dir", "", "Directory containing callisto.toml")
	verbosity := flag.Int("verbosity", -1, "Log verbosity (overrides callisto.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: callisto --connection-file <path> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Starts a Go kernel serving the sockets named in the connection file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *connectionFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := manifest.Default()
	if *configDir != "" {
		loaded, err := manifest.Load(*configDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	level := cfg.Logging.Verbosity
	if *verbosity >= 0 {
		level = *verbosity
	}
	var logPath *string
	if cfg.Logging.Path != "" {
		logPath = &cfg.Logging.Path
	}
	commonlog.Configure(level, logPath)

	conn, err := connection.Load(*connectionFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	username := os.Getenv("USER")
	if username == "" {
		username = "kernel"
	}

	k, err := kernel.New(conn, username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating kernel: %v\n", err)
		os.Exit(1)
	}

	handler, err := interp.New(k.IOPub(), cfg, k.Comms())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating interpreter: %v\n", err)
		os.Exit(1)
	}
	lspbridge.RegisterTarget(k.Comms(), handler)
	uibridge.RegisterTarget(k.Comms(), cfg)

	if err := k.Connect(handler, handler); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting kernel: %v\n", err)
		os.Exit(1)
	}

	k.WaitForShutdown()
	handler.Stop()
	k.Close()
}
