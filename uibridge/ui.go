// Package uibridge hosts the front-end UI comm target: environment RPCs
// carried over comm messages plus kernel-originated UI events. Requests
// correlate by an application-level msg_id inside the payload, the same
// convention the data viewer uses.
package uibridge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/callisto-kernel/callisto/comm"
	"github.com/callisto-kernel/callisto/manifest"
)

var log = commonlog.GetLogger("callisto.ui")

// TargetName is the comm target front ends open for UI RPCs.
const TargetName = "positron.ui"

// rpcRequest is one UI RPC. The only outer method is call_method; the
// inner method names the kernel facility being called.
type rpcRequest struct {
	MsgID  string `json:"msg_id"`
	Method string `json:"method"`
	Params struct {
		Method string `json:"method"`
	} `json:"params"`
}

type rpcResponse struct {
	MsgID  string `json:"msg_id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// event is a kernel-originated notification: a comm_msg with a method and
// params but no msg_id, so the front end does not treat it as a response.
type event struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// Bridge serves one front end's UI comm.
type Bridge struct {
	comm   *comm.Comm
	config *manifest.Manifest
}

// RegisterTarget registers the UI target on the comm registry. Each open
// gets its own serving goroutine, ended by the comm closing.
func RegisterTarget(reg *comm.Registry, config *manifest.Manifest) {
	reg.RegisterTarget(TargetName, func(c *comm.Comm, data json.RawMessage) error {
		b := &Bridge{comm: c, config: config}
		b.announceWorkingDirectory()
		go b.serve()
		log.Infof("ui comm %s opened", c.ID)
		return nil
	})
}

// announceWorkingDirectory tells the newly connected front end where the
// kernel is running.
func (b *Bridge) announceWorkingDirectory() {
	dir, err := os.Getwd()
	if err != nil {
		log.Warningf("ui comm %s: cannot determine working directory: %s", b.comm.ID, err.Error())
		return
	}
	ev := event{Method: "working_directory", Params: map[string]string{"directory": dir}}
	if err := b.comm.Send(ev); err != nil {
		log.Errorf("ui comm %s: could not send event: %s", b.comm.ID, err.Error())
	}
}

func (b *Bridge) serve() {
	for delivery := range b.comm.Messages() {
		var req rpcRequest
		if err := json.Unmarshal(delivery.Data, &req); err != nil {
			log.Warningf("ui comm %s: bad RPC payload: %s", b.comm.ID, err.Error())
			continue
		}
		b.handle(req)
	}
	log.Debugf("ui comm %s closed", b.comm.ID)
}

func (b *Bridge) handle(req rpcRequest) {
	if req.Method != "call_method" {
		b.fail(req, fmt.Errorf("unknown method %q", req.Method))
		return
	}
	switch req.Params.Method {
	case "working_directory":
		dir, err := os.Getwd()
		if err != nil {
			b.fail(req, err)
			return
		}
		b.respond(req, map[string]string{"directory": dir})
	case "version":
		b.respond(req, map[string]string{
			"implementation": b.config.Kernel.Implementation,
			"version":        b.config.Kernel.ImplementationVersion,
			"banner":         b.config.Kernel.Banner,
		})
	default:
		b.fail(req, fmt.Errorf("no kernel method %q", req.Params.Method))
	}
}

func (b *Bridge) respond(req rpcRequest, result any) {
	if err := b.comm.Send(rpcResponse{MsgID: req.MsgID, Result: result}); err != nil {
		log.Errorf("ui comm %s: could not send response: %s", b.comm.ID, err.Error())
	}
}

func (b *Bridge) fail(req rpcRequest, cause error) {
	log.Warningf("ui comm %s: %s failed: %s", b.comm.ID, req.Method, cause.Error())
	if err := b.comm.Send(rpcResponse{MsgID: req.MsgID, Error: cause.Error()}); err != nil {
		log.Errorf("ui comm %s: could not send error response: %s", b.comm.ID, err.Error())
	}
}
