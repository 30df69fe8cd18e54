// Package remotekernel exposes a kernel.Kernel over a ZeroMQ REP socket so a
// client process can drive cell creation/mutation/evaluation without linking
// StatForge directly (spec §3's embeddable-library framing also implies an
// out-of-process surface for polyglot callers).
//
// It is adapted from kernel/kernel.go's ZeroMQ socket lifecycle and
// HMAC-signed frame discipline. The Jupyter wire protocol -- five sockets
// (shell/control/iopub/stdin/heartbeat), Header/ParentHeader envelopes,
// execute_request/kernel_info_request message types -- is replaced wholesale:
// StatForge has one request/reply command grammar and no streaming output,
// so a single REP socket and a flat Request/Response pair cover it.
package remotekernel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-zeromq/zmq4"

	"github.com/Drox346/statforge/kernel"
	"github.com/Drox346/statforge/sferr"
)

// ConnectionInfo describes how to bind the REP socket, the same shape a
// client-side connection file supplies.
type ConnectionInfo struct {
	Transport string `json:"transport"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Key       string `json:"key"`
}

// Request is one command sent to the remote kernel.
type Request struct {
	MsgID        string   `json:"msg_id"`
	Command      string   `json:"command"`
	ID           string   `json:"id"`
	Value        float64  `json:"value"`
	Formula      string   `json:"formula"`
	Dependencies []string `json:"dependencies"`
}

// Response answers a Request. Value is only meaningful for "get_value"; ErrorCode
// is sferr's stable numeric code (spec §6) so a client never has to parse
// the human-readable ErrorMessage to branch on failure kind.
type Response struct {
	MsgID        string  `json:"msg_id"`
	Status       string  `json:"status"`
	Value        float64 `json:"value,omitempty"`
	ErrorCode    int     `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// RemoteKernel serves a kernel.Kernel's command surface over a REP socket.
type RemoteKernel struct {
	config   ConnectionInfo
	sock     zmq4.Socket
	kernel   *kernel.Kernel
	shutdown chan struct{}
}

// New reads configPath (a JSON ConnectionInfo file) and wraps k for remote
// access. k must not be driven from anywhere else once Start is called.
func New(configPath string, k *kernel.Kernel) (*RemoteKernel, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("remotekernel: failed to read connection file: %w", err)
	}

	var config ConnectionInfo
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("remotekernel: failed to parse connection file: %w", err)
	}

	return &RemoteKernel{
		config:   config,
		kernel:   k,
		shutdown: make(chan struct{}),
	}, nil
}

// Start binds the REP socket and serves requests until Stop is called.
func (rk *RemoteKernel) Start() error {
	ctx := context.Background()
	rk.sock = zmq4.NewRep(ctx)

	addr := fmt.Sprintf("%s://%s:%d", rk.config.Transport, rk.config.IP, rk.config.Port)
	if err := rk.sock.Listen(addr); err != nil {
		return fmt.Errorf("remotekernel: failed to bind to %s: %w", addr, err)
	}
	log.Printf("remotekernel: listening on %s", addr)

	for {
		select {
		case <-rk.shutdown:
			return nil
		default:
		}

		req, err := rk.receiveRequest()
		if err != nil {
			log.Printf("remotekernel: receive error: %v", err)
			continue
		}

		resp := rk.dispatch(req)
		if err := rk.sendResponse(resp); err != nil {
			log.Printf("remotekernel: send error: %v", err)
		}
	}
}

// Stop closes the REP socket and ends the serve loop.
func (rk *RemoteKernel) Stop() {
	close(rk.shutdown)
	if rk.sock != nil {
		rk.sock.Close()
	}
}

// receiveRequest reads one signed frame pair: <HMAC> <payload-json>.
func (rk *RemoteKernel) receiveRequest() (*Request, error) {
	msg, err := rk.sock.Recv()
	if err != nil {
		return nil, err
	}
	if len(msg.Frames) != 2 {
		return nil, fmt.Errorf("expected 2 frames, got %d", len(msg.Frames))
	}

	signature := string(msg.Frames[0])
	payload := msg.Frames[1]

	if expected := rk.sign(payload); signature != expected {
		return nil, fmt.Errorf("signature mismatch")
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid request payload: %w", err)
	}
	return &req, nil
}

func (rk *RemoteKernel) sendResponse(resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	signature := rk.sign(payload)
	zmsg := zmq4.NewMsgFrom([]byte(signature), payload)
	return rk.sock.Send(zmsg)
}

func (rk *RemoteKernel) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(rk.config.Key))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// dispatch maps one Request onto a kernel.Kernel call and shapes its result
// as a Response. It never panics on a malformed request: unknown commands
// fail with sferr.InvalidDsl rather than crashing the serve loop.
func (rk *RemoteKernel) dispatch(req *Request) *Response {
	resp := &Response{MsgID: req.MsgID}

	var err error
	switch req.Command {
	case "create_value":
		err = rk.kernel.CreateValueCell(req.ID, req.Value)
	case "create_formula":
		err = rk.kernel.CreateFormulaCell(req.ID, req.Formula)
	case "create_aggregator":
		err = rk.kernel.CreateAggregatorCell(req.ID, req.Dependencies)
	case "set_value":
		err = rk.kernel.SetCellValue(req.ID, req.Value)
	case "set_formula":
		err = rk.kernel.SetCellFormula(req.ID, req.Formula)
	case "set_dependencies":
		err = rk.kernel.SetCellDependencies(req.ID, req.Dependencies)
	case "remove":
		err = rk.kernel.RemoveCell(req.ID)
	case "get_value":
		var v float64
		v, err = rk.kernel.GetCellValue(req.ID)
		resp.Value = v
	case "evaluate":
		err = rk.kernel.Evaluate()
	case "reset":
		rk.kernel.Reset()
	default:
		err = sferr.New(sferr.InvalidDsl, "unknown remote command %q", req.Command)
	}

	if err != nil {
		resp.Status = "error"
		if sfErr, ok := err.(*sferr.Error); ok {
			resp.ErrorCode = sfErr.Code()
			resp.ErrorMessage = sfErr.Error()
		} else {
			resp.ErrorMessage = err.Error()
		}
		return resp
	}

	resp.Status = "ok"
	return resp
}
