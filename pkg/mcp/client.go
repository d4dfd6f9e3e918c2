package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"repoagent/internal/observability"
)

const (
	defaultStartTimeout = 15 * time.Second
	defaultCallTimeout  = 60 * time.Second
	defaultStopGrace    = 2 * time.Second

	// Tool results can carry whole files, far past bufio's default
	// 64 KiB line limit.
	maxResponseLine = 16 * 1024 * 1024
)

// Config describes how to spawn and talk to a tool server.
type Config struct {
	Command      string
	Args         []string
	Env          []string // KEY=VALUE entries appended to the inherited environment
	StartTimeout time.Duration
	CallTimeout  time.Duration
	StopGrace    time.Duration
}

// DefaultConfig returns a config for a github-mcp-server found on PATH.
func DefaultConfig() Config {
	return Config{
		Command:      "github-mcp-server",
		Args:         []string{"stdio"},
		StartTimeout: defaultStartTimeout,
		CallTimeout:  defaultCallTimeout,
		StopGrace:    defaultStopGrace,
	}
}

type readResult struct {
	resp *response
	err  error
}

// Client runs one tool server subprocess and speaks newline-delimited
// JSON-RPC 2.0 with it over stdin/stdout.
//
// The protocol allows only one outstanding request, so every round trip
// holds the client mutex from write to response. Callers needing
// concurrent tool invocations use separate Client instances.
type Client struct {
	config Config

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	responses chan readResult
	done      chan struct{}
	id        int64
	tools     []Tool
	running   bool
}

// NewClient creates a client. The subprocess is not spawned until Start.
func NewClient(config Config) *Client {
	if config.StartTimeout == 0 {
		config.StartTimeout = defaultStartTimeout
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = defaultCallTimeout
	}
	if config.StopGrace == 0 {
		config.StopGrace = defaultStopGrace
	}
	return &Client{config: config}
}

// Start spawns the tool server, performs the initialize handshake and
// discovers the tool definitions. On any failure the subprocess is torn
// down before Start returns, so a failed Start never leaks a process.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	path, err := resolveBinary(c.config.Command)
	if err != nil {
		return &ProcessError{Op: "start", Path: c.config.Command, Message: "tool server binary not found", Err: err}
	}

	cmd := exec.Command(path, c.config.Args...)
	cmd.Env = append(os.Environ(), c.config.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &ProcessError{Op: "start", Path: path, Message: "failed to open stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ProcessError{Op: "start", Path: path, Message: "failed to open stdout pipe", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &ProcessError{Op: "start", Path: path, Message: "failed to spawn tool server", Err: err}
	}

	c.cmd = cmd
	c.stdin = stdin
	c.responses = make(chan readResult, 1)
	c.done = make(chan struct{})
	go c.listen(stdout)

	started := false
	defer func() {
		if !started {
			c.teardownLocked()
		}
	}()

	resp, err := c.roundTripLocked(ctx, "initialize", initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: clientName, Version: clientVersion},
	}, c.config.StartTimeout)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return &ProtocolError{Method: "initialize", Message: fmt.Sprintf("initialize failed: %s", resp.Error.Message)}
	}

	if err := c.notifyLocked("notifications/initialized"); err != nil {
		return err
	}

	resp, err = c.roundTripLocked(ctx, "tools/list", nil, c.config.StartTimeout)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return &ProtocolError{Method: "tools/list", Message: fmt.Sprintf("list tools failed: %s", resp.Error.Message)}
	}

	var list toolsListResult
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		return &ProtocolError{Method: "tools/list", Message: "malformed tool list", Err: err}
	}
	c.tools = list.Tools

	started = true
	c.running = true
	observability.SetToolServerUp(true)
	observability.SetToolsDiscovered(len(c.tools))

	log.Info().
		Str("command", path).
		Int("tools", len(c.tools)).
		Msg("Tool server started")

	return nil
}

// Call invokes one tool and returns the text of its result.
func (c *Client) Call(ctx context.Context, name string, arguments map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return "", &ProcessError{Op: "call", Message: "tool server not started"}
	}

	log.Debug().Str("tool", name).Msg("Calling tool")

	resp, err := c.roundTripLocked(ctx, "tools/call", callParams{Name: name, Arguments: arguments}, c.config.CallTimeout)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", &ToolExecutionError{Tool: name, Code: resp.Error.Code, Message: resp.Error.Message}
	}

	return parseCallResult(name, resp.Result)
}

// Tools returns the definitions discovered during Start.
func (c *Client) Tools() []Tool {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Running reports whether the subprocess is live.
func (c *Client) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stop terminates the subprocess: SIGTERM, a bounded grace wait, then
// SIGKILL. Safe to call when never started or already stopped.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		return nil
	}

	err := c.teardownLocked()
	log.Info().Msg("Tool server stopped")
	return err
}

// teardownLocked releases the subprocess and its pipes. Caller holds c.mu.
func (c *Client) teardownLocked() error {
	if c.cmd == nil {
		return nil
	}

	close(c.done)
	if c.stdin != nil {
		c.stdin.Close()
	}

	// stdin EOF lets a well-behaved server exit on its own; SIGTERM
	// covers the rest.
	_ = c.cmd.Process.Signal(syscall.SIGTERM)

	waited := make(chan error, 1)
	go func() { waited <- c.cmd.Wait() }()

	var err error
	select {
	case <-waited:
	case <-time.After(c.config.StopGrace):
		log.Warn().Dur("grace", c.config.StopGrace).Msg("Tool server ignored SIGTERM, killing")
		_ = c.cmd.Process.Kill()
		select {
		case <-waited:
		case <-time.After(c.config.StopGrace):
			err = &ProcessError{Op: "stop", Path: c.config.Command, Message: "tool server did not exit after kill"}
		}
	}

	c.cmd = nil
	c.stdin = nil
	c.tools = nil
	c.running = false
	observability.SetToolServerUp(false)

	return err
}

// listen reads response lines from the subprocess and hands each to the
// single waiting round trip.
func (c *Client) listen(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rr readResult
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			rr = readResult{err: err}
		} else {
			rr = readResult{resp: &resp}
		}

		select {
		case c.responses <- rr:
		case <-c.done:
			return
		}
	}
	close(c.responses)
}

// roundTripLocked sends one request and blocks for its response. Caller
// holds c.mu, which is what serializes requests on the wire.
func (c *Client) roundTripLocked(ctx context.Context, method string, params any, timeout time.Duration) (*response, error) {
	c.id++
	id := c.id

	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &ProtocolError{Method: method, Message: "failed to encode request", Err: err}
	}

	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		return nil, &ProcessError{Op: "write", Path: c.config.Command, Message: "failed to write request", Err: err}
	}

	select {
	case rr, ok := <-c.responses:
		if !ok {
			return nil, &ProcessError{Op: "read", Path: c.config.Command, Message: "tool server exited before responding"}
		}
		if rr.err != nil {
			return nil, &ProtocolError{Method: method, Message: "invalid JSON from tool server", Err: rr.err}
		}
		if rr.resp.ID != id {
			return nil, &ProtocolError{
				Method:  method,
				Message: fmt.Sprintf("response id %d does not match request id %d", rr.resp.ID, id),
			}
		}
		return rr.resp, nil

	case <-ctx.Done():
		return nil, &ProtocolError{
			Method:  method,
			Message: "request canceled",
			Timeout: ctx.Err() == context.DeadlineExceeded,
			Err:     ctx.Err(),
		}

	case <-time.After(timeout):
		return nil, &ProtocolError{
			Method:  method,
			Message: fmt.Sprintf("no response within %s", timeout),
			Timeout: true,
		}
	}
}

// notifyLocked sends a notification, which expects no response.
func (c *Client) notifyLocked(method string) error {
	req := request{JSONRPC: "2.0", Method: method}
	data, err := json.Marshal(req)
	if err != nil {
		return &ProtocolError{Method: method, Message: "failed to encode notification", Err: err}
	}
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		return &ProcessError{Op: "write", Path: c.config.Command, Message: "failed to write notification", Err: err}
	}
	return nil
}

func resolveBinary(command string) (string, error) {
	if strings.ContainsRune(command, os.PathSeparator) {
		if _, err := os.Stat(command); err != nil {
			return "", err
		}
		return command, nil
	}
	return exec.LookPath(command)
}
