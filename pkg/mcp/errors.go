package mcp

import "fmt"

// ProtocolError reports a broken JSON-RPC exchange: an invalid response
// line, a handshake rejection, a mismatched response id, or a response
// that never arrived in time.
type ProtocolError struct {
	Method  string
	Message string
	Timeout bool
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error during %s: %s", e.Method, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ToolExecutionError reports that the tool server accepted the request
// but the tool itself failed, either through an error payload or an
// isError result.
type ToolExecutionError struct {
	Tool    string
	Code    int
	Message string
}

func (e *ToolExecutionError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tool %s failed (%d): %s", e.Tool, e.Code, e.Message)
	}
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// ProcessError reports a subprocess lifecycle failure: a missing binary,
// a spawn error, an unexpected exit, or an unkillable process.
type ProcessError struct {
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *ProcessError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
