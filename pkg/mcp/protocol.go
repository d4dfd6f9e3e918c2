package mcp

import (
	"encoding/json"
	"strings"
)

const (
	protocolVersion = "2024-11-05"
	clientName      = "repoagent"
	clientVersion   = "1.0.0"
)

// JSON-RPC messages. A request without an id is a notification and
// receives no response.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

// Tool is one tool definition discovered from the server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// parseCallResult flattens a tools/call result into text. Results whose
// content carries no text blocks are returned as raw JSON so nothing is
// silently dropped.
func parseCallResult(tool string, raw json.RawMessage) (string, error) {
	var result callResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", &ProtocolError{
			Method:  "tools/call",
			Message: "malformed tool result",
			Err:     err,
		}
	}

	var texts []string
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	text := strings.Join(texts, "\n")
	if text == "" && len(result.Content) == 0 {
		text = string(raw)
	}

	if result.IsError {
		return "", &ToolExecutionError{Tool: tool, Message: text}
	}
	return text, nil
}
