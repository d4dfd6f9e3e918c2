package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoagent/pkg/mcp"
)

type fakeRunner struct {
	calls []fakeCall
	text  string
	err   error
}

type fakeCall struct {
	name string
	args map[string]any
}

func (r *fakeRunner) Call(_ context.Context, name string, arguments map[string]any) (string, error) {
	r.calls = append(r.calls, fakeCall{name: name, args: arguments})
	return r.text, r.err
}

var branchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"owner": {"type": "string"},
		"repo": {"type": "string"}
	},
	"required": ["owner", "repo"]
}`)

func testDefs() []Definition {
	return []Definition{
		{Name: "list_branches", Description: "List branches", InputSchema: branchSchema},
		{Name: "search_repositories", Description: "Search repositories"},
	}
}

func TestCatalogInvoke(t *testing.T) {
	runner := &fakeRunner{text: "main\ndevelop"}
	cat := New(testDefs(), runner)

	got, err := cat.Invoke(context.Background(), "list_branches", map[string]any{
		"owner": "golang",
		"repo":  "go",
	})
	require.NoError(t, err)
	assert.Equal(t, "main\ndevelop", got)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "list_branches", runner.calls[0].name)
	assert.Equal(t, "golang", runner.calls[0].args["owner"])
}

func TestCatalogInvokeUnknownTool(t *testing.T) {
	runner := &fakeRunner{}
	cat := New(testDefs(), runner)

	_, err := cat.Invoke(context.Background(), "create_issue", nil)

	var toolErr *mcp.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "create_issue", toolErr.Tool)
	assert.Contains(t, toolErr.Message, "list_branches")

	// Nothing must reach the runner for an unknown tool.
	assert.Empty(t, runner.calls)
}

func TestCatalogInvokeInvalidArguments(t *testing.T) {
	runner := &fakeRunner{}
	cat := New(testDefs(), runner)

	_, err := cat.Invoke(context.Background(), "list_branches", map[string]any{"owner": "golang"})

	var toolErr *mcp.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Contains(t, toolErr.Message, "invalid arguments")
	assert.Empty(t, runner.calls)
}

func TestCatalogInvokeNilArgumentsValidated(t *testing.T) {
	runner := &fakeRunner{}
	cat := New(testDefs(), runner)

	_, err := cat.Invoke(context.Background(), "list_branches", nil)

	var toolErr *mcp.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Empty(t, runner.calls)
}

func TestCatalogInvokeSchemalessTool(t *testing.T) {
	runner := &fakeRunner{text: "ok"}
	cat := New(testDefs(), runner)

	got, err := cat.Invoke(context.Background(), "search_repositories", map[string]any{"query": "zerolog"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestCatalogInvokeRunnerError(t *testing.T) {
	wantErr := &mcp.ToolExecutionError{Tool: "list_branches", Message: "upstream failed"}
	runner := &fakeRunner{err: wantErr}
	cat := New(testDefs(), runner)

	_, err := cat.Invoke(context.Background(), "list_branches", map[string]any{
		"owner": "golang",
		"repo":  "go",
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestCatalogEmpty(t *testing.T) {
	cat := New(nil, &fakeRunner{})

	assert.Equal(t, 0, cat.Len())
	assert.Empty(t, cat.Names())

	_, err := cat.Invoke(context.Background(), "anything", nil)
	var toolErr *mcp.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
}

func TestCatalogAccessors(t *testing.T) {
	cat := New(testDefs(), &fakeRunner{})

	assert.Equal(t, []string{"list_branches", "search_repositories"}, cat.Names())
	assert.Equal(t, 2, cat.Len())

	def, ok := cat.Get("list_branches")
	require.True(t, ok)
	assert.Equal(t, "List branches", def.Description)

	_, ok = cat.Get("nope")
	assert.False(t, ok)

	defs := cat.Definitions()
	defs[0].Name = "mutated"
	assert.Equal(t, "list_branches", cat.Names()[0])
}

func TestFromTools(t *testing.T) {
	tools := []mcp.Tool{
		{Name: "get_me", Description: "Get the authenticated user", InputSchema: json.RawMessage(`{"type":"object"}`)},
	}

	defs := FromTools(tools)
	require.Len(t, defs, 1)
	assert.Equal(t, "get_me", defs[0].Name)
	assert.Equal(t, "Get the authenticated user", defs[0].Description)
	assert.JSONEq(t, `{"type":"object"}`, string(defs[0].InputSchema))
}
