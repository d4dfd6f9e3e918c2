package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"repoagent/internal/observability"
	"repoagent/pkg/mcp"
)

// Definition is one invokable tool entry. Immutable after discovery.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Runner executes a tool call. *mcp.Client satisfies this.
type Runner interface {
	Call(ctx context.Context, name string, arguments map[string]any) (string, error)
}

// Catalog resolves tool calls by name, validates their arguments against
// the discovered schemas and dispatches them to the runner.
type Catalog struct {
	defs   []Definition
	byName map[string]Definition
	runner Runner
}

// New builds a catalog over the given definitions. An empty definition
// list is valid; every invocation then fails with an unknown-tool error.
func New(defs []Definition, runner Runner) *Catalog {
	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	return &Catalog{
		defs:   append([]Definition(nil), defs...),
		byName: byName,
		runner: runner,
	}
}

// FromTools converts discovered tool definitions into catalog entries.
func FromTools(tools []mcp.Tool) []Definition {
	defs := make([]Definition, len(tools))
	for i, tool := range tools {
		defs[i] = Definition(tool)
	}
	return defs
}

// Invoke runs one tool call. Unknown names and argument-schema
// violations fail before anything reaches the tool server.
func (c *Catalog) Invoke(ctx context.Context, name string, arguments map[string]any) (string, error) {
	def, ok := c.byName[name]
	if !ok {
		return "", &mcp.ToolExecutionError{
			Tool:    name,
			Message: fmt.Sprintf("tool not found, available tools: %s", strings.Join(c.Names(), ", ")),
		}
	}

	if err := c.validateArguments(def, arguments); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := c.runner.Call(ctx, name, arguments)
	observability.RecordToolCall(name, time.Since(start), err == nil)
	return text, err
}

func (c *Catalog) validateArguments(def Definition, arguments map[string]any) error {
	if len(def.InputSchema) == 0 {
		return nil
	}

	if arguments == nil {
		arguments = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(def.InputSchema),
		gojsonschema.NewGoLoader(arguments),
	)
	if err != nil {
		log.Warn().Err(err).Str("tool", def.Name).Msg("Skipping argument validation, schema did not compile")
		return nil
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return &mcp.ToolExecutionError{
			Tool:    def.Name,
			Message: "invalid arguments: " + strings.Join(problems, "; "),
		}
	}
	return nil
}

// Get returns the definition for a tool name.
func (c *Catalog) Get(name string) (Definition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// Definitions returns the entries in discovery order.
func (c *Catalog) Definitions() []Definition {
	return append([]Definition(nil), c.defs...)
}

// Names returns the tool names in discovery order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.defs))
	for i, def := range c.defs {
		names[i] = def.Name
	}
	return names
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.defs)
}
