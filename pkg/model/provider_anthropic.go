package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"repoagent/internal/config"
	"repoagent/internal/observability"
	"repoagent/pkg/catalog"
)

// Anthropic requires an explicit output cap on every request.
const defaultMaxTokens = 4096

// AnthropicProvider creates handles backed by the Anthropic Messages API.
type AnthropicProvider struct{}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Validate(cfg *config.Config) error {
	if cfg.Anthropic.APIKey == "" {
		return &ConfigurationError{Provider: p.Name(), Missing: []string{"api_key (ANTHROPIC_API_KEY)"}}
	}
	return nil
}

func (p *AnthropicProvider) Create(cfg *config.Config, model string, tools []catalog.Definition) (Invoker, error) {
	converted, err := toAnthropicTools(tools)
	if err != nil {
		return nil, err
	}
	return &anthropicInvoker{
		client: anthropic.NewClient(option.WithAPIKey(cfg.Anthropic.APIKey)),
		model:  model,
		tools:  converted,
	}, nil
}

type anthropicInvoker struct {
	client anthropic.Client
	model  string
	tools  []anthropic.ToolUnionParam
}

func (a *anthropicInvoker) Invoke(ctx context.Context, messages []Message) (Message, observability.TokenUsage, error) {
	converted, system, err := toAnthropicMessages(messages)
	if err != nil {
		return Message{}, observability.TokenUsage{}, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		Messages:    converted,
		MaxTokens:   int64(defaultMaxTokens),
		Temperature: anthropic.Float(DefaultTemperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(a.tools) > 0 {
		params.Tools = a.tools
	}

	response, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Message{}, observability.TokenUsage{}, err
	}

	usage := observability.TokenUsage{
		Input:  response.Usage.InputTokens,
		Output: response.Usage.OutputTokens,
	}

	reply := Message{Role: RoleAssistant}
	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			reply.Content += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return Message{}, usage, fmt.Errorf("failed to parse tool input: %w", err)
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return reply, usage, nil
}

// toAnthropicMessages converts the shared message log. System messages are
// hoisted out because the Messages API carries them as a top-level field.
func toAnthropicMessages(messages []Message) ([]anthropic.MessageParam, string, error) {
	converted := make([]anthropic.MessageParam, 0, len(messages))
	system := ""

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content
		case RoleUser:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
				continue
			}

			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			converted = append(converted, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		case RoleTool:
			converted = append(converted, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	return converted, system, nil
}

func toAnthropicTools(tools []catalog.Definition) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	converted := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := map[string]any{}
		if len(tool.InputSchema) > 0 {
			if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("failed to parse schema for tool %s: %w", tool.Name, err)
			}
		}

		properties, _ := schema["properties"].(map[string]any)
		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   toStringSlice(schema["required"]),
			},
		}
		converted = append(converted, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return converted, nil
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
