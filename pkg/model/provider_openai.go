package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"repoagent/internal/observability"
	"repoagent/pkg/catalog"
)

// openaiInvoker drives any OpenAI-compatible chat completions API.
// Calls are non-streaming.
type openaiInvoker struct {
	client openai.Client
	model  string
	tools  []openai.ChatCompletionToolParam
}

func newOpenAIInvoker(client openai.Client, model string, tools []catalog.Definition) (*openaiInvoker, error) {
	converted, err := toOpenAITools(tools)
	if err != nil {
		return nil, err
	}
	return &openaiInvoker{
		client: client,
		model:  model,
		tools:  converted,
	}, nil
}

func (o *openaiInvoker) Invoke(ctx context.Context, messages []Message) (Message, observability.TokenUsage, error) {
	converted, err := toOpenAIMessages(messages)
	if err != nil {
		return Message{}, observability.TokenUsage{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    converted,
		Temperature: openai.Float(DefaultTemperature),
	}
	if len(o.tools) > 0 {
		params.Tools = o.tools
	}

	response, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Message{}, observability.TokenUsage{}, err
	}

	usage := observability.TokenUsage{
		Input:  response.Usage.PromptTokens,
		Output: response.Usage.CompletionTokens,
	}

	if len(response.Choices) == 0 {
		return Message{}, usage, fmt.Errorf("no response choices returned")
	}
	choice := response.Choices[0]

	reply := Message{Role: RoleAssistant, Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return Message{}, usage, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return reply, usage, nil
}

func toOpenAIMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case RoleUser:
			converted = append(converted, openai.UserMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				converted = append(converted, openai.AssistantMessage(msg.Content))
				continue
			}

			toolCalls := make([]openai.ChatCompletionMessageToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}

			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			converted = append(converted, assistantMsg.ToParam())
		case RoleTool:
			converted = append(converted, openai.ToolMessage(msg.ToolCallID, msg.Content))
		}
	}

	return converted, nil
}

func toOpenAITools(tools []catalog.Definition) ([]openai.ChatCompletionToolParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	converted := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		schema := map[string]any{"type": "object"}
		if len(tool.InputSchema) > 0 {
			if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("failed to parse schema for tool %s: %w", tool.Name, err)
			}
		}

		converted = append(converted, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(schema),
			},
		})
	}

	return converted, nil
}
