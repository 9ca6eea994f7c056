// Package models adapts provider SDKs to toolbridge.Model.
package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/skosovsky/toolbridge"
)

// ErrNoChoices is returned when the provider answers without any choice.
var ErrNoChoices = errors.New("model returned no choices")

// LCG wraps an llms.Model and implements toolbridge.Model. Tool descriptors are
// sent as function tools and tool calls in the reply are mapped back to
// toolbridge.ToolCall.
//
// Example usage:
//
//	llm, _ := openai.New(openai.WithToken(apiKey), openai.WithModel("gpt-4o-mini"))
//	loop := toolbridge.NewLoop(models.NewLCG(llm), registry)
type LCG struct {
	model   llms.Model
	options []llms.CallOption
}

// NewLCG creates an LCG around model. options are added to every request
// (e.g. llms.WithTemperature).
func NewLCG(model llms.Model, options ...llms.CallOption) *LCG {
	return &LCG{model: model, options: options}
}

// Unwrap returns the underlying llms.Model.
func (m *LCG) Unwrap() llms.Model {
	return m.model
}

// Generate implements toolbridge.Model.
func (m *LCG) Generate(ctx context.Context, messages []toolbridge.Message, tools []toolbridge.Descriptor) (toolbridge.Message, error) {
	options := append([]llms.CallOption(nil), m.options...)
	if len(tools) > 0 {
		options = append(options, llms.WithTools(ConvertTools(tools)))
	}
	resp, err := m.model.GenerateContent(ctx, ConvertMessages(messages), options...)
	if err != nil {
		return toolbridge.Message{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return toolbridge.Message{}, ErrNoChoices
	}
	return convertChoice(resp.Choices[0]), nil
}

// ConvertTools maps descriptors to langchaingo function tools.
func ConvertTools(tools []toolbridge.Descriptor) []llms.Tool {
	out := make([]llms.Tool, len(tools))
	for i, d := range tools {
		out[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.ParametersSchema(),
			},
		}
	}
	return out
}

// ConvertMessages maps the conversation log to langchaingo messages.
func ConvertMessages(messages []toolbridge.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case toolbridge.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case toolbridge.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.ToolName,
						Arguments: call.Args,
					},
				})
			}
			out = append(out, mc)
		case toolbridge.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		}
	}
	return out
}

// convertChoice turns the first choice into an assistant message. Calls without
// an ID get a generated one so tool results can be matched to them.
func convertChoice(choice *llms.ContentChoice) toolbridge.Message {
	msg := toolbridge.AssistantMessage(choice.Content)
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		msg.ToolCalls = append(msg.ToolCalls, toolbridge.ToolCall{
			ID:       id,
			ToolName: tc.FunctionCall.Name,
			Args:     tc.FunctionCall.Arguments,
		})
	}
	if len(msg.ToolCalls) == 0 && choice.FuncCall != nil {
		msg.ToolCalls = append(msg.ToolCalls, toolbridge.ToolCall{
			ID:       "call_" + uuid.NewString(),
			ToolName: choice.FuncCall.Name,
			Args:     choice.FuncCall.Arguments,
		})
	}
	return msg
}

var _ toolbridge.Model = (*LCG)(nil)
