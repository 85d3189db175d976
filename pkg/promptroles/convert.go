package promptroles

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"github.com/beeper/ai-companion/pkg/companion"
)

// ====================
// OpenAI Conversions
// ====================

// ToOpenAIChatMessages converts built messages to OpenAI Chat Completions format.
func ToOpenAIChatMessages(messages []companion.ProcessedMessage) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case companion.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case companion.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case companion.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		}
	}
	return result
}

// ====================
// Gemini Conversions
// ====================

// ToGeminiRequest converts messages adapted for BackendGemini into contents
// plus a config carrying the system instruction. System-role messages that
// were not merged by the adapter are folded into the instruction as well.
func ToGeminiRequest(messages []companion.ProcessedMessage) ([]*genai.Content, *genai.GenerateContentConfig) {
	adapted := messages
	if !isGeminiAdapted(messages) {
		adapted = Adapt(BackendGemini, messages)
	}

	config := &genai.GenerateContentConfig{}
	if instruction := ExtractSystemInstruction(adapted); instruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		}
	}

	var contents []*genai.Content
	for _, msg := range WithoutSystemInstruction(adapted) {
		role := "user"
		if msg.AdaptedRole == companion.AdaptedRoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents, config
}

func isGeminiAdapted(messages []companion.ProcessedMessage) bool {
	for _, msg := range messages {
		switch msg.Role {
		case companion.RoleSystem:
			if msg.AdaptedRole != companion.AdaptedRoleSystemInstruction {
				return false
			}
		case companion.RoleAssistant:
			if msg.AdaptedRole != companion.AdaptedRoleModel {
				return false
			}
		default:
			if msg.AdaptedRole == "" {
				return false
			}
		}
	}
	return true
}

// ====================
// Anthropic Conversions
// ====================

// ToAnthropicRequest converts messages into Anthropic message params and the
// separate system prompt blocks.
func ToAnthropicRequest(messages []companion.ProcessedMessage) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var result []anthropic.MessageParam
	var system []anthropic.TextBlockParam
	for _, msg := range messages {
		switch msg.Role {
		case companion.RoleSystem:
			if msg.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: msg.Content})
			}
		case companion.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case companion.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result, system
}
