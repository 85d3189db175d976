package promptroles

import (
	"strings"

	"github.com/beeper/ai-companion/pkg/companion"
)

// SystemInstructionSeparator joins merged system contents.
const SystemInstructionSeparator = "\n\n"

// Adapter rewrites a message sequence for one backend.
type Adapter interface {
	Adapt(messages []companion.ProcessedMessage) []companion.ProcessedMessage
}

// AdapterFunc adapts a plain function to Adapter.
type AdapterFunc func([]companion.ProcessedMessage) []companion.ProcessedMessage

func (f AdapterFunc) Adapt(messages []companion.ProcessedMessage) []companion.ProcessedMessage {
	return f(messages)
}

var adapters = map[Backend]Adapter{
	BackendOpenAI: AdapterFunc(passThrough),
	BackendClaude: AdapterFunc(passThrough),
	BackendGemini: AdapterFunc(mergeSystemInstruction),
}

// AdapterFor returns the strategy for backend, defaulting to pass-through.
func AdapterFor(backend Backend) Adapter {
	if adapter, ok := adapters[backend]; ok {
		return adapter
	}
	return AdapterFunc(passThrough)
}

// Adapt runs the backend's strategy over messages. The input is not modified.
func Adapt(backend Backend, messages []companion.ProcessedMessage) []companion.ProcessedMessage {
	return AdapterFor(backend).Adapt(messages)
}

func passThrough(messages []companion.ProcessedMessage) []companion.ProcessedMessage {
	out := make([]companion.ProcessedMessage, len(messages))
	for i, msg := range messages {
		msg.AdaptedRole = companion.AdaptedRole(msg.Role)
		out[i] = msg
	}
	return out
}

// mergeSystemInstruction pulls every system message out of the sequence and
// puts their joined contents in one system_instruction message at the front.
func mergeSystemInstruction(messages []companion.ProcessedMessage) []companion.ProcessedMessage {
	var system []string
	rest := make([]companion.ProcessedMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case companion.RoleSystem:
			system = append(system, msg.Content)
			continue
		case companion.RoleAssistant:
			msg.AdaptedRole = companion.AdaptedRoleModel
		default:
			msg.AdaptedRole = companion.AdaptedRole(msg.Role)
		}
		rest = append(rest, msg)
	}
	if len(system) == 0 {
		return rest
	}
	out := make([]companion.ProcessedMessage, 0, len(rest)+1)
	out = append(out, companion.ProcessedMessage{
		Role:        companion.RoleSystem,
		Content:     strings.Join(system, SystemInstructionSeparator),
		AdaptedRole: companion.AdaptedRoleSystemInstruction,
	})
	return append(out, rest...)
}

// ExtractSystemInstruction returns the synthesized system instruction text,
// or "" if the sequence has none.
func ExtractSystemInstruction(messages []companion.ProcessedMessage) string {
	for _, msg := range messages {
		if msg.AdaptedRole == companion.AdaptedRoleSystemInstruction {
			return msg.Content
		}
	}
	return ""
}

// WithoutSystemInstruction returns the sequence minus the system instruction,
// for backends that take the instruction as a separate request parameter.
func WithoutSystemInstruction(messages []companion.ProcessedMessage) []companion.ProcessedMessage {
	out := make([]companion.ProcessedMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.AdaptedRole == companion.AdaptedRoleSystemInstruction {
			continue
		}
		out = append(out, msg)
	}
	return out
}
