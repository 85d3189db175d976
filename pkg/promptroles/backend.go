// Package promptroles maps the internal system/user/assistant roles onto the
// structural requirements of each model backend.
package promptroles

import "strings"

// Backend identifies a model backend family.
type Backend string

const (
	// BackendOpenAI covers OpenAI and every OpenAI-compatible backend.
	BackendOpenAI Backend = "openai"
	BackendClaude Backend = "claude"
	// BackendGemini has no native system role.
	BackendGemini Backend = "gemini"
)

// ParseBackend normalizes a free-form provider name. Matching is a
// case-insensitive substring check; unknown names default to BackendOpenAI.
func ParseBackend(name string) Backend {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.Contains(lower, "gemini"), strings.Contains(lower, "google"):
		return BackendGemini
	case strings.Contains(lower, "claude"), strings.Contains(lower, "anthropic"):
		return BackendClaude
	case strings.Contains(lower, "openai"), strings.Contains(lower, "gpt"):
		return BackendOpenAI
	default:
		return BackendOpenAI
	}
}

// SupportsSystemRole reports whether system messages can stay in the message list.
func (b Backend) SupportsSystemRole() bool {
	return b != BackendGemini
}

func (b Backend) String() string {
	return string(b)
}
