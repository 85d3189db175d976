// Package companion defines the records a companion chat is built from:
// characters, conversations, their configured prompt fragments, and the
// role-tagged messages produced for a model backend.
package companion

import (
	"github.com/beeper/ai-companion/pkg/shared/stringutil"
)

// Role is the pre-adaptation role of a prompt fragment or message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Label returns the capitalized role name used in formatted transcripts.
func (r Role) Label() string {
	return stringutil.Capitalize(string(r))
}

// AdaptedRole is the backend-facing role assigned by a role adapter.
// The zero value means the message has not been adapted yet.
type AdaptedRole string

const (
	AdaptedRoleSystem            AdaptedRole = "system"
	AdaptedRoleUser              AdaptedRole = "user"
	AdaptedRoleAssistant         AdaptedRole = "assistant"
	AdaptedRoleModel             AdaptedRole = "model"
	AdaptedRoleSystemInstruction AdaptedRole = "system_instruction"
)

// Injection places a prompt item relative to user turns instead of its sort position.
type Injection struct {
	Enabled  bool   `json:"enabled"`
	Depth    int    `json:"depth"`
	Position string `json:"position,omitempty"`
}

// PromptItem is a configured prompt fragment.
type PromptItem struct {
	ID          string     `json:"id"`
	Order       int        `json:"order"`
	Content     string     `json:"content"`
	Enabled     bool       `json:"enabled"`
	Role        Role       `json:"role"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Injection   *Injection `json:"injection,omitempty"`
}

// Injected reports whether the item is positioned by depth.
func (p PromptItem) Injected() bool {
	return p.Injection != nil && p.Injection.Enabled
}

// ChatMessage is a single turn of conversation history.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ProcessedMessage is a message in the output pipeline.
type ProcessedMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Layer is the history index for messages sourced from conversation history.
	Layer       *int        `json:"layer,omitempty"`
	AdaptedRole AdaptedRole `json:"adaptedRole,omitempty"`
}

// EffectiveRole returns the adapted role when set, otherwise the original role.
func (m ProcessedMessage) EffectiveRole() string {
	if m.AdaptedRole != "" {
		return string(m.AdaptedRole)
	}
	return string(m.Role)
}

// Character is a companion persona.
type Character struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// SystemPrompt is the deprecated single-field system prompt. It is still
	// honored and always sorts first.
	SystemPrompt string       `json:"system_prompt,omitempty"`
	PromptItems  []PromptItem `json:"prompt_items,omitempty"`
}

// Conversation is a chat between the user and one character.
type Conversation struct {
	ID          string       `json:"id"`
	CharacterID string       `json:"character_id,omitempty"`
	PromptItems []PromptItem `json:"prompt_items,omitempty"`
	MainPrompt  string       `json:"main_prompt,omitempty"`
	// Variables are the persisted macro values (setvar/getvar).
	Variables map[string]string `json:"variables,omitempty"`
}

// LastUserMessage returns the content of the most recent user turn.
func LastUserMessage(history []ChatMessage) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content, true
		}
	}
	return "", false
}
