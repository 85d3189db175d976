package promptvars

import (
	"regexp"
	"strings"

	"github.com/beeper/ai-companion/pkg/companion"
	"github.com/beeper/ai-companion/pkg/shared/stringutil"
)

// DefaultUserName is substituted for {{user}} when no display name is known.
const DefaultUserName = "User"

// PlaceholderContext holds the participant values for placeholder substitution.
type PlaceholderContext struct {
	UserName        string
	CharacterName   string
	LastUserMessage string
	HasLastUser     bool
	History         []companion.ChatMessage
}

var placeholderPattern = regexp.MustCompile(`\{\{(user|char|character|last_user_message|chat_history)\}\}`)

// ResolvePlaceholders replaces {{user}}, {{char}}, {{character}},
// {{last_user_message}} and {{chat_history}}. A missing character name or last
// user message leaves the token as-is.
func ResolvePlaceholders(text string, pc PlaceholderContext) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	var history *string
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		switch match[2 : len(match)-2] {
		case "user":
			return stringutil.FirstNonEmpty(pc.UserName, DefaultUserName)
		case "char", "character":
			if pc.CharacterName != "" {
				return pc.CharacterName
			}
		case "last_user_message":
			if pc.HasLastUser {
				return pc.LastUserMessage
			}
		case "chat_history":
			if history == nil {
				formatted := FormatChatHistory(pc.History)
				history = &formatted
			}
			return *history
		}
		return match
	})
}

// FormatChatHistory renders the history as "Label: content" blocks separated
// by a blank line.
func FormatChatHistory(history []companion.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(history))
	for _, msg := range history {
		blocks = append(blocks, msg.Role.Label()+": "+msg.Content)
	}
	return strings.Join(blocks, "\n\n")
}
