package promptbuilder

import (
	"cmp"
	"slices"
	"strings"

	"github.com/beeper/ai-companion/pkg/companion"
)

// IDs and orders of the prompt items synthesized from single-field prompts.
const (
	LegacySystemPromptID    = "legacy-system-prompt"
	LegacySystemPromptOrder = 0
	MainPromptID            = "main-prompt"
	MainPromptOrder         = 1000
)

// CollectItems gathers the enabled prompt items of a build in source order:
// the character's legacy system prompt, the character's items, the
// conversation's items and finally the conversation's main prompt. Disabled
// items are dropped here so none of their content or macros reach the output.
func CollectItems(character *companion.Character, conversation *companion.Conversation) []companion.PromptItem {
	var items []companion.PromptItem
	if character != nil {
		if strings.TrimSpace(character.SystemPrompt) != "" {
			items = append(items, companion.PromptItem{
				ID:      LegacySystemPromptID,
				Order:   LegacySystemPromptOrder,
				Content: character.SystemPrompt,
				Enabled: true,
				Role:    companion.RoleSystem,
				Name:    "System Prompt",
			})
		}
		items = appendEnabled(items, character.PromptItems)
	}
	if conversation != nil {
		items = appendEnabled(items, conversation.PromptItems)
		if strings.TrimSpace(conversation.MainPrompt) != "" {
			items = append(items, companion.PromptItem{
				ID:      MainPromptID,
				Order:   MainPromptOrder,
				Content: conversation.MainPrompt,
				Enabled: true,
				Role:    companion.RoleSystem,
				Name:    "Main Prompt",
			})
		}
	}
	return items
}

func appendEnabled(dst, src []companion.PromptItem) []companion.PromptItem {
	for _, item := range src {
		if !item.Enabled {
			continue
		}
		if !item.Role.Valid() {
			item.Role = companion.RoleSystem
		}
		dst = append(dst, item)
	}
	return dst
}

// SortItems sorts items by ascending order, keeping collection order for ties.
func SortItems(items []companion.PromptItem) {
	slices.SortStableFunc(items, func(a, b companion.PromptItem) int {
		return cmp.Compare(a.Order, b.Order)
	})
}

// partitionItems splits items into those placed by order and those placed by
// injection depth.
func partitionItems(items []companion.PromptItem) (normal, injected []companion.PromptItem) {
	for _, item := range items {
		if item.Injected() {
			injected = append(injected, item)
		} else {
			normal = append(normal, item)
		}
	}
	return normal, injected
}
