package promptbuilder

import (
	"maps"
	"slices"

	"github.com/beeper/ai-companion/pkg/companion"
)

// InjectItems inserts depth-positioned items into base and returns the new
// sequence. base is not modified.
//
// User turn positions are taken once from base. Depth 0 lands right before the
// last user turn (or at the end when there are no user turns), depth d lands
// before the d-th user turn counting back from the last one, and depths reaching
// past the first user turn land at the very start. Depths are applied in
// ascending order; items sharing a depth keep their relative order.
func InjectItems(base []companion.ProcessedMessage, items []companion.PromptItem) []companion.ProcessedMessage {
	result := slices.Clone(base)
	if len(items) == 0 {
		return result
	}

	var userTurns []int
	for i, msg := range base {
		if msg.Role == companion.RoleUser {
			userTurns = append(userTurns, i)
		}
	}

	byDepth := make(map[int][]companion.PromptItem)
	for _, item := range items {
		depth := max(item.Injection.Depth, 0)
		byDepth[depth] = append(byDepth[depth], item)
	}

	for _, depth := range slices.Sorted(maps.Keys(byDepth)) {
		group := byDepth[depth]
		SortItems(group)
		fragments := make([]companion.ProcessedMessage, len(group))
		for i, item := range group {
			fragments[i] = companion.ProcessedMessage{Role: item.Role, Content: item.Content}
		}
		idx := injectionIndex(depth, userTurns, len(result))
		result = slices.Insert(result, idx, fragments...)
	}
	return result
}

func injectionIndex(depth int, userTurns []int, length int) int {
	k := len(userTurns)
	if depth == 0 {
		if k == 0 {
			return length
		}
		return userTurns[k-1]
	}
	if pos := k - 1 - depth; pos >= 0 {
		return userTurns[pos]
	}
	return 0
}
