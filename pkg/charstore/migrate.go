package charstore

import (
	"strings"

	"github.com/beeper/ai-companion/pkg/aiid"
	"github.com/beeper/ai-companion/pkg/companion"
)

// Orders given to prompt items converted from legacy fields.
const (
	PersonalityOrder     = 10
	ScenarioOrder        = 20
	ExampleDialogueOrder = 30
)

// LegacyFields are the single-field persona prompts used before prompt items.
type LegacyFields struct {
	Personality     string `json:"personality,omitempty" yaml:"personality" toml:"personality"`
	Scenario        string `json:"scenario,omitempty" yaml:"scenario" toml:"scenario"`
	ExampleDialogue string `json:"example_dialogue,omitempty" yaml:"example_dialogue" toml:"example_dialogue"`
}

// MigrateLegacyFields appends every non-empty legacy field to the character as
// a system prompt item and clears it. It reports whether anything was moved.
// The legacy system prompt is left alone since builds still honor it.
func MigrateLegacyFields(character *companion.Character, legacy *LegacyFields) bool {
	if character == nil || legacy == nil {
		return false
	}
	fields := []struct {
		value *string
		name  string
		order int
	}{
		{&legacy.Personality, "Personality", PersonalityOrder},
		{&legacy.Scenario, "Scenario", ScenarioOrder},
		{&legacy.ExampleDialogue, "Example Dialogue", ExampleDialogueOrder},
	}
	changed := false
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = ""
			continue
		}
		character.PromptItems = append(character.PromptItems, companion.PromptItem{
			ID:          aiid.NewPromptItemID(),
			Order:       field.order,
			Content:     *field.value,
			Enabled:     true,
			Role:        companion.RoleSystem,
			Name:        field.name,
			Description: "Migrated from the legacy " + strings.ToLower(field.name) + " field",
		})
		*field.value = ""
		changed = true
	}
	return changed
}

// ensureItemIDs gives every prompt item without an ID a fresh one.
func ensureItemIDs(items []companion.PromptItem) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = aiid.NewPromptItemID()
		}
	}
}
