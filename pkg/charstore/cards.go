package charstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/beeper/ai-companion/pkg/companion"
)

// CardFormat is the encoding of a character card file.
type CardFormat string

const (
	CardYAML CardFormat = "yaml"
	CardTOML CardFormat = "toml"
	CardJSON CardFormat = "json"
)

// CardFormatForPath picks the card format from the file extension.
func CardFormatForPath(path string) (CardFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return CardYAML, nil
	case ".toml":
		return CardTOML, nil
	case ".json", ".json5":
		return CardJSON, nil
	default:
		return "", fmt.Errorf("unsupported card file extension %q", filepath.Ext(path))
	}
}

// Card is a hand-written character definition.
type Card struct {
	Name         string     `json:"name" yaml:"name" toml:"name"`
	SystemPrompt string     `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	PromptItems  []CardItem `json:"prompt_items" yaml:"prompt_items" toml:"prompt_items"`
	LegacyFields `yaml:",inline"`
}

// CardItem is a prompt item in a card. Items are enabled unless stated
// otherwise, and setting a depth enables injection.
type CardItem struct {
	ID          string         `json:"id" yaml:"id" toml:"id"`
	Order       int            `json:"order" yaml:"order" toml:"order"`
	Content     string         `json:"content" yaml:"content" toml:"content"`
	Enabled     *bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	Role        companion.Role `json:"role" yaml:"role" toml:"role"`
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Description string         `json:"description" yaml:"description" toml:"description"`
	Depth       *int           `json:"depth" yaml:"depth" toml:"depth"`
}

// ParseCard decodes a card in the given format.
func ParseCard(data []byte, format CardFormat) (*Card, error) {
	var card Card
	var err error
	switch format {
	case CardYAML:
		err = yaml.Unmarshal(data, &card)
	case CardTOML:
		_, err = toml.Decode(string(data), &card)
	case CardJSON:
		err = json5.Unmarshal(data, &card)
	default:
		return nil, fmt.Errorf("unsupported card format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s card: %w", format, err)
	}
	if strings.TrimSpace(card.Name) == "" {
		return nil, fmt.Errorf("card has no name")
	}
	return &card, nil
}

// Character converts the card into a character without an ID. Legacy fields
// become prompt items.
func (c *Card) Character() *companion.Character {
	character := &companion.Character{
		Name:         strings.TrimSpace(c.Name),
		SystemPrompt: c.SystemPrompt,
	}
	for _, ci := range c.PromptItems {
		item := companion.PromptItem{
			ID:          ci.ID,
			Order:       ci.Order,
			Content:     ci.Content,
			Enabled:     ci.Enabled == nil || *ci.Enabled,
			Role:        ci.Role,
			Name:        ci.Name,
			Description: ci.Description,
		}
		if item.Role == "" {
			item.Role = companion.RoleSystem
		}
		if ci.Depth != nil {
			item.Injection = &companion.Injection{Enabled: true, Depth: max(*ci.Depth, 0)}
		}
		character.PromptItems = append(character.PromptItems, item)
	}
	legacy := c.LegacyFields
	MigrateLegacyFields(character, &legacy)
	ensureItemIDs(character.PromptItems)
	return character
}

// ImportCard reads a YAML, TOML or JSON5 card file.
func ImportCard(path string) (*companion.Character, error) {
	format, err := CardFormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card: %w", err)
	}
	card, err := ParseCard(data, format)
	if err != nil {
		return nil, err
	}
	return card.Character(), nil
}
