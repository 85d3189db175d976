package promptpost

import "fmt"

// LengthStrategy decides what happens to a message longer than MaxMessageLength.
type LengthStrategy string

const (
	LengthWarn     LengthStrategy = "warn"
	LengthTruncate LengthStrategy = "truncate"
	LengthError    LengthStrategy = "error"
)

// DefaultMaxMessageLength is the per-message character limit of DefaultConfig.
const DefaultMaxMessageLength = 32000

// DefaultTruncationSuffix marks content clipped by the truncate strategy.
const DefaultTruncationSuffix = "..."

// Config toggles the individual post-processing steps.
type Config struct {
	EnableDeduplication    bool           `yaml:"enable_deduplication" json:"enable_deduplication"`
	EnableEmptyFilter      bool           `yaml:"enable_empty_filter" json:"enable_empty_filter"`
	EnableMerging          bool           `yaml:"enable_merging" json:"enable_merging"`
	EnableFormatting       bool           `yaml:"enable_formatting" json:"enable_formatting"`
	EnableLengthCheck      bool           `yaml:"enable_length_check" json:"enable_length_check"`
	MaxMessageLength       int            `yaml:"max_message_length" json:"max_message_length"`
	MaxTotalTokens         int            `yaml:"max_total_tokens" json:"max_total_tokens"`
	LengthExceededStrategy LengthStrategy `yaml:"length_exceeded_strategy" json:"length_exceeded_strategy"`
	// TruncationSuffix defaults to DefaultTruncationSuffix when empty.
	TruncationSuffix string `yaml:"truncation_suffix" json:"truncation_suffix,omitempty"`
	// MergeSeparator defaults to a blank line when empty.
	MergeSeparator string `yaml:"merge_separator" json:"merge_separator,omitempty"`
}

// DefaultConfig returns the configuration used when a build supplies none.
func DefaultConfig() Config {
	return Config{
		EnableDeduplication:    true,
		EnableEmptyFilter:      true,
		EnableMerging:          false,
		EnableFormatting:       true,
		EnableLengthCheck:      true,
		MaxMessageLength:       DefaultMaxMessageLength,
		MaxTotalTokens:         0,
		LengthExceededStrategy: LengthWarn,
	}
}

// Validate rejects unknown strategies and negative limits.
func (c Config) Validate() error {
	switch c.LengthExceededStrategy {
	case "", LengthWarn, LengthTruncate, LengthError:
	default:
		return fmt.Errorf("unknown length_exceeded_strategy %q", c.LengthExceededStrategy)
	}
	if c.MaxMessageLength < 0 {
		return fmt.Errorf("max_message_length must not be negative, got %d", c.MaxMessageLength)
	}
	if c.MaxTotalTokens < 0 {
		return fmt.Errorf("max_total_tokens must not be negative, got %d", c.MaxTotalTokens)
	}
	return nil
}

func (c Config) strategy() LengthStrategy {
	if c.LengthExceededStrategy == "" {
		return LengthWarn
	}
	return c.LengthExceededStrategy
}

func (c Config) suffix() string {
	if c.TruncationSuffix == "" {
		return DefaultTruncationSuffix
	}
	return c.TruncationSuffix
}

func (c Config) separator() string {
	if c.MergeSeparator == "" {
		return "\n\n"
	}
	return c.MergeSeparator
}
