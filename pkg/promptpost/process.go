// Package promptpost cleans up an assembled message sequence before it is sent
// to a backend: formatting, empty and duplicate removal, optional merging, and
// length and token budget checks.
package promptpost

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/beeper/ai-companion/pkg/aitokens"
	"github.com/beeper/ai-companion/pkg/companion"
	"github.com/beeper/ai-companion/pkg/shared/stringutil"
)

// Processor runs the post-processing steps enabled in its Config.
type Processor struct {
	cfg       Config
	estimator aitokens.Estimator
	log       zerolog.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithEstimator sets the token estimator used for the total budget check.
func WithEstimator(est aitokens.Estimator) Option {
	return func(p *Processor) {
		if est != nil {
			p.estimator = est
		}
	}
}

// WithLogger sets the logger used for length diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// NewProcessor creates a Processor for cfg.
func NewProcessor(cfg Config, opts ...Option) *Processor {
	p := &Processor{
		cfg:       cfg,
		estimator: aitokens.HeuristicEstimator{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the processor configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// Process runs the enabled steps in order and returns the resulting messages
// together with one warning per step that changed something. The input slice
// is not modified. The only error is a *LengthExceededError under the error
// length strategy.
func (p *Processor) Process(messages []companion.ProcessedMessage) ([]companion.ProcessedMessage, []string, error) {
	out := make([]companion.ProcessedMessage, len(messages))
	copy(out, messages)
	var warnings []string

	if p.cfg.EnableFormatting {
		formatted := 0
		for i := range out {
			content := FormatContent(out[i].Content)
			if content != out[i].Content {
				out[i].Content = content
				formatted++
			}
		}
		if formatted > 0 {
			warnings = append(warnings, fmt.Sprintf("Formatted %d message(s)", formatted))
		}
	}

	if p.cfg.EnableEmptyFilter {
		var removed int
		out, removed = FilterEmpty(out)
		if removed > 0 {
			warnings = append(warnings, fmt.Sprintf("Removed %d empty message(s)", removed))
		}
	}

	if p.cfg.EnableDeduplication {
		var removed int
		out, removed = Deduplicate(out)
		if removed > 0 {
			warnings = append(warnings, fmt.Sprintf("Removed %d duplicate message(s)", removed))
		}
	}

	if p.cfg.EnableMerging {
		var merged int
		out, merged = MergeConsecutive(out, p.cfg.separator())
		if merged > 0 {
			warnings = append(warnings, fmt.Sprintf("Merged %d consecutive same-role message(s)", merged))
		}
	}

	if p.cfg.EnableLengthCheck && p.cfg.MaxMessageLength > 0 {
		var err error
		out, warnings, err = p.checkLengths(out, warnings)
		if err != nil {
			return nil, warnings, err
		}
	}

	if p.cfg.MaxTotalTokens > 0 {
		total := aitokens.EstimateMessages(p.estimator, out)
		if total > p.cfg.MaxTotalTokens {
			warnings = append(warnings, fmt.Sprintf("Estimated %d tokens exceeds the limit of %d", total, p.cfg.MaxTotalTokens))
		}
	}

	return out, warnings, nil
}

func (p *Processor) checkLengths(messages []companion.ProcessedMessage, warnings []string) ([]companion.ProcessedMessage, []string, error) {
	maxLength := p.cfg.MaxMessageLength
	for i := range messages {
		length := len([]rune(messages[i].Content))
		if length <= maxLength {
			continue
		}
		switch p.cfg.strategy() {
		case LengthError:
			return nil, warnings, &LengthExceededError{Index: i, Length: length, Max: maxLength}
		case LengthTruncate:
			messages[i] = TruncateMessage(messages[i], maxLength, p.cfg.suffix())
			warnings = append(warnings, fmt.Sprintf("Truncated message %d from %d to %d characters", i, length, maxLength))
		default:
			p.log.Warn().Int("index", i).Int("length", length).Int("max", maxLength).Msg("Message exceeds maximum length")
			warnings = append(warnings, fmt.Sprintf("Message %d is %d characters long (max %d)", i, length, maxLength))
		}
	}
	return messages, warnings, nil
}

// FilterEmpty drops messages whose trimmed content is empty.
func FilterEmpty(messages []companion.ProcessedMessage) ([]companion.ProcessedMessage, int) {
	out := messages[:0:0]
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, msg)
	}
	return out, len(messages) - len(out)
}

// Deduplicate drops a message when its role and trimmed content equal those of
// the message kept right before it. Non-adjacent duplicates are kept.
func Deduplicate(messages []companion.ProcessedMessage) ([]companion.ProcessedMessage, int) {
	out := messages[:0:0]
	for _, msg := range messages {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.EffectiveRole() == msg.EffectiveRole() &&
				strings.TrimSpace(prev.Content) == strings.TrimSpace(msg.Content) {
				continue
			}
		}
		out = append(out, msg)
	}
	return out, len(messages) - len(out)
}

// MergeConsecutive joins runs of messages with the same role into the first
// message of the run. The merged message keeps the first message's layer.
func MergeConsecutive(messages []companion.ProcessedMessage, separator string) ([]companion.ProcessedMessage, int) {
	out := messages[:0:0]
	for _, msg := range messages {
		if n := len(out); n > 0 && out[n-1].EffectiveRole() == msg.EffectiveRole() {
			out[n-1].Content += separator + msg.Content
			continue
		}
		out = append(out, msg)
	}
	return out, len(messages) - len(out)
}

// TruncateMessage clips msg to exactly maxLength characters ending with suffix.
// Content that already fits is returned unchanged.
func TruncateMessage(msg companion.ProcessedMessage, maxLength int, suffix string) companion.ProcessedMessage {
	if maxLength < 0 {
		maxLength = 0
	}
	if len([]rune(msg.Content)) <= maxLength {
		return msg
	}
	suffixLen := len([]rune(suffix))
	if suffixLen >= maxLength {
		msg.Content = stringutil.TruncateRunes(suffix, maxLength)
		return msg
	}
	msg.Content = stringutil.TruncateRunes(msg.Content, maxLength-suffixLen) + suffix
	return msg
}
