// Package promptbuilder assembles the message sequence sent to a model backend
// from a character, a conversation and its history.
package promptbuilder

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/ptr"

	"github.com/beeper/ai-companion/pkg/aitokens"
	"github.com/beeper/ai-companion/pkg/companion"
	"github.com/beeper/ai-companion/pkg/promptmacro"
	"github.com/beeper/ai-companion/pkg/promptpost"
	"github.com/beeper/ai-companion/pkg/promptroles"
	"github.com/beeper/ai-companion/pkg/promptvars"
)

// Options are the per-build overrides.
type Options struct {
	SkipPostProcess bool
	// PostProcess replaces the configured post-processing settings.
	PostProcess *promptpost.Config
	// UserName overrides the configured default user name.
	UserName string
	// ExtraVariables are merged over the computed system variables.
	ExtraVariables map[string]string
}

// Result is the output of a build. UpdatedVariables holds the macro store
// after the build and should be persisted back onto the conversation.
type Result struct {
	Messages         []companion.ProcessedMessage `json:"messages"`
	UpdatedVariables map[string]string           `json:"updatedVariables"`
	Warnings         []string                     `json:"warnings,omitempty"`
}

// Builder assembles prompts. It holds no per-build state and can be shared,
// unless a fixed random source was set with WithRand.
type Builder struct {
	log       zerolog.Logger
	cfg       *Config
	loc       *time.Location
	now       func() time.Time
	rng       *rand.Rand
	estimator aitokens.Estimator
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

func WithLogger(log zerolog.Logger) BuilderOption {
	return func(b *Builder) {
		b.log = log.With().Str("component", "promptbuilder").Logger()
	}
}

// WithClock sets the time source for {{time}}.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// WithRand sets the source for the random macro. A *rand.Rand is not safe for
// concurrent use, so a Builder with a fixed source must not build concurrently.
func WithRand(rng *rand.Rand) BuilderOption {
	return func(b *Builder) {
		b.rng = rng
	}
}

// WithEstimator overrides the configured token estimator.
func WithEstimator(est aitokens.Estimator) BuilderOption {
	return func(b *Builder) {
		b.estimator = est
	}
}

// NewBuilder creates a Builder. A nil cfg uses DefaultConfig.
func NewBuilder(cfg *Config, opts ...BuilderOption) *Builder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := &Builder{
		log: zerolog.Nop(),
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if cfg.Prompt.Timezone != "" {
		if _, _, err := promptvars.NormalizeTimezone(cfg.Prompt.Timezone); err != nil {
			b.log.Warn().Err(err).Str("timezone", cfg.Prompt.Timezone).Msg("Invalid timezone in config")
		}
	}
	_, b.loc = promptvars.ResolveTimezone(cfg.Prompt.Timezone)
	if b.estimator == nil {
		b.estimator = cfg.NewEstimator(b.log)
	}
	return b
}

// Build returns only the messages of BuildWithContext.
func (b *Builder) Build(
	character *companion.Character,
	conversation *companion.Conversation,
	history []companion.ChatMessage,
	backendName string,
	opts Options,
) ([]companion.ProcessedMessage, error) {
	res, err := b.BuildWithContext(character, conversation, history, backendName, opts)
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// BuildWithContext assembles the messages for backendName.
//
// Prompt items are collected, resolved (variables, then placeholders, then
// macros), sorted by order and laid out ahead of the history turns. Items with
// injection enabled are then inserted relative to the user turns, roles are
// adapted for the backend and the result is post-processed.
func (b *Builder) BuildWithContext(
	character *companion.Character,
	conversation *companion.Conversation,
	history []companion.ChatMessage,
	backendName string,
	opts Options,
) (*Result, error) {
	bc := b.newContext(character, conversation, history, opts)

	items := CollectItems(character, conversation)

	store := promptmacro.NewStore(bc.Variables)
	res := bc.resolver(promptmacro.NewExpander(store, promptmacro.WithRand(b.rng)))

	for i := range items {
		items[i].Content = res.resolve(items[i].Content)
	}

	SortItems(items)
	normal, injected := partitionItems(items)

	messages := make([]companion.ProcessedMessage, 0, len(normal)+len(history)+len(injected))
	for _, item := range normal {
		messages = append(messages, companion.ProcessedMessage{Role: item.Role, Content: item.Content})
	}
	messages = appendHistory(messages, history, res)

	messages = InjectItems(messages, injected)

	backend := promptroles.ParseBackend(backendName)
	messages = promptroles.Adapt(backend, messages)

	var warnings []string
	if !opts.SkipPostProcess {
		var err error
		messages, warnings, err = b.postProcess(messages, opts)
		if err != nil {
			return nil, err
		}
	}

	b.log.Debug().
		Str("backend", backend.String()).
		Int("items", len(items)).
		Int("injected", len(injected)).
		Int("history", len(history)).
		Int("messages", len(messages)).
		Int("warnings", len(warnings)).
		Msg("Built prompt")

	return &Result{
		Messages:         messages,
		UpdatedVariables: store.Map(),
		Warnings:         warnings,
	}, nil
}

// BuildSimple produces the character's legacy system prompt followed by the
// history turns, with variables and placeholders resolved. Prompt items,
// injection and macros are skipped, so the conversation variables are returned
// unchanged.
func (b *Builder) BuildSimple(
	character *companion.Character,
	conversation *companion.Conversation,
	history []companion.ChatMessage,
	backendName string,
	opts Options,
) (*Result, error) {
	bc := b.newContext(character, conversation, history, opts)
	res := bc.resolver(nil)

	messages := make([]companion.ProcessedMessage, 0, len(history)+1)
	if character != nil && strings.TrimSpace(character.SystemPrompt) != "" {
		messages = append(messages, companion.ProcessedMessage{
			Role:    companion.RoleSystem,
			Content: res.resolve(character.SystemPrompt),
		})
	}
	messages = appendHistory(messages, history, res)

	backend := promptroles.ParseBackend(backendName)
	messages = promptroles.Adapt(backend, messages)

	var warnings []string
	if !opts.SkipPostProcess {
		var err error
		messages, warnings, err = b.postProcess(messages, opts)
		if err != nil {
			return nil, err
		}
	}

	vars := maps.Clone(bc.Variables)
	if vars == nil {
		vars = map[string]string{}
	}
	return &Result{Messages: messages, UpdatedVariables: vars, Warnings: warnings}, nil
}

func appendHistory(messages []companion.ProcessedMessage, history []companion.ChatMessage, res *resolver) []companion.ProcessedMessage {
	for i, turn := range history {
		messages = append(messages, companion.ProcessedMessage{
			Role:    turn.Role,
			Content: res.resolve(turn.Content),
			Layer:   ptr.Ptr(i),
		})
	}
	return messages
}

func (b *Builder) postProcess(messages []companion.ProcessedMessage, opts Options) ([]companion.ProcessedMessage, []string, error) {
	cfg := b.cfg.PostProcess
	if opts.PostProcess != nil {
		cfg = *opts.PostProcess
	}
	processor := promptpost.NewProcessor(cfg, promptpost.WithEstimator(b.estimator), promptpost.WithLogger(b.log))
	out, warnings, err := processor.Process(messages)
	if err != nil {
		return nil, warnings, fmt.Errorf("post-processing failed: %w", err)
	}
	return out, warnings, nil
}
