package main

import (
	"fmt"
	"maps"

	"github.com/spf13/cobra"

	"github.com/beeper/ai-companion/pkg/companion"
	"github.com/beeper/ai-companion/pkg/promptbuilder"
	"github.com/beeper/ai-companion/pkg/promptroles"
)

// Output formats of the build command.
const (
	formatRaw       = "raw"
	formatOpenAI    = "openai"
	formatGemini    = "gemini"
	formatAnthropic = "anthropic"
)

type buildFlags struct {
	character       string
	conversation    string
	backend         string
	user            string
	format          string
	vars            map[string]string
	skipPostProcess bool
	simple          bool
	noSave          bool
}

func newBuildCmd(flags *globalFlags) *cobra.Command {
	bf := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the prompt for a character and conversation",
		Long: `Build the message sequence for a model backend and print it as JSON.

Macro variables set during the build are saved back onto the conversation.

Examples:
  companion-prompt build --character char-abc --conversation conv-def --backend gemini
  companion-prompt build --character char-abc --backend gpt-4o --format openai --var location=Paris`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.load()
			if err != nil {
				return err
			}
			return a.build(cmd, bf)
		},
	}
	cmd.Flags().StringVar(&bf.character, "character", "", "character ID")
	cmd.Flags().StringVar(&bf.conversation, "conversation", "", "conversation ID")
	cmd.Flags().StringVar(&bf.backend, "backend", "openai", "backend or model name (openai, claude, gemini, ...)")
	cmd.Flags().StringVar(&bf.user, "user", "", "user display name")
	cmd.Flags().StringVar(&bf.format, "format", formatRaw, "output format (raw, openai, gemini, anthropic)")
	cmd.Flags().StringToStringVar(&bf.vars, "var", nil, "system variable override, e.g. location=Paris")
	cmd.Flags().BoolVar(&bf.skipPostProcess, "skip-post-process", false, "skip formatting, deduplication and length checks")
	cmd.Flags().BoolVar(&bf.simple, "simple", false, "only use the legacy system prompt and history")
	cmd.Flags().BoolVar(&bf.noSave, "no-save", false, "don't persist updated macro variables")
	_ = cmd.MarkFlagRequired("character")
	return cmd
}

func (a *app) build(cmd *cobra.Command, bf *buildFlags) error {
	ctx := a.log.WithContext(cmd.Context())
	switch bf.format {
	case formatRaw, formatOpenAI, formatGemini, formatAnthropic:
	default:
		return fmt.Errorf("unknown output format %q", bf.format)
	}

	character, err := a.store.GetCharacter(ctx, bf.character)
	if err != nil {
		return err
	}
	conversation := &companion.Conversation{CharacterID: character.ID}
	var history []companion.ChatMessage
	if bf.conversation != "" {
		conversation, err = a.store.GetConversation(ctx, bf.conversation)
		if err != nil {
			return err
		}
		history, err = a.store.GetMessages(ctx, bf.conversation)
		if err != nil {
			return err
		}
	}

	builder := promptbuilder.NewBuilder(a.cfg, promptbuilder.WithLogger(a.log))
	opts := promptbuilder.Options{
		SkipPostProcess: bf.skipPostProcess,
		UserName:        bf.user,
		ExtraVariables:  bf.vars,
	}
	buildFn := builder.BuildWithContext
	if bf.simple {
		buildFn = builder.BuildSimple
	}
	res, err := buildFn(character, conversation, history, bf.backend, opts)
	if err != nil {
		return err
	}
	for _, warning := range res.Warnings {
		a.log.Warn().Str("conversation_id", conversation.ID).Msg(warning)
	}

	if bf.conversation != "" && !bf.noSave && !maps.Equal(res.UpdatedVariables, conversation.Variables) {
		if err = a.store.SaveVariables(ctx, bf.conversation, res.UpdatedVariables); err != nil {
			return fmt.Errorf("failed to save variables: %w", err)
		}
		a.log.Debug().Int("variables", len(res.UpdatedVariables)).Msg("Saved conversation variables")
	}

	return printJSON(formatResult(res, bf.format))
}

func formatResult(res *promptbuilder.Result, format string) any {
	switch format {
	case formatOpenAI:
		return promptroles.ToOpenAIChatMessages(res.Messages)
	case formatGemini:
		contents, config := promptroles.ToGeminiRequest(res.Messages)
		return map[string]any{
			"contents":           contents,
			"system_instruction": config.SystemInstruction,
		}
	case formatAnthropic:
		messages, system := promptroles.ToAnthropicRequest(res.Messages)
		return map[string]any{
			"system":   system,
			"messages": messages,
		}
	default:
		return res
	}
}
