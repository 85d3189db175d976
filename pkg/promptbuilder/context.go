package promptbuilder

import (
	"maps"

	"github.com/beeper/ai-companion/pkg/companion"
	"github.com/beeper/ai-companion/pkg/promptmacro"
	"github.com/beeper/ai-companion/pkg/promptvars"
	"github.com/beeper/ai-companion/pkg/shared/stringutil"
)

// BuildContext is the immutable snapshot one build resolves against.
type BuildContext struct {
	CharacterName   string
	UserName        string
	History         []companion.ChatMessage
	SystemVariables promptvars.SystemVariables
	// Variables seeds the macro store.
	Variables map[string]string
}

func (b *Builder) newContext(
	character *companion.Character,
	conversation *companion.Conversation,
	history []companion.ChatMessage,
	opts Options,
) *BuildContext {
	bc := &BuildContext{
		UserName: stringutil.FirstNonEmpty(opts.UserName, b.cfg.Prompt.DefaultUserName),
		History:  history,
	}
	if character != nil {
		bc.CharacterName = character.Name
	}
	if conversation != nil {
		bc.Variables = maps.Clone(conversation.Variables)
	}

	extra := make(map[string]string, 2+len(opts.ExtraVariables))
	if b.cfg.Prompt.Location != "" {
		extra[promptvars.VarLocation] = b.cfg.Prompt.Location
	}
	if b.cfg.Prompt.DeviceInfo != "" {
		extra[promptvars.VarDeviceInfo] = b.cfg.Prompt.DeviceInfo
	}
	maps.Copy(extra, opts.ExtraVariables)
	bc.SystemVariables = promptvars.DefaultSystemVariables(b.now(), b.loc, extra)
	return bc
}

func (bc *BuildContext) placeholders() promptvars.PlaceholderContext {
	last, ok := companion.LastUserMessage(bc.History)
	return promptvars.PlaceholderContext{
		UserName:        bc.UserName,
		CharacterName:   bc.CharacterName,
		LastUserMessage: last,
		HasLastUser:     ok,
		History:         bc.History,
	}
}

// resolver runs the variable, placeholder and macro resolvers over text in
// that order. A nil expander skips macros.
type resolver struct {
	vars     promptvars.SystemVariables
	pc       promptvars.PlaceholderContext
	expander *promptmacro.Expander
}

func (bc *BuildContext) resolver(expander *promptmacro.Expander) *resolver {
	return &resolver{vars: bc.SystemVariables, pc: bc.placeholders(), expander: expander}
}

func (r *resolver) resolve(text string) string {
	text = promptvars.ResolveVariables(text, r.vars)
	text = promptvars.ResolvePlaceholders(text, r.pc)
	if r.expander != nil {
		text = r.expander.Expand(text)
	}
	return text
}
