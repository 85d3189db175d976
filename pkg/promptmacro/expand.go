package promptmacro

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const argSeparator = "::"

// Arguments may span lines but cannot contain "}}".
var (
	varPattern    = regexp.MustCompile(`(?s)\{\{(setvar|getvar)::(.*?)\}\}`)
	randomPattern = regexp.MustCompile(`(?s)\{\{random::(.*?)\}\}`)
)

// Expander expands macros against a Store.
//
// setvar and getvar are expanded in one left-to-right pass, so a getvar only
// sees values set by macros to its left (or seeded into the store). random
// runs afterwards on the result, so its options may hold getvar values.
type Expander struct {
	store *Store
	rng   *rand.Rand
}

// Option configures an Expander.
type Option func(*Expander)

// WithRand sets the random source used by the random macro.
func WithRand(rng *rand.Rand) Option {
	return func(e *Expander) {
		e.rng = rng
	}
}

// NewExpander creates an expander writing to store. A nil store gets a fresh
// empty one.
func NewExpander(store *Store, opts ...Option) *Expander {
	if store == nil {
		store = NewStore(nil)
	}
	e := &Expander{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the backing store.
func (e *Expander) Store() *Store {
	return e.store
}

// Expand replaces every macro in text.
func (e *Expander) Expand(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	text = varPattern.ReplaceAllStringFunc(text, e.expandVar)
	return randomPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := randomPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		return e.pick(splitOptions(groups[1]))
	})
}

func (e *Expander) expandVar(match string) string {
	groups := varPattern.FindStringSubmatch(match)
	if len(groups) < 3 {
		return match
	}
	if groups[1] == "getvar" {
		value, _ := e.store.Get(strings.TrimSpace(groups[2]))
		return value
	}
	name, value, ok := strings.Cut(groups[2], argSeparator)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return match
	}
	e.store.Set(name, value)
	return ""
}

func (e *Expander) pick(options []string) string {
	switch len(options) {
	case 0:
		return ""
	case 1:
		return options[0]
	}
	if e.rng != nil {
		return options[e.rng.IntN(len(options))]
	}
	return options[rand.IntN(len(options))]
}

func splitOptions(raw string) []string {
	parts := strings.Split(raw, argSeparator)
	options := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			options = append(options, part)
		}
	}
	return options
}
