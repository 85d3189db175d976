// Package promptvars substitutes ambient system values and conversation
// participant placeholders into prompt text.
package promptvars

import (
	"regexp"
	"time"
)

// System variable names recognized in prompt text.
const (
	VarTime       = "time"
	VarLocation   = "location"
	VarDeviceInfo = "device_info"
)

// DefaultTimeLayout is used for {{time}} when no layout is configured.
const DefaultTimeLayout = "2006-01-02 15:04:05 MST"

// SystemVariables maps system variable names to their current values.
type SystemVariables map[string]string

var systemVariablePattern = regexp.MustCompile(`\{\{(time|location|device_info)\}\}`)

// ResolveVariables replaces {{time}}, {{location}} and {{device_info}} with
// their values. Tokens without a (non-empty) value are left untouched.
func ResolveVariables(text string, vars SystemVariables) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return systemVariablePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		return match
	})
}

// DefaultSystemVariables computes the ambient values for one build. The time is
// rendered in loc (UTC when nil). Entries of extra override computed values;
// empty extra values remove the variable.
func DefaultSystemVariables(now time.Time, loc *time.Location, extra map[string]string) SystemVariables {
	if loc == nil {
		loc = time.UTC
	}
	vars := SystemVariables{
		VarTime: now.In(loc).Format(DefaultTimeLayout),
	}
	for key, value := range extra {
		if value == "" {
			delete(vars, key)
			continue
		}
		vars[key] = value
	}
	return vars
}
