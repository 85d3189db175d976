package promptpost

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	lineEndingReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	excessNewlines     = regexp.MustCompile(`\n{3,}`)
)

// FormatContent normalizes line endings, strips trailing whitespace from every
// line, collapses runs of blank lines to a single blank line and trims the result.
func FormatContent(content string) string {
	content = lineEndingReplacer.Replace(content)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	content = strings.Join(lines, "\n")
	content = excessNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
