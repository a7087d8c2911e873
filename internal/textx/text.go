// Package textx normalizes chat text before it is stored or displayed.
package textx

import (
	"strings"
	"unicode"
)

// Normalize unifies line endings to \n, trims trailing whitespace on every
// line, collapses runs of blank lines to a single blank line and drops
// leading and trailing blank lines.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// Outbound prepares user input for sending: surrounding whitespace is
// trimmed and the result normalized.
func Outbound(s string) string {
	return Normalize(strings.TrimSpace(s))
}

// Caption is the placeholder text for a message that carries only an
// attachment.
func Caption(fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "file"
	}
	return "📎 " + name
}
