package util

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// SanitizeText normalises extracted text before it is stored or embedded.
// Postgres text columns reject NUL, and parsers tend to emit stray controls.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = lineEndings.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == '\n', ch == '\t':
			b.WriteRune(ch)
		case ch < 0x20, ch == 0x7f, ch == '\uFFFD':
		default:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}
