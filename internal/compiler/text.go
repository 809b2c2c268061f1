package compiler

import (
	"math"
	"strings"
)

// smartReplacer normalizes typographic characters the draw primitive cannot
// render to their ASCII equivalents.
var smartReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	" ", " ", // non-breaking space
)

// SanitizeLine maps one text line to the safe printable range. Smart
// punctuation becomes ASCII; anything still outside 0x20-0x7e is stripped
// rather than substituted, so no invented text is ever shown.
func SanitizeLine(line string) string {
	line = smartReplacer.Replace(line)
	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// drawtextEscaper escapes the characters the drawtext filter treats as
// syntax inside its text value.
var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`,`, `\,`,
	`;`, `\;`,
	`[`, `\[`,
	`]`, `\]`,
	`%`, `\%`,
)

func escapeDrawtext(s string) string {
	return drawtextEscaper.Replace(s)
}

// lineAdvance is the vertical distance between consecutive rendered lines.
func lineAdvance(fontSize int) int {
	return int(math.Round(float64(fontSize) * 1.2))
}

// splitLines explodes embedded line breaks. Windows line endings are
// tolerated; the caller renders one draw stage per returned line.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}
