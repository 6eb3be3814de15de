// Package normalize canonicalizes résumé text so that the same document always
// yields one string, whether it came from extracted PDF text or from sections
// reassembled after a rewrite.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// lineBreaks maps every line-ending variant to a single LF.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
	"\u0085", "\n",
)

// bulletGlyphs are the bullet characters unified to "- " at line start.
// '*' is handled separately since it only counts when followed by whitespace.
var bulletGlyphs = map[rune]bool{
	'•': true,
	'●': true,
	'○': true,
	'►': true,
	'▪': true,
	'‣': true,
	'→': true,
}

var excessiveBlankLines = regexp.MustCompile(`\n{3,}`)

// Normalize returns the canonical form of raw. It never fails and
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	// 1. Line endings
	content := lineBreaks.Replace(raw)

	// 2. Unicode whitespace and tabs
	content = normalizeSpaces(content)

	// 3. Per-line cleanup
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = normalizeLine(line)
	}
	content = strings.Join(lines, "\n")

	// 4. At most one blank line in a row
	content = excessiveBlankLines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

// Reassemble joins sections as "name\n\ncontent" blocks separated by blank
// lines, expands literal "\n" escapes and normalizes the result.
func Reassemble(sections []types.Section) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, s.Name+"\n\n"+s.Content)
	}
	joined := strings.Join(blocks, "\n\n")
	joined = strings.ReplaceAll(joined, `\n`, "\n")
	return Normalize(joined)
}

// normalizeSpaces turns tabs into two spaces and every other non-newline
// whitespace code point into an ASCII space.
func normalizeSpaces(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		switch {
		case r == '\n' || r == ' ':
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString("  ")
		case r == '\ufeff' || unicode.IsSpace(r):
			sb.WriteByte(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// normalizeLine collapses deep indentation, unifies a leading bullet glyph
// and strips trailing whitespace.
func normalizeLine(line string) string {
	line = strings.TrimRight(line, " ")
	if line == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " ")
	indent := len(line) - len(trimmed)
	if indent >= 4 {
		indent = 2
	}

	if rest, ok := stripBullet(trimmed); ok {
		trimmed = strings.TrimRight("- "+rest, " ")
	}

	return strings.Repeat(" ", indent) + trimmed
}

// stripBullet removes a leading bullet glyph and the spaces after it.
func stripBullet(s string) (string, bool) {
	r, size := utf8.DecodeRuneInString(s)
	switch {
	case bulletGlyphs[r]:
		return strings.TrimLeft(s[size:], " "), true
	case r == '*' && strings.HasPrefix(s[size:], " "):
		return strings.TrimLeft(s[size:], " "), true
	}
	return "", false
}
