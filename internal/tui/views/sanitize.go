package views

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// sanitizeForTerminal prepares remote IPM and notification text for a tview
// cell grid. Color tags are escaped so a heading cannot restyle the screen,
// control characters other than newline are dropped, and emoji modifiers
// that tcell renders as separate cells are removed.
func sanitizeForTerminal(s string) string {
	s = tview.Escape(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			i += max(size, 1)
			continue
		}
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r != '\n' && unicode.IsControl(r):
		return true
	// Skin tone modifiers.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	// Zero Width Joiner.
	case r == 0x200D:
		return true
	// Variation Selectors.
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	// Variation Selectors Supplement.
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
