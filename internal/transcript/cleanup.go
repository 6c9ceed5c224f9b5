package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// collapsibleMarks are sentence marks whose immediate repeats are stutter.
const collapsibleMarks = ",.!?;:，。！？；：、"

// BasicCleanup is the local stand-in for polish when the polish backend cannot
// be reached: NFC, whitespace collapse, repeated punctuation collapse, and
// repeated word collapse.
func BasicCleanup(text string) string {
	text = norm.NFC.String(text)
	text = collapseRepeatedMarks(text)
	return collapseRepeatedWords(strings.Fields(text))
}

func collapseRepeatedMarks(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	var prev rune
	for _, r := range text {
		if r == prev && strings.ContainsRune(collapsibleMarks, r) {
			continue
		}
		out.WriteRune(r)
		prev = r
	}
	return out.String()
}

func collapseRepeatedWords(fields []string) string {
	if len(fields) == 0 {
		return ""
	}

	fold := cases.Fold()
	kept := make([]string, 0, len(fields))
	previous := ""
	for _, field := range fields {
		folded := fold.String(field)
		if folded == previous && hasLetter(field) {
			continue
		}
		kept = append(kept, field)
		previous = folded
	}
	return strings.Join(kept, " ")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
