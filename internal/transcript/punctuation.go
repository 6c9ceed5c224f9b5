package transcript

import (
	"fmt"
	"strings"
	"unicode"
)

// Style selects how punctuation next to wide-script text is rendered.
type Style string

const (
	StyleFullWidth Style = "full-width"
	StyleHalfWidth Style = "half-width"
	StyleSpaces    Style = "spaces"
)

// ParseStyle accepts the persisted style names plus a few spelling variants.
func ParseStyle(raw string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "full-width", "fullwidth", "full":
		return StyleFullWidth, nil
	case "half-width", "halfwidth", "half":
		return StyleHalfWidth, nil
	case "spaces", "space":
		return StyleSpaces, nil
	default:
		return "", fmt.Errorf("unknown punctuation style %q (want full-width, half-width, or spaces)", raw)
	}
}

var (
	halfToFull = map[rune]rune{
		',': '，',
		'.': '。',
		'!': '！',
		'?': '？',
		':': '：',
		';': '；',
		'(': '（',
		')': '）',
	}

	fullToHalf = map[rune]rune{
		'，': ',',
		'。': '.',
		'！': '!',
		'？': '?',
		'：': ':',
		'；': ';',
		'（': '(',
		'）': ')',
		'“': '"',
		'”': '"',
		'‘': '\'',
		'’': '\'',
	}
)

func isHalfMark(r rune) bool {
	if r == '"' || r == '\'' {
		return true
	}
	_, ok := halfToFull[r]
	return ok
}

func isFullMark(r rune) bool {
	_, ok := fullToHalf[r]
	return ok
}

func isTableMark(r rune) bool {
	return isHalfMark(r) || isFullMark(r)
}

// isWideScript reports whether r anchors punctuation conversion. Marks from the
// correspondence table never count, so converting them cannot change the
// context seen by a later pass.
func isWideScript(r rune) bool {
	if isTableMark(r) {
		return false
	}
	if r >= 0x3000 && r <= 0x303F {
		return true
	}
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// wideRuns marks every rune that sits in a run of table marks bordered on at
// least one side by wide-script text. A lone mark is a run of one, so this is
// the plain previous/next neighbor rule extended across "!?"-style clusters.
func wideRuns(runes []rune) []bool {
	wide := make([]bool, len(runes))
	for start := 0; start < len(runes); {
		if !isTableMark(runes[start]) {
			start++
			continue
		}
		end := start
		for end < len(runes) && isTableMark(runes[end]) {
			end++
		}

		anchored := (start > 0 && isWideScript(runes[start-1])) ||
			(end < len(runes) && isWideScript(runes[end]))
		if anchored {
			for i := start; i < end; i++ {
				wide[i] = true
			}
		}
		start = end
	}
	return wide
}

// ConvertPunctuation rewrites table punctuation adjacent to wide-script text
// into style. Context is always read from the input, never from converted
// output, and applying the same style twice is a no-op.
func ConvertPunctuation(text string, style Style) string {
	if text == "" {
		return text
	}

	runes := []rune(text)
	wide := wideRuns(runes)

	switch style {
	case StyleFullWidth:
		return widen(runes, wide)
	case StyleHalfWidth:
		return narrow(runes, wide)
	case StyleSpaces:
		return spaced(runes, wide)
	default:
		return text
	}
}

func widen(runes []rune, wide []bool) string {
	var out strings.Builder
	out.Grow(len(runes) * 3)

	doubleQuotes := 0
	singleQuotes := 0
	for i, r := range runes {
		switch r {
		case '"':
			open := doubleQuotes%2 == 0
			doubleQuotes++
			if wide[i] {
				r = pickQuote(open, '“', '”')
			}
		case '\'':
			open := singleQuotes%2 == 0
			singleQuotes++
			if wide[i] {
				r = pickQuote(open, '‘', '’')
			}
		default:
			if full, ok := halfToFull[r]; ok && wide[i] {
				r = full
			}
		}
		out.WriteRune(r)
	}
	return out.String()
}

func pickQuote(open bool, opening, closing rune) rune {
	if open {
		return opening
	}
	return closing
}

func narrow(runes []rune, wide []bool) string {
	var out strings.Builder
	out.Grow(len(runes))

	for i, r := range runes {
		if half, ok := fullToHalf[r]; ok && wide[i] {
			r = half
		}
		out.WriteRune(r)
	}
	return out.String()
}

func spaced(runes []rune, wide []bool) string {
	var out strings.Builder
	out.Grow(len(runes))

	lastSpace := false
	for i, r := range runes {
		if !wide[i] {
			out.WriteRune(r)
			lastSpace = unicode.IsSpace(r)
			continue
		}
		if lastSpace {
			continue
		}
		if i+1 < len(runes) && !wide[i+1] && unicode.IsSpace(runes[i+1]) {
			continue
		}
		out.WriteRune(' ')
		lastSpace = true
	}
	return out.String()
}
