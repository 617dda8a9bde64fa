package usecase

import (
	"strings"
	"unicode"
)

const maxFollowups = 3

// fallbackFollowups is offered when the model suggests nothing usable.
var fallbackFollowups = []string{
	"Can you provide more details?",
	"What specific aspect interests you?",
	"Do you need examples or further clarification?",
}

// normalizeFollowups trims suggestions, strips list markers, drops blanks and case-insensitive
// duplicates, and keeps at most three.
func normalizeFollowups(raw []string) []string {
	out := make([]string, 0, maxFollowups)
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		s = stripListMarker(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == maxFollowups {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallbackFollowups...)
	}
	return out
}

// stripListMarker removes "1.", "2)", "-", "*" or "•" prefixes, and surrounding quotes.
func stripListMarker(s string) string {
	switch {
	case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "* "), strings.HasPrefix(s, "• "):
		_, s, _ = strings.Cut(s, " ")
	default:
		i := 0
		for i < len(s) && unicode.IsDigit(rune(s[i])) {
			i++
		}
		if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
