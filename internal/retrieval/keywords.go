package retrieval

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "appliance": true, "because": true, "does": true,
	"from": true, "have": true, "help": true, "into": true, "just": true, "keeps": true, "know": true,
	"like": true, "need": true, "needs": true, "please": true, "should": true, "some": true,
	"that": true, "there": true, "these": true, "they": true, "this": true, "what": true,
	"when": true, "where": true, "which": true, "will": true, "with": true, "would": true,
	"your": true, "mine": true, "model": true, "part": true, "parts": true,
	"dishwasher": true, "refrigerator": true, "fridge": true, "whirlpool": true,
}

// keywords returns search terms for the LIKE-based fallback: the extra
// phrases first, then content words of the query in order.
func keywords(query string, phrases []string) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	push := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, p := range phrases {
		push(strings.ToLower(strings.TrimSpace(p)))
	}
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len(w) < 4 || stopwords[w] {
			continue
		}
		push(stem(w))
	}
	return out
}

// stem strips the suffixes that most often stop a LIKE match
// ("draining" finds "drain pump").
func stem(w string) string {
	switch {
	case strings.HasSuffix(w, "ing") && len(w) >= 7:
		return strings.TrimSuffix(w, "ing")
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s") && len(w) >= 5:
		return strings.TrimSuffix(w, "s")
	}
	return w
}
