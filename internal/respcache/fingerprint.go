package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// synonyms fold common phrasings together before hashing. Order matters:
// longer phrases come first.
var synonyms = strings.NewReplacer(
	"won't start", "not starting",
	"wont start", "not starting",
	"not working", "broken",
	"dish washer", "dishwasher",
	"ice maker", "icemaker",
	"refrigerator", "fridge",
)

// NormalizeQuery lower-cases q, folds synonyms, strips punctuation and
// collapses whitespace.
func NormalizeQuery(q string) string {
	q = strings.ToLower(q)
	q = strings.NewReplacer("’", "'", "‘", "'").Replace(q)
	q = synonyms.Replace(q)
	q = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r), r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, q)
	fields := strings.Fields(q)
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, ".-"); f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// Fingerprint hashes the normalized query together with the context slots
// that shaped the answer. Empty slots are part of the key.
func Fingerprint(query string, slots map[string]string) string {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(NormalizeQuery(query)))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(strings.ToLower(strings.TrimSpace(slots[k]))))
	}
	return hex.EncodeToString(h.Sum(nil))
}
