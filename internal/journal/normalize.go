package journal

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeTags canonicalizes user-supplied tag names: Unicode NFC so
// visually identical tags compare equal, lowercased, trimmed, with
// empties dropped and duplicates removed. First-seen order is kept;
// the store returns tags sorted regardless.
func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		t := norm.NFC.String(strings.ToLower(strings.TrimSpace(tag)))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
