// Package phone centralizes phone number normalization. Writes always store
// the normalized form; reads may additionally try the raw form because
// historical rows were stored inconsistently (with and without a leading +).
package phone

import "strings"

// Normalize strips everything but digits from a phone number.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LookupCandidates returns the phone forms to try at read time, normalized
// form first, then the trimmed raw form when it differs. This is the legacy
// compatibility shim; new writes never need it.
func LookupCandidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	normalized := Normalize(trimmed)

	candidates := make([]string, 0, 2)
	if normalized != "" {
		candidates = append(candidates, normalized)
	}
	if trimmed != "" && trimmed != normalized {
		candidates = append(candidates, trimmed)
	}
	return candidates
}
