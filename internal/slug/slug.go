// Package slug derives URL-safe identifiers from display names.
package slug

import "strings"

// Make lowercases name and replaces every run of non-alphanumeric
// characters with a single hyphen. The result carries no leading or
// trailing hyphens. Uniqueness is the store's job, not Make's.
func Make(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
