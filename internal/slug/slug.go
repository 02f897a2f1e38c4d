// Package slug provides URL slug generation for entity names.
package slug

import "strings"

// Make converts a name to its URL slug: lowercase, runs of
// non-alphanumeric characters collapsed to single hyphens, no leading
// or trailing hyphen. An empty or fully symbolic name yields "".
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			if b.Len() > 0 {
				pendingHyphen = true
			}
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
