package keys

import "strings"

// Sanitize turns an arbitrary identifier into a graph-store document key.
//
// Path separators, dots and spaces become underscores, and anything outside
// [A-Za-z0-9_-] is replaced by an underscore. allowSpaces only keeps spaces out of
// the separator pass; the final character filter still turns them into underscores,
// so every key matches ^[A-Za-z][A-Za-z0-9_-]*$. Keys that would not start with a
// letter get an "a" prefix. Empty input yields the empty string, which callers treat
// as a missing identifier.
func Sanitize(raw string, allowSpaces bool) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw) + 1)
	for _, r := range raw {
		switch {
		case r == '/' || r == '\\' || r == '.':
			b.WriteByte('_')
		case r == ' ' && !allowSpaces:
			b.WriteByte('_')
		case isKeyRune(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	key := b.String()
	if !isLetter(key[0]) {
		key = "a" + key
	}
	return key
}

// EdgeKey derives the key of the edge document between two node keys.
func EdgeKey(from, to string) string {
	return Sanitize(from+"_"+to, false)
}

func isKeyRune(r rune) bool {
	return r < 128 && (isLetter(byte(r)) || (r >= '0' && r <= '9') || r == '_' || r == '-')
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
