package streams

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
)

// SanitizeName converts a filename into a canonical stream identifier.
// The extension is stripped, everything outside [a-z0-9_-] becomes an
// underscore, repeated separators collapse, and leading/trailing separators
// are trimmed. Deterministic and total: a name that sanitizes to nothing
// gets a hash-derived placeholder so every file maps to a non-empty id.
func SanitizeName(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	b.Grow(len(stem))
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}

	name := collapseRuns(b.String(), '_')
	name = collapseRuns(name, '-')
	name = strings.Trim(name, "_-")

	if name == "" {
		h := fnv.New32a()
		h.Write([]byte(base))
		return fmt.Sprintf("stream_%08x", h.Sum32())
	}

	return name
}

// collapseRuns replaces runs of sep with a single occurrence.
func collapseRuns(s string, sep byte) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev byte
	for i := 0; i < len(s); i++ {
		if s[i] == sep && prev == sep {
			continue
		}
		b.WriteByte(s[i])
		prev = s[i]
	}
	return b.String()
}
