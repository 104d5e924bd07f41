// Package naming derives filesystem-safe tokens from signer names.
package naming

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics ("Núñez" -> "Nunez") while leaving every other rune alone
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Sanitize folds diacritics and replaces every rune outside [A-Za-z0-9._-] with '_'
func Sanitize(s string) string {
	folded := Fold(s)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// OutputFilename builds {stem}_{sanitized name}{ext}
func OutputFilename(stem, fullName, ext string) string {
	return stem + "_" + Sanitize(fullName) + ext
}

// WithSuffix inserts _n before the extension of filename
func WithSuffix(filename string, n int) string {
	ext := ""
	if i := strings.LastIndexByte(filename, '.'); i > 0 {
		ext = filename[i:]
		filename = filename[:i]
	}
	return filename + "_" + strconv.Itoa(n) + ext
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	default:
		return false
	}
}
