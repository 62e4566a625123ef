package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var symbolReplacer = strings.NewReplacer(
	"&", " and ",
	"+", " and ",
)

// Normalize lowercases, strips accents, maps common symbols to words, and
// collapses punctuation runs into single spaces. Two titles that differ only
// in case, accents, or punctuation normalize to the same string.
func Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	lowered := strings.ToLower(input)
	folded, _, err := transform.String(accentFolder, lowered)
	if err != nil {
		folded = lowered
	}
	folded = symbolReplacer.Replace(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// StripParenthetical removes a trailing parenthesized or bracketed suffix,
// the usual home of "(Deluxe Edition)" and "[Remastered]" decorations.
func StripParenthetical(input string) string {
	trimmed := strings.TrimSpace(input)
	for {
		open := -1
		switch {
		case strings.HasSuffix(trimmed, ")"):
			open = strings.LastIndex(trimmed, "(")
		case strings.HasSuffix(trimmed, "]"):
			open = strings.LastIndex(trimmed, "[")
		}
		if open <= 0 {
			return trimmed
		}
		trimmed = strings.TrimSpace(trimmed[:open])
	}
}
