package model

import (
	"regexp"
	"strings"
	"unicode"
)

var wordSeparators = regexp.MustCompile(`[_\-.\s]+`)

// Labelize turns a field name into a display label, splitting on separators
// and camelCase boundaries: "amountBase" becomes "Amount base".
func Labelize(name string) string {
	var words []string
	for _, chunk := range wordSeparators.Split(name, -1) {
		words = append(words, splitCamel(chunk)...)
	}
	if len(words) == 0 {
		return ""
	}
	for i := range words {
		words[i] = strings.ToLower(words[i])
	}
	first := []rune(words[0])
	first[0] = unicode.ToUpper(first[0])
	words[0] = string(first)
	return strings.Join(words, " ")
}

// DisplayLabel returns the field label, derived from its name when unset.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return Labelize(f.Name)
}

func splitCamel(chunk string) []string {
	runes := []rune(chunk)
	var (
		words []string
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, r := runes[i-1], runes[i]
		if (unicode.IsLower(prev) && unicode.IsUpper(r)) ||
			(unicode.IsLetter(prev) && unicode.IsDigit(r)) ||
			(unicode.IsDigit(prev) && unicode.IsLetter(r)) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}
