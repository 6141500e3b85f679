package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const edgePunct = ".,;:"

var nameSeparators = strings.NewReplacer("-", " ", "_", " ", "\u2010", " ", "\u2013", " ")

// Chained transformers keep state, so every call builds its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeName canonicalizes a person name so that "José Medrano",
// "JOSE MEDRANO" and "jose-medrano" compare equal. It is idempotent.
func NormalizeName(input string) string {
	s := cases.Fold().String(input)
	if stripped, _, err := transform.String(stripMarks(), s); err == nil {
		s = stripped
	}
	s = nameSeparators.Replace(s)

	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, edgePunct)
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// NameTokens splits a normalized name into alphanumeric-only tokens.
func NameTokens(name string) []string {
	parts := strings.Fields(NormalizeName(name))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := Compact(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Compact keeps letters and digits only.
func Compact(input string) string {
	var b strings.Builder
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleWord renders a lowercase slug word as a name token.
func TitleWord(word string) string {
	return cases.Title(language.Und).String(word)
}

// IsCapitalized reports whether a token starts with an uppercase letter.
func IsCapitalized(token string) bool {
	for _, r := range token {
		return unicode.IsUpper(r)
	}
	return false
}

// IsInitial reports whether a token is a single letter followed by a period ("K.").
func IsInitial(token string) bool {
	r := []rune(token)
	return len(r) == 2 && unicode.IsUpper(r[0]) && r[1] == '.'
}

func NormalizeSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
