package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Legal forms, company boilerplate and honorifics that carry no identity.
// Matched as whole words after lowercasing and accent stripping.
var reLegalForm = regexp.MustCompile(`\b(sarl|sas|sa|eurl|sasu|eirl|ei|sci|snc|scop|scp|selarl|auto[- ]?entrepreneur|micro[- ]?entreprise|ets|etablissements?|entreprise|societe|ste|monsieur|madame|m\.|mme|mr|dr|cabinet|agence|atelier|groupe|holding)\b`)

var reParenthesized = regexp.MustCompile(`\([^)]*\)`)

var reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var reNonAlpha = regexp.MustCompile(`[^a-z]+`)

// stripAccents decomposes to NFD, drops combining marks and recomposes.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Name canonicalizes a free-text business name into a comparable token string.
//
// Steps: lowercase, strip diacritics, drop legal-form and honorific words,
// drop parenthesized text, turn every non [a-z0-9] run into a space and
// collapse whitespace. The word removal is repeated on the cleaned string
// until it no longer changes, so Name(Name(x)) == Name(x).
func Name(raw string) string {
	if raw == "" {
		return ""
	}

	s := stripAccents(strings.ToLower(raw))
	s = reLegalForm.ReplaceAllString(s, " ")
	s = reParenthesized.ReplaceAllString(s, " ")
	s = collapse(reNonAlnum.ReplaceAllString(s, " "))

	// Punctuation cleanup can expose new whole words ("sa-rl" -> "sa rl").
	for {
		next := collapse(reLegalForm.ReplaceAllString(s, " "))
		if next == s {
			return s
		}
		s = next
	}
}

// City normalizes a city name: lowercase, no accents, letters only.
func City(raw string) string {
	if raw == "" {
		return ""
	}
	s := stripAccents(strings.ToLower(raw))
	return collapse(reNonAlpha.ReplaceAllString(s, " "))
}

// Tokens splits a normalized string on whitespace and keeps tokens of at
// least minLen bytes. Normalized strings are ASCII, so bytes are characters.
func Tokens(normalized string, minLen int) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
