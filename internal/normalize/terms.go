package normalize

import (
	"sort"
	"strings"
)

// Generic trade vocabulary. These words appear in thousands of names and make
// poor retrieval keys on their own.
var commonWords = map[string]bool{
	"plomberie": true, "plombier": true, "chauffage": true, "chauffagiste": true,
	"electricite": true, "electricien": true, "peinture": true, "peintre": true,
	"menuiserie": true, "menuisier": true, "maconnerie": true, "macon": true,
	"carrelage": true, "carreleur": true, "couverture": true, "couvreur": true,
	"serrurerie": true, "serrurier": true, "isolation": true, "platrier": true,
	"platrerie": true, "renovation": true, "batiment": true, "travaux": true,
	"construction": true, "entreprise": true, "artisan": true, "services": true,
	"service": true, "general": true, "generale": true, "multi": true,
	"pro": true, "plus": true, "france": true, "sud": true, "nord": true,
	"est": true, "ouest": true, "climatisation": true, "terrassement": true,
	"demolition": true, "assainissement": true, "domotique": true, "ramonage": true,
	"etancheite": true, "depannage": true, "paysagiste": true, "vitrier": true,
	"chauffagistes": true, "electriciens": true, "menuisiers": true, "macons": true,
	"peintres": true, "carreleurs": true, "couvreurs": true, "serruriers": true,
	"plombiers": true, "charpentier": true, "charpente": true, "toiture": true,
	"facade": true, "ravalement": true, "enduit": true, "cloture": true,
	"amenagement": true, "interieur": true, "exterieur": true, "habitat": true,
	"maison": true, "techni": true, "technique": true, "professionnel": true,
	"groupe": true, "agence": true, "cabinet": true, "atelier": true, "bureau": true,
}

// isCommonWord reports whether token belongs to the generic trade vocabulary.
func isCommonWord(token string) bool {
	return commonWords[token]
}

// DistinctiveTokens returns the tokens of at least 3 characters that are not
// generic trade words, longest first. Equal lengths keep their input order.
func DistinctiveTokens(normalized string) []string {
	var out []string
	for _, t := range Tokens(normalized, 3) {
		if !isCommonWord(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}

// SearchTerms derives the ordered substrings used to retrieve candidates for
// a normalized name:
//
//  1. the first two tokens joined, when there are at least two
//  2. the two most distinctive tokens
//  3. the whole name, when it has at most three tokens
//  4. the last two tokens joined, when there are at least three
//
// Duplicates and terms shorter than 2 characters are dropped.
func SearchTerms(normalized string) []string {
	words := Tokens(normalized, 2)
	distinctive := DistinctiveTokens(normalized)

	var candidates []string
	if len(words) >= 2 {
		candidates = append(candidates, strings.Join(words[:2], " "))
	}
	if len(distinctive) > 0 {
		candidates = append(candidates, distinctive[0])
	}
	if len(distinctive) > 1 {
		candidates = append(candidates, distinctive[1])
	}
	if len(words) > 0 && len(words) <= 3 {
		candidates = append(candidates, strings.Join(words, " "))
	}
	if len(words) >= 3 {
		candidates = append(candidates, strings.Join(words[len(words)-2:], " "))
	}

	seen := make(map[string]bool, len(candidates))
	terms := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if len(c) < 2 || seen[c] {
			continue
		}
		seen[c] = true
		terms = append(terms, c)
	}
	return terms
}
