package match

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/listing-reconcile/internal/normalize"
)

const (
	// fuzzyTokenScore is credited for a token pair within edit-distance tolerance.
	fuzzyTokenScore = 0.8
	// substringScore is credited per containment pair when nothing else overlapped.
	substringScore = 0.5
)

// tokenSet returns the distinct tokens of length > 1 in first-seen order.
func tokenSet(normalized string) ([]string, map[string]bool) {
	tokens := normalize.Tokens(normalized, 2)
	set := make(map[string]bool, len(tokens))
	ordered := tokens[:0]
	for _, t := range tokens {
		if set[t] {
			continue
		}
		set[t] = true
		ordered = append(ordered, t)
	}
	return ordered, set
}

// fuzzyToken scores two distinct tokens: fuzzyTokenScore when their edit
// distance is within 2 (longer token >= 7 chars) or 1 (otherwise), else 0.
func fuzzyToken(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 3 || len(b) < 3 {
		return 0
	}
	maxDist := 1
	if max(len(a), len(b)) >= 7 {
		maxDist = 2
	}
	if levenshtein.ComputeDistance(a, b) <= maxDist {
		return fuzzyTokenScore
	}
	return 0
}

// Similarity scores two normalized names by token overlap over the size of
// their token union, in [0, 1].
//
// Exact shared tokens count 1 each. Every remaining token of a is then paired
// greedily, in order, with the first unconsumed remaining token of b within
// edit-distance tolerance. Only when nothing overlapped does substring
// containment between tokens of 4+ characters count, 0.5 per pair.
//
// The greedy pairing walks a's tokens, so the function is not guaranteed to
// be symmetric; callers pass the listing name first.
func Similarity(a, b string) float64 {
	tokA, setA := tokenSet(a)
	tokB, setB := tokenSet(b)
	if len(tokA) == 0 || len(tokB) == 0 {
		return 0
	}

	var overlap float64
	exact := 0
	for _, t := range tokA {
		if setB[t] {
			exact++
		}
	}
	overlap = float64(exact)

	var restA, restB []string
	for _, t := range tokA {
		if !setB[t] {
			restA = append(restA, t)
		}
	}
	for _, t := range tokB {
		if !setA[t] {
			restB = append(restB, t)
		}
	}

	consumed := make([]bool, len(restB))
	for _, wa := range restA {
		best, bestIdx := 0.0, -1
		for i, wb := range restB {
			if consumed[i] {
				continue
			}
			if f := fuzzyToken(wa, wb); f > best {
				best, bestIdx = f, i
			}
		}
		if bestIdx >= 0 {
			overlap += best
			consumed[bestIdx] = true
		}
	}

	if overlap == 0 {
		for _, ta := range tokA {
			for _, tb := range tokB {
				if ta == tb || len(ta) < 4 || len(tb) < 4 {
					continue
				}
				if strings.Contains(tb, ta) || strings.Contains(ta, tb) {
					overlap += substringScore
				}
			}
		}
	}

	union := len(tokA) + len(tokB) - exact
	return clip(overlap / float64(union))
}

// AcronymMatch reports whether one name abbreviates the other: the initials of
// candidate's tokens spell a 2-5 letter token of listing, or the initials of
// listing's tokens spell a token of candidate of at most 5 letters.
func AcronymMatch(listing, candidate string) bool {
	cw := normalize.Tokens(candidate, 2)
	if len(cw) < 2 {
		return false
	}

	acronym := initials(cw)
	for _, p := range normalize.Tokens(listing, 2) {
		if len(p) <= 5 && p == acronym {
			return true
		}
	}

	listingAcronym := initials(normalize.Tokens(listing, 2))
	for _, c := range cw {
		if len(c) <= 5 && c == listingAcronym {
			return true
		}
	}
	return false
}

func initials(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte(t[0])
	}
	return b.String()
}

func clip(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
