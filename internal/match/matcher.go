package match

const (
	// DefaultThreshold is the minimum score for an accepted match.
	DefaultThreshold = 0.35
	// DefaultPostalBonus is added when both sides carry the same postal code.
	DefaultPostalBonus = 0.15
)

// Subject is one side of a comparison: a normalized name and an optional
// postal code.
type Subject struct {
	Name       string
	PostalCode string
}

// Matcher scores listing/record pairs against an acceptance threshold.
type Matcher struct {
	Threshold   float64
	PostalBonus float64
}

// NewMatcher creates a matcher with the default threshold and postal bonus
func NewMatcher() *Matcher {
	return &Matcher{
		Threshold:   DefaultThreshold,
		PostalBonus: DefaultPostalBonus,
	}
}

// NewMatcherWithConfig creates a matcher with a custom threshold and bonus
func NewMatcherWithConfig(threshold, postalBonus float64) *Matcher {
	return &Matcher{
		Threshold:   threshold,
		PostalBonus: postalBonus,
	}
}

// Score computes the final score of candidate for listing, in [0, 1].
//
// The name similarity gets the postal bonus (capped at 1) when both postal
// codes are present and equal. A score still under the threshold is raised to
// exactly the threshold when one name is an acronym of the other.
func (m *Matcher) Score(listing, candidate Subject) float64 {
	score := Similarity(listing.Name, candidate.Name)

	if listing.PostalCode != "" && listing.PostalCode == candidate.PostalCode {
		score = min(1, score+m.PostalBonus)
	}

	if score < m.Threshold && AcronymMatch(listing.Name, candidate.Name) {
		score = m.Threshold
	}

	return clip(score)
}

// Accepts reports whether score meets the acceptance threshold.
func (m *Matcher) Accepts(score float64) bool {
	return score >= m.Threshold
}
