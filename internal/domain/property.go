package domain

import "errors"

// ErrInvalidInput is returned when a target property fails validation
// (missing price or address). Provider-level failures never surface as
// this error.
var ErrInvalidInput = errors.New("invalid input")

// Source identifies which provider path discovered a comparable.
type Source string

const (
	// SourceDirectAPI marks comps from the direct price-filtered endpoint.
	SourceDirectAPI Source = "DIRECT_API"
	// SourceNeighborhoodSearch marks comps found by enumerating city
	// neighborhoods.
	SourceNeighborhoodSearch Source = "NEIGHBORHOOD_SEARCH"
)

// PropertyFeatures is the canonical feature set of a property used for
// comparable filtering and similarity scoring. Values are immutable once
// constructed; zero SquareFeet or DistanceMiles means unknown.
type PropertyFeatures struct {
	Bedrooms      int     `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"` // half-bath granularity
	Price         float64 `json:"price"`
	SquareFeet    int     `json:"square_feet"`
	DistanceMiles float64 `json:"distance_miles"`
	Address       string  `json:"address"` // dedup key, non-empty
}

// Validate checks the invariants a target property must satisfy before it
// can be scored against. Candidates go through the comparable filter
// instead.
func (p *PropertyFeatures) Validate() error {
	if p.Price <= 0 {
		return ErrInvalidInput
	}
	if p.Address == "" {
		return ErrInvalidInput
	}
	if p.Bedrooms < 0 || p.Bathrooms < 0 || p.SquareFeet < 0 || p.DistanceMiles < 0 {
		return ErrInvalidInput
	}
	return nil
}

// ScoredComp is a comparable property annotated with its similarity score
// and originating source.
type ScoredComp struct {
	PropertyFeatures
	SimilarityScore float64 `json:"similarity_score"` // in [0,100]
	Source          Source  `json:"source"`
}
