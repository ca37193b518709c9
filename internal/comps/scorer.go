// Package comps implements comparable-property filtering, similarity
// scoring, and aggregation for rental comp searches.
package comps

import (
	"math"

	"dscr-analyzer/internal/domain"
)

// Feature weights. They sum to 100, so the total score needs no
// normalization.
const (
	weightBedrooms   = 25.0
	weightBathrooms  = 20.0
	weightPrice      = 20.0
	weightDistance   = 20.0
	weightSquareFeet = 15.0
)

// Score rates how similar a candidate property is to the target on a
// 0-100 scale. It is a deterministic pure function of the two feature
// sets: an identical pair always scores 100. Unknown square footage
// (zero) on one side only forfeits that sub-score; unknown on both sides
// is treated as a match.
func Score(target, candidate domain.PropertyFeatures) float64 {
	score := bedroomScore(target.Bedrooms, candidate.Bedrooms) +
		bathroomScore(target.Bathrooms, candidate.Bathrooms) +
		priceScore(target.Price, candidate.Price) +
		distanceScore(target.DistanceMiles, candidate.DistanceMiles) +
		squareFeetScore(target.SquareFeet, candidate.SquareFeet)

	return clamp(score, 0, 100)
}

func bedroomScore(target, candidate int) float64 {
	switch diff := absInt(candidate - target); {
	case diff == 0:
		return weightBedrooms
	case diff == 1:
		return 15
	default:
		return 0
	}
}

func bathroomScore(target, candidate float64) float64 {
	switch diff := math.Abs(candidate - target); {
	case diff == 0:
		return weightBathrooms
	case diff <= 0.5:
		return 15
	default:
		return 0
	}
}

func priceScore(target, candidate float64) float64 {
	if target <= 0 {
		// Unknown target price contributes nothing rather than failing.
		return 0
	}
	switch dev := math.Abs(candidate-target) / target; {
	case dev <= 0.10:
		return weightPrice
	case dev <= 0.20:
		return 15
	default:
		return 0
	}
}

// distanceScore compares the two distance fields as an absolute
// difference. A zero field means unknown/same location, so a candidate
// with no distance data earns full credit against a same-location target.
func distanceScore(target, candidate float64) float64 {
	switch diff := math.Abs(candidate - target); {
	case diff < 1:
		return weightDistance
	case diff < 2:
		return 15
	case diff < 5:
		return 10
	default:
		return 0
	}
}

func squareFeetScore(target, candidate int) float64 {
	if target == 0 && candidate == 0 {
		return weightSquareFeet
	}
	if target == 0 || candidate == 0 {
		return 0
	}
	switch dev := math.Abs(float64(candidate-target)) / float64(target); {
	case dev <= 0.10:
		return weightSquareFeet
	case dev <= 0.20:
		return 12
	default:
		return 0
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
