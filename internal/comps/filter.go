package comps

import "dscr-analyzer/internal/domain"

// Tolerance bands for comparable acceptance.
const (
	priceBandLow     = 0.5
	priceBandHigh    = 2.0
	bedroomTolerance = 1
	bathTolerance    = 1.0
)

// Accept reports whether a candidate is usable as a comparable for the
// target. It is a pure predicate: candidates with no address, a
// non-positive or far-off price, or bedroom/bathroom counts outside the
// tolerance bands are rejected.
func Accept(target, candidate domain.PropertyFeatures) bool {
	if candidate.Address == "" {
		return false
	}
	if candidate.Price <= 0 {
		return false
	}
	if candidate.Price < priceBandLow*target.Price || candidate.Price > priceBandHigh*target.Price {
		return false
	}
	if candidate.Bedrooms < target.Bedrooms-bedroomTolerance || candidate.Bedrooms > target.Bedrooms+bedroomTolerance {
		return false
	}
	if candidate.Bathrooms < target.Bathrooms-bathTolerance || candidate.Bathrooms > target.Bathrooms+bathTolerance {
		return false
	}
	return true
}
