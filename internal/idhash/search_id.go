package idhash

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ComputeSearchID computes a deterministic search_id using SHA256.
// Formula: SHA256(username|city|state|min_price|max_price|bedrooms)
// with city and state lowercased so key casing does not fork IDs.
// Returns a base58-encoded digest.
func ComputeSearchID(
	username string,
	city string,
	state string,
	minPrice float64,
	maxPrice float64,
	bedrooms int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%.2f|%.2f|%d",
		username,
		strings.ToLower(strings.TrimSpace(city)),
		strings.ToLower(strings.TrimSpace(state)),
		minPrice,
		maxPrice,
		bedrooms,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeListingID computes a deterministic listing_id using SHA256.
// Formula: SHA256(zpid|normalized_address). The zpid alone would do for
// one provider, but comp listings arrive from sources without one.
func ComputeListingID(zpid string, normalizedAddress string) string {
	data := fmt.Sprintf("%s|%s", zpid, normalizedAddress)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
