// Package stub provides canned provider implementations for testing and
// for running the server without API keys.
package stub

import (
	"context"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/normalization"
)

// ListingSource implements analyzer.ListingSource from a fixed set of
// raw listings.
type ListingSource struct {
	Listings []normalization.RawListing
	Err      error
}

// NewListingSource creates a stub listing source with a small plausible
// inventory.
func NewListingSource() *ListingSource {
	return &ListingSource{
		Listings: []normalization.RawListing{
			{
				"address": "123 Main St, Houston, TX 77002", "price": float64(295000),
				"bedrooms": float64(3), "bathrooms": float64(2),
				"zpid": "10000001", "rentZestimate": float64(2150),
			},
			{
				"address": "456 Oak Ave, Houston, TX 77002", "price": float64(340000),
				"bedrooms": float64(4), "bathrooms": 2.5,
				"zpid": "10000002", "rentZestimate": float64(2450),
			},
			{
				"address": "789 Pine St, Houston, TX 77002", "price": float64(265000),
				"bedrooms": float64(3), "bathrooms": float64(2),
				"zpid": "10000003",
			},
		},
	}
}

// SearchListings returns the canned listings.
func (s *ListingSource) SearchListings(_ context.Context, city, state string, maxResults int) ([]normalization.RawListing, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if maxResults > 0 && maxResults < len(s.Listings) {
		return s.Listings[:maxResults], nil
	}
	return s.Listings, nil
}

// CompSource implements both comps.DirectCompsSource and
// comps.NeighborhoodSource from fixed data.
type CompSource struct {
	Direct        []domain.PropertyFeatures
	DirectErr     error
	Neighborhoods []domain.Neighborhood
	Listings      map[int64][]domain.PropertyFeatures
}

// NewCompSource creates a stub comp source with one neighborhood of
// listings and no direct comps, exercising the fallback path.
func NewCompSource() *CompSource {
	return &CompSource{
		Neighborhoods: []domain.Neighborhood{
			{ID: 1, Name: "Montrose", Latitude: 29.74, Longitude: -95.39},
		},
		Listings: map[int64][]domain.PropertyFeatures{
			1: {
				{Bedrooms: 3, Bathrooms: 2, Price: 289000, SquareFeet: 1475, DistanceMiles: 0.6, Address: "11 Westheimer Rd"},
				{Bedrooms: 3, Bathrooms: 2.5, Price: 315000, SquareFeet: 1610, DistanceMiles: 1.1, Address: "22 Montrose Blvd"},
			},
		},
	}
}

// DirectComps returns the canned direct comps.
func (s *CompSource) DirectComps(_ context.Context, city, state string, minPrice, maxPrice float64) ([]domain.PropertyFeatures, error) {
	if s.DirectErr != nil {
		return nil, s.DirectErr
	}
	return s.Direct, nil
}

// CityNeighborhoods returns the canned neighborhood list.
func (s *CompSource) CityNeighborhoods(_ context.Context, state, city string) ([]domain.Neighborhood, error) {
	return s.Neighborhoods, nil
}

// NeighborhoodListings returns the canned listings for a neighborhood.
func (s *CompSource) NeighborhoodListings(_ context.Context, neighborhoodID int64, state string) ([]domain.PropertyFeatures, error) {
	return s.Listings[neighborhoodID], nil
}

// RentSource implements analyzer.RentSource from a fixed table keyed by
// zip code.
type RentSource struct {
	Rents map[string]float64
	Err   error
}

// NewRentSource creates a stub rent source.
func NewRentSource() *RentSource {
	return &RentSource{
		Rents: map[string]float64{
			"77002": 1950,
		},
	}
}

// AverageRent returns the canned rent for a zip code.
func (s *RentSource) AverageRent(_ context.Context, zipcode string, bedrooms int) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Rents[zipcode], nil
}
