// Package analyzer orchestrates property searches: fetch listings,
// estimate carrying costs, resolve rent, and rank by DSCR.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/finance"
	"dscr-analyzer/internal/idhash"
	"dscr-analyzer/internal/normalization"
	"dscr-analyzer/internal/observability"
	"dscr-analyzer/internal/providers/zillow"
	"dscr-analyzer/internal/storage"
)

// DefaultTermYears is the mortgage term assumed for every listing.
const DefaultTermYears = 30

// ListingSource fetches raw for-sale listings for a city.
type ListingSource interface {
	SearchListings(ctx context.Context, city, state string, maxResults int) ([]normalization.RawListing, error)
}

// RentSource resolves an average market rent by zip code and bedroom
// count. Used only when a listing has no rent estimate of its own.
type RentSource interface {
	AverageRent(ctx context.Context, zipcode string, bedrooms int) (float64, error)
}

// Analyzer runs DSCR searches over a listing source.
type Analyzer struct {
	listings ListingSource
	rents    RentSource
	events   storage.SearchEventStore
	logger   *log.Logger
	now      func() time.Time
}

// Options configures an Analyzer. Rents and Events may be nil; without a
// rent source listings lacking a rent estimate are skipped, and without
// an event store searches are not recorded.
type Options struct {
	Listings ListingSource
	Rents    RentSource
	Events   storage.SearchEventStore
	Logger   *log.Logger
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Analyzer{
		listings: opts.Listings,
		rents:    opts.Rents,
		events:   opts.Events,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Search fetches listings for the request's city, analyzes each one, and
// returns results ordered by DSCR descending. Listings missing required
// fields or outside the price range are skipped, not errors.
func (a *Analyzer) Search(ctx context.Context, req domain.SearchRequest) ([]domain.PropertyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := a.now()

	raws, err := a.listings.SearchListings(ctx, req.City, req.State, 0)
	if err != nil {
		observability.RecordSearch("error", a.now().Sub(start).Seconds(), 0)
		return nil, fmt.Errorf("fetch listings for %s, %s: %w", req.City, req.State, err)
	}
	observability.RecordListingsFetched(len(raws))

	// Average rents are shared across listings with the same zip and
	// bedroom count, so one search hits the fallback source at most once
	// per key.
	fallbackRent := make(map[string]float64)

	results := make([]domain.PropertyResult, 0, len(raws))
	for _, raw := range raws {
		result, ok := a.analyzeListing(ctx, req, raw, fallbackRent)
		if !ok {
			continue
		}
		observability.RecordListingAnalyzed()
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DSCR > results[j].DSCR
	})

	elapsed := a.now().Sub(start)
	observability.RecordSearch("ok", elapsed.Seconds(), len(results))
	a.recordEvent(ctx, req, len(raws), len(results), elapsed)

	return results, nil
}

// analyzeListing turns one raw listing into a ranked result. ok is false
// when the listing is skipped.
func (a *Analyzer) analyzeListing(ctx context.Context, req domain.SearchRequest, raw normalization.RawListing, fallbackRent map[string]float64) (domain.PropertyResult, bool) {
	features := normalization.Features(raw)
	zpid := normalization.ZPID(raw)
	zipcode := zipFromAddress(features.Address)

	if features.Price <= 0 || features.Address == "" || features.Bedrooms <= 0 || zipcode == "" || zpid == "" {
		observability.RecordListingSkipped("missing_fields")
		return domain.PropertyResult{}, false
	}
	if features.Price < float64(req.MinPrice) {
		observability.RecordListingSkipped("below_min_price")
		return domain.PropertyResult{}, false
	}
	if req.MaxPrice > 0 && features.Price > float64(req.MaxPrice) {
		observability.RecordListingSkipped("above_max_price")
		return domain.PropertyResult{}, false
	}

	hoaFee := normalization.HOAFee(raw)
	taxRate := normalization.TaxRate(raw)
	if taxRate <= 0 {
		taxRate = finance.DefaultTaxRate
	}

	payment, err := finance.EstimateMonthlyPayment(
		features.Price,
		req.DownPaymentPct/100,
		req.InterestRate,
		DefaultTermYears,
		taxRate,
		hoaFee,
	)
	if err != nil {
		observability.RecordListingSkipped("payment_failed")
		a.logger.Printf("payment estimate failed for %s: %v", features.Address, err)
		return domain.PropertyResult{}, false
	}

	rent, rentSource := a.resolveRent(ctx, raw, zipcode, features.Bedrooms, fallbackRent)
	if rent <= 0 {
		observability.RecordListingSkipped("no_rent")
		return domain.PropertyResult{}, false
	}
	observability.RecordRentLookup(string(rentSource))

	return domain.PropertyResult{
		Address:        features.Address,
		Price:          features.Price,
		Bedrooms:       features.Bedrooms,
		Bathrooms:      features.Bathrooms,
		MonthlyPayment: finance.Round2(payment),
		Rent:           rent,
		RentSource:     rentSource,
		DSCR:           finance.Round2(finance.DSCR(rent, payment)),
		HOAFee:         hoaFee,
		TaxRate:        taxRate,
		InsuranceCost:  finance.Round2(finance.MonthlyInsurance(features.Price)),
		ZPID:           zpid,
		ZillowURL:      zillow.PropertyURL(zpid),
	}, true
}

// resolveRent prefers the listing's own estimate, then the per-search
// fallback map, then the external average-rent source.
func (a *Analyzer) resolveRent(ctx context.Context, raw normalization.RawListing, zipcode string, bedrooms int, fallbackRent map[string]float64) (float64, domain.RentSource) {
	if rent, ok := normalization.Rent(raw); ok {
		return rent, domain.RentSourceZestimate
	}

	key := fmt.Sprintf("%s-%d", zipcode, bedrooms)
	if rent, ok := fallbackRent[key]; ok {
		return rent, domain.RentSourceMarketAverage
	}

	if a.rents == nil {
		return 0, domain.RentSourceUnknown
	}

	rent, err := a.rents.AverageRent(ctx, zipcode, bedrooms)
	if err != nil {
		a.logger.Printf("average rent unavailable for %s/%dbr: %v", zipcode, bedrooms, err)
		return 0, domain.RentSourceUnknown
	}

	fallbackRent[key] = rent
	return rent, domain.RentSourceMarketAverage
}

// recordEvent writes the analytics record for a completed search.
// Failures are logged, never surfaced.
func (a *Analyzer) recordEvent(ctx context.Context, req domain.SearchRequest, fetched, returned int, elapsed time.Duration) {
	if a.events == nil {
		return
	}

	event := &domain.SearchEvent{
		SearchID: idhash.ComputeSearchID(
			req.Username, req.City, req.State,
			float64(req.MinPrice), float64(req.MaxPrice), 0,
		),
		Username:        req.Username,
		City:            req.City,
		State:           req.State,
		ListingsFetched: fetched,
		ResultsReturned: returned,
		DurationMs:      elapsed.Milliseconds(),
		CreatedAt:       a.now().UnixMilli(),
	}
	if err := a.events.Insert(ctx, event); err != nil {
		a.logger.Printf("record search event: %v", err)
	}
}

// zipFromAddress extracts the zip code as the address's trailing field.
// Listing addresses arrive formatted "street, city, ST zip".
func zipFromAddress(address string) string {
	fields := strings.Fields(address)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
