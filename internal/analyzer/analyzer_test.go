package analyzer

import (
	"context"
	"errors"
	"testing"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/normalization"
	"dscr-analyzer/internal/storage/memory"
)

type stubListingSource struct {
	listings []normalization.RawListing
	err      error
}

func (s *stubListingSource) SearchListings(ctx context.Context, city, state string, maxResults int) ([]normalization.RawListing, error) {
	return s.listings, s.err
}

type stubRentSource struct {
	rents map[string]float64
	err   error
	calls int
}

func (s *stubRentSource) AverageRent(ctx context.Context, zipcode string, bedrooms int) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.rents[zipcode], nil
}

func listing(address string, price float64, bedrooms int, zpid string, rent float64) normalization.RawListing {
	raw := normalization.RawListing{
		"address":   address,
		"price":     price,
		"bedrooms":  float64(bedrooms),
		"bathrooms": 2.0,
		"zpid":      zpid,
	}
	if rent > 0 {
		raw["rentZestimate"] = rent
	}
	return raw
}

func searchRequest() domain.SearchRequest {
	return domain.SearchRequest{
		City:           "Houston",
		State:          "TX",
		DownPaymentPct: 20,
		InterestRate:   7.0,
		Username:       "investor1",
	}
}

func TestSearch_RanksByDSCRDescending(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("1 Low Yield St, Houston, TX 77002", 400000, 3, "z1", 2000),
		listing("2 High Yield St, Houston, TX 77002", 200000, 3, "z2", 2400),
	}}

	a := New(Options{Listings: source})

	results, err := a.Search(context.Background(), searchRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ZPID != "z2" {
		t.Errorf("expected cheaper, higher-rent listing first, got %s", results[0].ZPID)
	}
	if results[0].DSCR < results[1].DSCR {
		t.Errorf("DSCR out of order: %f then %f", results[0].DSCR, results[1].DSCR)
	}
	if results[0].RentSource != domain.RentSourceZestimate {
		t.Errorf("expected Zestimate rent source, got %s", results[0].RentSource)
	}
	if results[0].ZillowURL != "https://www.zillow.com/homedetails/z2_zpid/" {
		t.Errorf("unexpected zillow URL %q", results[0].ZillowURL)
	}
}

func TestSearch_SkipsListingsMissingRequiredFields(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("", 300000, 3, "z1", 2000),                              // no address
		listing("2 Main St, Houston, TX 77002", 0, 3, "z2", 2000),       // no price
		listing("3 Main St, Houston, TX 77002", 300000, 0, "z3", 2000),  // no bedrooms
		listing("4 Main St, Houston, TX 77002", 300000, 3, "", 2000),    // no zpid
		listing("5 Main St, Houston, TX 77002", 300000, 3, "z5", 2000),  // valid
	}}

	a := New(Options{Listings: source})

	results, err := a.Search(context.Background(), searchRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ZPID != "z5" {
		t.Fatalf("expected only the valid listing, got %+v", results)
	}
}

func TestSearch_AppliesPriceRange(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("1 Cheap St, Houston, TX 77002", 100000, 3, "z1", 1200),
		listing("2 Mid St, Houston, TX 77002", 300000, 3, "z2", 2200),
		listing("3 Pricey St, Houston, TX 77002", 700000, 3, "z3", 4000),
	}}

	a := New(Options{Listings: source})

	req := searchRequest()
	req.MinPrice = 200000
	req.MaxPrice = 400000

	results, err := a.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ZPID != "z2" {
		t.Fatalf("expected only the in-range listing, got %+v", results)
	}
}

func TestSearch_UnboundedMaxPrice(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("1 Pricey St, Houston, TX 77002", 900000, 4, "z1", 5000),
	}}

	a := New(Options{Listings: source})

	req := searchRequest()
	req.MaxPrice = 0

	results, err := a.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected listing kept with unbounded max price, got %+v", results)
	}
}

func TestSearch_RentFallbackChain(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("1 Main St, Houston, TX 77002", 300000, 3, "z1", 0),
		listing("2 Main St, Houston, TX 77002", 310000, 3, "z2", 0),
		listing("3 Main St, Houston, TX 77002", 320000, 3, "z3", 2500),
	}}
	rents := &stubRentSource{rents: map[string]float64{"77002": 2100}}

	a := New(Options{Listings: source, Rents: rents})

	results, err := a.Search(context.Background(), searchRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Same zip and bedroom count: the average-rent source is consulted
	// once and memoized for the second listing.
	if rents.calls != 1 {
		t.Errorf("expected 1 rent lookup, got %d", rents.calls)
	}

	bySource := make(map[domain.RentSource]int)
	for _, r := range results {
		bySource[r.RentSource]++
		if r.Rent <= 0 {
			t.Errorf("result %s has no rent", r.ZPID)
		}
	}
	if bySource[domain.RentSourceZestimate] != 1 || bySource[domain.RentSourceMarketAverage] != 2 {
		t.Errorf("unexpected rent sources: %v", bySource)
	}
}

func TestSearch_SkipsWhenNoRentAvailable(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("1 Main St, Houston, TX 77002", 300000, 3, "z1", 0),
	}}
	rents := &stubRentSource{err: errors.New("quota exceeded")}

	a := New(Options{Listings: source, Rents: rents})

	results, err := a.Search(context.Background(), searchRequest())
	if err != nil {
		t.Fatalf("rent source failure should not fail the search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected rentless listing skipped, got %+v", results)
	}
}

func TestSearch_InvalidRequest(t *testing.T) {
	a := New(Options{Listings: &stubListingSource{}})

	_, err := a.Search(context.Background(), domain.SearchRequest{City: "Houston"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearch_ListingSourceError(t *testing.T) {
	a := New(Options{Listings: &stubListingSource{err: errors.New("upstream down")}})

	_, err := a.Search(context.Background(), searchRequest())
	if err == nil {
		t.Fatal("expected error when listing source fails")
	}
}

func TestSearch_RecordsSearchEvent(t *testing.T) {
	source := &stubListingSource{listings: []normalization.RawListing{
		listing("1 Main St, Houston, TX 77002", 300000, 3, "z1", 2100),
	}}
	events := memory.NewSearchEventStore()

	a := New(Options{Listings: source, Events: events})

	if _, err := a.Search(context.Background(), searchRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := events.GetByTimeRange(context.Background(), 0, 1<<62)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	event := got[0]
	if event.City != "Houston" || event.ListingsFetched != 1 || event.ResultsReturned != 1 {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.SearchID == "" {
		t.Error("expected deterministic search ID")
	}
}
