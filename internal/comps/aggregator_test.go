package comps

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dscr-analyzer/internal/cache"
	"dscr-analyzer/internal/domain"
)

type stubDirectSource struct {
	comps []domain.PropertyFeatures
	err   error
	calls int
}

func (s *stubDirectSource) DirectComps(ctx context.Context, city, state string, minPrice, maxPrice float64) ([]domain.PropertyFeatures, error) {
	s.calls++
	return s.comps, s.err
}

type stubNeighborhoodSource struct {
	hoods        []domain.Neighborhood
	hoodsErr     error
	listings     map[int64][]domain.PropertyFeatures
	listingsErr  map[int64]error
	hoodCalls    int
	listingCalls int
}

func (s *stubNeighborhoodSource) CityNeighborhoods(ctx context.Context, state, city string) ([]domain.Neighborhood, error) {
	s.hoodCalls++
	return s.hoods, s.hoodsErr
}

func (s *stubNeighborhoodSource) NeighborhoodListings(ctx context.Context, neighborhoodID int64, state string) ([]domain.PropertyFeatures, error) {
	s.listingCalls++
	if err, ok := s.listingsErr[neighborhoodID]; ok {
		return nil, err
	}
	return s.listings[neighborhoodID], nil
}

func aggregatorTarget() domain.PropertyFeatures {
	return domain.PropertyFeatures{
		Bedrooms:   3,
		Bathrooms:  2,
		Price:      300000,
		SquareFeet: 1500,
		Address:    "1000 Target Ln",
	}
}

func candidateAt(address string, price float64) domain.PropertyFeatures {
	return domain.PropertyFeatures{
		Bedrooms:   3,
		Bathrooms:  2,
		Price:      price,
		SquareFeet: 1500,
		Address:    address,
	}
}

func TestFindComps_DirectSourceUsedFirst(t *testing.T) {
	direct := &stubDirectSource{comps: []domain.PropertyFeatures{
		candidateAt("10 Direct St", 295000),
	}}
	hoods := &stubNeighborhoodSource{hoods: []domain.Neighborhood{{ID: 1, Name: "Montrose"}}}

	agg := NewAggregator(AggregatorOptions{Direct: direct, Neighborhoods: hoods})

	got, err := agg.FindComps(context.Background(), aggregatorTarget(), "Houston", "TX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Address != "10 Direct St" {
		t.Fatalf("unexpected comps: %+v", got)
	}
	if got[0].Source != domain.SourceDirectAPI {
		t.Errorf("expected DIRECT_API source, got %s", got[0].Source)
	}
	if hoods.hoodCalls != 0 {
		t.Errorf("fallback queried despite direct results (%d calls)", hoods.hoodCalls)
	}
}

func TestFindComps_FallsBackWhenDirectFails(t *testing.T) {
	direct := &stubDirectSource{err: errors.New("upstream 502")}
	hoods := &stubNeighborhoodSource{
		hoods: []domain.Neighborhood{{ID: 7, Name: "Eastwood"}},
		listings: map[int64][]domain.PropertyFeatures{
			7: {candidateAt("20 Hood Ave", 310000)},
		},
	}

	agg := NewAggregator(AggregatorOptions{Direct: direct, Neighborhoods: hoods})

	got, err := agg.FindComps(context.Background(), aggregatorTarget(), "Houston", "TX")
	if err != nil {
		t.Fatalf("provider failure should not surface as an error: %v", err)
	}
	if len(got) != 1 || got[0].Address != "20 Hood Ave" {
		t.Fatalf("unexpected comps: %+v", got)
	}
	if got[0].Source != domain.SourceNeighborhoodSearch {
		t.Errorf("expected NEIGHBORHOOD_SEARCH source, got %s", got[0].Source)
	}
}

func TestFindComps_BothSourcesEmptyReturnsEmpty(t *testing.T) {
	direct := &stubDirectSource{err: errors.New("down")}
	hoods := &stubNeighborhoodSource{hoodsErr: errors.New("also down")}

	agg := NewAggregator(AggregatorOptions{Direct: direct, Neighborhoods: hoods})

	got, err := agg.FindComps(context.Background(), aggregatorTarget(), "Houston", "TX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty comp list, got %+v", got)
	}
}

func TestFindComps_InvalidTarget(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{})

	_, err := agg.FindComps(context.Background(), domain.PropertyFeatures{}, "Houston", "TX")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFindComps_NeighborhoodScanBounds(t *testing.T) {
	var hoods []domain.Neighborhood
	listings := make(map[int64][]domain.PropertyFeatures)
	for i := int64(1); i <= 8; i++ {
		hoods = append(hoods, domain.Neighborhood{ID: i, Name: fmt.Sprintf("Hood %d", i)})
		listings[i] = []domain.PropertyFeatures{candidateAt(fmt.Sprintf("%d Hood St", i), 300000)}
	}
	src := &stubNeighborhoodSource{hoods: hoods, listings: listings}

	agg := NewAggregator(AggregatorOptions{Neighborhoods: src})

	if _, err := agg.FindComps(context.Background(), aggregatorTarget(), "Houston", "TX"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.listingCalls > 5 {
		t.Errorf("scanned %d neighborhoods, want at most 5", src.listingCalls)
	}
}

func TestFindComps_StopsAtTargetCandidateCount(t *testing.T) {
	listings := make(map[int64][]domain.PropertyFeatures)
	var hoods []domain.Neighborhood
	for i := int64(1); i <= 5; i++ {
		hoods = append(hoods, domain.Neighborhood{ID: i})
		var batch []domain.PropertyFeatures
		for j := 0; j < 6; j++ {
			batch = append(batch, candidateAt(fmt.Sprintf("%d-%d Hood St", i, j), 300000))
		}
		listings[i] = batch
	}
	src := &stubNeighborhoodSource{hoods: hoods, listings: listings}

	agg := NewAggregator(AggregatorOptions{Neighborhoods: src})

	if _, err := agg.FindComps(context.Background(), aggregatorTarget(), "Houston", "TX"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two batches of six reach the ten-candidate stop condition.
	if src.listingCalls != 2 {
		t.Errorf("expected 2 listing calls, got %d", src.listingCalls)
	}
}

func TestFindComps_SkipsFailingNeighborhoods(t *testing.T) {
	src := &stubNeighborhoodSource{
		hoods: []domain.Neighborhood{{ID: 1, Name: "Broken"}, {ID: 2, Name: "Working"}},
		listings: map[int64][]domain.PropertyFeatures{
			2: {candidateAt("2 Hood St", 300000)},
		},
		listingsErr: map[int64]error{1: errors.New("timeout")},
	}

	agg := NewAggregator(AggregatorOptions{Neighborhoods: src})

	got, err := agg.FindComps(context.Background(), aggregatorTarget(), "Houston", "TX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Address != "2 Hood St" {
		t.Fatalf("unexpected comps: %+v", got)
	}
}

func TestFindComps_CachesNeighborhoodList(t *testing.T) {
	src := &stubNeighborhoodSource{
		hoods: []domain.Neighborhood{{ID: 1, Name: "Montrose"}},
		listings: map[int64][]domain.PropertyFeatures{
			1: {candidateAt("1 Hood St", 300000)},
		},
	}
	c := cache.NewNeighborhoodCache(8)

	agg := NewAggregator(AggregatorOptions{Neighborhoods: src, Cache: c})

	ctx := context.Background()
	target := aggregatorTarget()
	if _, err := agg.FindComps(ctx, target, "Houston", "TX"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := agg.FindComps(ctx, target, "Houston", "TX"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.hoodCalls != 1 {
		t.Errorf("expected 1 neighborhood lookup, got %d", src.hoodCalls)
	}
}

func TestAggregate_DeduplicatesByNormalizedAddress(t *testing.T) {
	target := aggregatorTarget()
	primary := []domain.PropertyFeatures{candidateAt("123 Main St", 295000)}
	fallback := []domain.PropertyFeatures{candidateAt("123   main st", 310000)}

	got := Aggregate(target, primary, fallback, 0)
	if len(got) != 1 {
		t.Fatalf("expected duplicate collapsed to 1 comp, got %d", len(got))
	}
	if got[0].Source != domain.SourceDirectAPI {
		t.Errorf("expected primary occurrence kept, got source %s", got[0].Source)
	}
	if got[0].Price != 295000 {
		t.Errorf("expected primary record kept, got price %f", got[0].Price)
	}
}

func TestAggregate_SortsByScoreDescending(t *testing.T) {
	target := aggregatorTarget()
	primary := []domain.PropertyFeatures{
		{Bedrooms: 4, Bathrooms: 2, Price: 350000, SquareFeet: 1800, DistanceMiles: 2.5, Address: "decent"},
		{Bedrooms: 3, Bathrooms: 2, Price: 295000, SquareFeet: 1480, DistanceMiles: 0.5, Address: "perfect"},
	}

	got := Aggregate(target, primary, nil, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 comps, got %d", len(got))
	}
	if got[0].Address != "perfect" || got[1].Address != "decent" {
		t.Errorf("wrong order: %q then %q", got[0].Address, got[1].Address)
	}
	if got[0].SimilarityScore < got[1].SimilarityScore {
		t.Errorf("scores out of order: %f then %f", got[0].SimilarityScore, got[1].SimilarityScore)
	}
}

func TestAggregate_DirectAPIWinsScoreTies(t *testing.T) {
	target := aggregatorTarget()
	same := candidateAt("", 300000)

	primary := same
	primary.Address = "1 Direct St"
	fallback := same
	fallback.Address = "1 Fallback St"

	// Fallback listed first in neither slice matters; the tiebreak is on
	// source rank after equal scores.
	got := Aggregate(target, []domain.PropertyFeatures{primary}, []domain.PropertyFeatures{fallback}, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 comps, got %d", len(got))
	}
	if got[0].Source != domain.SourceDirectAPI {
		t.Errorf("expected direct comp ranked first on tie, got %s", got[0].Source)
	}
}

func TestAggregate_TruncatesToMaxResults(t *testing.T) {
	target := aggregatorTarget()
	var primary []domain.PropertyFeatures
	for i := 0; i < 30; i++ {
		primary = append(primary, candidateAt(fmt.Sprintf("%d Elm St", i), 300000))
	}

	got := Aggregate(target, primary, nil, 0)
	if len(got) != DefaultMaxResults {
		t.Errorf("expected %d comps, got %d", DefaultMaxResults, len(got))
	}

	got = Aggregate(target, primary, nil, 5)
	if len(got) != 5 {
		t.Errorf("expected 5 comps, got %d", len(got))
	}
}

func TestAggregate_FiltersBeforeScoring(t *testing.T) {
	target := aggregatorTarget()
	primary := []domain.PropertyFeatures{
		candidateAt("in band", 295000),
		candidateAt("too expensive", 700000),
		candidateAt("", 295000), // no address
	}

	got := Aggregate(target, primary, nil, 0)
	if len(got) != 1 || got[0].Address != "in band" {
		t.Fatalf("expected only the in-band comp, got %+v", got)
	}
}
