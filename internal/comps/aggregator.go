package comps

import (
	"context"
	"io"
	"log"
	"sort"

	"dscr-analyzer/internal/cache"
	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/observability"
)

// Resource bounds for comp discovery.
const (
	// DefaultMaxResults caps the returned comp list.
	DefaultMaxResults = 15
	// Price band applied to the direct provider call.
	directPriceBandLow  = 0.7
	directPriceBandHigh = 1.3
	// Fallback search scans at most this many neighborhoods...
	maxNeighborhoodsToScan = 5
	// ...or stops once this many raw candidates have accumulated.
	targetCandidateCount = 10
)

// DirectCompsSource fetches price-filtered comps in one call.
type DirectCompsSource interface {
	// DirectComps returns raw candidates for a city within [minPrice, maxPrice].
	DirectComps(ctx context.Context, city, state string, minPrice, maxPrice float64) ([]domain.PropertyFeatures, error)
}

// NeighborhoodSource discovers comps by enumerating city sub-areas.
type NeighborhoodSource interface {
	// CityNeighborhoods lists the sub-areas of a city.
	CityNeighborhoods(ctx context.Context, state, city string) ([]domain.Neighborhood, error)

	// NeighborhoodListings returns raw rental listings for one neighborhood.
	NeighborhoodListings(ctx context.Context, neighborhoodID int64, state string) ([]domain.PropertyFeatures, error)
}

// Aggregator orchestrates comp discovery: direct provider first,
// neighborhood fallback second, then filter, dedupe, score, rank, and
// truncate. Provider failures are absorbed as empty candidate sets; only
// an invalid target is an error.
type Aggregator struct {
	direct     DirectCompsSource
	hoods      NeighborhoodSource
	hoodCache  *cache.NeighborhoodCache
	maxResults int
	logger     *log.Logger
}

// AggregatorOptions configures an Aggregator. Direct and Neighborhoods
// may each be nil when that source is unavailable.
type AggregatorOptions struct {
	Direct        DirectCompsSource
	Neighborhoods NeighborhoodSource
	Cache         *cache.NeighborhoodCache
	MaxResults    int // <= 0 means DefaultMaxResults
	Logger        *log.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNeighborhoodCache(0)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Aggregator{
		direct:     opts.Direct,
		hoods:      opts.Neighborhoods,
		hoodCache:  opts.Cache,
		maxResults: opts.MaxResults,
		logger:     opts.Logger,
	}
}

// FindComps discovers, scores, and ranks comparables for the target.
// Zero comps is a valid outcome and returns an empty slice, not an error.
func (a *Aggregator) FindComps(ctx context.Context, target domain.PropertyFeatures, city, state string) ([]domain.ScoredComp, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	primary := a.fetchDirect(ctx, target, city, state)

	path := "direct"
	var fallback []domain.PropertyFeatures
	if len(primary) == 0 {
		path = "neighborhood_fallback"
		fallback = a.fetchNeighborhoods(ctx, city, state)
	}

	ranked := Aggregate(target, primary, fallback, a.maxResults)
	observability.RecordCompRequest(path, len(ranked))
	return ranked, nil
}

// fetchDirect queries the direct comp endpoint with a 0.7x-1.3x price
// band. Failure downgrades to zero candidates.
func (a *Aggregator) fetchDirect(ctx context.Context, target domain.PropertyFeatures, city, state string) []domain.PropertyFeatures {
	if a.direct == nil {
		return nil
	}

	minPrice := target.Price * directPriceBandLow
	maxPrice := target.Price * directPriceBandHigh

	candidates, err := a.direct.DirectComps(ctx, city, state, minPrice, maxPrice)
	if err != nil {
		a.logger.Printf("direct comps unavailable for %s, %s: %v", city, state, err)
		return nil
	}
	return candidates
}

// fetchNeighborhoods enumerates city sub-areas, bounded to five
// neighborhoods or ten accumulated candidates. Per-neighborhood failures
// are logged and skipped; they still count toward the scan bound.
func (a *Aggregator) fetchNeighborhoods(ctx context.Context, city, state string) []domain.PropertyFeatures {
	if a.hoods == nil {
		return nil
	}

	hoods, ok := a.hoodCache.Get(city, state)
	observability.RecordCacheLookup(ok)
	if !ok {
		var err error
		hoods, err = a.hoods.CityNeighborhoods(ctx, state, city)
		if err != nil {
			a.logger.Printf("neighborhood lookup failed for %s, %s: %v", city, state, err)
			return nil
		}
		a.hoodCache.Put(city, state, hoods)
	}

	var candidates []domain.PropertyFeatures
	scanned := 0
	for i, hood := range hoods {
		if i >= maxNeighborhoodsToScan || len(candidates) >= targetCandidateCount {
			break
		}
		scanned++

		listings, err := a.hoods.NeighborhoodListings(ctx, hood.ID, state)
		if err != nil {
			a.logger.Printf("listings unavailable for neighborhood %s (%d): %v", hood.Name, hood.ID, err)
			continue
		}
		candidates = append(candidates, listings...)
	}
	observability.RecordNeighborhoodsScanned(scanned)

	return candidates
}

// Aggregate merges raw candidates from both sources into a ranked comp
// list: filter, dedupe by normalized address (first occurrence wins,
// primary before fallback), score, sort by score descending with
// DirectAPI winning ties and discovery order as the final tiebreak, then
// truncate to maxResults.
func Aggregate(target domain.PropertyFeatures, primary, fallback []domain.PropertyFeatures, maxResults int) []domain.ScoredComp {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	seen := make(map[string]struct{})
	comps := make([]domain.ScoredComp, 0, len(primary)+len(fallback))

	collect := func(candidates []domain.PropertyFeatures, source domain.Source) {
		for _, c := range candidates {
			if !Accept(target, c) {
				continue
			}
			key := NormalizeAddress(c.Address)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			comps = append(comps, domain.ScoredComp{
				PropertyFeatures: c,
				SimilarityScore:  Score(target, c),
				Source:           source,
			})
		}
	}

	collect(primary, domain.SourceDirectAPI)
	collect(fallback, domain.SourceNeighborhoodSearch)

	// Stable sort preserves discovery order for full ties.
	sort.SliceStable(comps, func(i, j int) bool {
		if comps[i].SimilarityScore != comps[j].SimilarityScore {
			return comps[i].SimilarityScore > comps[j].SimilarityScore
		}
		return sourceRank(comps[i].Source) < sourceRank(comps[j].Source)
	})

	if len(comps) > maxResults {
		comps = comps[:maxResults]
	}
	return comps
}

func sourceRank(s domain.Source) int {
	if s == domain.SourceDirectAPI {
		return 0
	}
	return 1
}
