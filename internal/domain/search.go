package domain

// RentSource identifies where a rent figure came from.
type RentSource string

const (
	RentSourceZestimate     RentSource = "Zestimate"
	RentSourceMarketAverage RentSource = "Market Average"
	RentSourceUnknown       RentSource = "Unknown"
)

// SearchRequest describes an investment property search.
type SearchRequest struct {
	City           string  `json:"city"`
	State          string  `json:"state"`
	DownPaymentPct float64 `json:"down_payment"`  // percent, e.g. 20.0
	InterestRate   float64 `json:"interest_rate"` // annual percent
	MinPrice       int     `json:"min_price"`
	MaxPrice       int     `json:"max_price"` // 0 = unbounded
	Username       string  `json:"username,omitempty"`
}

// Validate checks the request fields a search cannot proceed without.
func (r *SearchRequest) Validate() error {
	if r.City == "" || r.State == "" {
		return ErrInvalidInput
	}
	if r.DownPaymentPct < 0 || r.DownPaymentPct > 100 {
		return ErrInvalidInput
	}
	if r.InterestRate < 0 {
		return ErrInvalidInput
	}
	if r.MinPrice < 0 || r.MaxPrice < 0 {
		return ErrInvalidInput
	}
	return nil
}

// PropertyResult is one analyzed listing in a search response, ranked by
// DSCR.
type PropertyResult struct {
	Address        string     `json:"address"`
	Price          float64    `json:"price"`
	Bedrooms       int        `json:"bedrooms"`
	Bathrooms      float64    `json:"bathrooms"`
	MonthlyPayment float64    `json:"monthly_payment"`
	Rent           float64    `json:"rent"`
	RentSource     RentSource `json:"rent_type"`
	DSCR           float64    `json:"dscr"`
	HOAFee         float64    `json:"hoa_fee"`
	TaxRate        float64    `json:"tax_rate"`
	InsuranceCost  float64    `json:"insurance_cost"` // monthly
	ZPID           string     `json:"zpid"`
	ZillowURL      string     `json:"zillow_url"`
}

// SavedSearch is a persisted search for later re-use.
// Corresponds to the saved_searches table in PostgreSQL.
type SavedSearch struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	DownPaymentPct float64 `json:"down_payment"`
	InterestRate   float64 `json:"interest_rate"`
	MinPrice       int     `json:"min_price"`
	MaxPrice       int     `json:"max_price"`
	CreatedAt      int64   `json:"created_at"` // Unix timestamp in milliseconds
}

// SearchEvent is an analytics record of one search execution.
// Corresponds to the search_events table in ClickHouse.
type SearchEvent struct {
	SearchID        string
	Username        string
	City            string
	State           string
	ListingsFetched int
	ResultsReturned int
	DurationMs      int64
	CreatedAt       int64 // Unix timestamp in milliseconds
}
