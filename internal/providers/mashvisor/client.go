// Package mashvisor is a typed client for the Mashvisor comp-listing
// API: direct price-filtered comps, city neighborhoods, and
// per-neighborhood rental listings.
package mashvisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dscr-analyzer/internal/comps"
	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/normalization"
	"dscr-analyzer/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.mashvisor.com/v1.1"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client calls the Mashvisor API over HTTP. It serves the aggregator as
// both the direct comp source and the neighborhood fallback source.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

var (
	_ comps.DirectCompsSource  = (*Client)(nil)
	_ comps.NeighborhoodSource = (*Client)(nil)
)

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new Mashvisor API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the common Mashvisor response wrapper. Content is left raw
// because its shape varies by endpoint, and for listings even by city.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Content json.RawMessage `json:"content"`
}

// DirectComps fetches active listings for a city within a price band.
func (c *Client) DirectComps(ctx context.Context, city, state string, minPrice, maxPrice float64) ([]domain.PropertyFeatures, error) {
	path := fmt.Sprintf("/client/trends/listings/%s/%s", url.PathEscape(state), url.PathEscape(city))

	query := url.Values{}
	query.Set("format", "json")
	if minPrice > 0 {
		query.Set("min_price", strconv.FormatFloat(minPrice, 'f', 0, 64))
	}
	if maxPrice > 0 {
		query.Set("max_price", strconv.FormatFloat(maxPrice, 'f', 0, 64))
	}

	content, err := c.get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("direct comps %s, %s: %w", city, state, err)
	}

	raws, err := extractListings(content)
	if err != nil {
		return nil, fmt.Errorf("direct comps %s, %s: %w", city, state, err)
	}
	return normalization.FeaturesSlice(raws), nil
}

// neighborhoodList is the content shape for the neighborhoods endpoint.
type neighborhoodList struct {
	Results []struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// CityNeighborhoods lists the neighborhoods of a city.
func (c *Client) CityNeighborhoods(ctx context.Context, state, city string) ([]domain.Neighborhood, error) {
	path := fmt.Sprintf("/client/city/neighborhoods/%s/%s", url.PathEscape(state), url.PathEscape(city))

	content, err := c.get(ctx, path, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("neighborhoods %s, %s: %w", city, state, err)
	}

	var list neighborhoodList
	if err := json.Unmarshal(content, &list); err != nil {
		return nil, fmt.Errorf("neighborhoods %s, %s: %w", city, state, err)
	}

	hoods := make([]domain.Neighborhood, 0, len(list.Results))
	for _, r := range list.Results {
		hoods = append(hoods, domain.Neighborhood{
			ID:        r.ID,
			Name:      r.Name,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return hoods, nil
}

// NeighborhoodListings fetches traditional rental listings for one
// neighborhood.
func (c *Client) NeighborhoodListings(ctx context.Context, neighborhoodID int64, state string) ([]domain.PropertyFeatures, error) {
	path := fmt.Sprintf("/client/neighborhood/%d/traditional/listing", neighborhoodID)

	query := url.Values{}
	query.Set("format", "json")
	query.Set("state", state)

	content, err := c.get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("neighborhood %d listings: %w", neighborhoodID, err)
	}

	raws, err := extractListings(content)
	if err != nil {
		return nil, fmt.Errorf("neighborhood %d listings: %w", neighborhoodID, err)
	}
	return normalization.FeaturesSlice(raws), nil
}

// Listing container keys tried in order. Mashvisor wraps result arrays
// inconsistently across endpoints.
var listingContainerKeys = []string{"results", "properties", "listings", "items", "data"}

// extractListings pulls the listing array out of a content payload that
// may be a bare array, an object holding the array under one of several
// keys, or a nested content object.
func extractListings(content json.RawMessage) ([]normalization.RawListing, error) {
	if len(content) == 0 || string(content) == "null" {
		return nil, nil
	}

	var asList []normalization.RawListing
	if err := json.Unmarshal(content, &asList); err == nil {
		return asList, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(content, &asObject); err != nil {
		return nil, fmt.Errorf("unexpected content shape: %w", err)
	}

	for _, key := range listingContainerKeys {
		raw, present := asObject[key]
		if !present {
			continue
		}
		var list []normalization.RawListing
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}

	if nested, present := asObject["content"]; present {
		return extractListings(nested)
	}
	return nil, nil
}

// get wraps doGet with call metrics.
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	start := time.Now()
	content, err := c.doGet(ctx, path, query)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordProviderCall("mashvisor", status, time.Since(start).Seconds())
	return content, err
}

// doGet performs a GET with retries and exponential backoff and unwraps
// the Mashvisor response envelope. A non-success envelope status is not
// retried.
func (c *Client) doGet(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return nil, fmt.Errorf("unmarshal envelope: %w", err)
		}
		if env.Status != "success" {
			return nil, fmt.Errorf("api status %q: %s", env.Status, env.Message)
		}
		return env.Content, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
