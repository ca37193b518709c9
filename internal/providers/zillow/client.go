// Package zillow is a typed client for the RapidAPI Zillow listing
// search endpoint.
package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dscr-analyzer/internal/normalization"
	"dscr-analyzer/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://zillow-com1.p.rapidapi.com"
	DefaultHost        = "zillow-com1.p.rapidapi.com"
	DefaultMaxResults  = 50
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client calls the Zillow listing search API over HTTP.
type Client struct {
	baseURL     string
	host        string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHost sets the RapidAPI host header value.
func WithHost(host string) ClientOption {
	return func(c *Client) {
		c.host = host
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

// NewClient creates a new Zillow API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		host:        DefaultHost,
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

// searchResponse is the raw envelope for propertyExtendedSearch.
type searchResponse struct {
	Props []normalization.RawListing `json:"props"`
}

// SearchListings fetches for-sale house listings for a city. Records are
// returned raw; callers canonicalize them through the normalization
// package. maxResults <= 0 falls back to DefaultMaxResults.
func (c *Client) SearchListings(ctx context.Context, city, state string, maxResults int) ([]normalization.RawListing, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	query := url.Values{}
	query.Set("location", fmt.Sprintf("%s, %s", city, state))
	query.Set("status_type", "ForSale")
	query.Set("home_type", "Houses")
	query.Set("limit", strconv.Itoa(maxResults))

	var result searchResponse
	if err := c.get(ctx, "/propertyExtendedSearch", query, &result); err != nil {
		return nil, fmt.Errorf("zillow search %s, %s: %w", city, state, err)
	}
	return result.Props, nil
}

// PropertyURL builds the public listing URL for a zpid.
func PropertyURL(zpid string) string {
	return fmt.Sprintf("https://www.zillow.com/homedetails/%s_zpid/", zpid)
}

// get wraps doGet with call metrics.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	start := time.Now()
	err := c.doGet(ctx, path, query, result)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordProviderCall("zillow", status, time.Since(start).Seconds())
	return err
}

// doGet performs a GET with retries and exponential backoff. Rate limits
// and 5xx responses are retried; other non-200 statuses fail fast.
func (c *Client) doGet(ctx context.Context, path string, query url.Values, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.host)

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
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
