// Package serpapi fetches a rough average-rent figure from Google
// answer boxes via SerpAPI. It is the rent source of last resort.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"dscr-analyzer/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://serpapi.com"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 1 * time.Second
)

// ErrNoEstimate is returned when the answer box yields no usable rent
// figure.
var ErrNoEstimate = errors.New("no rent estimate available")

// Client queries SerpAPI for average rent by zip and bedroom count.
type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

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

// NewClient creates a new SerpAPI client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResponse carries the only part of the result we read.
type searchResponse struct {
	AnswerBox struct {
		SnippetHighlightedWords []string `json:"snippet_highlighted_words"`
	} `json:"answer_box"`
}

// AverageRent queries the average rent for a bedroom count in a zip
// code. The first highlighted snippet containing digits wins; dollar
// signs and separators are stripped. Returns ErrNoEstimate when the
// answer box has no numeric snippet.
func (c *Client) AverageRent(ctx context.Context, zipcode string, bedrooms int) (float64, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("average rent for %d bedroom home in %s", bedrooms, zipcode))
	query.Set("api_key", c.apiKey)
	query.Set("hl", "en")
	query.Set("gl", "us")

	var result searchResponse
	if err := c.get(ctx, "/search.json", query, &result); err != nil {
		return 0, fmt.Errorf("serpapi rent %s/%dbr: %w", zipcode, bedrooms, err)
	}

	for _, snippet := range result.AnswerBox.SnippetHighlightedWords {
		if rent, ok := parseRentFigure(snippet); ok {
			return rent, nil
		}
	}
	return 0, ErrNoEstimate
}

// parseRentFigure extracts the digits from a highlighted snippet such
// as "$1,850" or "1850/mo".
func parseRentFigure(snippet string) (float64, bool) {
	var digits strings.Builder
	for _, r := range snippet {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	start := time.Now()
	err := c.doGet(ctx, path, query, result)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordProviderCall("serpapi", status, time.Since(start).Seconds())
	return err
}

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
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

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

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
