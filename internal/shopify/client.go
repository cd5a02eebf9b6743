// Package shopify implements a read-only client for the Shopify Admin
// REST API with cursor pagination and rate-limit retry.
//
// The client only ever issues GET requests. This is a safety invariant:
// it is the entire data surface exposed to the reasoning loop, so the
// loop cannot mutate store state no matter what the model decides.
package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shoplens/shoplens/internal/log"
)

const (
	// DefaultMaxPages is the page ceiling for FetchAll when neither the
	// caller nor Config supplies one.
	DefaultMaxPages = 5

	// DefaultMaxRetries is the number of retries after a 429 before
	// giving up.
	DefaultMaxRetries = 5

	// DefaultInitialBackoff is the first retry delay; it doubles on
	// each subsequent attempt.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff caps the doubling retry delay.
	DefaultMaxBackoff = 30 * time.Second

	// defaultHTTPTimeout bounds a single upstream request.
	defaultHTTPTimeout = 30 * time.Second
)

// validResources is the allow-list of fetchable Admin API resources.
var validResources = map[string]bool{
	"orders":    true,
	"products":  true,
	"customers": true,
}

// ValidResource reports whether resource is on the allow-list.
func ValidResource(resource string) bool {
	return validResources[resource]
}

// Resources returns the allow-listed resource names.
func Resources() []string {
	return []string{"orders", "products", "customers"}
}

// Page is one fetched batch: the decoded response body (e.g.
// {"orders": [...]}) plus the opaque page_info cursor for the next
// page, empty when the result set is exhausted.
type Page struct {
	Data         map[string]any
	NextPageInfo string
}

// Aggregate is the concatenation of all pages collected by FetchAll.
// List values are appended in fetch order; scalar values are
// last-write-wins. Pages reports how many pages were actually fetched
// so callers can distinguish "exhausted" from "hit the ceiling".
type Aggregate struct {
	Data  map[string]any
	Pages int
}

// Config configures a Client.
type Config struct {
	// AccessToken is the Admin API access token. Required.
	AccessToken string

	// APIVersion is the Admin API version string (e.g. "2024-10").
	// Required.
	APIVersion string

	// DefaultStore is the store host used when a call does not supply
	// one. Optional.
	DefaultStore string

	// MaxRetries is the 429 retry budget. Zero uses DefaultMaxRetries.
	MaxRetries int

	// InitialBackoff is the first retry delay. Zero uses
	// DefaultInitialBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubling delay. Zero uses DefaultMaxBackoff.
	MaxBackoff time.Duration

	// MaxPages is the FetchAll page ceiling applied when a call does
	// not supply its own. Zero uses DefaultMaxPages.
	MaxPages int

	// HTTPClient overrides the HTTP client (tests). Nil uses a client
	// with a 30s timeout.
	HTTPClient *http.Client

	// Logger is required.
	Logger log.Logger
}

// Client fetches paginated resources from a Shopify Admin REST API.
// It is stateless across calls and safe for concurrent use.
type Client struct {
	token          string
	version        string
	defaultStore   string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxPages       int
	httpClient     *http.Client
	logger         log.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is not set", ErrConfig)
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("%w: API version is not set", ErrConfig)
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = DefaultInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		token:          cfg.AccessToken,
		version:        cfg.APIVersion,
		defaultStore:   normalizeStore(cfg.DefaultStore),
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		maxPages:       maxPages,
		httpClient:     httpClient,
		logger:         cfg.Logger,
	}, nil
}

// FetchPage performs exactly one GET against the given resource,
// retrying only on HTTP 429. params are forwarded verbatim; when
// pageInfo is non-empty it replaces params, since Shopify cursor
// requests accept only the page_info token.
func (c *Client) FetchPage(ctx context.Context, store, resource string, params url.Values, pageInfo string) (*Page, error) {
	reqURL, err := c.buildURL(store, resource, params, pageInfo)
	if err != nil {
		return nil, err
	}

	delay := c.initialBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request canceled: %w", ctx.Err())
			}
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == c.maxRetries {
				return nil, fmt.Errorf("%w after %d retries: %s",
					ErrRateLimited, c.maxRetries, strings.TrimSpace(string(body)))
			}

			// Honor Retry-After if present, taking the larger of the
			// two waits so we never undercut the server's request.
			wait := delay
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > wait {
				wait = ra
			}
			c.logger.Debug("rate limited, backing off",
				"resource", resource,
				"attempt", attempt+1,
				"wait", wait)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("canceled during backoff: %w", ctx.Err())
			case <-time.After(wait):
			}
			delay = min(delay*2, c.maxBackoff)
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, &HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(body),
			}
		}

		if readErr != nil {
			return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, readErr)
		}

		var data map[string]any
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}

		return &Page{
			Data:         data,
			NextPageInfo: nextPageInfo(resp.Header.Get("Link")),
		}, nil
	}

	// Unreachable: the loop always returns.
	return nil, fmt.Errorf("%w: retry budget exhausted", ErrRateLimited)
}

// FetchAll fetches pages sequentially until no next cursor remains or
// maxPages is reached, concatenating list values in fetch order.
// maxPages <= 0 uses the client's configured ceiling.
func (c *Client) FetchAll(ctx context.Context, store, resource string, params url.Values, maxPages int) (*Aggregate, error) {
	if maxPages <= 0 {
		maxPages = c.maxPages
	}

	agg := &Aggregate{Data: map[string]any{}}
	pageInfo := ""

	for agg.Pages < maxPages {
		page, err := c.FetchPage(ctx, store, resource, params, pageInfo)
		if err != nil {
			return nil, err
		}
		agg.Pages++

		for key, value := range page.Data {
			if list, ok := value.([]any); ok {
				existing, _ := agg.Data[key].([]any)
				agg.Data[key] = append(existing, list...)
				continue
			}
			agg.Data[key] = value
		}

		pageInfo = page.NextPageInfo
		if pageInfo == "" {
			break
		}
	}

	c.logger.Debug("aggregate fetch complete",
		"resource", resource,
		"pages", agg.Pages,
		"ceiling", maxPages)

	return agg, nil
}

// buildURL assembles the Admin API URL for one request.
func (c *Client) buildURL(store, resource string, params url.Values, pageInfo string) (string, error) {
	host := normalizeStore(store)
	if host == "" {
		host = c.defaultStore
	}
	if host == "" {
		return "", fmt.Errorf("%w: store URL not provided and no default store configured", ErrConfig)
	}
	if !ValidResource(resource) {
		return "", fmt.Errorf("%w: %q (must be one of %s)",
			ErrInvalidResource, resource, strings.Join(Resources(), ", "))
	}

	u := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   fmt.Sprintf("/admin/api/%s/%s.json", c.version, resource),
	}
	if pageInfo != "" {
		u.RawQuery = url.Values{"page_info": {pageInfo}}.Encode()
	} else if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String(), nil
}

// normalizeStore strips the scheme and trailing slash from a store URL,
// leaving the bare host (e.g. "mystore.myshopify.com").
func normalizeStore(store string) string {
	store = strings.TrimPrefix(store, "https://")
	store = strings.TrimPrefix(store, "http://")
	return strings.TrimRight(store, "/")
}

// linkNextPattern matches the rel="next" entry of a Link header:
// <https://...page_info=abc>; rel="next"
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageInfo extracts the page_info cursor from a Link response
// header. An empty result means no further pages.
func nextPageInfo(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	m := linkNextPattern.FindStringSubmatch(linkHeader)
	if m == nil {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return u.Query().Get("page_info")
}

// retryAfter parses a numeric Retry-After header value in seconds.
// Returns zero for absent or unparseable values.
func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(header, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
