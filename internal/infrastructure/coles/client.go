package coles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "coles").Logger()

// buildIDRegex pulls the Next.js build id out of an HTML page. The search
// endpoint embeds it in the URL path and rotates it on every site deploy.
var buildIDRegex = regexp.MustCompile(`"buildId":"([^",]*)"`)

// Client talks to the Coles product APIs and normalizes responses into
// domain.ProductInfo. The search endpoint needs a build id token; the client
// discovers it lazily and rediscovers it once when a request comes back as
// HTML instead of JSON.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter

	mu      sync.Mutex
	buildID string
}

// NewClient creates a Coles catalog client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		rateLimiter: limiter,
	}
}

// Retailer identifies this client.
func (c *Client) Retailer() domain.Retailer { return domain.RetailerColes }

// Search resolves a free-text query to the first catalog item. A stale build
// id makes the endpoint serve an HTML page; the fresh id is scraped out of
// that very page and the request retried exactly once.
func (c *Client) Search(ctx context.Context, query string) (*domain.ProductInfo, error) {
	body, err := c.getPage(ctx, c.searchURL(query))
	if err != nil {
		return nil, err
	}

	var page searchPage
	if err := json.Unmarshal(body, &page); err != nil {
		token := buildIDRegex.FindSubmatch(body)
		if token == nil {
			return nil, fmt.Errorf("%w: search response is neither JSON nor a page with a build id", domain.ErrCatalogUnavailable)
		}
		c.setBuildID(string(token[1]))
		logger.Info().Str("buildId", string(token[1])).Msg("rediscovered build id")

		body, err = c.getPage(ctx, c.searchURL(query))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: search still unparseable after token rediscovery: %v", domain.ErrCatalogUnavailable, err)
		}
	}

	results := page.PageProps.SearchResults.Results
	if len(results) == 0 {
		logger.Info().Str("query", query).Msg("no products found")
		return nil, domain.ErrProductNotFound
	}

	info := mapProduct(results[0])
	logger.Debug().Str("query", query).Str("id", info.ExternalID).Msg("search resolved")
	return &info, nil
}

// FetchByIDs retrieves current pricing for a batch of product ids in a single
// bulk request. This endpoint is not gated by the build id.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) ([]domain.ProductInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Add("productIds", strings.Join(ids, ","))
	reqURL := fmt.Sprintf("%s/api/products?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp productsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode products response: %v", domain.ErrCatalogUnavailable, err)
	}

	infos := make([]domain.ProductInfo, 0, len(resp.Results))
	for _, item := range resp.Results {
		infos = append(infos, mapProduct(item))
	}
	return infos, nil
}

func (c *Client) searchURL(query string) string {
	params := url.Values{}
	params.Add("q", query)
	return fmt.Sprintf("%s/_next/data/%s/en/search/products.json?%s", c.baseURL, c.getBuildID(), params.Encode())
}

func (c *Client) getBuildID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildID
}

func (c *Client) setBuildID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildID = id
}

// get issues a GET expecting a JSON payload, with one retry for transient
// failures. A non-200 status counts as a failure.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		body, status, err := c.doGet(ctx, reqURL)
		if err != nil {
			logger.Warn().Int("attempt", attempt).Err(err).Msg("request failed")
			lastErr = err
			continue
		}
		if status != http.StatusOK {
			logger.Warn().Int("attempt", attempt).Int("status", status).Msg("unexpected status")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogUnavailable, status)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

// getPage issues a GET and returns the body whatever the status. A stale
// build id produces a 404 whose HTML still carries the fresh token, so the
// search path has to see error pages too.
func (c *Client) getPage(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		body, _, err := c.doGet(ctx, reqURL)
		if err != nil {
			logger.Warn().Int("attempt", attempt).Err(err).Msg("request failed")
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, reqURL string) ([]byte, int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", domain.ErrCatalogUnavailable, readErr)
	}
	return body, resp.StatusCode, nil
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"
