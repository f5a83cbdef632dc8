package woolworths

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "woolworths").Logger()

// Client talks to the Woolworths product APIs and normalizes responses into
// domain.ProductInfo.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewClient creates a Woolworths catalog client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	// Keep well under the site's informal tolerance: 1 req/sec, small burst.
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
func (c *Client) Retailer() domain.Retailer { return domain.RetailerWoolworths }

// Search resolves a free-text query to the first regular catalog item.
// Marketplace listings are skipped; they have no store pricing.
func (c *Client) Search(ctx context.Context, query string) (*domain.ProductInfo, error) {
	params := url.Values{}
	params.Add("searchTerm", query)
	reqURL := fmt.Sprintf("%s/apis/ui/Search/products?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", domain.ErrCatalogUnavailable, err)
	}

	for _, group := range searchResp.Products {
		if len(group.Products) == 0 {
			continue
		}
		item := group.Products[0]
		if item.IsMarketProduct {
			continue
		}
		info := mapProduct(item)
		logger.Debug().Str("query", query).Str("id", info.ExternalID).Msg("search resolved")
		return &info, nil
	}

	logger.Info().Str("query", query).Msg("no products found")
	return nil, domain.ErrProductNotFound
}

// FetchByIDs retrieves current pricing for a batch of stockcodes in a single
// bulk request.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) ([]domain.ProductInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/apis/ui/products/%s", c.baseURL, strings.Join(ids, ","))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var items []product
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: decode products response: %v", domain.ErrCatalogUnavailable, err)
	}

	infos := make([]domain.ProductInfo, 0, len(items))
	for _, item := range items {
		infos = append(infos, mapProduct(item))
	}
	return infos, nil
}

// get issues a GET with one retry for transient failures. Anything still
// failing after the retry surfaces as ErrCatalogUnavailable.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Warn().Int("attempt", attempt).Err(err).Msg("request failed")
			lastErr = fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrCatalogUnavailable, readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			logger.Warn().Int("attempt", attempt).Int("status", resp.StatusCode).Msg("unexpected status")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogUnavailable, resp.StatusCode)
			continue
		}

		return body, nil
	}
	return nil, lastErr
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"
