package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "tracker").Logger()

// Package-level compiled regex patterns for cache-key normalization
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// TrackerServiceConfig holds configuration for the tracker service.
type TrackerServiceConfig struct {
	// AnchorWeekday gates when a new price-history point may be recorded.
	AnchorWeekday time.Weekday
	// Now supplies the current date; defaults to domain.Today.
	Now func() domain.Date
}

// TrackerService owns the tracked-product list: it resolves new products
// against both retailer catalogs, runs the reconciliation pipeline, and
// serves the current specials snapshot.
type TrackerService struct {
	repo    domain.ProductRepository
	clients map[domain.Retailer]domain.CatalogClient
	cache   domain.SearchResultCache
	metrics *Metrics
	anchor  time.Weekday
	now     func() domain.Date

	// runMu serializes reconciliation runs and store writes. A run rewrites
	// the whole store from the list it loaded, so an add or remove landing
	// mid-run would be clobbered by the run's SaveAll unless it queues here.
	runMu sync.Mutex

	snapMu   sync.RWMutex
	snapshot *domain.SpecialsSnapshot
}

// NewTrackerService creates a tracker service with its dependencies.
func NewTrackerService(
	repo domain.ProductRepository,
	clients []domain.CatalogClient,
	cache domain.SearchResultCache,
	metrics *Metrics,
	config TrackerServiceConfig,
) *TrackerService {
	byRetailer := make(map[domain.Retailer]domain.CatalogClient, len(clients))
	for _, c := range clients {
		byRetailer[c.Retailer()] = c
	}

	now := config.Now
	if now == nil {
		now = domain.Today
	}

	return &TrackerService{
		repo:    repo,
		clients: byRetailer,
		cache:   cache,
		metrics: metrics,
		anchor:  config.AnchorWeekday,
		now:     now,
	}
}

// SearchProducts resolves a free-text query to at most one catalog item per
// retailer. The Woolworths display name, when available, becomes the query
// for Coles so both links describe the same product.
func (s *TrackerService) SearchProducts(ctx context.Context, query string) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidRequest
	}

	cacheKey := normalizeCacheKey(query)
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	result, err := s.resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(cacheKey, result)
	}
	return result, nil
}

// resolve queries Woolworths first and reuses its canonical name for the
// Coles lookup. At least one retailer must resolve.
func (s *TrackerService) resolve(ctx context.Context, query string) (*domain.SearchResult, error) {
	result := &domain.SearchResult{Results: make(map[domain.Retailer]*domain.ProductInfo)}
	var catalogErr error

	colesQuery := query
	if client, ok := s.clients[domain.RetailerWoolworths]; ok {
		info, err := client.Search(ctx, query)
		switch {
		case err == nil:
			result.Results[domain.RetailerWoolworths] = info
			colesQuery = info.Name
		case errors.Is(err, domain.ErrProductNotFound):
			logger.Info().Str("query", query).Msg("woolworths: no match")
		default:
			logger.Warn().Err(err).Msg("woolworths search failed")
			catalogErr = err
		}
	}

	if client, ok := s.clients[domain.RetailerColes]; ok {
		info, err := client.Search(ctx, colesQuery)
		switch {
		case err == nil:
			result.Results[domain.RetailerColes] = info
		case errors.Is(err, domain.ErrProductNotFound):
			logger.Info().Str("query", colesQuery).Msg("coles: no match")
		default:
			logger.Warn().Err(err).Msg("coles search failed")
			if catalogErr == nil {
				catalogErr = err
			}
		}
	}

	if len(result.Results) == 0 {
		if catalogErr != nil {
			return nil, catalogErr
		}
		return nil, domain.ErrProductNotFound
	}
	return result, nil
}

// AddProduct resolves a query and starts tracking the product. The resolved
// Woolworths name (falling back to the Coles name) becomes the unique product
// name; an already-tracked name is rejected before any state is written.
func (s *TrackerService) AddProduct(ctx context.Context, query string) (*domain.TrackedProduct, error) {
	result, err := s.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}

	name := productName(result)
	if name == "" {
		return nil, domain.ErrProductNotFound
	}

	// Queue behind any in-flight reconciliation before touching the store.
	s.runMu.Lock()
	defer s.runMu.Unlock()

	existing, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.Name == name {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateProduct, name)
		}
	}

	product := &domain.TrackedProduct{
		Name:  name,
		Links: make(map[domain.Retailer]*domain.RetailerLink, len(result.Results)),
	}
	today := s.now()
	for retailer, info := range result.Results {
		product.Links[retailer] = newLink(info, today)
	}

	if err := s.repo.Upsert(ctx, product); err != nil {
		return nil, err
	}

	logger.Info().Str("product", name).Int("links", len(product.Links)).Msg("product added")
	return product, nil
}

// RemoveProduct stops tracking a product by name.
func (s *TrackerService) RemoveProduct(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrInvalidRequest
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.repo.Delete(ctx, name)
}

// ListProducts returns all tracked products, sorted by name.
func (s *TrackerService) ListProducts(ctx context.Context) ([]*domain.TrackedProduct, error) {
	return s.repo.LoadAll(ctx)
}

// PriceHistory returns the stored history for one product at one retailer.
func (s *TrackerService) PriceHistory(ctx context.Context, name string, retailer domain.Retailer) ([]domain.PricePoint, error) {
	if !retailer.Valid() {
		return nil, domain.ErrInvalidRequest
	}

	products, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.Name != name {
			continue
		}
		link, ok := p.Links[retailer]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s link", domain.ErrProductNotFound, name, retailer)
		}
		return link.History, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, name)
}

// CurrentSpecials returns the snapshot from the last reconciliation run. It
// is empty, not nil, before the first run.
func (s *TrackerService) CurrentSpecials() *domain.SpecialsSnapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	if s.snapshot == nil {
		return &domain.SpecialsSnapshot{Offers: make(map[domain.Retailer][]domain.SpecialOffer)}
	}
	return s.snapshot
}

// fetchResult is one retailer's bulk fetch, keyed by external id.
type fetchResult struct {
	infos map[string]domain.ProductInfo
	err   error
}

// RunReconciliation fetches current pricing for every tracked product from
// both retailers, updates stored state and rebuilds the specials snapshot.
// A failed retailer contributes a warning and leaves its links untouched;
// the other retailer's updates still commit. Safe to call with nothing
// tracked, and safe to call concurrently (runs are serialized).
func (s *TrackerService) RunReconciliation(ctx context.Context) (*domain.SpecialsSnapshot, []error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.metrics.IncRun()
	start := time.Now()
	defer func() { s.metrics.ObserveRun(time.Since(start)) }()

	products, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, []error{err}
	}
	s.metrics.SetTracked(len(products))

	results := s.fetchAll(ctx, products)

	var warnings []error
	today := s.now()
	updated := false

	for retailer, res := range results {
		if res.err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", retailer, res.err))
			continue
		}
		for _, p := range products {
			link, ok := p.Links[retailer]
			if !ok {
				continue
			}
			info, ok := res.infos[link.ExternalID]
			if !ok {
				// The retailer omitted this id from the bulk response.
				logger.Warn().Str("product", p.Name).Str("retailer", string(retailer)).
					Str("id", link.ExternalID).Msg("id missing from bulk response")
				continue
			}
			s.applyInfo(link, info, today)
			updated = true
		}
	}

	if updated {
		if err := s.repo.SaveAll(ctx, products); err != nil {
			// The fatal write error comes before any retailer warnings.
			return nil, append([]error{err}, warnings...)
		}
	}

	snapshot := buildSnapshot(products)
	for _, r := range domain.Retailers() {
		s.metrics.SetSpecials(string(r), len(snapshot.Offers[r]))
	}

	s.snapMu.Lock()
	s.snapshot = snapshot
	s.snapMu.Unlock()

	logger.Info().Int("products", len(products)).Int("warnings", len(warnings)).
		Dur("took", time.Since(start)).Msg("reconciliation complete")
	return snapshot, warnings
}

// fetchAll issues one bulk request per retailer, concurrently. Each result is
// keyed by external id so reordering or omission by the retailer cannot
// misattribute prices.
func (s *TrackerService) fetchAll(ctx context.Context, products []*domain.TrackedProduct) map[domain.Retailer]fetchResult {
	results := make(map[domain.Retailer]fetchResult)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for retailer, client := range s.clients {
		ids := linkedIDs(products, retailer)
		if len(ids) == 0 {
			continue
		}

		wg.Add(1)
		go func(retailer domain.Retailer, client domain.CatalogClient, ids []string) {
			defer wg.Done()

			s.metrics.IncCatalogRequest(string(retailer))
			infos, err := client.FetchByIDs(ctx, ids)
			if err != nil {
				s.metrics.IncCatalogError(string(retailer))
				mu.Lock()
				results[retailer] = fetchResult{err: err}
				mu.Unlock()
				return
			}

			byID := make(map[string]domain.ProductInfo, len(infos))
			for _, info := range infos {
				byID[info.ExternalID] = info
			}
			mu.Lock()
			results[retailer] = fetchResult{infos: byID}
			mu.Unlock()
		}(retailer, client, ids)
	}
	wg.Wait()

	return results
}

// applyInfo folds freshly fetched pricing into a stored link and appends a
// history point when the weekly cadence says one is due.
func (s *TrackerService) applyInfo(link *domain.RetailerLink, info domain.ProductInfo, today domain.Date) {
	link.PriceCents = info.PriceCents
	link.OnSpecial = info.OnSpecial
	link.SavingPercent = info.SavingPercent
	if info.SavingPercent > link.BestSavingPercent {
		link.BestSavingPercent = info.SavingPercent
	}

	last, ok := link.LastSampled()
	if !ok || shouldSample(last, today, s.anchor) {
		link.History = appendPoint(link.History, today, info.PriceCents)
		s.metrics.IncSample()
	}
}

// buildSnapshot filters every link currently on special, grouped by retailer.
// Products arrive sorted by name, so offer order is deterministic.
func buildSnapshot(products []*domain.TrackedProduct) *domain.SpecialsSnapshot {
	snapshot := &domain.SpecialsSnapshot{
		Offers:    make(map[domain.Retailer][]domain.SpecialOffer),
		UpdatedAt: time.Now(),
	}
	for _, p := range products {
		for _, retailer := range domain.Retailers() {
			link, ok := p.Links[retailer]
			if !ok || !link.OnSpecial {
				continue
			}
			snapshot.Offers[retailer] = append(snapshot.Offers[retailer], domain.SpecialOffer{
				Product:       link.Name,
				Price:         domain.FormatCents(link.PriceCents),
				SavingPercent: link.SavingPercent,
			})
		}
	}
	return snapshot
}

// newLink bootstraps per-retailer state from a first observation. The first
// history point is always recorded.
func newLink(info *domain.ProductInfo, today domain.Date) *domain.RetailerLink {
	return &domain.RetailerLink{
		ExternalID:        info.ExternalID,
		Name:              info.Name,
		PriceCents:        info.PriceCents,
		OnSpecial:         info.OnSpecial,
		SavingPercent:     info.SavingPercent,
		BestSavingPercent: info.SavingPercent,
		ImageURL:          info.ImageURL,
		History:           []domain.PricePoint{{Date: today, PriceCents: info.PriceCents}},
	}
}

// productName picks the canonical tracked name: Woolworths first, Coles as
// fallback.
func productName(result *domain.SearchResult) string {
	if info, ok := result.Results[domain.RetailerWoolworths]; ok {
		return info.Name
	}
	if info, ok := result.Results[domain.RetailerColes]; ok {
		return info.Name
	}
	return ""
}

// linkedIDs collects the external ids linked to a retailer, in product order.
func linkedIDs(products []*domain.TrackedProduct, retailer domain.Retailer) []string {
	var ids []string
	for _, p := range products {
		if link, ok := p.Links[retailer]; ok {
			ids = append(ids, link.ExternalID)
		}
	}
	return ids
}

// normalizeCacheKey lowercases a query and strips punctuation so trivially
// different queries share a cache entry.
func normalizeCacheKey(s string) string {
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
