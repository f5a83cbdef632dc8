package domain

import "context"

// ProductRepository defines the persistence interface for tracked products.
// The reconciliation engine is storage-agnostic; any keyed store that
// round-trips TrackedProduct losslessly can back it.
type ProductRepository interface {
	LoadAll(ctx context.Context) ([]*TrackedProduct, error)
	SaveAll(ctx context.Context, products []*TrackedProduct) error
	Upsert(ctx context.Context, product *TrackedProduct) error
	Delete(ctx context.Context, name string) error
}

// CatalogClient normalizes one retailer's catalog endpoints. Search resolves
// a free-text query to the first usable item; FetchByIDs issues one bulk
// request for routine refreshes.
type CatalogClient interface {
	Retailer() Retailer
	Search(ctx context.Context, query string) (*ProductInfo, error)
	FetchByIDs(ctx context.Context, ids []string) ([]ProductInfo, error)
}

// SearchResultCache caches resolved search previews so the add-product flow
// doesn't hit the retailers twice for the same query.
type SearchResultCache interface {
	Get(key string) (*SearchResult, bool)
	Add(key string, result *SearchResult)
}
