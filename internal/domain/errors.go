package domain

import "errors"

var (
	// ErrCatalogUnavailable is returned when a retailer endpoint is unreachable
	// or keeps returning unparseable data after the single retry
	ErrCatalogUnavailable = errors.New("retailer catalog unavailable")

	// ErrDuplicateProduct is returned when a product with the same name is already tracked
	ErrDuplicateProduct = errors.New("product already tracked")

	// ErrProductNotFound is returned when a search query or lookup matches nothing
	ErrProductNotFound = errors.New("product not found")

	// ErrMalformedState is returned when persisted tracked-product state fails to parse
	ErrMalformedState = errors.New("malformed tracked-product state")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
