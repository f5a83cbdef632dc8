package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSearchCache(t *testing.T) {
	c := NewSearchCache(2, time.Minute)

	result := &domain.SearchResult{Results: map[domain.Retailer]*domain.ProductInfo{
		domain.RetailerWoolworths: {ExternalID: "111", Name: "Milk 2L"},
	}}

	_, ok := c.Get("milk")
	assert.False(t, ok)

	c.Add("milk", result)
	got, ok := c.Get("milk")
	assert.True(t, ok)
	assert.Equal(t, "Milk 2L", got.Results[domain.RetailerWoolworths].Name)
}

func TestSearchCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewSearchCache(2, time.Minute)

	for i := 0; i < 3; i++ {
		c.Add(fmt.Sprintf("query-%d", i), &domain.SearchResult{})
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("query-0")
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestSearchCache_Expires(t *testing.T) {
	c := NewSearchCache(8, 20*time.Millisecond)

	c.Add("milk", &domain.SearchResult{})
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("milk")
	assert.False(t, ok)
}
