package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "products.json"))
}

func sampleProduct() *domain.TrackedProduct {
	return &domain.TrackedProduct{
		Name: "Milk 2L",
		Links: map[domain.Retailer]*domain.RetailerLink{
			domain.RetailerWoolworths: {
				ExternalID:        "123456",
				Name:              "Full Cream Milk 2L",
				PriceCents:        350,
				OnSpecial:         true,
				SavingPercent:     30,
				BestSavingPercent: 42,
				ImageURL:          "https://img/milk.jpg",
				History: []domain.PricePoint{
					{Date: domain.NewDate(2024, time.January, 3), PriceCents: 350},
					{Date: domain.NewDate(2024, time.January, 10), PriceCents: 320},
				},
			},
			domain.RetailerColes: {
				ExternalID: "789",
				Name:       "Dairy Farmers Full Cream Milk 2L",
				PriceCents: 360,
				History: []domain.PricePoint{
					{Date: domain.NewDate(2024, time.January, 3), PriceCents: 360},
				},
			},
		},
	}
}

func TestLoadAll_MissingFileIsEmpty(t *testing.T) {
	s := tempStore(t)

	products, err := s.LoadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	original := sampleProduct()
	require.NoError(t, s.SaveAll(ctx, []*domain.TrackedProduct{original}))

	// Reload through a fresh store instance to force a real disk read.
	reloaded, err := New(s.path).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)

	got := reloaded[0]
	assert.Equal(t, original.Name, got.Name)
	require.Len(t, got.Links, 2)

	wLink := got.Links[domain.RetailerWoolworths]
	assert.Equal(t, "123456", wLink.ExternalID)
	assert.Equal(t, 350, wLink.PriceCents)
	assert.Equal(t, 42, wLink.BestSavingPercent)
	require.Len(t, wLink.History, 2)
	assert.True(t, wLink.History[0].Date.Equal(domain.NewDate(2024, time.January, 3)))
	assert.Equal(t, 320, wLink.History[1].PriceCents)
}

func TestLoadAll_SortedByName(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAll(ctx, []*domain.TrackedProduct{
		{Name: "Zucchini"}, {Name: "Apples"}, {Name: "Milk 2L"},
	}))

	products, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Apples", products[0].Name)
	assert.Equal(t, "Milk 2L", products[1].Name)
	assert.Equal(t, "Zucchini", products[2].Name)
}

func TestUpsertAndDelete(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleProduct()))
	require.NoError(t, s.Upsert(ctx, &domain.TrackedProduct{Name: "Bread"}))

	products, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	// Replacing an existing name does not duplicate it.
	updated := sampleProduct()
	updated.Links[domain.RetailerWoolworths].PriceCents = 999
	require.NoError(t, s.Upsert(ctx, updated))

	products, err = s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)

	require.NoError(t, s.Delete(ctx, "Bread"))
	assert.ErrorIs(t, s.Delete(ctx, "Bread"), domain.ErrProductNotFound)

	products, err = s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 999, products[0].Links[domain.RetailerWoolworths].PriceCents)
}

func TestMalformedStateIsReadOnly(t *testing.T) {
	s := tempStore(t)
	corrupt := []byte(`{"version": 1, "products": {broken`)
	require.NoError(t, os.WriteFile(s.path, corrupt, 0o644))

	_, err := s.LoadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedState)

	err = s.Upsert(context.Background(), sampleProduct())
	assert.ErrorIs(t, err, domain.ErrMalformedState)

	// The corrupt file must be preserved byte for byte.
	data, readErr := os.ReadFile(s.path)
	require.NoError(t, readErr)
	assert.Equal(t, corrupt, data)
}
