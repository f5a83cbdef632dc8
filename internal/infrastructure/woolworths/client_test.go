package woolworths

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "Products": [
    {"Products": [
      {"Stockcode": 888, "DisplayName": "Marketplace Milk", "Price": 9.99, "WasPrice": 9.99,
       "IsOnSpecial": false, "SavingsAmount": 0, "LargeImageFile": "", "IsMarketProduct": true}
    ]},
    {"Products": [
      {"Stockcode": 123456, "DisplayName": "Full Cream Milk 2L", "Price": 3.50, "WasPrice": 5.00,
       "IsOnSpecial": true, "SavingsAmount": 1.50, "LargeImageFile": "https://img/milk.jpg",
       "IsMarketProduct": false}
    ]}
  ]
}`

func TestNewClient(t *testing.T) {
	client := NewClient("https://www.example.com/", 10*time.Second)

	assert.NotNil(t, client)
	assert.Equal(t, "https://www.example.com", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, domain.RetailerWoolworths, client.Retailer())
}

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/ui/Search/products", r.URL.Path)
		assert.Equal(t, "milk", r.URL.Query().Get("searchTerm"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	info, err := client.Search(context.Background(), "milk")

	require.NoError(t, err)
	assert.Equal(t, "123456", info.ExternalID)
	assert.Equal(t, "Full Cream Milk 2L", info.Name)
	assert.Equal(t, 350, info.PriceCents)
	assert.True(t, info.OnSpecial)
	assert.Equal(t, 30, info.SavingPercent)
	assert.Equal(t, "https://img/milk.jpg", info.ImageURL)
}

func TestSearch_SkipsMarketplaceOnlyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Products": [{"Products": [
			{"Stockcode": 888, "DisplayName": "Marketplace Milk", "Price": 9.99, "WasPrice": 9.99,
			 "IsMarketProduct": true}
		]}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	info, err := client.Search(context.Background(), "milk")

	assert.Nil(t, info)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestSearch_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Products": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	info, err := client.Search(context.Background(), "unobtainium")

	assert.Nil(t, info)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestSearch_ServerErrorRetriesOnce(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	info, err := client.Search(context.Background(), "milk")

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "123456", info.ExternalID)
}

func TestSearch_UnavailableAfterRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	_, err := client.Search(context.Background(), "milk")

	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Equal(t, 2, attempts)
}

func TestFetchByIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/ui/products/111,222", r.URL.Path)
		w.Write([]byte(`[
			{"Stockcode": 111, "DisplayName": "Milk 2L", "Price": 3.50, "WasPrice": 0,
			 "IsOnSpecial": false, "SavingsAmount": 0},
			{"Stockcode": 222, "DisplayName": "Bread", "Price": null, "WasPrice": 4.00,
			 "IsOnSpecial": true, "SavingsAmount": 1.00}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	infos, err := client.FetchByIDs(context.Background(), []string{"111", "222"})

	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "111", infos[0].ExternalID)
	assert.Equal(t, 350, infos[0].PriceCents)
	assert.False(t, infos[0].OnSpecial)

	// Null current price falls back to the was price.
	assert.Equal(t, "222", infos[1].ExternalID)
	assert.Equal(t, 400, infos[1].PriceCents)
	assert.True(t, infos[1].OnSpecial)
	assert.Equal(t, 25, infos[1].SavingPercent)
}

func TestFetchByIDs_Empty(t *testing.T) {
	client := NewClient("http://unused.invalid", time.Second)
	infos, err := client.FetchByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, infos)
}
