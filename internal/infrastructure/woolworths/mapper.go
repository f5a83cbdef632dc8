package woolworths

import (
	"math"
	"strconv"

	"github.com/grocerwatch/backend/internal/domain"
)

// searchResponse mirrors the grouped shape of the Woolworths search endpoint:
// each result group holds size variants of the same product.
type searchResponse struct {
	Products []productGroup `json:"Products"`
}

type productGroup struct {
	Products []product `json:"Products"`
}

type product struct {
	Stockcode       int64    `json:"Stockcode"`
	DisplayName     string   `json:"DisplayName"`
	Price           *float64 `json:"Price"` // null when out of stock
	WasPrice        float64  `json:"WasPrice"`
	IsOnSpecial     bool     `json:"IsOnSpecial"`
	SavingsAmount   float64  `json:"SavingsAmount"`
	LargeImageFile  string   `json:"LargeImageFile"`
	IsMarketProduct bool     `json:"IsMarketProduct"`
}

// mapProduct normalizes one Woolworths catalog item.
func mapProduct(p product) domain.ProductInfo {
	price := p.WasPrice
	if p.Price != nil {
		price = *p.Price
	}

	info := domain.ProductInfo{
		ExternalID: strconv.FormatInt(p.Stockcode, 10),
		Name:       p.DisplayName,
		PriceCents: toCents(price),
		ImageURL:   p.LargeImageFile,
	}

	// Upstream occasionally flags a special with no "was" price; treat that
	// as not on special rather than dividing by zero.
	if p.IsOnSpecial && p.WasPrice != 0 {
		info.OnSpecial = true
		info.SavingPercent = savingPercent(p.SavingsAmount, p.WasPrice)
	}

	return info
}

func toCents(dollars float64) int {
	return int(math.Round(dollars * 100))
}

// savingPercent converts a savings amount into an integer percentage of the
// pre-discount price, rounded half away from zero.
func savingPercent(saved, was float64) int {
	return int(math.Round(saved / was * 100))
}
