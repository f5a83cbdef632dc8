package coles

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/grocerwatch/backend/internal/domain"
)

const imageCDNBase = "https://cdn.productimages.coles.com.au/productimages"

type searchPage struct {
	PageProps struct {
		SearchResults struct {
			Results []product `json:"results"`
		} `json:"searchResults"`
	} `json:"pageProps"`
}

type productsResponse struct {
	Results []product `json:"results"`
}

type product struct {
	ID        json.Number `json:"id"`
	Brand     string      `json:"brand"`
	Name      string      `json:"name"`
	Size      string      `json:"size"`
	Pricing   pricing     `json:"pricing"`
	ImageURIs []imageURI  `json:"imageUris"`
}

type pricing struct {
	Now        *float64 `json:"now"` // null when out of stock
	Was        float64  `json:"was"`
	SaveAmount float64  `json:"saveAmount"`
}

type imageURI struct {
	URI string `json:"uri"`
}

// mapProduct normalizes one Coles catalog item. A non-zero "was" price is the
// special marker on this API; a zero "was" with a discount flag elsewhere is
// upstream noise and maps to not-on-special.
func mapProduct(p product) domain.ProductInfo {
	price := p.Pricing.Was
	if p.Pricing.Now != nil {
		price = *p.Pricing.Now
	}

	info := domain.ProductInfo{
		ExternalID: p.ID.String(),
		Name:       displayName(p),
		PriceCents: toCents(price),
	}

	if len(p.ImageURIs) > 0 {
		info.ImageURL = imageCDNBase + p.ImageURIs[0].URI
	}

	if p.Pricing.Was != 0 {
		info.OnSpecial = true
		info.SavingPercent = savingPercent(p.Pricing.SaveAmount, p.Pricing.Was)
	}

	return info
}

// displayName joins brand, name and size the way the Coles site displays them.
func displayName(p product) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Brand, p.Name, p.Size} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func toCents(dollars float64) int {
	return int(math.Round(dollars * 100))
}

// savingPercent converts a savings amount into an integer percentage of the
// pre-discount price, rounded half away from zero.
func savingPercent(saved, was float64) int {
	return int(math.Round(saved / was * 100))
}
