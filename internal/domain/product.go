package domain

import (
	"fmt"
	"time"
)

// Retailer identifies one of the two supermarkets whose catalog is tracked.
type Retailer string

const (
	RetailerWoolworths Retailer = "woolworths"
	RetailerColes      Retailer = "coles"
)

// Retailers returns the fixed set of supported retailers.
func Retailers() []Retailer {
	return []Retailer{RetailerWoolworths, RetailerColes}
}

// Valid reports whether r is a supported retailer.
func (r Retailer) Valid() bool {
	return r == RetailerWoolworths || r == RetailerColes
}

// MaxHistoryPoints bounds the per-link price history; the oldest point is
// evicted once the bound is exceeded.
const MaxHistoryPoints = 10

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time component. The zero value means "never".
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, m, d)
}

// ParseDate parses a date in DateLayout.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

func (d Date) String() string { return d.t.Format(DateLayout) }

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool { return d.t.IsZero() }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysSince returns the number of whole days from o to d; negative if d < o.
func (d Date) DaysSince(o Date) int {
	return int(d.t.Sub(o.t).Hours() / 24)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// Equal reports whether d and o are the same date.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// MarshalJSON encodes the date as a DateLayout string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a DateLayout string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PricePoint is one observed price on one date.
type PricePoint struct {
	Date       Date `json:"date"`
	PriceCents int  `json:"priceCents"`
}

// RetailerLink binds a tracked product to one retailer's catalog entry and
// carries the per-retailer pricing state.
type RetailerLink struct {
	ExternalID        string       `json:"externalId"`
	Name              string       `json:"name"`
	PriceCents        int          `json:"priceCents"`
	OnSpecial         bool         `json:"onSpecial"`
	SavingPercent     int          `json:"savingPercent"`
	BestSavingPercent int          `json:"bestSavingPercent"` // never decreases
	ImageURL          string       `json:"imageUrl"`
	History           []PricePoint `json:"history"`
}

// LastSampled returns the date of the most recent history point, if any.
func (l *RetailerLink) LastSampled() (Date, bool) {
	if len(l.History) == 0 {
		return Date{}, false
	}
	return l.History[len(l.History)-1].Date, true
}

// TrackedProduct is a user-curated product identified by display name, with
// one link per retailer that resolved it.
type TrackedProduct struct {
	Name  string                     `json:"name"`
	Links map[Retailer]*RetailerLink `json:"links"`
}

// ProductInfo is the normalized shape every catalog client returns. No
// retailer-specific field name leaks past the client boundary.
type ProductInfo struct {
	ExternalID    string `json:"externalId"`
	Name          string `json:"name"`
	PriceCents    int    `json:"priceCents"`
	OnSpecial     bool   `json:"onSpecial"`
	SavingPercent int    `json:"savingPercent"`
	ImageURL      string `json:"imageUrl"`
}

// SearchResult is the per-retailer resolution of one free-text query.
type SearchResult struct {
	Results map[Retailer]*ProductInfo `json:"results"`
}

// SpecialOffer is one currently discounted product in a specials snapshot.
type SpecialOffer struct {
	Product       string `json:"product"`
	Price         string `json:"price"`
	SavingPercent int    `json:"savingPercent"`
}

// SpecialsSnapshot is the derived view of everything currently on special,
// rebuilt in full on every reconciliation run. Consumers must re-read it
// after triggering a run rather than caching it across runs.
type SpecialsSnapshot struct {
	Offers    map[Retailer][]SpecialOffer `json:"offers"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// FormatCents renders an integer minor-unit price as a dollar string.
func FormatCents(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
