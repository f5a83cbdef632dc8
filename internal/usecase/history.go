package usecase

import (
	"time"

	"github.com/grocerwatch/backend/internal/domain"
)

// shouldSample reports whether a new price-history point is due. Sampling is
// gated to one point per week-aligned cycle, anchored to a fixed weekday: a
// point recorded on a Wednesday is not due again until the following
// Wednesday, regardless of which day the last point landed on.
func shouldSample(last, today domain.Date, anchor time.Weekday) bool {
	daysToAnchor := (int(anchor) - int(last.Weekday()) + 7) % 7
	if daysToAnchor == 0 {
		// Sampled on the anchor day itself; next window is a full week out.
		daysToAnchor = 7
	}
	return today.DaysSince(last) >= daysToAnchor
}

// appendPoint appends a price observation, evicting the oldest point once the
// history exceeds domain.MaxHistoryPoints. Order stays ascending by date.
func appendPoint(history []domain.PricePoint, date domain.Date, priceCents int) []domain.PricePoint {
	history = append(history, domain.PricePoint{Date: date, PriceCents: priceCents})
	if len(history) > domain.MaxHistoryPoints {
		history = history[len(history)-domain.MaxHistoryPoints:]
	}
	return history
}
