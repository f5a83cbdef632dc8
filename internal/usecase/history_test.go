package usecase

import (
	"testing"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
)

func TestShouldSample(t *testing.T) {
	anchor := time.Wednesday

	tests := []struct {
		name  string
		last  domain.Date
		today domain.Date
		want  bool
	}{
		{
			// 2024-01-03 is a Wednesday
			name:  "sampled Wednesday, checked same day",
			last:  domain.NewDate(2024, time.January, 3),
			today: domain.NewDate(2024, time.January, 3),
			want:  false,
		},
		{
			name:  "sampled Wednesday, checked following Tuesday",
			last:  domain.NewDate(2024, time.January, 3),
			today: domain.NewDate(2024, time.January, 9),
			want:  false,
		},
		{
			name:  "sampled Wednesday, checked following Wednesday",
			last:  domain.NewDate(2024, time.January, 3),
			today: domain.NewDate(2024, time.January, 10),
			want:  true,
		},
		{
			name:  "sampled Thursday, checked next Tuesday",
			last:  domain.NewDate(2024, time.January, 4),
			today: domain.NewDate(2024, time.January, 9),
			want:  false,
		},
		{
			name:  "sampled Thursday, checked next Wednesday",
			last:  domain.NewDate(2024, time.January, 4),
			today: domain.NewDate(2024, time.January, 10),
			want:  true,
		},
		{
			name:  "sampled Tuesday, due the very next day",
			last:  domain.NewDate(2024, time.January, 2),
			today: domain.NewDate(2024, time.January, 3),
			want:  true,
		},
		{
			name:  "long gap is always due",
			last:  domain.NewDate(2024, time.January, 3),
			today: domain.NewDate(2024, time.March, 1),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSample(tt.last, tt.today, anchor); got != tt.want {
				t.Errorf("shouldSample(%s, %s) = %v, want %v", tt.last, tt.today, got, tt.want)
			}
		})
	}
}

func TestAppendPoint(t *testing.T) {
	t.Run("appends to empty history", func(t *testing.T) {
		h := appendPoint(nil, domain.NewDate(2024, time.January, 3), 350)
		if len(h) != 1 {
			t.Fatalf("len = %d, want 1", len(h))
		}
		if h[0].PriceCents != 350 {
			t.Errorf("price = %d, want 350", h[0].PriceCents)
		}
	})

	t.Run("evicts oldest at capacity", func(t *testing.T) {
		var h []domain.PricePoint
		for i := 0; i < domain.MaxHistoryPoints; i++ {
			h = appendPoint(h, domain.NewDate(2024, time.January, 3).AddDays(i*7), 100+i)
		}
		second := h[1]

		h = appendPoint(h, domain.NewDate(2024, time.June, 1), 999)

		if len(h) != domain.MaxHistoryPoints {
			t.Fatalf("len = %d, want %d", len(h), domain.MaxHistoryPoints)
		}
		if h[0] != second {
			t.Errorf("first entry = %+v, want the previous second entry %+v", h[0], second)
		}
		if last := h[len(h)-1]; last.PriceCents != 999 {
			t.Errorf("last price = %d, want 999", last.PriceCents)
		}
	})

	t.Run("preserves ascending date order", func(t *testing.T) {
		var h []domain.PricePoint
		for i := 0; i < 15; i++ {
			h = appendPoint(h, domain.NewDate(2024, time.January, 3).AddDays(i*7), 100)
		}
		for i := 1; i < len(h); i++ {
			if !h[i-1].Date.Before(h[i].Date) {
				t.Fatalf("history out of order at %d: %s >= %s", i, h[i-1].Date, h[i].Date)
			}
		}
	})
}
