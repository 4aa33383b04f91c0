package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest scraped dealer price.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}
