// Package service contains the business logic behind the HTTP API: the live
// rate lookup and the trade book.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
)

// RateSource fetches the live dealer rate. Implemented by the bullion scraper.
type RateSource interface {
	LatestPrice(ctx context.Context) (domain.PriceSample, error)
}

// Broadcaster pushes an event to connected websocket clients. Implemented by
// the ws hub; a nil Broadcaster disables push updates.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// PriceService serves the current bullion rate, caching scrapes so repeated
// polls within the cache window do not hammer the dealer page.
type PriceService struct {
	symbol string
	source RateSource
	cache  domain.PriceCache
	ttl    time.Duration
	bcast  Broadcaster
	logger *slog.Logger
}

// NewPriceService creates a PriceService. cache and bcast may be nil; the
// service then scrapes on every call and skips push updates.
func NewPriceService(
	symbol string,
	source RateSource,
	cache domain.PriceCache,
	ttl time.Duration,
	bcast Broadcaster,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		symbol: symbol,
		source: source,
		cache:  cache,
		ttl:    ttl,
		bcast:  bcast,
		logger: logger,
	}
}

// CurrentPrice returns the live rate. It serves from the cache while the
// cached sample is younger than the configured TTL, scrapes otherwise, and
// falls back to a stale cached value when the scrape fails.
func (s *PriceService) CurrentPrice(ctx context.Context) (domain.PriceSample, error) {
	cached, haveCached := s.cachedPrice(ctx)
	if haveCached && time.Since(cached.ObservedAt) < s.ttl {
		return cached, nil
	}

	sample, err := s.source.LatestPrice(ctx)
	if err != nil {
		if haveCached {
			s.logger.WarnContext(ctx, "price_service: scrape failed, serving stale price",
				slog.String("symbol", s.symbol),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		return domain.PriceSample{}, fmt.Errorf("price_service: fetch rate: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetPrice(ctx, s.symbol, sample.Value, sample.ObservedAt); cacheErr != nil {
			s.logger.WarnContext(ctx, "price_service: cache write failed",
				slog.String("symbol", s.symbol),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	if s.bcast != nil {
		s.bcast.Broadcast("price", map[string]any{
			"symbol":    s.symbol,
			"price":     sample.Value,
			"timestamp": sample.ObservedAt.Format(time.RFC3339),
		})
	}

	return sample, nil
}

func (s *PriceService) cachedPrice(ctx context.Context) (domain.PriceSample, bool) {
	if s.cache == nil {
		return domain.PriceSample{}, false
	}
	price, ts, err := s.cache.GetPrice(ctx, s.symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "price_service: cache read failed",
				slog.String("symbol", s.symbol),
				slog.String("error", err.Error()),
			)
		}
		return domain.PriceSample{}, false
	}
	return domain.PriceSample{Value: price, ObservedAt: ts}, true
}
