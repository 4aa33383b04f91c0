// Package bullion scrapes the live silver rate from the dealer's public
// price page. The page is server-rendered; the rate cells are plain text in
// Indian digit grouping (e.g. "1,12,350"), and the last matching cell holds
// the per-kg silver rate.
package bullion

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rkathuria/bulliond/internal/domain"
)

// Scraper fetches and parses the dealer price page.
type Scraper struct {
	pageURL      string
	rateSelector string
	httpClient   *http.Client
}

// NewScraper creates a Scraper for the given page URL and CSS selector.
func NewScraper(pageURL, rateSelector string, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		pageURL:      pageURL,
		rateSelector: rateSelector,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// LatestPrice fetches the page and returns the last matching rate cell as a
// price sample. It returns ErrNoPrice when the page renders but no usable
// rate is present, and ErrFeedUnavailable when the fetch itself fails.
func (s *Scraper) LatestPrice(ctx context.Context) (domain.PriceSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("bullion: create request: %w", err)
	}
	req.Header.Set("User-Agent", "bulliond/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("bullion: %w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PriceSample{}, fmt.Errorf("bullion: %w: status %d", domain.ErrFeedUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("bullion: parse page: %w", err)
	}

	cells := doc.Find(s.rateSelector)
	if cells.Length() == 0 {
		return domain.PriceSample{}, domain.ErrNoPrice
	}

	raw := strings.TrimSpace(cells.Last().Text())
	value, err := parseRate(raw)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("bullion: %w: %v", domain.ErrNoPrice, err)
	}

	return domain.PriceSample{
		Value:      value,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// parseRate strips grouping commas and currency markers from a rate cell.
func parseRate(raw string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "₹", "", " ", "").Replace(raw)
	if cleaned == "" || cleaned == "--" {
		return 0, fmt.Errorf("empty rate cell %q", raw)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable rate %q", raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("non-positive rate %q", raw)
	}
	return value, nil
}
