// Package news fetches bullion-market headlines from NewsAPI.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Article is a single headline as served to the dashboard.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"urlToImage"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
}

type apiArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

type apiResponse struct {
	Status   string       `json:"status"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

// Service is a NewsAPI client scoped to a single query.
type Service struct {
	baseURL    string
	apiKey     string
	query      string
	limit      int
	httpClient *http.Client
}

// NewService creates a news Service.
func NewService(baseURL, apiKey, query string, limit int, timeout time.Duration) *Service {
	return &Service{
		baseURL:    baseURL,
		apiKey:     apiKey,
		query:      query,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Headlines returns the most recent articles matching the configured query.
// Articles without an image are dropped so the dashboard cards render
// uniformly.
func (s *Service) Headlines(ctx context.Context) ([]Article, error) {
	q := url.Values{}
	q.Set("q", s.query)
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("apiKey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("news: build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: fetch headlines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("news: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news: fetch headlines: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("news: decode response: %w", err)
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("news: api error: %s", parsed.Message)
	}

	out := make([]Article, 0, s.limit)
	for _, a := range parsed.Articles {
		if a.URLToImage == "" {
			continue
		}
		out = append(out, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
		if len(out) == s.limit {
			break
		}
	}
	return out, nil
}
