package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "silver OR gold", q.Get("q"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "test-key", q.Get("apiKey"))

		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"title": "Silver rallies", "url": "https://ex.test/1", "urlToImage": "https://ex.test/1.jpg", "source": {"name": "Wire"}},
				{"title": "No image here", "url": "https://ex.test/2", "urlToImage": ""},
				{"title": "Gold steady", "url": "https://ex.test/3", "urlToImage": "https://ex.test/3.jpg", "source": {"name": "Desk"}},
				{"title": "Over the limit", "url": "https://ex.test/4", "urlToImage": "https://ex.test/4.jpg"}
			]
		}`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, "test-key", "silver OR gold", 2, 2*time.Second)
	articles, err := s.Headlines(context.Background())
	require.NoError(t, err)

	// Imageless articles are dropped and the limit is applied afterwards.
	require.Len(t, articles, 2)
	assert.Equal(t, "Silver rallies", articles[0].Title)
	assert.Equal(t, "Wire", articles[0].Source)
	assert.Equal(t, "Gold steady", articles[1].Title)
}

func TestHeadlinesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "message": "apiKeyInvalid"}`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, "bad-key", "silver", 5, 2*time.Second)
	_, err := s.Headlines(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestHeadlinesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status": "error", "message": "rateLimited"}`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, "key", "silver", 5, 2*time.Second)
	_, err := s.Headlines(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
