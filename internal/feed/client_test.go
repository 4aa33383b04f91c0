package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkathuria/bulliond/internal/domain"
)

func TestClientCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/silver-price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"currVal": 92450}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	sample, err := c.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 92450.0, sample.Value)
	assert.False(t, sample.ObservedAt.IsZero())
}

func TestClientCurrentPriceStringValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"currVal": "92,450"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	sample, err := c.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 92450.0, sample.Value)
}

func TestClientCurrentPricePlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"currVal": "--"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	_, err := c.CurrentPrice(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPrice)
}

func TestClientCurrentPriceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	_, err := c.CurrentPrice(context.Background())
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestClientCurrentPriceUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.CurrentPrice(context.Background())
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestNumericValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float", 123.5, 123.5, true},
		{"string", "880", 880, true},
		{"string with commas", "1,02,500", 102500, true},
		{"placeholder", "--", 0, false},
		{"empty", "", 0, false},
		{"garbage", "abc", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := numericValue(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
