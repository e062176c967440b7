package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("admits up to the limit", func(t *testing.T) {
		l := New(NewMemoryStore(), 3, time.Minute)
		for i := range 3 {
			res, err := l.Allow(ctx, "ip-1")
			require.NoError(t, err)
			require.True(t, res.Allowed, "hit %d should be admitted", i+1)
			require.Equal(t, int64(2-i), res.Remaining)
		}

		res, err := l.Allow(ctx, "ip-1")
		require.NoError(t, err)
		require.False(t, res.Allowed)
		require.Equal(t, int64(0), res.Remaining)
		require.Greater(t, res.RetryAfter, time.Duration(0))
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := New(NewMemoryStore(), 1, time.Minute)
		res, err := l.Allow(ctx, "ip-a")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = l.Allow(ctx, "ip-b")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	})

	t.Run("window reset readmits", func(t *testing.T) {
		l := New(NewMemoryStore(), 1, 10*time.Millisecond)
		_, err := l.Allow(ctx, "ip-1")
		require.NoError(t, err)

		res, err := l.Allow(ctx, "ip-1")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		time.Sleep(20 * time.Millisecond)
		res, err = l.Allow(ctx, "ip-1")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	})
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func TestMiddleware(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	post := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/escrows", nil)
		req.RemoteAddr = "10.0.0.1:55000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	t.Run("over-limit mutations get 429", func(t *testing.T) {
		h := Middleware(New(NewMemoryStore(), 2, time.Minute), log)(ok)
		require.Equal(t, http.StatusOK, post(h).Code)
		require.Equal(t, http.StatusOK, post(h).Code)

		rr := post(h)
		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		require.NotEmpty(t, rr.Header().Get("Retry-After"))
		require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("reads are never limited", func(t *testing.T) {
		h := Middleware(New(NewMemoryStore(), 1, time.Minute), log)(ok)
		for range 5 {
			req := httptest.NewRequest(http.MethodGet, "/registry/listings", nil)
			req.RemoteAddr = "10.0.0.1:55000"
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)
		}
	})

	t.Run("nil limiter passes through", func(t *testing.T) {
		h := Middleware(nil, log)(ok)
		for range 5 {
			require.Equal(t, http.StatusOK, post(h).Code)
		}
	})

	t.Run("store failure fails open", func(t *testing.T) {
		h := Middleware(New(failingStore{}, 1, time.Minute), log)(ok)
		for range 5 {
			require.Equal(t, http.StatusOK, post(h).Code)
		}
	})

	t.Run("forwarded header wins over socket peer", func(t *testing.T) {
		h := Middleware(New(NewMemoryStore(), 1, time.Minute), log)(ok)

		req := httptest.NewRequest(http.MethodPost, "/escrows", nil)
		req.RemoteAddr = "10.0.0.1:55000"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusTooManyRequests, rr.Code)

		require.Equal(t, http.StatusOK, post(h).Code)
	})
}
