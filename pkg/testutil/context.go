package testutil

import (
	"net/http"
	"time"

	"ans/pkg/requestcontext"
)

// WithRequestMetadata stamps a request with the ID and clock reading the
// metadata middleware would normally assign. Handler tests use this to pin
// request time deterministically.
func WithRequestMetadata(req *http.Request, requestID string, now time.Time) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithTime(ctx, now)
	return req.WithContext(ctx)
}
