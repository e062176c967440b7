package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"ans/pkg/requestcontext"
)

// RequestMetadata assigns every request an ID and pins the request time, so
// services and audit events share one clock reading and one correlation ID.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
