package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/realia-labs/realia/pkg/requestid"
)

// RequestID takes the request id from the x-request-id header, from chi's RequestID
// middleware, or generates one, and stores it in the request context. The id is echoed
// back so clients can correlate a progress stream with server logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestid.Header)

		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		if requestID == "" {
			requestID = requestid.Generate()
		}

		w.Header().Set(requestid.Header, requestID)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), requestID)))
	})
}
