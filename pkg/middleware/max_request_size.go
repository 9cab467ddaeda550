package middleware

import (
	apperrors "lodgr/pkg/errors"
	httputil "lodgr/pkg/http"
	"net/http"
)

// MaxRequestSize rejects bodies larger than maxBytes. Declared lengths are
// checked up front; chunked bodies fail when the handler reads past the limit.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.WriteError(w, apperrors.TooLarge(maxBytes))
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
