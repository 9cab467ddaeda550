package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	apperrors "lodgr/pkg/errors"
	httputil "lodgr/pkg/http"
	"lodgr/pkg/logger"
	"net/http"
	"strings"
)

const (
	SignatureHeader = "X-Signature-256"
	signaturePrefix = "sha256="
)

// Sign returns the X-Signature-256 value for a request. The MAC covers the
// method, the request URI and the body, so bodiless calls are bound to their
// target as well.
func Sign(secret, method, requestURI string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(requestURI))
	mac.Write([]byte{'\n'})
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// SignatureVerification rejects requests whose X-Signature-256 does not match.
// An empty secret disables the check.
func SignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(SignatureHeader)
			if signature == "" {
				rejectSignature(w, log, r, "missing signature")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			if !verifySignature(signature, Sign(secret, r.Method, r.URL.RequestURI(), body)) {
				rejectSignature(w, log, r, "invalid signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.TooLarge(maxErr.Limit)
		}
		return nil, apperrors.InvalidInput("failed to read request body")
	}
	_ = r.Body.Close()

	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func verifySignature(got, want string) bool {
	if !strings.HasPrefix(got, signaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}

func rejectSignature(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Signature verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	httputil.WriteError(w, apperrors.Unauthorized(reason))
}
