package server

import (
	"crypto/hmac"
	"log/slog"
	"net/http"
)

const (
	// APIKeyHeader carries the shared key on incoming action calls
	APIKeyHeader = "X-API-Key"

	// legacyAPIKeyHeader is the header spelling older agent configurations
	// still send
	legacyAPIKeyHeader = "x_api_key"
)

// apiKeyFrom extracts the presented API key from a request, checking the
// canonical header first and the legacy spelling second.
func apiKeyFrom(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	return r.Header.Get(legacyAPIKeyHeader)
}

// VerifyAPIKey compares a presented key against the configured one.
// Constant-time comparison to prevent timing attacks.
func VerifyAPIKey(presented, configured string) bool {
	if presented == "" {
		return false
	}
	return hmac.Equal([]byte(presented), []byte(configured))
}

// RequireAPIKey returns middleware enforcing the configured API key. When no
// key is configured the server runs open and every request passes; startup
// logs a warning for that case.
func RequireAPIKey(configured string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if configured == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !VerifyAPIKey(apiKeyFrom(r), configured) {
				logger.Warn("Rejected request with missing or invalid API key",
					"path", r.URL.Path, "ip", r.RemoteAddr)
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
