package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/auth247/pin-server-go/internal/audit"
	apperrors "github.com/auth247/pin-server-go/internal/errors"
	"github.com/auth247/pin-server-go/internal/util"
)

// AdminAuthMiddleware admits requests carrying the admin API key as a bearer
// token. The key is compared against a bcrypt hash.
type AdminAuthMiddleware struct {
	keyHash string
}

func NewAdminAuthMiddleware(keyHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{keyHash: keyHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			writeError(w, apperrors.NotConfigured("Admin API key"))
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing admin API key"))
			return
		}

		if !util.CheckPasswordHash(token, m.keyHash) {
			log.Warn().Str("path", r.URL.Path).Msg("admin auth: invalid api key attempt")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			writeError(w, apperrors.Unauthorized("Invalid admin API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
