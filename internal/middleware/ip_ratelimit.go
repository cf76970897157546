package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/auth247/pin-server-go/internal/audit"
	"github.com/auth247/pin-server-go/internal/clock"
	apperrors "github.com/auth247/pin-server-go/internal/errors"
	"github.com/auth247/pin-server-go/internal/service"
)

type IPRateLimitMiddleware struct {
	limiter service.Limiter
	clock   clock.Clock
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(
	limiter service.Limiter,
	clk clock.Clock,
	limit int,
	window time.Duration,
	prefix string,
) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		clock:   clk,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		key := fmt.Sprintf("ip:%s:%s", m.prefix, ip)
		allowed, resetAt := m.limiter.CheckLimit(r.Context(), key, m.limit, m.window)

		if !allowed {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]interface{}{"scope": m.prefix},
			})
			secondsLeft := int(math.Ceil(resetAt.Sub(m.clock.Now()).Seconds()))
			if secondsLeft < 1 {
				secondsLeft = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", secondsLeft))
			writeError(w, apperrors.TooManyRequests())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already set from the forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
