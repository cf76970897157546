package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/auth247/pin-server-go/internal/clock"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type HealthHandler struct {
	deps  map[string]Pinger
	clock clock.Clock
}

func NewHealthHandler(clk clock.Clock, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps, clock: clk}
}

// GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			log.Error().Err(err).Str("dependency", name).Msg("health check failed")
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": h.clock.Now().UnixMilli(),
	})
}
