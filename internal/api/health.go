package api

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Health aggregates dependency probes for /healthz and the gRPC health service.
type Health struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

func NewHealth() *Health {
	return &Health{checks: make(map[string]CheckFunc), timeout: 2 * time.Second}
}

func (h *Health) Add(name string, check CheckFunc) {
	h.checks[name] = check
}

// Run executes every probe and returns per-dependency status and overall health.
func (h *Health) Run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			result[name] = err.Error()
			healthy = false
			continue
		}
		result[name] = "ok"
	}
	return result, healthy
}

// Watch keeps the gRPC health server in sync until ctx is done.
func (h *Health) Watch(ctx context.Context, srv *health.Server, interval time.Duration, logger *zerolog.Logger) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		result, ok := h.Run(ctx)
		if !ok {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn().Interface("checks", result).Msg("health check failed")
		}
		srv.SetServingStatus("", status)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
