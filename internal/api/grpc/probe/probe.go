// Package probe keeps the gRPC health status in step with the user store.
package probe

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/authkeeper/internal/logger"
)

// DefaultInterval is how often the store is pinged.
const DefaultInterval = 10 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusRecorder receives the result of each ping.
type StatusRecorder interface {
	SetStoreUp(up bool)
}

type Probe struct {
	pinger   Pinger
	health   *health.Server
	recorder StatusRecorder
	interval time.Duration
	logger   *logger.Logger
}

// New creates a Probe. A non-positive interval selects DefaultInterval and a
// nil recorder is allowed.
func New(pinger Pinger, health *health.Server, recorder StatusRecorder, interval time.Duration, logger *logger.Logger) *Probe {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Probe{
		pinger:   pinger,
		health:   health,
		recorder: recorder,
		interval: interval,
		logger:   logger,
	}
}

// Run pings immediately and then on every tick until ctx is done.
func (p *Probe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check pings once and updates the overall serving status.
func (p *Probe) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := p.pinger.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("Health probe: store ping failed", "error", err.Error())
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	p.health.SetServingStatus("", status)
	if p.recorder != nil {
		p.recorder.SetStoreUp(status == healthpb.HealthCheckResponse_SERVING)
	}
}
