package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

const (
	outcomeAllow = "allow"
	outcomeDeny  = "deny"
	outcomeError = "error"
)

func outcome(allowed bool, err error) string {
	switch {
	case err != nil:
		return outcomeError
	case allowed:
		return outcomeAllow
	default:
		return outcomeDeny
	}
}

// All returns a [access.Decision] that allows only if every given decision
// allows. They are asked in order and asking stops at the first refusal or
// failure. Without any decisions everything is refused.
func All(decisions ...access.Decision) access.Decision {
	return func(ctx context.Context, req access.Request) (bool, error) {
		if len(decisions) == 0 {
			return false, nil
		}

		for _, d := range decisions {
			allowed, err := d(ctx, req)
			if err != nil || !allowed {
				return false, err
			}
		}

		return true, nil
	}
}

// Audit logs every decision of next with a unique decision ID.
func Audit(next access.Decision, logger *slog.Logger) access.Decision {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req access.Request) (bool, error) {
		id := uuid.New()
		start := time.Now()

		allowed, err := next(ctx, req)

		attrs := []any{
			"id", id.String(),
			"op", req.Operation.String(),
			"right", req.Right.String(),
			"path", req.Path,
			"outcome", outcome(allowed, err),
			"took", time.Since(start),
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}

		logger.InfoContext(ctx, "Access decision", attrs...)

		return allowed, err
	}
}

// Metrics holds the collectors for decision instrumentation.
type Metrics struct {
	decisions *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewMetrics returns a pointer to new [Metrics], registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcfs_decisions_total",
				Help: "Total number of access decisions",
			},
			[]string{"operation", "right", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rpcfs_decision_duration_seconds",
				Help:    "Access decision latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), //nolint:mnd
			},
			[]string{"operation"},
		),
	}
}

// Wrap returns a [access.Decision] that records next's outcomes.
func (m *Metrics) Wrap(next access.Decision) access.Decision {
	return func(ctx context.Context, req access.Request) (bool, error) {
		start := time.Now()

		allowed, err := next(ctx, req)

		m.latency.WithLabelValues(req.Operation.String()).Observe(time.Since(start).Seconds())
		m.decisions.WithLabelValues(req.Operation.String(), req.Right.String(), outcome(allowed, err)).Inc()

		return allowed, err
	}
}

// Throttle returns a [access.Decision] that waits for limiter before asking
// next. Giving up on the wait (context done, burst exceeded) is a failure.
func Throttle(next access.Decision, limiter *rate.Limiter) access.Decision {
	return func(ctx context.Context, req access.Request) (bool, error) {
		if err := limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("(decision-throttle) %w", err)
		}

		return next(ctx, req)
	}
}
