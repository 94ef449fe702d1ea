package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Guarded wraps an Embedder in a circuit breaker so a failing provider is
// skipped quickly instead of delaying every store and search.
type Guarded struct {
	next Embedder
	cb   *gobreaker.CircuitBreaker
}

// GuardConfig configures the breaker.
type GuardConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultGuardConfig trips after three straight failures and retries after 30s.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{ConsecutiveFailures: 3, OpenTimeout: 30 * time.Second}
}

// Guard wraps next with a circuit breaker.
func Guard(next Embedder, cfg GuardConfig, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultGuardConfig().ConsecutiveFailures
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is the caller's doing, not the provider's.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Guarded{next: next, cb: cb}
}

func (g *Guarded) Embed(ctx context.Context, text string) (Vector, error) {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return v.(Vector), nil
}

func (g *Guarded) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	vs, err := g.cb.Execute(func() (interface{}, error) {
		return EmbedBatch(ctx, g.next, texts)
	})
	if err != nil {
		return nil, err
	}
	return vs.([]Vector), nil
}

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State { return g.cb.State() }

func (g *Guarded) Dims() int { return g.next.Dims() }

func (g *Guarded) Name() string { return g.next.Name() }
