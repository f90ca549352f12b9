package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mmcdole/folio/internal/domain"
)

// Guard wraps a strategy in a circuit breaker. After consecutive transport
// failures the strategy is skipped (failing fast) until the breaker half-opens.
// Answers from the origin server, such as a 404, do not count as failures.
type Guard struct {
	inner Strategy
	cb    *gobreaker.CircuitBreaker
}

// GuardSettings tunes a Guard
type GuardSettings struct {
	MaxFailures uint32        // Consecutive failures before opening
	Cooldown    time.Duration // Time spent open before a trial request
}

// DefaultGuardSettings suits public relays
var DefaultGuardSettings = GuardSettings{MaxFailures: 3, Cooldown: 30 * time.Second}

func NewGuard(inner Strategy, settings GuardSettings, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = DefaultGuardSettings.MaxFailures
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var te *domain.TransportError
			return errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("relay breaker state changed", "strategy", name, "from", from.String(), "to", to.String())
		},
	})
	return &Guard{inner: inner, cb: cb}
}

func (g *Guard) Name() string { return g.inner.Name() }

func (g *Guard) Fetch(ctx context.Context, target string) (json.RawMessage, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.Fetch(ctx, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.TransportError{Strategy: g.Name(), Err: err}
		}
		return nil, err
	}
	return out.(json.RawMessage), nil
}

// RawURL forwards to the wrapped strategy when it supports passthrough
func (g *Guard) RawURL(target string) string {
	if p, ok := g.inner.(Passthrough); ok {
		return p.RawURL(target)
	}
	return ""
}

// State reports the breaker state, for diagnostics
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}
