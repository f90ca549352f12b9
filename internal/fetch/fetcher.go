package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmcdole/folio/internal/domain"
)

// DefaultTimeout bounds each attempt of the chain
const DefaultTimeout = 15 * time.Second

// Fetcher implements domain.Fetcher. Strategies are tried in order until one
// returns a payload; successful payloads are cached under the requested URL.
// Concurrent identical requests are not coalesced.
type Fetcher struct {
	cache      domain.ResponseCache
	strategies []Strategy
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
	redact     func(string) string
	now        func() time.Time
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRedactor replaces the function used to scrub URLs before logging
func WithRedactor(fn func(string) string) Option {
	return func(f *Fetcher) { f.redact = fn }
}

// NewFetcher builds a fetcher over the given chain. A nil cache disables caching.
func NewFetcher(cache domain.ResponseCache, strategies []Strategy, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		cache:      cache,
		strategies: strategies,
		timeout:    DefaultTimeout,
		logger:     logger,
		tracer:     otel.Tracer("folio/fetch"),
		redact:     Redact,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Strategies returns the chain in attempt order
func (f *Fetcher) Strategies() []Strategy {
	return f.strategies
}

// FetchJSON returns the JSON payload at target, from cache when an entry younger than ttl exists
func (f *Fetcher) FetchJSON(ctx context.Context, target string, ttl time.Duration) (json.RawMessage, error) {
	safeURL := f.redact(target)

	if f.cache != nil {
		if payload, ok := f.cache.Get(target, ttl); ok {
			f.logger.Debug("cache hit", "url", safeURL)
			return payload, nil
		}
	}

	ctx, span := f.tracer.Start(ctx, "fetch.json",
		trace.WithAttributes(
			attribute.String("url", safeURL),
			attribute.Int64("ttl_ms", ttl.Milliseconds()),
			attribute.Int("strategies", len(f.strategies)),
		),
	)
	defer span.End()

	attempts := make([]error, 0, len(f.strategies))
	for _, s := range f.strategies {
		if ctx.Err() != nil {
			break
		}

		payload, err := f.attempt(ctx, s, target, safeURL)
		if err != nil {
			attempts = append(attempts, err)
			f.logger.Debug("fetch attempt failed", "strategy", s.Name(), "url", safeURL, "error", err)
			span.AddEvent("attempt.failed", trace.WithAttributes(
				attribute.String("strategy", s.Name()),
				attribute.String("error", err.Error()),
			))
			continue
		}

		if f.cache != nil {
			if err := f.cache.Set(target, payload, f.now()); err != nil {
				f.logger.Warn("failed to cache response", "url", safeURL, "error", err)
			}
		}
		span.SetAttributes(
			attribute.String("strategy", s.Name()),
			attribute.Int("attempts", len(attempts)+1),
		)
		if len(attempts) > 0 {
			f.logger.Info("fetched via fallback", "strategy", s.Name(), "url", safeURL, "failed_attempts", len(attempts))
		}
		return payload, nil
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, fmt.Errorf("fetch %s: %w", safeURL, err)
	}

	exhausted := &domain.ExhaustedError{URL: safeURL, Attempts: attempts}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "all strategies failed")
	f.logger.Warn("all fetch attempts failed", "url", safeURL, "error", exhausted)
	return nil, exhausted
}

func (f *Fetcher) attempt(ctx context.Context, s Strategy, target, safeURL string) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	payload, err := s.Fetch(attemptCtx, target)
	if err == nil {
		return payload, nil
	}

	var te *domain.TransportError
	if !errors.As(err, &te) {
		te = &domain.TransportError{Strategy: s.Name(), Err: err}
	}
	if te.URL == "" {
		te.URL = safeURL
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		te.Err = fmt.Errorf("timed out after %s: %w", f.timeout, context.DeadlineExceeded)
	}
	return nil, te
}

// sensitiveParams are query parameters never written to logs
var sensitiveParams = []string{"key_identity", "key_credential", "token", "api_key"}

// Redact masks credential query parameters in raw, including inside nested relay URLs
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	changed := false
	for k, vs := range q {
		if isSensitive(k) {
			q[k] = []string{"REDACTED"}
			changed = true
			continue
		}
		for i, v := range vs {
			if strings.Contains(v, "://") {
				if r := Redact(v); r != v {
					vs[i] = r
					changed = true
				}
			}
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isSensitive(param string) bool {
	for _, p := range sensitiveParams {
		if strings.EqualFold(param, p) {
			return true
		}
	}
	return false
}
