// Package source assembles the catalog data-access stack from configuration:
// the response cache backend, the fetch chain and the API client.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/adapter/source/omeka"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/fetch"
	"github.com/mmcdole/folio/internal/store"
)

// Stack is a configured catalog client together with the resources it owns
type Stack struct {
	Client  *omeka.Client
	Fetcher *fetch.Fetcher
	Cache   domain.ResponseCache

	closers []func() error
}

// Strategies returns the fetch chain in attempt order
func (s *Stack) Strategies() []fetch.Strategy {
	return s.Fetcher.Strategies()
}

// Close releases the cache backend
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// New builds the stack described by cfg. The configuration is validated first
// so a missing endpoint or credential never reaches the network.
func New(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) (*Stack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	composer, err := omeka.NewComposer(cfg.API.BaseURL, cfg.API.KeyIdentity, cfg.API.KeyCredential)
	if err != nil {
		return nil, err
	}

	stack := &Stack{}
	cache, closer, err := openCache(ctx, cfg, composer.Base(), logger)
	if err != nil {
		return nil, err
	}
	stack.Cache = cache
	if closer != nil {
		stack.closers = append(stack.closers, closer)
	}

	strategies := NewStrategies(cfg.Fetch, logger)
	stack.Fetcher = fetch.NewFetcher(cache, strategies, logger,
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithRedactor(func(u string) string { return fetch.Redact(composer.Redact(u)) }),
	)
	stack.Client = omeka.NewClient(composer, stack.Fetcher, omeka.TTLs{
		Listing: cfg.Cache.ListingTTL,
		Media:   cfg.Cache.MediaTTL,
	}, logger)

	logger.Info("catalog source ready",
		"endpoint", composer.Base(),
		"cache", string(cfg.Cache.Backend),
		"strategies", strategyNames(strategies))
	return stack, nil
}

// NewStrategies returns the direct strategy followed by the configured relays,
// each relay rate limited and behind its own circuit breaker
func NewStrategies(cfg adapter.FetchConfig, logger *slog.Logger) []fetch.Strategy {
	client := &http.Client{}
	strategies := []fetch.Strategy{fetch.NewDirect(client)}

	for _, name := range cfg.Relays {
		var relay fetch.Strategy
		limiter := fetch.NewRelayLimiter(cfg.RelayRPS)
		switch strings.ToLower(name) {
		case "allorigins":
			relay = fetch.NewAllOrigins(client, limiter)
		case "codetabs":
			relay = fetch.NewCodeTabs(client, limiter)
		default:
			logger.Warn("unknown relay ignored", "relay", name)
			continue
		}
		strategies = append(strategies, fetch.NewGuard(relay, fetch.DefaultGuardSettings, logger))
	}
	return strategies
}

func openCache(ctx context.Context, cfg *adapter.Config, endpoint string, logger *slog.Logger) (domain.ResponseCache, func() error, error) {
	switch cfg.Cache.Backend {
	case adapter.CacheBackendBolt:
		c, err := store.OpenResponseCache(cfg.Cache.Path, endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open response cache: %w", err)
		}
		// Entries older than the longest TTL class can never be served
		if n := c.Prune(max(cfg.Cache.ListingTTL, cfg.Cache.MediaTTL)); n > 0 {
			logger.Debug("pruned stale responses", "count", n)
		}
		return c, c.Close, nil
	case adapter.CacheBackendRedis:
		client, err := store.OpenRedis(ctx, cfg.Cache.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		c := store.NewRedisCache(client, 0, logger)
		return c, c.Close, nil
	default:
		return store.NewResponseCache(), nil, nil
	}
}

// ClearCache removes every cached response of the configured backend
func ClearCache(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) error {
	switch cfg.Cache.Backend {
	case adapter.CacheBackendRedis:
		client, err := store.OpenRedis(ctx, cfg.Cache.RedisURL, logger)
		if err != nil {
			return err
		}
		c := store.NewRedisCache(client, 0, logger)
		defer c.Close()
		return c.Clear(ctx)
	default:
		return adapter.ClearCache(cfg.Cache.Path)
	}
}

func strategyNames(strategies []fetch.Strategy) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}
	return names
}
