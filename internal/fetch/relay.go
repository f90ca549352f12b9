package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmcdole/folio/internal/domain"
)

const (
	AllOriginsBase = "https://api.allorigins.win"
	CodeTabsBase   = "https://api.codetabs.com/v1/proxy"
)

// NewRelayLimiter returns a limiter allowing rps requests per second to a public relay
func NewRelayLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/rps)), 1)
}

func wait(ctx context.Context, limiter *rate.Limiter, strategy string) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return &domain.TransportError{Strategy: strategy, Err: fmt.Errorf("rate limit: %w", err)}
	}
	return nil
}

// AllOrigins relays through allorigins.win. Its /get endpoint wraps the target
// body in an envelope: {"contents": "<body as string>", "status": {...}}.
type AllOrigins struct {
	Base    string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewAllOrigins(client *http.Client, limiter *rate.Limiter) *AllOrigins {
	if client == nil {
		client = http.DefaultClient
	}
	return &AllOrigins{Base: AllOriginsBase, Client: client, Limiter: limiter}
}

func (a *AllOrigins) Name() string { return "allorigins" }

type allOriginsEnvelope struct {
	Contents json.RawMessage `json:"contents"`
	Status   struct {
		URL      string `json:"url"`
		HTTPCode int    `json:"http_code"`
	} `json:"status"`
}

func (a *AllOrigins) Fetch(ctx context.Context, target string) (json.RawMessage, error) {
	if err := wait(ctx, a.Limiter, a.Name()); err != nil {
		return nil, err
	}
	body, err := getBody(ctx, a.Client, a.Name(), a.Base+"/get?url="+url.QueryEscape(target))
	if err != nil {
		return nil, err
	}

	var env allOriginsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.TransportError{Strategy: a.Name(), Err: fmt.Errorf("bad envelope: %w", domain.ErrInvalidPayload)}
	}
	if env.Status.HTTPCode >= 400 {
		return nil, &domain.TransportError{
			Strategy:   a.Name(),
			StatusCode: env.Status.HTTPCode,
			Err:        fmt.Errorf("upstream answered %s", http.StatusText(env.Status.HTTPCode)),
		}
	}
	return unwrapContents(a.Name(), env.Contents)
}

// unwrapContents extracts the payload from an envelope's contents field, which
// is either an escaped JSON string or already a JSON value
func unwrapContents(strategy string, contents json.RawMessage) (json.RawMessage, error) {
	contents = bytes.TrimSpace(contents)
	if len(contents) == 0 || bytes.Equal(contents, []byte("null")) {
		return nil, &domain.TransportError{Strategy: strategy, Err: fmt.Errorf("empty envelope: %w", domain.ErrInvalidPayload)}
	}
	if contents[0] != '"' {
		return validJSON(strategy, contents)
	}
	var s string
	if err := json.Unmarshal(contents, &s); err != nil {
		return nil, &domain.TransportError{Strategy: strategy, Err: domain.ErrInvalidPayload}
	}
	return validJSON(strategy, []byte(s))
}

// RawURL returns the passthrough URL streaming target unchanged
func (a *AllOrigins) RawURL(target string) string {
	return a.Base + "/raw?url=" + url.QueryEscape(target)
}

// CodeTabs relays through codetabs.com, which returns the target body as is
type CodeTabs struct {
	Base    string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewCodeTabs(client *http.Client, limiter *rate.Limiter) *CodeTabs {
	if client == nil {
		client = http.DefaultClient
	}
	return &CodeTabs{Base: CodeTabsBase, Client: client, Limiter: limiter}
}

func (c *CodeTabs) Name() string { return "codetabs" }

func (c *CodeTabs) Fetch(ctx context.Context, target string) (json.RawMessage, error) {
	if err := wait(ctx, c.Limiter, c.Name()); err != nil {
		return nil, err
	}
	body, err := getBody(ctx, c.Client, c.Name(), c.RawURL(target))
	if err != nil {
		return nil, err
	}
	return validJSON(c.Name(), body)
}

func (c *CodeTabs) RawURL(target string) string {
	return c.Base + "?quest=" + url.QueryEscape(target)
}
