package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/store"
)

type stubStrategy struct {
	name    string
	payload json.RawMessage
	err     error
	calls   atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, target string) (json.RawMessage, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func failing(name string) *stubStrategy {
	return &stubStrategy{name: name, err: errors.New("connection refused")}
}

const target = "https://lib.example.org/api/items?key_identity=id&key_credential=secret"

func TestFetchJSON_FallbackOrdering(t *testing.T) {
	direct := failing("direct")
	relay1 := failing("allorigins")
	relay2 := &stubStrategy{name: "codetabs", payload: json.RawMessage(`[{"o:id":42}]`)}
	cache := store.NewResponseCache()

	f := NewFetcher(cache, []Strategy{direct, relay1, relay2}, adapter.NullLogger())

	got, err := f.FetchJSON(context.Background(), target, 30*time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"o:id":42}]`, string(got))
	assert.EqualValues(t, 1, direct.calls.Load())
	assert.EqualValues(t, 1, relay1.calls.Load())
	assert.EqualValues(t, 1, relay2.calls.Load())

	cached, ok := cache.Get(target, 30*time.Second)
	require.True(t, ok, "successful payload is cached under the original URL")
	assert.JSONEq(t, `[{"o:id":42}]`, string(cached))
}

func TestFetchJSON_SequentialCallsHitCache(t *testing.T) {
	direct := &stubStrategy{name: "direct", payload: json.RawMessage(`{"ok":true}`)}
	f := NewFetcher(store.NewResponseCache(), []Strategy{direct}, adapter.NullLogger())

	for i := 0; i < 3; i++ {
		_, err := f.FetchJSON(context.Background(), target, time.Minute)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, direct.calls.Load())
}

func TestFetchJSON_ExpiredEntryRefetches(t *testing.T) {
	direct := &stubStrategy{name: "direct", payload: json.RawMessage(`{"v":2}`)}
	cache := store.NewResponseCache()
	require.NoError(t, cache.Set(target, json.RawMessage(`{"v":1}`), time.Now().Add(-time.Minute)))

	f := NewFetcher(cache, []Strategy{direct}, adapter.NullLogger())
	got, err := f.FetchJSON(context.Background(), target, 30*time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
	assert.EqualValues(t, 1, direct.calls.Load())

	got, ok := cache.Get(target, 30*time.Second)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestFetchJSON_Exhausted(t *testing.T) {
	notFound := &stubStrategy{name: "direct", err: &domain.TransportError{Strategy: "direct", StatusCode: 404, Err: errors.New("Not Found")}}
	f := NewFetcher(store.NewResponseCache(), []Strategy{notFound, failing("allorigins"), failing("codetabs")}, adapter.NullLogger())

	_, err := f.FetchJSON(context.Background(), target, time.Minute)
	require.Error(t, err)

	var exhausted *domain.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 3)
	assert.True(t, domain.IsTransport(err))

	// The most specific error is the one carrying an HTTP status
	var te *domain.TransportError
	require.ErrorAs(t, exhausted.Cause(), &te)
	assert.True(t, te.IsNotFound())
	assert.Contains(t, err.Error(), "HTTP 404")

	assert.NotContains(t, err.Error(), "secret")
}

func TestFetchJSON_AttemptTimeout(t *testing.T) {
	slow := &slowStrategy{}
	fast := &stubStrategy{name: "codetabs", payload: json.RawMessage(`1`)}
	f := NewFetcher(nil, []Strategy{slow, fast}, adapter.NullLogger(), WithTimeout(20*time.Millisecond))

	got, err := f.FetchJSON(context.Background(), target, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

type slowStrategy struct{}

func (s *slowStrategy) Name() string { return "direct" }

func (s *slowStrategy) Fetch(ctx context.Context, _ string) (json.RawMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFetchJSON_CancelledContext(t *testing.T) {
	direct := failing("direct")
	f := NewFetcher(nil, []Strategy{direct}, adapter.NullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchJSON(ctx, target, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, direct.calls.Load())
}

func TestStrategiesOverHTTP(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer origin.Close()

	var seenURL string
	allorigins := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"contents":"[{\"o:id\":7}]","status":{"http_code":200}}`))
	}))
	defer allorigins.Close()

	ao := NewAllOrigins(allorigins.Client(), nil)
	ao.Base = allorigins.URL

	f := NewFetcher(store.NewResponseCache(), []Strategy{NewDirect(origin.Client()), ao}, adapter.NullLogger())

	u := origin.URL + "/api/items?key_identity=a&key_credential=b"
	got, err := f.FetchJSON(context.Background(), u, time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"o:id":7}]`, string(got))
	assert.Equal(t, u, seenURL)
}

func TestAllOrigins_Envelope(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       string
		wantStatus int
	}{
		{"escaped string", `{"contents":"{\"a\":1}"}`, `{"a":1}`, 0},
		{"inline object", `{"contents":{"a":1}}`, `{"a":1}`, 0},
		{"upstream 404", `{"contents":"Not Found","status":{"http_code":404}}`, "", 404},
		{"html contents", `{"contents":"<html></html>"}`, "", 0},
		{"null contents", `{"contents":null}`, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ao := NewAllOrigins(srv.Client(), nil)
			ao.Base = srv.URL

			got, err := ao.Fetch(context.Background(), "https://lib.example.org/api/items")
			if tt.want != "" {
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(got))
				return
			}
			var te *domain.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantStatus, te.StatusCode)
		})
	}
}

func TestCodeTabs(t *testing.T) {
	var quest string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quest = r.URL.Query().Get("quest")
		w.Write([]byte(`{"o:id":3}`))
	}))
	defer srv.Close()

	ct := NewCodeTabs(srv.Client(), NewRelayLimiter(0))
	ct.Base = srv.URL

	got, err := ct.Fetch(context.Background(), "https://lib.example.org/api/media/3?x=1&y=2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"o:id":3}`, string(got))
	assert.Equal(t, "https://lib.example.org/api/media/3?x=1&y=2", quest)
	assert.Equal(t, srv.URL+"?quest=https%3A%2F%2Flib.example.org%2Fapi%2Fmedia%2F3%3Fx%3D1%26y%3D2", ct.RawURL("https://lib.example.org/api/media/3?x=1&y=2"))
}

func TestGuard_OpensAfterFailures(t *testing.T) {
	inner := failing("allorigins")
	g := NewGuard(inner, GuardSettings{MaxFailures: 2, Cooldown: time.Hour}, adapter.NullLogger())

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(context.Background(), target)
		require.Error(t, err)
	}
	_, err := g.Fetch(context.Background(), target)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "allorigins", te.Strategy)
	assert.EqualValues(t, 2, inner.calls.Load(), "open breaker skips the relay")
}

func TestGuard_NotFoundDoesNotTrip(t *testing.T) {
	inner := &stubStrategy{name: "direct", err: &domain.TransportError{Strategy: "direct", StatusCode: 404}}
	g := NewGuard(inner, GuardSettings{MaxFailures: 1, Cooldown: time.Hour}, adapter.NullLogger())

	for i := 0; i < 3; i++ {
		_, _ = g.Fetch(context.Background(), target)
	}
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestRedact(t *testing.T) {
	got := Redact("https://lib.example.org/api/items?page=1&key_identity=abc&key_credential=xyz")
	assert.NotContains(t, got, "abc")
	assert.NotContains(t, got, "xyz")
	assert.Contains(t, got, "page=1")

	nested := Redact("https://api.allorigins.win/get?url=" + "https%3A%2F%2Flib.example.org%2Fapi%2Fitems%3Fkey_credential%3Dxyz")
	assert.NotContains(t, nested, "xyz")

	assert.Equal(t, "https://lib.example.org/api/items", Redact("https://lib.example.org/api/items"))
}
