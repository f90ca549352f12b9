// Package fetch retrieves JSON documents through an ordered chain of transport
// strategies: the target itself first, then public relay proxies.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mmcdole/folio/internal/domain"
)

const (
	// UserAgent is sent with every request
	UserAgent = "folio/1.0"

	maxBodyBytes = 32 << 20
)

// Strategy is one way of retrieving a URL's JSON body
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target string) (json.RawMessage, error)
}

// Passthrough is implemented by relays that can stream a binary file unchanged
type Passthrough interface {
	RawURL(target string) string
}

// Direct requests the target URL itself
type Direct struct {
	Client *http.Client
}

func NewDirect(client *http.Client) *Direct {
	if client == nil {
		client = http.DefaultClient
	}
	return &Direct{Client: client}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Fetch(ctx context.Context, target string) (json.RawMessage, error) {
	body, err := getBody(ctx, d.Client, d.Name(), target)
	if err != nil {
		return nil, err
	}
	return validJSON(d.Name(), body)
}

// getBody performs a GET and returns the body of a 2xx response.
// Failures are *domain.TransportError values without a URL; the caller fills it in redacted.
func getBody(ctx context.Context, client *http.Client, strategy, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &domain.TransportError{Strategy: strategy, Err: stripURL(err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Strategy: strategy, Err: stripURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.TransportError{
			Strategy:   strategy,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.TransportError{Strategy: strategy, Err: fmt.Errorf("failed to read body: %w", stripURL(err))}
	}
	return body, nil
}

// stripURL drops the request URL from net/http errors; composed URLs carry credentials
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func validJSON(strategy string, body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return nil, &domain.TransportError{Strategy: strategy, Err: domain.ErrInvalidPayload}
	}
	return json.RawMessage(body), nil
}
