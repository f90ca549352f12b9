// Package omeka is the client for the repository's REST API: URL and
// credential composition, listing filters and resource decoding.
package omeka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/folio/internal/domain"
)

// Default freshness windows per request class
const (
	DefaultListingTTL = 30 * time.Second
	DefaultMediaTTL   = 60 * time.Second
)

// Client implements domain.CatalogSource on top of a domain.Fetcher
type Client struct {
	composer   *Composer
	fetcher    domain.Fetcher
	listingTTL time.Duration
	mediaTTL   time.Duration
	logger     *slog.Logger
}

// TTLs groups the cache windows the client requests with
type TTLs struct {
	Listing time.Duration
	Media   time.Duration
}

// NewClient creates a new API client
func NewClient(composer *Composer, fetcher domain.Fetcher, ttls TTLs, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if ttls.Listing == 0 {
		ttls.Listing = DefaultListingTTL
	}
	if ttls.Media == 0 {
		ttls.Media = DefaultMediaTTL
	}
	return &Client{
		composer:   composer,
		fetcher:    fetcher,
		listingTTL: ttls.Listing,
		mediaTTL:   ttls.Media,
		logger:     logger,
	}
}

// Composer exposes the URL composer
func (c *Client) Composer() *Composer {
	return c.composer
}

// get fetches path and decodes the payload into dest
func (c *Client) get(ctx context.Context, path string, q *Query, ttl time.Duration, dest interface{}) error {
	u := c.composer.API(path, q)
	c.logger.Debug("api request", "path", path, "query", queryString(q))

	payload, err := c.fetcher.FetchJSON(ctx, u, ttl)
	if err != nil {
		return err
	}
	return decode(payload, dest)
}

func queryString(q *Query) string {
	if q == nil {
		return ""
	}
	return q.Encode()
}

// decode unmarshals payload, reporting API error bodies as errors
func decode(payload json.RawMessage, dest interface{}) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var apiErr ErrorDTO
		if json.Unmarshal(trimmed, &apiErr) == nil && len(apiErr.Errors) > 0 {
			return fmt.Errorf("api error: %s", apiErr.Message())
		}
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

// ListItems returns one page of items matching q. No match yields an empty slice.
func (c *Client) ListItems(ctx context.Context, q domain.ListQuery) ([]domain.CatalogItem, error) {
	var dtos []ItemDTO
	if err := c.get(ctx, "/items", BuildListQuery(q), c.listingTTL, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return MapItems(dtos), nil
}

// ListItemsURL returns the request URL ListItems would use, credentials redacted
func (c *Client) ListItemsURL(q domain.ListQuery) string {
	return c.composer.Redact(c.composer.API("/items", BuildListQuery(q)))
}

// GetItem fetches a single item
func (c *Client) GetItem(ctx context.Context, id int) (*domain.CatalogItem, error) {
	var dto ItemDTO
	if err := c.get(ctx, "/items/"+itoa(id), nil, c.mediaTTL, &dto); err != nil {
		if isNotFound(err) {
			return nil, &domain.NotFoundError{Kind: "item", ID: id}
		}
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	if dto.ID == 0 {
		return nil, &domain.NotFoundError{Kind: "item", ID: id}
	}
	item := MapItem(dto)
	return &item, nil
}

// GetMedia fetches the descriptor a media reference points at.
// References with an id use the canonical /media/{id} URL so they share cache entries.
func (c *Client) GetMedia(ctx context.Context, ref domain.MediaRef) (*domain.MediaAsset, error) {
	var dto MediaDTO
	var err error
	switch {
	case ref.ID > 0:
		err = c.get(ctx, "/media/"+itoa(ref.ID), nil, c.mediaTTL, &dto)
	case ref.Link != "":
		// Credentials are only ever sent to our own endpoint
		u := ref.Link
		if c.IsAPIURL(u) {
			u = c.composer.WithCredentials(u)
		}
		var payload json.RawMessage
		payload, err = c.fetcher.FetchJSON(ctx, u, c.mediaTTL)
		if err == nil {
			err = decode(payload, &dto)
		}
	default:
		return nil, errors.New("media reference has neither id nor link")
	}
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.NotFoundError{Kind: "media", ID: ref.ID}
		}
		return nil, fmt.Errorf("failed to get media %d: %w", ref.ID, err)
	}
	return MapMedia(dto), nil
}

// GetItemSet fetches a collection
func (c *Client) GetItemSet(ctx context.Context, id int) (*domain.ItemSet, error) {
	var dto ItemSetDTO
	if err := c.get(ctx, "/item_sets/"+itoa(id), nil, c.mediaTTL, &dto); err != nil {
		if isNotFound(err) {
			return nil, &domain.NotFoundError{Kind: "item set", ID: id}
		}
		return nil, fmt.Errorf("failed to get item set %d: %w", id, err)
	}
	return MapItemSet(dto), nil
}

// ListItemSets returns one page of collections, sorted by title
func (c *Client) ListItemSets(ctx context.Context, page, perPage int) ([]domain.ItemSet, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	q := NewQuery().SetInt("per_page", perPage).SetInt("page", page).Set("sort_by", "title").Set("sort_order", "asc")

	var dtos []ItemSetDTO
	if err := c.get(ctx, "/item_sets", q, c.listingTTL, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list item sets: %w", err)
	}
	sets := make([]domain.ItemSet, 0, len(dtos))
	for _, d := range dtos {
		sets = append(sets, *MapItemSet(d))
	}
	return sets, nil
}

// isNotFound reports whether the most specific failed attempt was a 404
func isNotFound(err error) bool {
	var ee *domain.ExhaustedError
	if errors.As(err, &ee) {
		var te *domain.TransportError
		if errors.As(ee.Cause(), &te) {
			return te.IsNotFound()
		}
		return false
	}
	var te *domain.TransportError
	return errors.As(err, &te) && te.IsNotFound()
}

// IsAPIURL reports whether u points at this client's endpoint
func (c *Client) IsAPIURL(u string) bool {
	return strings.HasPrefix(u, c.composer.Base()+"/")
}
