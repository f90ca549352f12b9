package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Fetcher retrieves JSON documents by URL, consulting a response cache first.
// ttl is the freshness window of the request class the caller belongs to.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, ttl time.Duration) (json.RawMessage, error)
}

// ResponseCache is a time-bounded URL → payload store.
// Expiry is lazy: Get treats entries older than ttl as absent.
// Implementations must be safe for concurrent use.
type ResponseCache interface {
	Get(key string, ttl time.Duration) (json.RawMessage, bool)
	Set(key string, payload json.RawMessage, fetchedAt time.Time) error
}

// CatalogSource reads items, media and collections from the remote repository
type CatalogSource interface {
	ListItems(ctx context.Context, q ListQuery) ([]CatalogItem, error)
	GetItem(ctx context.Context, id int) (*CatalogItem, error)
	GetItemSet(ctx context.Context, id int) (*ItemSet, error)
	ListItemSets(ctx context.Context, page, perPage int) ([]ItemSet, error)
	MediaSource
}

// MediaSource resolves media descriptors
type MediaSource interface {
	GetMedia(ctx context.Context, ref MediaRef) (*MediaAsset, error)
}
