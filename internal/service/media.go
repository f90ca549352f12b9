package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/fetch"
	"github.com/mmcdole/folio/internal/store"
)

// googleViewerBase renders a remote PDF inside an embeddable page
const googleViewerBase = "https://docs.google.com/viewer"

// DocumentSource is one way of loading a document in a viewer
type DocumentSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MediaResolver locates the cover image and the PDF document of catalog items.
// Media descriptors are fetched lazily, only when the inline summaries of an
// item cannot answer.
type MediaResolver struct {
	source      domain.CatalogSource
	memo        *store.ThumbnailMemo
	relays      []fetch.Passthrough
	upgradeHTTP bool
	logger      *slog.Logger
}

// MediaResolverOption configures a MediaResolver
type MediaResolverOption func(*MediaResolver)

// WithHTTPSDocuments upgrades http document URLs to https
func WithHTTPSDocuments(enabled bool) MediaResolverOption {
	return func(r *MediaResolver) { r.upgradeHTTP = enabled }
}

// WithRelays sets the strategies offered as document passthroughs.
// Strategies without a raw passthrough form are skipped.
func WithRelays(strategies []fetch.Strategy) MediaResolverOption {
	return func(r *MediaResolver) {
		r.relays = nil
		for _, s := range strategies {
			if p, ok := s.(fetch.Passthrough); ok {
				r.relays = append(r.relays, p)
			}
		}
	}
}

// NewMediaResolver creates a resolver. A nil memo gets a session-lifetime memo.
func NewMediaResolver(source domain.CatalogSource, memo *store.ThumbnailMemo, logger *slog.Logger, opts ...MediaResolverOption) *MediaResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if memo == nil {
		memo = store.NewThumbnailMemo(0)
	}
	r := &MediaResolver{
		source: source,
		memo:   memo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveThumbnail returns the cover URL of item, or false when the item has
// none. It never fails: callers render a placeholder instead.
func (r *MediaResolver) ResolveThumbnail(ctx context.Context, item domain.CatalogItem) (string, bool) {
	if u, found, ok := r.memo.Lookup(item.ID); ok {
		return u, found
	}

	u := r.findThumbnail(ctx, item)
	if ctx.Err() != nil {
		// Cancelled scans are not an answer; leave the memo untouched
		return u, u != ""
	}
	r.memo.Remember(item.ID, u)
	if u == "" {
		r.logger.Debug("no cover found", "item", item.ID)
	}
	return u, u != ""
}

func (r *MediaResolver) findThumbnail(ctx context.Context, item domain.CatalogItem) string {
	if u := item.Thumbnails.Preferred(); u != "" {
		return u
	}

	candidates := item.MediaCandidates()
	for _, ref := range candidates {
		if ref.Summary != nil {
			if u := coverOf(*ref.Summary); u != "" {
				return u
			}
		}
	}

	for _, ref := range candidates {
		if !ref.IsOpaque() {
			continue
		}
		asset, err := r.describe(ctx, item.ID, ref)
		if err != nil {
			if ctx.Err() != nil {
				return ""
			}
			continue
		}
		if u := coverOf(*asset); u != "" {
			return u
		}
	}
	return ""
}

// coverOf returns the cover URL an image asset offers
func coverOf(m domain.MediaAsset) string {
	if !m.IsImage() {
		return ""
	}
	if u := m.Thumbnails.Preferred(); u != "" {
		return u
	}
	return m.OriginalURL
}

// ResolvePDF returns the URL of the item's PDF document. An item without one
// yields a *domain.NotFoundError matching domain.ErrDocumentNotFound.
func (r *MediaResolver) ResolvePDF(ctx context.Context, item domain.CatalogItem) (string, error) {
	candidates := item.MediaCandidates()
	for _, ref := range candidates {
		if ref.Summary != nil && ref.Summary.IsDocument() {
			return r.documentURL(ref.Summary.OriginalURL), nil
		}
	}

	for _, ref := range candidates {
		if !ref.IsOpaque() {
			continue
		}
		asset, err := r.describe(ctx, item.ID, ref)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			continue
		}
		if asset.IsDocument() {
			return r.documentURL(asset.OriginalURL), nil
		}
	}
	return "", &domain.NotFoundError{Kind: "document", ID: item.ID}
}

// ResolveOriginal returns the original URL of the first media of any type
func (r *MediaResolver) ResolveOriginal(ctx context.Context, item domain.CatalogItem) (string, error) {
	for _, ref := range item.MediaCandidates() {
		asset := ref.Summary
		if asset == nil || asset.OriginalURL == "" {
			var err error
			if asset, err = r.describe(ctx, item.ID, ref); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", ctxErr
				}
				continue
			}
		}
		if asset.OriginalURL != "" {
			return r.documentURL(asset.OriginalURL), nil
		}
	}
	return "", &domain.NotFoundError{Kind: "media", ID: item.ID}
}

// ResolvePDFByID resolves a document from an id that may name either a media
// resource or an item. The media interpretation is tried first.
func (r *MediaResolver) ResolvePDFByID(ctx context.Context, id int) (string, error) {
	asset, err := r.source.GetMedia(ctx, domain.MediaRef{ID: id})
	switch {
	case err == nil && asset.IsDocument():
		return r.documentURL(asset.OriginalURL), nil
	case err != nil && ctx.Err() != nil:
		return "", ctx.Err()
	case err != nil:
		r.logger.Debug("id is not a media resource", "id", id, "error", err)
	}

	item, err := r.source.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return "", &domain.NotFoundError{Kind: "document", ID: id}
		}
		return "", fmt.Errorf("failed to resolve document %d: %w", id, err)
	}
	return r.ResolvePDF(ctx, *item)
}

// describe fetches the descriptor behind ref. Failures are logged and
// reported so the caller can move on to the next reference.
func (r *MediaResolver) describe(ctx context.Context, itemID int, ref domain.MediaRef) (*domain.MediaAsset, error) {
	asset, err := r.source.GetMedia(ctx, ref)
	if err != nil {
		r.logger.Warn("media descriptor unavailable", "item", itemID, "media", ref.ID, "error", err)
		return nil, err
	}
	return asset, nil
}

func (r *MediaResolver) documentURL(u string) string {
	if r.upgradeHTTP {
		return UpgradeHTTPS(u)
	}
	return u
}

// UpgradeHTTPS rewrites an http:// URL to https://; other URLs are returned unchanged
func UpgradeHTTPS(u string) string {
	if len(u) >= 7 && strings.EqualFold(u[:7], "http://") {
		return "https://" + u[7:]
	}
	return u
}

// DocumentSources lists the ways a viewer can load pdfURL, most direct first:
// the URL itself, each relay's passthrough, then an embeddable viewer page.
func (r *MediaResolver) DocumentSources(pdfURL string) []DocumentSource {
	if pdfURL == "" {
		return nil
	}
	sources := []DocumentSource{{Name: "direct", URL: pdfURL}}
	for _, p := range r.relays {
		if raw := p.RawURL(pdfURL); raw != "" {
			sources = append(sources, DocumentSource{Name: relayName(p), URL: raw})
		}
	}
	sources = append(sources, DocumentSource{
		Name: "google",
		URL:  googleViewerBase + "?embedded=true&url=" + url.QueryEscape(pdfURL),
	})
	return sources
}

func relayName(p fetch.Passthrough) string {
	if s, ok := p.(fetch.Strategy); ok {
		return s.Name()
	}
	return "relay"
}

// ForgetThumbnail drops the memoized cover of one item
func (r *MediaResolver) ForgetThumbnail(itemID int) {
	r.memo.Forget(itemID)
}
