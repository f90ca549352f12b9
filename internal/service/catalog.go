package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/lang"
)

// collectionFetchLimit bounds concurrent item set requests
const collectionFetchLimit = 4

// CatalogService handles item listings and collection lookups
type CatalogService struct {
	source domain.CatalogSource
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(source domain.CatalogSource, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{source: source, logger: logger}
}

// List returns one page of items. No match is an empty slice, not an error.
func (s *CatalogService) List(ctx context.Context, q domain.ListQuery) ([]domain.CatalogItem, error) {
	items, err := s.source.ListItems(ctx, q)
	if err != nil {
		s.logger.Error("failed to list items", "page", q.Page, "query", q.Text, "error", err)
		return nil, err
	}
	s.logger.Debug("listed items", "page", q.Page, "query", q.Text, "count", len(items))
	return items, nil
}

// Get returns a single item
func (s *CatalogService) Get(ctx context.Context, id int) (*domain.CatalogItem, error) {
	item, err := s.source.GetItem(ctx, id)
	if err != nil {
		s.logger.Debug("failed to get item", "id", id, "error", err)
		return nil, err
	}
	return item, nil
}

// Collections returns one page of item sets
func (s *CatalogService) Collections(ctx context.Context, page, perPage int) ([]domain.ItemSet, error) {
	sets, err := s.source.ListItemSets(ctx, page, perPage)
	if err != nil {
		s.logger.Error("failed to list collections", "page", page, "error", err)
		return nil, err
	}
	return sets, nil
}

// CollectionLabel is the display label of one item set
func CollectionLabel(set *domain.ItemSet, wanted string) string {
	if set != nil {
		if t := lang.Pick(set.Fields[domain.FieldTitle], wanted); t != "" {
			return t
		}
		if set.Title != "" {
			return set.Title
		}
	}
	return fallbackCollectionLabel(idOf(set))
}

func idOf(set *domain.ItemSet) int {
	if set == nil {
		return 0
	}
	return set.ID
}

func fallbackCollectionLabel(id int) string {
	return fmt.Sprintf("Collection #%d", id)
}

// CollectionLabels fetches the item sets concurrently and returns their
// labels by id. A set that cannot be fetched gets a fallback label; this
// never fails.
func (s *CatalogService) CollectionLabels(ctx context.Context, ids []int, wanted string) map[int]string {
	labels := make(map[int]string, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(collectionFetchLimit)

	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true

		id := id
		g.Go(func() error {
			label := fallbackCollectionLabel(id)
			set, err := s.source.GetItemSet(gctx, id)
			if err != nil {
				s.logger.Warn("collection unavailable", "id", id, "error", err)
			} else {
				set.ID = id
				label = CollectionLabel(set, wanted)
			}
			mu.Lock()
			labels[id] = label
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return labels
}

// CollectionIDs returns the distinct item set ids referenced by items, in
// first-seen order
func CollectionIDs(items []domain.CatalogItem) []int {
	var ids []int
	seen := make(map[int]bool)
	for _, item := range items {
		for _, ref := range item.ItemSets {
			if ref.ID > 0 && !seen[ref.ID] {
				seen[ref.ID] = true
				ids = append(ids, ref.ID)
			}
		}
	}
	return ids
}
