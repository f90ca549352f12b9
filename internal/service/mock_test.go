package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mmcdole/folio/internal/domain"
)

// mockSource is a testify mock of domain.CatalogSource
type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListItems(ctx context.Context, q domain.ListQuery) ([]domain.CatalogItem, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]domain.CatalogItem)
	return items, args.Error(1)
}

func (m *mockSource) GetItem(ctx context.Context, id int) (*domain.CatalogItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.CatalogItem)
	return item, args.Error(1)
}

func (m *mockSource) GetItemSet(ctx context.Context, id int) (*domain.ItemSet, error) {
	args := m.Called(ctx, id)
	set, _ := args.Get(0).(*domain.ItemSet)
	return set, args.Error(1)
}

func (m *mockSource) ListItemSets(ctx context.Context, page, perPage int) ([]domain.ItemSet, error) {
	args := m.Called(ctx, page, perPage)
	sets, _ := args.Get(0).([]domain.ItemSet)
	return sets, args.Error(1)
}

func (m *mockSource) GetMedia(ctx context.Context, ref domain.MediaRef) (*domain.MediaAsset, error) {
	args := m.Called(ctx, ref)
	asset, _ := args.Get(0).(*domain.MediaAsset)
	return asset, args.Error(1)
}

// notFound mimics the error a 404 on every chain step produces
func notFound(kind string, id int) error {
	return &domain.NotFoundError{Kind: kind, ID: id}
}

func exhausted() error {
	return &domain.ExhaustedError{Attempts: []error{
		&domain.TransportError{Strategy: "direct", StatusCode: 404},
	}}
}

type recordingOpener struct {
	opened []string
	err    error
}

func (o *recordingOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return o.err
}
