package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/domain"
)

func TestCatalogService_List(t *testing.T) {
	src := &mockSource{}
	q := domain.ListQuery{Text: "dharma"}
	src.On("ListItems", mock.Anything, q).Return([]domain.CatalogItem{}, nil)

	items, err := NewCatalogService(src, adapter.NullLogger()).List(context.Background(), q)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCatalogService_ListError(t *testing.T) {
	src := &mockSource{}
	src.On("ListItems", mock.Anything, mock.Anything).Return(nil, exhausted())

	_, err := NewCatalogService(src, adapter.NullLogger()).List(context.Background(), domain.ListQuery{})
	assert.True(t, domain.IsTransport(err))
}

func TestCatalogService_Get(t *testing.T) {
	src := &mockSource{}
	src.On("GetItem", mock.Anything, 1).Return(&domain.CatalogItem{ID: 1, Title: "A"}, nil)
	src.On("GetItem", mock.Anything, 2).Return(nil, notFound("item", 2))

	svc := NewCatalogService(src, adapter.NullLogger())
	item, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A", item.Title)

	_, err = svc.Get(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCollectionLabels(t *testing.T) {
	src := &mockSource{}
	src.On("GetItemSet", mock.Anything, 1).Return(&domain.ItemSet{ID: 1, Title: "Lanna", Fields: map[domain.Field][]domain.LocalizedValue{
		domain.FieldTitle: {{Text: "ล้านนา", Language: "th"}, {Text: "Lanna Collection", Language: "en"}},
	}}, nil)
	src.On("GetItemSet", mock.Anything, 2).Return(&domain.ItemSet{ID: 2, Title: "Sukhothai"}, nil)
	src.On("GetItemSet", mock.Anything, 3).Return(nil, exhausted())

	labels := NewCatalogService(src, adapter.NullLogger()).CollectionLabels(context.Background(), []int{1, 2, 3, 1, 0}, "en")

	assert.Equal(t, map[int]string{
		1: "Lanna Collection",
		2: "Sukhothai",
		3: "Collection #3",
	}, labels)
	src.AssertNumberOfCalls(t, "GetItemSet", 3)
}

func TestCollectionLabel(t *testing.T) {
	assert.Equal(t, "Collection #0", CollectionLabel(nil, "th"))
	assert.Equal(t, "Collection #4", CollectionLabel(&domain.ItemSet{ID: 4}, "th"))
}

func TestCollectionIDs(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: 1, ItemSets: []domain.ItemSetRef{{ID: 5}, {ID: 3}}},
		{ID: 2},
		{ID: 3, ItemSets: []domain.ItemSetRef{{ID: 3}, {ID: 9}}},
	}
	assert.Equal(t, []int{5, 3, 9}, CollectionIDs(items))
}
