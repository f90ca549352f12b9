package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

type stubSource struct {
	items []domain.CatalogItem
	media map[int]domain.MediaAsset
	lastQ domain.ListQuery
}

func (s *stubSource) ListItems(_ context.Context, q domain.ListQuery) ([]domain.CatalogItem, error) {
	s.lastQ = q
	return s.items, nil
}

func (s *stubSource) GetItem(_ context.Context, id int) (*domain.CatalogItem, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "item", ID: id}
}

func (s *stubSource) GetItemSet(_ context.Context, id int) (*domain.ItemSet, error) {
	return nil, &domain.NotFoundError{Kind: "item set", ID: id}
}

func (s *stubSource) ListItemSets(context.Context, int, int) ([]domain.ItemSet, error) {
	return nil, nil
}

func (s *stubSource) GetMedia(_ context.Context, ref domain.MediaRef) (*domain.MediaAsset, error) {
	if m, ok := s.media[ref.ID]; ok {
		return &m, nil
	}
	return nil, &domain.NotFoundError{Kind: "media", ID: ref.ID}
}

func newTestApp(src *stubSource) *app {
	logger := adapter.NullLogger()
	media := service.NewMediaResolver(src, nil, logger, service.WithHTTPSDocuments(true))
	return &app{
		cfg:     adapter.DefaultConfig(),
		logger:  logger,
		catalog: service.NewCatalogService(src, logger),
		media:   media,
	}
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func sample() *stubSource {
	return &stubSource{
		items: []domain.CatalogItem{
			{ID: 7, Title: "Palm-leaf manuscript", Media: []domain.MediaRef{{ID: 70}},
				Fields: map[domain.Field][]domain.LocalizedValue{
					domain.FieldCreator: {{Text: "Phra Khru"}},
				}},
		},
		media: map[int]domain.MediaAsset{
			70: {ID: 70, MediaType: "application/pdf", OriginalURL: "http://x/files/original/7.pdf"},
		},
	}
}

func TestIDArg(t *testing.T) {
	id, err := idArg([]string{"42"})
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, args := range [][]string{nil, {"x"}, {"0"}, {"1", "2"}} {
		_, err := idArg(args)
		assert.Error(t, err, args)
	}
}

func TestList_JSON(t *testing.T) {
	src := sample()
	out := captureStdout(t)

	require.NoError(t, newTestApp(src).list(context.Background(), []string{"-q", " dharma ", "-page", "2", "-json"}))

	var metas []service.Meta
	require.NoError(t, json.Unmarshal(out.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, "Palm-leaf manuscript", metas[0].Title)
	assert.Equal(t, "Phra Khru", metas[0].Creator)
	assert.Equal(t, "dharma", src.lastQ.Text)
	assert.Equal(t, 2, src.lastQ.Page)
	assert.Equal(t, 24, src.lastQ.Limit)
}

func TestList_Table(t *testing.T) {
	out := captureStdout(t)

	require.NoError(t, newTestApp(sample()).list(context.Background(), nil))
	assert.Contains(t, out.String(), "Palm-leaf manuscript")
	assert.Contains(t, out.String(), "TITLE")
}

func TestList_Grouped(t *testing.T) {
	src := sample()
	src.items = append(src.items, domain.CatalogItem{
		ID: 8, Title: "Temple chronicle", ItemSets: []domain.ItemSetRef{{ID: 5}},
	})
	out := captureStdout(t)

	require.NoError(t, newTestApp(src).list(context.Background(), []string{"-group"}))
	// Set 5 cannot be fetched and falls back to its id
	assert.Contains(t, out.String(), "Collection #5")
	assert.Contains(t, out.String(), "Other items")
	assert.Less(t, strings.Index(out.String(), "Temple chronicle"), strings.Index(out.String(), "Palm-leaf manuscript"))
}

func TestPDF(t *testing.T) {
	out := captureStdout(t)
	a := newTestApp(sample())

	require.NoError(t, a.pdf(context.Background(), []string{"7"}))
	assert.Equal(t, "https://x/files/original/7.pdf\n", out.String())

	out.Reset()
	require.NoError(t, a.pdf(context.Background(), []string{"-sources", "70"}))
	assert.Contains(t, out.String(), "direct")
	assert.Contains(t, out.String(), "google")

	err := a.pdf(context.Background(), []string{"99"})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
