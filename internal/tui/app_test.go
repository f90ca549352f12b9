package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

type fakeSource struct {
	items []domain.CatalogItem
	media map[int]domain.MediaAsset
	sets  map[int]domain.ItemSet
}

func (f *fakeSource) ListItems(context.Context, domain.ListQuery) ([]domain.CatalogItem, error) {
	return f.items, nil
}

func (f *fakeSource) GetItem(_ context.Context, id int) (*domain.CatalogItem, error) {
	for _, item := range f.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "item", ID: id}
}

func (f *fakeSource) GetItemSet(_ context.Context, id int) (*domain.ItemSet, error) {
	if set, ok := f.sets[id]; ok {
		return &set, nil
	}
	return nil, &domain.NotFoundError{Kind: "item set", ID: id}
}

func (f *fakeSource) ListItemSets(context.Context, int, int) ([]domain.ItemSet, error) {
	return nil, nil
}

func (f *fakeSource) GetMedia(_ context.Context, ref domain.MediaRef) (*domain.MediaAsset, error) {
	if m, ok := f.media[ref.ID]; ok {
		return &m, nil
	}
	return nil, &domain.NotFoundError{Kind: "media", ID: ref.ID}
}

type recordingOpener struct {
	opened []string
}

func (o *recordingOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return nil
}

func fixture() *fakeSource {
	return &fakeSource{
		items: []domain.CatalogItem{
			{ID: 1, Title: "Herbal treatise",
				ItemSets: []domain.ItemSetRef{{ID: 3}},
				Media:    []domain.MediaRef{{ID: 11}},
				Fields: map[domain.Field][]domain.LocalizedValue{
					domain.FieldTitle: {{Text: "ตำรายา", Language: "th"}, {Text: "Herbal treatise", Language: "en"}},
				}},
			{ID: 2, Title: "Uncovered"},
		},
		media: map[int]domain.MediaAsset{
			11: {ID: 11, MediaType: "application/pdf", OriginalURL: "https://x/files/original/1.pdf"},
		},
		sets: map[int]domain.ItemSet{3: {ID: 3, Title: "Lanna"}},
	}
}

func newTestModel(src *fakeSource, pageSize int) (Model, *recordingOpener) {
	logger := adapter.NullLogger()
	media := service.NewMediaResolver(src, nil, logger)
	opener := &recordingOpener{}
	m := NewModel(
		service.NewCatalogService(src, logger),
		media,
		service.NewReaderService(opener, media, logger),
		"th",
		pageSize,
	)
	return m, opener
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded returns a model with the first page applied
func loaded(t *testing.T, src *fakeSource, pageSize int) (Model, *recordingOpener) {
	t.Helper()
	m, opener := newTestModel(src, pageSize)
	msg := LoadItemsCmd(m.CatalogSvc, m.Query, m.listSeq)()
	m, _ = update(t, m, msg)
	return m, opener
}

func TestModel_FirstPageIsAccepted(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)

	assert.False(t, m.Loading)
	assert.Equal(t, 2, m.List.Len())
	assert.Equal(t, "ตำรายา", m.List.Selected().Title)
	require.NotNil(t, m.Inspector.Detail())
	assert.Equal(t, 1, m.Inspector.Detail().ItemID)
}

func TestModel_StaleListResultIsDiscarded(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)
	staleSeq := m.listSeq

	m, _ = update(t, m, runes("r"))
	require.True(t, m.Loading)

	m, _ = update(t, m, ItemsLoadedMsg{Seq: staleSeq, Items: nil})
	assert.True(t, m.Loading)
	assert.Equal(t, 2, m.List.Len())

	m, _ = update(t, m, ErrMsg{Err: errors.New("boom"), Seq: staleSeq})
	assert.Empty(t, m.StatusMsg)

	m, _ = update(t, m, ErrMsg{Err: errors.New("boom"), Context: "loading items", Seq: m.listSeq})
	assert.False(t, m.Loading)
	assert.True(t, m.StatusIsErr)
	assert.Equal(t, "loading items: boom", m.StatusMsg)
}

func TestModel_StaleMediaIsDiscarded(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)
	current := m.detailSeq

	m, _ = update(t, m, CoverResolvedMsg{Seq: current - 1, ItemID: 1, URL: "https://old", Found: true})
	assert.False(t, m.Inspector.Detail().CoverResolved)

	m, _ = update(t, m, CoverResolvedMsg{Seq: current, ItemID: 1, URL: "https://x/c.jpg", Found: true})
	assert.True(t, m.Inspector.Detail().CoverResolved)
	assert.Equal(t, "https://x/c.jpg", m.Inspector.Detail().Cover)

	// Moving on supersedes the pending document lookup
	m, _ = update(t, m, runes("j"))
	assert.Equal(t, 2, m.Inspector.Detail().ItemID)
	m, _ = update(t, m, DocumentResolvedMsg{Seq: current, ItemID: 1, URL: "https://x/1.pdf"})
	assert.False(t, m.Inspector.Detail().DocumentResolved)
}

func TestModel_ResolveDocumentCmd(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)
	item := *m.List.SelectedItem()

	msg := ResolveDocumentCmd(m.MediaSvc, item, m.detailSeq)()
	doc, ok := msg.(DocumentResolvedMsg)
	require.True(t, ok)
	require.NoError(t, doc.Err)
	assert.Equal(t, "https://x/files/original/1.pdf", doc.URL)
	require.NotEmpty(t, doc.Sources)
	assert.Equal(t, "direct", doc.Sources[0].Name)

	m, _ = update(t, m, doc)
	assert.True(t, m.Inspector.Detail().DocumentResolved)
}

func TestModel_LanguageCycle(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)

	m, _ = update(t, m, runes("L"))
	assert.Equal(t, "en", m.Language)
	assert.Equal(t, "Herbal treatise", m.List.Selected().Title)
	assert.Equal(t, "Herbal treatise", m.Inspector.Detail().Meta.Title)
	assert.Equal(t, "Language: English", m.StatusMsg)

	// Labels fetched for a language no longer shown are dropped
	m, _ = update(t, m, CollectionLabelsMsg{Seq: m.listSeq, Language: "th", Labels: map[int]string{3: "ล้านนา"}})
	assert.Empty(t, m.Collections)

	m, _ = update(t, m, CollectionLabelsMsg{Seq: m.listSeq, Language: "en", Labels: map[int]string{3: "Lanna"}})
	assert.Equal(t, []string{"Lanna"}, m.Inspector.Detail().Collections)
}

func TestModel_SearchSubmitsRemoteQuery(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)
	seq := m.listSeq

	m, _ = update(t, m, runes("s"))
	require.Equal(t, StateSearching, m.State)
	m, _ = update(t, m, runes("dharma"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, StateBrowsing, m.State)
	assert.Equal(t, "dharma", m.Query.Text)
	assert.Equal(t, 1, m.Query.Page)
	assert.True(t, m.Loading)
	assert.Equal(t, seq+1, m.listSeq)
	assert.NotNil(t, cmd)

	// Escape drops the remote search
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.Query.Text)
	assert.Equal(t, seq+2, m.listSeq)
}

func TestModel_Paging(t *testing.T) {
	m, _ := loaded(t, fixture(), 2)

	m, _ = update(t, m, runes("]"))
	assert.Equal(t, 2, m.Query.Page)
	assert.True(t, m.Loading)

	// No paging while a page is in flight
	m, _ = update(t, m, runes("]"))
	assert.Equal(t, 2, m.Query.Page)

	m, _ = update(t, m, runes("["))
	assert.Equal(t, 1, m.Query.Page)
	m, _ = update(t, m, runes("["))
	assert.Equal(t, 1, m.Query.Page)
}

func TestModel_ShortPageIsLast(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)

	m, _ = update(t, m, runes("]"))
	assert.Equal(t, 1, m.Query.Page)
	assert.False(t, m.Loading)
}

func TestModel_FilterPage(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)

	m, _ = update(t, m, runes("/"))
	require.True(t, m.List.IsFilterTyping())
	m, _ = update(t, m, runes("u"))

	assert.Equal(t, 1, m.List.Len())
	assert.Equal(t, 2, m.List.SelectedItem().ID)
	assert.Equal(t, 2, m.Inspector.Detail().ItemID)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.List.IsFiltering())
	assert.Equal(t, 2, m.List.Len())
}

func TestOpenCommands(t *testing.T) {
	m, opener := loaded(t, fixture(), 24)
	items := m.List.Items()

	msg := OpenDocumentCmd(m.ReaderSvc, items[0], "Herbal treatise")()
	assert.Equal(t, DocumentOpenedMsg{Title: "Herbal treatise", URL: "https://x/files/original/1.pdf"}, msg)
	assert.Equal(t, []string{"https://x/files/original/1.pdf"}, opener.opened)

	msg = OpenDocumentCmd(m.ReaderSvc, items[1], "Uncovered")()
	status, ok := msg.(StatusMsg)
	require.True(t, ok)
	assert.True(t, status.IsError)
	assert.Contains(t, status.Message, "No PDF")

	msg = OpenCoverCmd(m.ReaderSvc, items[1], "Uncovered")()
	status, ok = msg.(StatusMsg)
	require.True(t, ok)
	assert.Equal(t, "No cover for Uncovered", status.Message)
}

func TestLoadCollectionLabelsCmd(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)

	cmd := LoadCollectionLabelsCmd(m.CatalogSvc, m.List.Items(), "en", m.listSeq)
	require.NotNil(t, cmd)
	msg, ok := cmd().(CollectionLabelsMsg)
	require.True(t, ok)
	assert.Equal(t, map[int]string{3: "Lanna"}, msg.Labels)

	assert.Nil(t, LoadCollectionLabelsCmd(m.CatalogSvc, []domain.CatalogItem{{ID: 9}}, "en", 1))
}

func TestModel_View(t *testing.T) {
	m, _ := loaded(t, fixture(), 24)

	assert.Equal(t, "Loading...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	view := m.View()
	assert.Contains(t, view, "Catalog · page 1")
	assert.Contains(t, view, "ตำรายา")
	assert.Contains(t, view, "Details")

	m, _ = update(t, m, runes("?"))
	help := m.View()
	assert.Contains(t, help, "Open PDF")
	assert.Contains(t, help, "NAVIGATION")
	assert.Contains(t, help, "Next language")
	m, _ = update(t, m, runes("x"))
	assert.Equal(t, StateBrowsing, m.State)
}
