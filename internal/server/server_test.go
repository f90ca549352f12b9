package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

// fakeSource serves a fixed catalog
type fakeSource struct {
	items   map[int]domain.CatalogItem
	sets    map[int]domain.ItemSet
	media   map[int]domain.MediaAsset
	listErr error
	getErr  error
	lastQ   domain.ListQuery
}

func (f *fakeSource) ListItems(_ context.Context, q domain.ListQuery) ([]domain.CatalogItem, error) {
	f.lastQ = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []domain.CatalogItem{}
	for id := 1; id <= len(f.items); id++ {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeSource) GetItem(_ context.Context, id int) (*domain.CatalogItem, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "item", ID: id}
	}
	return &item, nil
}

func (f *fakeSource) GetItemSet(_ context.Context, id int) (*domain.ItemSet, error) {
	set, ok := f.sets[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "item set", ID: id}
	}
	return &set, nil
}

func (f *fakeSource) ListItemSets(context.Context, int, int) ([]domain.ItemSet, error) {
	var out []domain.ItemSet
	for id := 1; id <= 10; id++ {
		if set, ok := f.sets[id]; ok {
			out = append(out, set)
		}
	}
	return out, nil
}

func (f *fakeSource) GetMedia(_ context.Context, ref domain.MediaRef) (*domain.MediaAsset, error) {
	m, ok := f.media[ref.ID]
	if !ok {
		return nil, &domain.ExhaustedError{Attempts: []error{&domain.TransportError{Strategy: "direct", StatusCode: 404}}}
	}
	return &m, nil
}

func newFixture() *fakeSource {
	return &fakeSource{
		items: map[int]domain.CatalogItem{
			1: {ID: 1, Title: "Herbal treatise",
				Thumbnails: domain.ThumbnailSet{Medium: "https://x/files/medium/1.jpg"},
				ItemSets:   []domain.ItemSetRef{{ID: 3}},
				Media:      []domain.MediaRef{{ID: 11}},
				Fields: map[domain.Field][]domain.LocalizedValue{
					domain.FieldTitle:   {{Text: "ตำรายา", Language: "th"}, {Text: "Herbal treatise", Language: "en"}},
					domain.FieldCreator: {{Text: "Anonymous"}},
				}},
			2: {ID: 2, Title: "Uncovered", Media: []domain.MediaRef{{ID: 12}}},
		},
		sets: map[int]domain.ItemSet{
			3: {ID: 3, Title: "Lanna"},
		},
		media: map[int]domain.MediaAsset{
			11: {ID: 11, MediaType: "application/pdf", OriginalURL: "http://x/files/original/1.pdf"},
			12: {ID: 12, MediaType: "audio/mpeg", OriginalURL: "https://x/files/original/2.mp3"},
		},
	}
}

func newTestServer(src *fakeSource) *httptest.Server {
	logger := adapter.NullLogger()
	s := New(Config{
		Catalog:  service.NewCatalogService(src, logger),
		Media:    service.NewMediaResolver(src, nil, logger, service.WithHTTPSDocuments(true)),
		Language: "th",
		Logger:   logger,
	})
	return httptest.NewServer(s.Handler())
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func getJSON(t *testing.T, url string, dest any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp
}

func TestListItems(t *testing.T) {
	src := newFixture()
	ts := newTestServer(src)
	defer ts.Close()

	var body struct {
		Items    []ItemView `json:"items"`
		Language string     `json:"language"`
	}
	resp := getJSON(t, ts.URL+"/api/items?q=dharma&lang=en&where=dcterms:language,eq,th&page=2", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "en", body.Language)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "Herbal treatise", body.Items[0].Title)
	assert.Equal(t, "https://x/files/medium/1.jpg", body.Items[0].Thumbnail)
	assert.Equal(t, []CollectionView{{ID: 3, Label: "Lanna"}}, body.Items[0].Collections)
	assert.Empty(t, body.Items[1].Thumbnail)

	assert.Equal(t, "dharma", src.lastQ.Text)
	assert.Equal(t, 2, src.lastQ.Page)
	require.Len(t, src.lastQ.Properties, 1)
	assert.Equal(t, domain.FieldLanguage, src.lastQ.Properties[0].Property)
	assert.Equal(t, domain.FilterEquals, src.lastQ.Properties[0].Type)
}

func TestListItems_DefaultAndAcceptLanguage(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	var body struct {
		Items []ItemView `json:"items"`
	}
	getJSON(t, ts.URL+"/api/items", &body)
	assert.Equal(t, "ตำรายา", body.Items[0].Title)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/items", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Herbal treatise", body.Items[0].Title)
}

func TestListItems_LocalFilter(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	var body struct {
		Items []ItemView `json:"items"`
	}
	getJSON(t, ts.URL+"/api/items?lang=en&filter=uncov", &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].ID)
}

func TestListItems_BadRequest(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	for _, q := range []string{"sort_order=sideways", "where=dcterms:title", "where=dcterms:title,eq", "where=dcterms:title,zz,x"} {
		resp := getJSON(t, ts.URL+"/api/items?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestListItems_TransportFailure(t *testing.T) {
	src := newFixture()
	src.listErr = &domain.ExhaustedError{URL: "https://x/api/items", Attempts: []error{
		&domain.TransportError{Strategy: "direct", URL: "https://x/api/items?key_identity=REDACTED", Err: errors.New("connection refused")},
		&domain.TransportError{Strategy: "allorigins", URL: "https://x/api/items?key_identity=REDACTED", StatusCode: 503},
		&domain.TransportError{Strategy: "codetabs", URL: "https://x/api/items?key_identity=REDACTED", Err: errors.New("timed out")},
	}}
	ts := newTestServer(src)
	defer ts.Close()

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/items", &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotEmpty(t, body["error_id"])
	// The attempt that reached a server is the most specific
	assert.Equal(t, "Allorigins: https://x/api/items?key_identity=REDACTED: HTTP 503", body["error"])
}

func TestGetItem_TimeoutIsGeneric(t *testing.T) {
	src := newFixture()
	src.getErr = fmt.Errorf("fetch item: %w", context.DeadlineExceeded)
	ts := newTestServer(src)
	defer ts.Close()

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/items/1", &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], body["error_id"])
}

func TestGetItem(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	var view ItemView
	resp := getJSON(t, ts.URL+"/api/items/1?lang=en", &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Anonymous", view.Creator)

	var body map[string]string
	resp = getJSON(t, ts.URL+"/api/items/99", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "not found")

	resp = getJSON(t, ts.URL+"/api/items/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetThumbnail(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	resp, err := noRedirect().Get(ts.URL + "/api/items/1/thumbnail")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://x/files/medium/1.jpg", resp.Header.Get("Location"))

	resp, err = noRedirect().Get(ts.URL + "/api/items/2/thumbnail")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetDocument(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	var doc DocumentView
	resp := getJSON(t, ts.URL+"/api/items/1/pdf", &doc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://x/files/original/1.pdf", doc.URL)
	require.NotEmpty(t, doc.Sources)
	assert.Equal(t, "direct", doc.Sources[0].Name)

	var body map[string]string
	resp = getJSON(t, ts.URL+"/api/items/2/pdf", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "ocument not found")

	resp, err := noRedirect().Get(ts.URL + "/api/documents/11?redirect=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://x/files/original/1.pdf", resp.Header.Get("Location"))
}

func TestListCollections(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	var body struct {
		Collections []CollectionView `json:"collections"`
	}
	getJSON(t, ts.URL+"/api/collections", &body)
	assert.Equal(t, []CollectionView{{ID: 3, Label: "Lanna"}}, body.Collections)
}

func TestOPDSFeed(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/opds?lang=en&limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/atom+xml"))

	var feed struct {
		XMLName xml.Name `xml:"feed"`
		Entries []struct {
			ID    string `xml:"id"`
			Title string `xml:"title"`
			Links []struct {
				Rel  string `xml:"rel,attr"`
				Href string `xml:"href,attr"`
			} `xml:"link"`
		} `xml:"entry"`
		Links []struct {
			Rel string `xml:"rel,attr"`
		} `xml:"link"`
	}
	require.NoError(t, xml.NewDecoder(resp.Body).Decode(&feed))
	require.Len(t, feed.Entries, 2)
	assert.Equal(t, "urn:folio:item:1", feed.Entries[0].ID)
	assert.Equal(t, "Herbal treatise", feed.Entries[0].Title)
	assert.Equal(t, relAcquisition, feed.Entries[0].Links[0].Rel)
	assert.Equal(t, "/api/items/1/pdf?redirect=1", feed.Entries[0].Links[0].Href)

	var rels []string
	for _, l := range feed.Links {
		rels = append(rels, l.Rel)
	}
	assert.Contains(t, rels, "next")
}

func TestRequestIDIsReused(t *testing.T) {
	ts := newTestServer(newFixture())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "4f0b8a7e-7a8e-4a39-9f43-1c2d3e4f5a6b")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "4f0b8a7e-7a8e-4a39-9f43-1c2d3e4f5a6b", resp.Header.Get(RequestIDHeader))
}
