// Package server exposes the catalog over HTTP: a JSON API for web front
// ends and an OPDS acquisition feed for e-reader applications.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/lang"
	"github.com/mmcdole/folio/internal/service"
)

const (
	maxPageSize     = 100
	thumbnailFanOut = 8
)

// Server serves catalog data to HTTP clients
type Server struct {
	catalog  *service.CatalogService
	media    *service.MediaResolver
	language string
	pageSize int
	logger   *slog.Logger
	rr       *Responder
}

// Config holds the server's collaborators and defaults
type Config struct {
	Catalog  *service.CatalogService
	Media    *service.MediaResolver
	Language string // Default display language
	PageSize int
	Debug    bool // Expose internal error messages
	Logger   *slog.Logger
}

// New creates a server
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = lang.Fallback
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 24
	}
	return &Server{
		catalog:  cfg.Catalog,
		media:    cfg.Media,
		language: cfg.Language,
		pageSize: cfg.PageSize,
		logger:   logger,
		rr:       &Responder{DebugMode: cfg.Debug, Logger: logger},
	}
}

// Handler returns the routed handler with request id, access log and panic recovery
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.listItems)
		r.Get("/items/{id}", s.getItem)
		r.Get("/items/{id}/thumbnail", s.getThumbnail)
		r.Get("/items/{id}/pdf", s.getDocument)
		r.Get("/documents/{id}", s.getDocumentByID)
		r.Get("/collections", s.listCollections)
	})
	r.Get("/opds", s.opdsFeed)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// CollectionView is an item set membership with its display label
type CollectionView struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// ItemView is an item as served to clients
type ItemView struct {
	service.Meta
	Thumbnail   string           `json:"thumbnail,omitempty"`
	Collections []CollectionView `json:"collections,omitempty"`
}

// DocumentView is a resolved document with the ways to load it
type DocumentView struct {
	URL     string                   `json:"url"`
	Sources []service.DocumentSource `json:"sources"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q, err := s.listQuery(r.URL.Query())
	if err != nil {
		s.rr.RespondBadRequest(w, r, err)
		return
	}
	wanted := s.wantedLanguage(r)

	items, err := s.catalog.List(r.Context(), q)
	if err != nil {
		s.rr.RespondError(w, r, err)
		return
	}

	if filter := strings.TrimSpace(r.URL.Query().Get("filter")); filter != "" {
		results := service.FilterItems(items, filter, wanted)
		items = make([]domain.CatalogItem, len(results))
		for i, res := range results {
			items[i] = res.Item
		}
	}

	views := s.itemViews(r.Context(), items, wanted)
	s.rr.SendJSON(w, r, struct {
		Items    []ItemView `json:"items"`
		Page     int        `json:"page"`
		Limit    int        `json:"limit"`
		Language string     `json:"language"`
	}{Items: views, Page: q.Page, Limit: q.Limit, Language: wanted})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.rr.RespondError(w, r, err)
		return
	}
	views := s.itemViews(r.Context(), []domain.CatalogItem{*item}, s.wantedLanguage(r))
	s.rr.SendJSON(w, r, views[0])
}

// getThumbnail redirects to the cover image. Items without a cover answer
// 204 so clients show their placeholder.
func (s *Server) getThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.rr.RespondError(w, r, err)
		return
	}
	u, found := s.media.ResolveThumbnail(r.Context(), *item)
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.rr.RespondError(w, r, err)
		return
	}
	u, err := s.media.ResolvePDF(r.Context(), *item)
	s.sendDocument(w, r, u, err)
}

func (s *Server) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	u, err := s.media.ResolvePDFByID(r.Context(), id)
	s.sendDocument(w, r, u, err)
}

func (s *Server) sendDocument(w http.ResponseWriter, r *http.Request, u string, err error) {
	if err != nil {
		s.rr.RespondError(w, r, err)
		return
	}
	if r.URL.Query().Get("redirect") != "" {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	s.rr.SendJSON(w, r, DocumentView{URL: u, Sources: s.media.DocumentSources(u)})
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := getIntOrDefault("page", q, 1)
	limit := clamp(getIntOrDefault("limit", q, s.pageSize), 1, maxPageSize)
	wanted := s.wantedLanguage(r)

	sets, err := s.catalog.Collections(r.Context(), page, limit)
	if err != nil {
		s.rr.RespondError(w, r, err)
		return
	}
	views := make([]CollectionView, 0, len(sets))
	for i := range sets {
		views = append(views, CollectionView{ID: sets[i].ID, Label: service.CollectionLabel(&sets[i], wanted)})
	}
	s.rr.SendJSON(w, r, struct {
		Collections []CollectionView `json:"collections"`
	}{Collections: views})
}

// itemViews resolves display metadata, covers and collection labels for items.
// Covers are resolved concurrently; a missing cover leaves the field empty.
func (s *Server) itemViews(ctx context.Context, items []domain.CatalogItem, wanted string) []ItemView {
	views := make([]ItemView, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(thumbnailFanOut)
	for i := range items {
		views[i].Meta = service.Describe(items[i], wanted)
		i := i
		g.Go(func() error {
			views[i].Thumbnail, _ = s.media.ResolveThumbnail(gctx, items[i])
			return nil
		})
	}

	labels := s.catalog.CollectionLabels(ctx, service.CollectionIDs(items), wanted)
	_ = g.Wait()

	for i, item := range items {
		for _, ref := range item.ItemSets {
			if label, ok := labels[ref.ID]; ok {
				views[i].Collections = append(views[i].Collections, CollectionView{ID: ref.ID, Label: label})
			}
		}
	}
	return views
}

// listQuery reads listing parameters:
//
//	q, page, limit, sort_by, sort_order, class, item_set,
//	where=<property>,<type>[,<text>] (and-joined), or_where=... (or-joined)
func (s *Server) listQuery(v url.Values) (domain.ListQuery, error) {
	q := domain.ListQuery{
		Text:               strings.TrimSpace(v.Get("q")),
		Page:               max(getIntOrDefault("page", v, 1), 1),
		Limit:              clamp(getIntOrDefault("limit", v, s.pageSize), 1, maxPageSize),
		SortBy:             v.Get("sort_by"),
		SortOrder:          domain.SortOrder(strings.ToLower(v.Get("sort_order"))),
		ResourceClassLabel: v.Get("class"),
		ItemSetID:          getIntOrDefault("item_set", v, 0),
	}
	switch q.SortOrder {
	case "", domain.SortAsc, domain.SortDesc:
	default:
		return q, fmt.Errorf("invalid sort_order %q", q.SortOrder)
	}

	for _, p := range []struct {
		key    string
		joiner domain.Joiner
	}{{"where", domain.JoinAnd}, {"or_where", domain.JoinOr}} {
		for _, raw := range getMulti(p.key, v) {
			pf, err := parsePropertyFilter(raw, p.joiner)
			if err != nil {
				return q, err
			}
			q.Properties = append(q.Properties, pf)
		}
	}
	return q, nil
}

func parsePropertyFilter(raw string, joiner domain.Joiner) (domain.PropertyFilter, error) {
	parts := strings.SplitN(raw, ",", 3)
	if len(parts) < 2 || parts[0] == "" {
		return domain.PropertyFilter{}, fmt.Errorf("invalid property filter %q: want property,type[,text]", raw)
	}
	pf := domain.PropertyFilter{
		Joiner:   joiner,
		Property: domain.Field(strings.TrimSpace(parts[0])),
		Type:     domain.FilterType(strings.TrimSpace(parts[1])),
	}
	switch pf.Type {
	case domain.FilterContains, domain.FilterNotContains, domain.FilterEquals, domain.FilterNotEquals:
		if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
			return pf, fmt.Errorf("invalid property filter %q: type %s needs text", raw, pf.Type)
		}
		pf.Text = parts[2]
	case domain.FilterExists, domain.FilterNotExists:
	default:
		return pf, fmt.Errorf("invalid property filter %q: unknown type %s", raw, pf.Type)
	}
	return pf, nil
}

// wantedLanguage takes ?lang, then the first Accept-Language tag, then the default
func (s *Server) wantedLanguage(r *http.Request) string {
	if l := strings.TrimSpace(r.URL.Query().Get("lang")); l != "" {
		return lang.Normalize(l)
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			return lang.Normalize(tags[0].String())
		}
	}
	return s.language
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.rr.RespondBadRequest(w, r, fmt.Errorf("invalid id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func getIntOrDefault(key string, q url.Values, def int) int {
	if ls := q.Get(key); ls != "" {
		n, err := strconv.Atoi(ls)
		if err == nil {
			return n
		}
	}
	return def
}

func getMulti(key string, q url.Values) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}

	vals := make([]string, 0, len(raw))
	for _, val := range raw {
		val = strings.TrimSpace(val)
		if val != "" {
			vals = append(vals, val)
		}
	}
	return vals
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}
