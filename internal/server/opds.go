package server

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opds-community/libopds2-go/opds1"

	"github.com/mmcdole/folio/internal/domain"
)

const (
	opdsAcquisitionType = "application/atom+xml;profile=opds-catalog;kind=acquisition"
	relAcquisition      = "http://opds-spec.org/acquisition"
	relThumbnail        = "http://opds-spec.org/image/thumbnail"
	relImage            = "http://opds-spec.org/image"
)

// atomFeed gives opds1.Feed its Atom root element
type atomFeed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	opds1.Feed
}

// opdsFeed serves a page of the newest items as an OPDS 1.2 acquisition feed.
// Acquisition links point back at this server, which resolves the PDF on demand.
func (s *Server) opdsFeed(w http.ResponseWriter, r *http.Request) {
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
	views := s.itemViews(r.Context(), items, wanted)

	feed := atomFeed{Feed: opds1.Feed{
		ID:      "urn:folio:catalog",
		Title:   "Folio catalog",
		Updated: time.Now().UTC(),
		Links: []opds1.Link{
			{Rel: "self", Href: pageHref(r.URL, q.Page), TypeLink: opdsAcquisitionType},
			{Rel: "start", Href: pageHref(r.URL, 1), TypeLink: opdsAcquisitionType},
		},
	}}
	if q.Page > 1 {
		feed.Links = append(feed.Links, opds1.Link{Rel: "previous", Href: pageHref(r.URL, q.Page-1), TypeLink: opdsAcquisitionType})
	}
	if len(items) >= q.Limit {
		feed.Links = append(feed.Links, opds1.Link{Rel: "next", Href: pageHref(r.URL, q.Page+1), TypeLink: opdsAcquisitionType})
	}

	for i, item := range items {
		feed.Entries = append(feed.Entries, opdsEntry(item, views[i]))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(feed); err != nil {
		s.rr.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", opdsAcquisitionType+"; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func opdsEntry(item domain.CatalogItem, view ItemView) opds1.Entry {
	id := strconv.Itoa(item.ID)
	entry := opds1.Entry{
		ID:        "urn:folio:item:" + id,
		Title:     view.Title,
		Language:  view.Language,
		Issued:    view.Date,
		Rights:    view.Rights,
		Publisher: view.Publisher,
		Links: []opds1.Link{
			{Rel: relAcquisition, Href: "/api/items/" + id + "/pdf?redirect=1", TypeLink: "application/pdf"},
		},
	}
	if view.Description != "" {
		entry.Content = opds1.Content{Content: view.Description, ContentType: "text"}
	}
	for _, name := range splitList(view.Creator) {
		entry.Author = append(entry.Author, opds1.Author{Name: name})
	}
	for _, c := range view.Collections {
		entry.Category = append(entry.Category, opds1.Category{Term: c.Label})
	}
	if view.Thumbnail != "" {
		entry.Links = append(entry.Links,
			opds1.Link{Rel: relThumbnail, Href: view.Thumbnail, TypeLink: imageType(view.Thumbnail)},
			opds1.Link{Rel: relImage, Href: view.Thumbnail, TypeLink: imageType(view.Thumbnail)},
		)
	}
	return entry
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func imageType(u string) string {
	switch lower := strings.ToLower(u); {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func pageHref(u *url.URL, page int) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	return u.Path + "?" + q.Encode()
}
