package domain

import (
	"strings"
	"time"
)

// Field names a Dublin Core property carried by catalog items
type Field string

const (
	FieldTitle       Field = "dcterms:title"
	FieldAlternative Field = "dcterms:alternative"
	FieldDescription Field = "dcterms:description"
	FieldAbstract    Field = "dcterms:abstract"
	FieldCreator     Field = "dcterms:creator"
	FieldContributor Field = "dcterms:contributor"
	FieldPublisher   Field = "dcterms:publisher"
	FieldDate        Field = "dcterms:date"
	FieldRights      Field = "dcterms:rights"
	FieldSubject     Field = "dcterms:subject"
	FieldLanguage    Field = "dcterms:language"
	FieldType        Field = "dcterms:type"
	FieldExtent      Field = "dcterms:extent"
	FieldIdentifier  Field = "dcterms:identifier"
	FieldFormat      Field = "dcterms:format"
	FieldSpatial     Field = "dcterms:spatial"
)

// KnownFields lists every property the mapper extracts from an item
var KnownFields = []Field{
	FieldTitle, FieldAlternative, FieldDescription, FieldAbstract,
	FieldCreator, FieldContributor, FieldPublisher, FieldDate,
	FieldRights, FieldSubject, FieldLanguage, FieldType,
	FieldExtent, FieldIdentifier, FieldFormat, FieldSpatial,
}

// LocalizedValue is one piece of text paired with an optional language tag
type LocalizedValue struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// ThumbnailSet holds precomputed thumbnail URLs by size name
type ThumbnailSet struct {
	Large    string `json:"large,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Square   string `json:"square,omitempty"`
	Original string `json:"original,omitempty"`
}

// Preferred returns the first non-empty URL in medium, large, square, original order
func (t ThumbnailSet) Preferred() string {
	for _, u := range []string{t.Medium, t.Large, t.Square, t.Original} {
		if u != "" {
			return u
		}
	}
	return ""
}

// IsEmpty reports whether no size carries a URL
func (t ThumbnailSet) IsEmpty() bool {
	return t.Preferred() == ""
}

// MediaAsset describes one binary file attached to an item
type MediaAsset struct {
	ID          int          `json:"id"`
	MediaType   string       `json:"media_type"`   // MIME type, e.g. "application/pdf"
	OriginalURL string       `json:"original_url"` // Canonical download location
	Source      string       `json:"source,omitempty"`
	Thumbnails  ThumbnailSet `json:"thumbnails"`
}

// IsImage reports whether the asset is usable as a cover image
func (m MediaAsset) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(m.MediaType), "image/")
}

// IsDocument reports whether the asset is a readable PDF document.
// The media type is authoritative; a ".pdf" path is accepted when the type is missing or generic.
func (m MediaAsset) IsDocument() bool {
	if m.OriginalURL == "" {
		return false
	}
	if strings.Contains(strings.ToLower(m.MediaType), "pdf") {
		return true
	}
	return hasPDFPath(m.OriginalURL)
}

func hasPDFPath(raw string) bool {
	path := raw
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

// MediaRef points at a MediaAsset, either as an inline summary or an opaque link
type MediaRef struct {
	ID      int         `json:"id"`
	Link    string      `json:"link,omitempty"` // API URL of the media descriptor
	Summary *MediaAsset `json:"summary,omitempty"`
}

// IsOpaque reports whether the reference carries no inline summary
func (r MediaRef) IsOpaque() bool {
	return r.Summary == nil
}

// ItemSetRef is a collection membership
type ItemSetRef struct {
	ID    int    `json:"id"`
	Label string `json:"label,omitempty"`
}

// CatalogItem is a read-only projection of one library holding
type CatalogItem struct {
	ID            int                        `json:"id"`
	Title         string                     `json:"title"` // Repository display title (o:title)
	Fields        map[Field][]LocalizedValue `json:"fields,omitempty"`
	Media         []MediaRef                 `json:"media,omitempty"`
	PrimaryMedia  *MediaRef                  `json:"primary_media,omitempty"`
	Thumbnails    ThumbnailSet               `json:"thumbnails"`
	ItemSets      []ItemSetRef               `json:"item_sets,omitempty"`
	ResourceClass string                     `json:"resource_class,omitempty"`
	Created       time.Time                  `json:"created"`
	Link          string                     `json:"link,omitempty"`
}

// Values returns the localized values of a field (nil if absent)
func (c CatalogItem) Values(f Field) []LocalizedValue {
	if c.Fields == nil {
		return nil
	}
	return c.Fields[f]
}

// MediaCandidates returns the media references to scan, primary media first, without duplicates
func (c CatalogItem) MediaCandidates() []MediaRef {
	refs := make([]MediaRef, 0, len(c.Media)+1)
	if c.PrimaryMedia != nil {
		refs = append(refs, *c.PrimaryMedia)
	}
	for _, r := range c.Media {
		if c.PrimaryMedia != nil && sameRef(r, *c.PrimaryMedia) {
			// Prefer whichever copy carries an inline summary
			if refs[0].Summary == nil && r.Summary != nil {
				refs[0] = r
			}
			continue
		}
		refs = append(refs, r)
	}
	return refs
}

func sameRef(a, b MediaRef) bool {
	if a.ID != 0 || b.ID != 0 {
		return a.ID == b.ID
	}
	return a.Link != "" && a.Link == b.Link
}

// ItemSet is a collection of catalog items
type ItemSet struct {
	ID     int                        `json:"id"`
	Title  string                     `json:"title"`
	Fields map[Field][]LocalizedValue `json:"fields,omitempty"`
}

// SortOrder is the listing direction
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterType is the comparison applied by a property filter
type FilterType string

const (
	FilterContains    FilterType = "in"
	FilterNotContains FilterType = "nin"
	FilterEquals      FilterType = "eq"
	FilterNotEquals   FilterType = "neq"
	FilterExists      FilterType = "ex"
	FilterNotExists   FilterType = "nex"
)

// Joiner combines a property filter with the filters before it
type Joiner string

const (
	JoinAnd Joiner = "and"
	JoinOr  Joiner = "or"
)

// PropertyFilter is one structured property condition of a listing
type PropertyFilter struct {
	Joiner   Joiner
	Property Field
	Type     FilterType
	Text     string
}

// ListQuery describes a filtered, paginated item listing
type ListQuery struct {
	Limit              int
	Page               int
	SortBy             string
	SortOrder          SortOrder
	Text               string // Free-text query, matched against title and description
	ResourceClassLabel string
	ItemSetID          int
	Properties         []PropertyFilter
}
