package omeka

import (
	"strings"
	"time"

	"github.com/mmcdole/folio/internal/domain"
)

// MapItems converts item DTOs to domain items
func MapItems(dtos []ItemDTO) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, MapItem(d))
	}
	return items
}

// MapItem converts a single item DTO
func MapItem(d ItemDTO) domain.CatalogItem {
	item := domain.CatalogItem{
		ID:         d.ID,
		Title:      strings.TrimSpace(d.Title),
		Fields:     mapValues(d.Values),
		Thumbnails: mapThumbnails(d.Thumbnails),
		Link:       d.Ref,
	}

	if d.ResourceClass != nil {
		item.ResourceClass = d.ResourceClass.Label
	}
	if d.Created != nil {
		item.Created = parseTime(rawString(d.Created.Value))
	}

	item.Media = make([]domain.MediaRef, 0, len(d.Media))
	for _, m := range d.Media {
		item.Media = append(item.Media, mapMediaRef(m))
	}
	if d.PrimaryMedia != nil && (d.PrimaryMedia.ID != 0 || d.PrimaryMedia.Ref != "") {
		ref := mapMediaRef(*d.PrimaryMedia)
		item.PrimaryMedia = &ref
	}

	for _, s := range d.ItemSets {
		label := s.Title
		if label == "" {
			label = s.Label
		}
		item.ItemSets = append(item.ItemSets, domain.ItemSetRef{ID: s.ID, Label: label})
	}

	return item
}

func mapMediaRef(m MediaDTO) domain.MediaRef {
	ref := domain.MediaRef{ID: m.ID, Link: m.Ref}
	if m.HasSummary() {
		ref.Summary = MapMedia(m)
	}
	return ref
}

// MapMedia converts a media DTO
func MapMedia(m MediaDTO) *domain.MediaAsset {
	return &domain.MediaAsset{
		ID:          m.ID,
		MediaType:   strings.TrimSpace(m.MediaType),
		OriginalURL: strings.TrimSpace(m.OriginalURL),
		Source:      m.Source,
		Thumbnails:  mapThumbnails(m.Thumbnails),
	}
}

// MapItemSet converts an item set DTO
func MapItemSet(d ItemSetDTO) *domain.ItemSet {
	return &domain.ItemSet{
		ID:     d.ID,
		Title:  strings.TrimSpace(d.Title),
		Fields: mapValues(d.Values),
	}
}

func mapThumbnails(t ThumbnailsDTO) domain.ThumbnailSet {
	return domain.ThumbnailSet{
		Large:    strings.TrimSpace(t.Large),
		Medium:   strings.TrimSpace(t.Medium),
		Square:   strings.TrimSpace(t.Square),
		Original: strings.TrimSpace(t.Original),
	}
}

func mapValues(values map[domain.Field][]ValueDTO) map[domain.Field][]domain.LocalizedValue {
	if len(values) == 0 {
		return nil
	}
	out := make(map[domain.Field][]domain.LocalizedValue, len(values))
	for f, vs := range values {
		mapped := make([]domain.LocalizedValue, 0, len(vs))
		for _, v := range vs {
			text := strings.TrimSpace(v.Text())
			if text == "" {
				continue
			}
			mapped = append(mapped, domain.LocalizedValue{Text: text, Language: v.Language})
		}
		if len(mapped) > 0 {
			out[f] = mapped
		}
	}
	return out
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
