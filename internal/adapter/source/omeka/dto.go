package omeka

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/mmcdole/folio/internal/domain"
)

// ValueDTO is one entry of a property value array. Literal values carry
// @value/@language; URI values carry @id and an optional o:label; linked
// resources carry display_title.
type ValueDTO struct {
	Type         string          `json:"type"`
	Value        json.RawMessage `json:"@value,omitempty"`
	Language     string          `json:"@language,omitempty"`
	ID           string          `json:"@id,omitempty"`
	Label        string          `json:"o:label,omitempty"`
	DisplayTitle string          `json:"display_title,omitempty"`
	ResourceID   int             `json:"value_resource_id,omitempty"`
}

// Text returns the displayable text of the value
func (v ValueDTO) Text() string {
	if s := rawString(v.Value); s != "" {
		return s
	}
	if v.DisplayTitle != "" {
		return v.DisplayTitle
	}
	if v.Label != "" {
		return v.Label
	}
	return v.ID
}

// rawString renders a JSON scalar as text: strings are unquoted, numbers and
// booleans are kept verbatim
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}

// LinkDTO is a reference to another resource
type LinkDTO struct {
	Ref   string `json:"@id"`
	ID    int    `json:"o:id"`
	Label string `json:"o:label,omitempty"`
	Title string `json:"o:title,omitempty"`
}

// ThumbnailsDTO is thumbnail_display_urls. The API serializes an empty set
// as [] and missing sizes as null.
type ThumbnailsDTO struct {
	Large    string `json:"large"`
	Medium   string `json:"medium"`
	Square   string `json:"square"`
	Original string `json:"original"`
}

func (t *ThumbnailsDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*t = ThumbnailsDTO{}
		return nil
	}
	type plain ThumbnailsDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*t = ThumbnailsDTO{}
		return nil
	}
	*t = ThumbnailsDTO(p)
	return nil
}

// MediaDTO is a media resource, either complete (from /media/{id}) or a bare
// link inside an item's o:media array
type MediaDTO struct {
	Ref         string        `json:"@id"`
	ID          int           `json:"o:id"`
	MediaType   string        `json:"o:media_type"`
	OriginalURL string        `json:"o:original_url"`
	Source      string        `json:"o:source"`
	Thumbnails  ThumbnailsDTO `json:"thumbnail_display_urls"`
}

// HasSummary reports whether the DTO carries more than a link
func (m MediaDTO) HasSummary() bool {
	return m.MediaType != "" || m.OriginalURL != ""
}

// ItemDTO is an item resource
type ItemDTO struct {
	Ref           string        `json:"@id"`
	ID            int           `json:"o:id"`
	Title         string        `json:"o:title"`
	Thumbnails    ThumbnailsDTO `json:"thumbnail_display_urls"`
	ResourceClass *LinkDTO      `json:"o:resource_class"`
	Created       *ValueDTO     `json:"o:created"`
	Media         []MediaDTO    `json:"o:media"`
	PrimaryMedia  *MediaDTO     `json:"o:primary_media"`
	ItemSets      []LinkDTO     `json:"o:item_set"`

	// Values holds the Dublin Core property arrays, keyed by term
	Values map[domain.Field][]ValueDTO `json:"-"`
}

func (d *ItemDTO) UnmarshalJSON(data []byte) error {
	type plain ItemDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = ItemDTO(p)

	values, err := decodeValues(data)
	if err != nil {
		return err
	}
	d.Values = values
	return nil
}

// ItemSetDTO is an item set (collection) resource
type ItemSetDTO struct {
	Ref    string                      `json:"@id"`
	ID     int                         `json:"o:id"`
	Title  string                      `json:"o:title"`
	Values map[domain.Field][]ValueDTO `json:"-"`
}

func (d *ItemSetDTO) UnmarshalJSON(data []byte) error {
	type plain ItemSetDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = ItemSetDTO(p)

	values, err := decodeValues(data)
	if err != nil {
		return err
	}
	d.Values = values
	return nil
}

// decodeValues extracts the known property arrays from a resource object.
// A malformed property is skipped rather than failing the whole resource.
func decodeValues(data []byte) (map[domain.Field][]ValueDTO, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	values := make(map[domain.Field][]ValueDTO)
	for _, f := range domain.KnownFields {
		raw, ok := fields[string(f)]
		if !ok {
			continue
		}
		var vs []ValueDTO
		if err := json.Unmarshal(raw, &vs); err != nil {
			continue
		}
		if len(vs) > 0 {
			values[f] = vs
		}
	}
	return values, nil
}

// ErrorDTO is the body of an API error response
type ErrorDTO struct {
	Errors map[string]json.RawMessage `json:"errors"`
}

func (e ErrorDTO) Message() string {
	for k, v := range e.Errors {
		if s := rawString(v); s != "" {
			return k + ": " + s
		}
		return k
	}
	return "unknown API error"
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
