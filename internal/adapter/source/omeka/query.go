package omeka

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/folio/internal/domain"
)

// Listing defaults
const (
	DefaultPerPage   = 24
	DefaultSortBy    = "created"
	DefaultSortOrder = domain.SortDesc
)

// Query accumulates request parameters in insertion order. It supports the
// three shapes the API's filter syntax needs: scalar (key=value), list
// (key[]=value, repeated) and nested list-of-objects (key[i][sub]=value).
type Query struct {
	params []param
}

type param struct {
	key   string
	value string
}

func NewQuery() *Query {
	return &Query{}
}

// Set adds a scalar parameter
func (q *Query) Set(key, value string) *Query {
	q.params = append(q.params, param{key, value})
	return q
}

// SetInt adds a scalar integer parameter
func (q *Query) SetInt(key string, value int) *Query {
	return q.Set(key, strconv.Itoa(value))
}

// Add appends values to a list parameter
func (q *Query) Add(key string, values ...string) *Query {
	for _, v := range values {
		q.params = append(q.params, param{key + "[]", v})
	}
	return q
}

// Object adds one element of a nested list-of-objects parameter.
// Fields are emitted in the order given; empty values are skipped.
func (q *Query) Object(key string, index int, fields ...Pair) *Query {
	prefix := key + "[" + strconv.Itoa(index) + "]"
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		q.params = append(q.params, param{prefix + "[" + f.Name + "]", f.Value})
	}
	return q
}

// Pair is one member of a nested object parameter
type Pair struct {
	Name  string
	Value string
}

func (q *Query) Empty() bool {
	return len(q.params) == 0
}

// Get returns the first value stored under the exact key
func (q *Query) Get(key string) string {
	for _, p := range q.params {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Values converts the query to url.Values (order is lost)
func (q *Query) Values() url.Values {
	v := url.Values{}
	for _, p := range q.params {
		v.Add(p.key, p.value)
	}
	return v
}

// Encode serializes the query in insertion order. Brackets in keys stay
// literal so nested filters remain readable in logs.
func (q *Query) Encode() string {
	var b strings.Builder
	for i, p := range q.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeKey(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

var bracketRestorer = strings.NewReplacer("%5B", "[", "%5D", "]")

func escapeKey(key string) string {
	return bracketRestorer.Replace(url.QueryEscape(key))
}

// BuildListQuery translates a listing request into API parameters.
// Results are always restricted to items with media. Free text expands into
// OR-joined "contains" filters on title and description, placed before any
// structured property filters so the latter narrow the text match.
func BuildListQuery(lq domain.ListQuery) *Query {
	q := NewQuery()

	perPage := lq.Limit
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	page := lq.Page
	if page <= 0 {
		page = 1
	}
	sortBy := lq.SortBy
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	sortOrder := lq.SortOrder
	if sortOrder != domain.SortAsc && sortOrder != domain.SortDesc {
		sortOrder = DefaultSortOrder
	}

	q.SetInt("per_page", perPage).
		SetInt("page", page).
		Set("sort_by", sortBy).
		Set("sort_order", string(sortOrder)).
		Set("has_media", "1")

	if label := strings.TrimSpace(lq.ResourceClassLabel); label != "" {
		q.Set("resource_class_label", label)
	}
	if lq.ItemSetID > 0 {
		q.SetInt("item_set_id", lq.ItemSetID)
	}

	idx := 0
	if text := strings.TrimSpace(lq.Text); text != "" {
		for _, f := range []domain.Field{domain.FieldTitle, domain.FieldDescription} {
			q.Object("property", idx,
				Pair{"joiner", string(domain.JoinOr)},
				Pair{"property", string(f)},
				Pair{"type", string(domain.FilterContains)},
				Pair{"text", text},
			)
			idx++
		}
	}

	for _, pf := range lq.Properties {
		if pf.Property == "" {
			continue
		}
		joiner := pf.Joiner
		if joiner != domain.JoinOr {
			joiner = domain.JoinAnd
		}
		typ := pf.Type
		if typ == "" {
			typ = domain.FilterContains
		}
		text := pf.Text
		if typ == domain.FilterExists || typ == domain.FilterNotExists {
			text = ""
		} else if strings.TrimSpace(text) == "" {
			continue
		}
		q.Object("property", idx,
			Pair{"joiner", string(joiner)},
			Pair{"property", string(pf.Property)},
			Pair{"type", string(typ)},
			Pair{"text", text},
		)
		idx++
	}

	return q
}
