package service

import (
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/lang"
)

// listSep joins multi-valued fields such as subjects
const listSep = ", "

// Meta is the display form of an item in one language
type Meta struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	AlternativeTitle string `json:"alternative_title,omitempty"`
	Description      string `json:"description,omitempty"`
	Subject          string `json:"subject,omitempty"`
	Creator          string `json:"creator,omitempty"`
	Contributor      string `json:"contributor,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	Date             string `json:"date,omitempty"`
	Type             string `json:"type,omitempty"`
	Extent           string `json:"extent,omitempty"`
	Rights           string `json:"rights,omitempty"`
	Identifier       string `json:"identifier,omitempty"`
	Format           string `json:"format,omitempty"`
	Language         string `json:"language,omitempty"`
	ResourceClass    string `json:"resource_class,omitempty"`
	Created          string `json:"created,omitempty"`
}

// Describe resolves the display strings of item for the wanted language
func Describe(item domain.CatalogItem, wanted string) Meta {
	pick := func(f domain.Field) string {
		return lang.Pick(item.Values(f), wanted)
	}
	all := func(f domain.Field) string {
		return lang.PickAll(item.Values(f), wanted, listSep)
	}

	m := Meta{
		ID:               item.ID,
		Title:            Title(item, wanted),
		AlternativeTitle: pick(domain.FieldAlternative),
		Description:      Description(item, wanted),
		Subject:          all(domain.FieldSubject),
		Creator:          all(domain.FieldCreator),
		Contributor:      all(domain.FieldContributor),
		Publisher:        pick(domain.FieldPublisher),
		Date:             pick(domain.FieldDate),
		Type:             pick(domain.FieldType),
		Extent:           pick(domain.FieldExtent),
		Rights:           pick(domain.FieldRights),
		Identifier:       pick(domain.FieldIdentifier),
		Format:           pick(domain.FieldFormat),
		Language:         all(domain.FieldLanguage),
		ResourceClass:    item.ResourceClass,
	}
	if !item.Created.IsZero() {
		m.Created = item.Created.Format("2006-01-02")
	}
	return m
}

// Title is the localized dcterms:title, falling back to the repository title
func Title(item domain.CatalogItem, wanted string) string {
	if t := lang.Pick(item.Values(domain.FieldTitle), wanted); t != "" {
		return t
	}
	return item.Title
}

// Description is the localized dcterms:description, falling back to the abstract
func Description(item domain.CatalogItem, wanted string) string {
	if d := lang.Pick(item.Values(domain.FieldDescription), wanted); d != "" {
		return d
	}
	return lang.Pick(item.Values(domain.FieldAbstract), wanted)
}
