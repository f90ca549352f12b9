// Package lang selects display strings from multilingual field values.
package lang

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/mmcdole/folio/internal/domain"
)

// Fallback is the language used when the wanted one is absent
const Fallback = "en"

// groups maps a requested language to the variants that also satisfy it, in preference order
var groups = map[string][]string{
	"zh":  {"zh-hans", "zh-cn", "zh-hant", "zh-tw", "zh-hk"},
	"fil": {"tl"},
	"tl":  {"fil"},
	"en":  {"en-us", "en-gb"},
}

// Normalize canonicalizes a language tag to lower-case BCP 47 form without
// replacing legacy codes, so "tl" and "iw" stay as written.
// Unparseable tags are lower-cased and trimmed so they still compare exactly.
func Normalize(tag string) string {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return ""
	}
	t, err := language.Raw.Parse(tag)
	if err != nil {
		return strings.ToLower(tag)
	}
	return strings.ToLower(t.String())
}

// Candidates returns the normalized tags that satisfy wanted, most preferred first.
// A regional request ("th-TH") also accepts its base language ("th").
func Candidates(wanted string) []string {
	w := Normalize(wanted)
	if w == "" {
		return nil
	}

	out := []string{w}
	seen := map[string]bool{w: true}
	add := func(tags ...string) {
		for _, t := range tags {
			t = Normalize(t)
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}

	add(groups[w]...)
	if base := baseOf(w); base != w {
		add(base)
		add(groups[base]...)
	}
	return out
}

func baseOf(tag string) string {
	t, err := language.Raw.Parse(tag)
	if err != nil {
		if i := strings.IndexByte(tag, '-'); i > 0 {
			return tag[:i]
		}
		return tag
	}
	b, _ := t.Base()
	return b.String()
}

// Pick returns the text best matching wanted: an exact tag match, then a member
// of wanted's language group, then any value of the same base language, then
// English, then the first value. Empty input yields "".
func Pick(values []domain.LocalizedValue, wanted string) string {
	if len(values) == 0 {
		return ""
	}
	if i := best(values, wanted); i >= 0 {
		return values[i].Text
	}
	if i := best(values, Fallback); i >= 0 {
		return values[i].Text
	}
	return values[0].Text
}

// best returns the index of the value best matching wanted, or -1
func best(values []domain.LocalizedValue, wanted string) int {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" {
		return -1
	}

	for i, v := range values {
		if v.Language != "" && strings.EqualFold(strings.TrimSpace(v.Language), wanted) {
			return i
		}
	}

	for _, c := range Candidates(wanted) {
		for i, v := range values {
			if v.Language != "" && Normalize(v.Language) == c {
				return i
			}
		}
	}

	// "zh" accepts "zh-Hans-CN" and any other form the table does not list
	base := baseOf(Normalize(wanted))
	for i, v := range values {
		if v.Language != "" && baseOf(Normalize(v.Language)) == base {
			return i
		}
	}
	return -1
}

// PickAll returns every value in the best matching language, joined by sep.
// Multi-valued fields such as subjects use it.
func PickAll(values []domain.LocalizedValue, wanted, sep string) string {
	if len(values) == 0 {
		return ""
	}
	i := best(values, wanted)
	if i < 0 {
		i = best(values, Fallback)
	}
	chosen := ""
	if i >= 0 {
		chosen = Normalize(values[i].Language)
	}

	var parts []string
	for _, v := range values {
		if chosen == "" || Normalize(v.Language) == chosen || v.Language == "" {
			if v.Text != "" {
				parts = append(parts, v.Text)
			}
		}
	}
	return strings.Join(parts, sep)
}
