package service

import (
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/folio/internal/domain"
)

// FilterResult is an item that matched a local filter, with match metadata
// for highlighting
type FilterResult struct {
	Item           domain.CatalogItem
	Title          string // Display title the match was computed on
	MatchedIndexes []int  // Byte positions in the lowercased title
	Score          int    // Title match score, higher is better
	InDescription  bool   // Matched on description only
}

// titleIndex implements sahilm/fuzzy.Source over pre-lowercased titles
type titleIndex struct {
	lowerTitles []string
}

func (idx *titleIndex) String(i int) string { return idx.lowerTitles[i] }

func (idx *titleIndex) Len() int { return len(idx.lowerTitles) }

// FilterItems filters a page of items in memory. Title matches come first,
// ranked by fuzzy score; items matching only on description follow in their
// original order. An empty query keeps every item.
func FilterItems(items []domain.CatalogItem, query, wanted string) []FilterResult {
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = Title(item, wanted)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		results := make([]FilterResult, len(items))
		for i, item := range items {
			results[i] = FilterResult{Item: item, Title: titles[i]}
		}
		return results
	}

	idx := &titleIndex{lowerTitles: make([]string, len(items))}
	for i, t := range titles {
		idx.lowerTitles[i] = strings.ToLower(t)
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), idx)
	matched := make(map[int]bool, len(matches))
	results := make([]FilterResult, 0, len(matches))
	for _, m := range matches {
		matched[m.Index] = true
		results = append(results, FilterResult{
			Item:           items[m.Index],
			Title:          titles[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}

	terms := strings.Fields(query)
	for i, item := range items {
		if matched[i] {
			continue
		}
		if descriptionMatches(Description(item, wanted), terms) {
			results = append(results, FilterResult{Item: item, Title: titles[i], InDescription: true})
		}
	}
	return results
}

// descriptionMatches reports whether every term fuzzily matches some word of
// desc, ignoring case and diacritics
func descriptionMatches(desc string, terms []string) bool {
	if desc == "" || len(terms) == 0 {
		return false
	}
	words := strings.Fields(desc)
	for _, term := range terms {
		if len(lfuzzy.FindNormalizedFold(term, words)) == 0 {
			return false
		}
	}
	return true
}

// CollectionGroup is the items of one item set. ID 0 holds items without a collection.
type CollectionGroup struct {
	ID    int
	Items []domain.CatalogItem
}

// GroupByCollection groups items by item set, in order of first appearance,
// with ungrouped items last. An item in several sets appears in each.
func GroupByCollection(items []domain.CatalogItem) []CollectionGroup {
	var groups []CollectionGroup
	pos := make(map[int]int)
	var ungrouped []domain.CatalogItem

	for _, item := range items {
		seen := make(map[int]bool, len(item.ItemSets))
		for _, ref := range item.ItemSets {
			if ref.ID <= 0 || seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			i, ok := pos[ref.ID]
			if !ok {
				i = len(groups)
				pos[ref.ID] = i
				groups = append(groups, CollectionGroup{ID: ref.ID})
			}
			groups[i].Items = append(groups[i].Items, item)
		}
		if len(seen) == 0 {
			ungrouped = append(ungrouped, item)
		}
	}
	if len(ungrouped) > 0 {
		groups = append(groups, CollectionGroup{ID: 0, Items: ungrouped})
	}
	return groups
}
