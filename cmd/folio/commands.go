package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/lang"
	"github.com/mmcdole/folio/internal/service"
	"github.com/mmcdole/folio/internal/tui/styles"
)

var stdout io.Writer = os.Stdout

// list prints one page of the catalog
func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	text := fs.String("q", "", "free-text search over title and description")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", a.cfg.UI.PageSize, "items per page")
	set := fs.Int("set", 0, "only items in this collection")
	wanted := fs.String("lang", a.cfg.Preferences.Language, "display language")
	asJSON := fs.Bool("json", false, "print JSON")
	group := fs.Bool("group", false, "group the page by collection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := a.catalog.List(ctx, domain.ListQuery{
		Page:      max(*page, 1),
		Limit:     *limit,
		SortOrder: domain.SortDesc,
		Text:      strings.TrimSpace(*text),
		ItemSetID: *set,
	})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	if *asJSON {
		metas := make([]service.Meta, len(items))
		for i, item := range items {
			metas[i] = service.Describe(item, *wanted)
		}
		return printJSON(metas)
	}

	if len(items) == 0 {
		fmt.Fprintln(stdout, "No items.")
		return nil
	}
	if !*group {
		fmt.Fprintln(stdout, renderItemTable(items, *wanted))
		return nil
	}

	labels := a.catalog.CollectionLabels(ctx, service.CollectionIDs(items), *wanted)
	for i, g := range service.GroupByCollection(items) {
		heading := "Other items"
		if g.ID != 0 {
			heading = labels[g.ID]
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintln(stdout, styles.TitleStyle.Render(heading))
		fmt.Fprintln(stdout, renderItemTable(g.Items, *wanted))
	}
	return nil
}

func renderItemTable(items []domain.CatalogItem, wanted string) string {
	rows := make([][]string, len(items))
	for i, item := range items {
		m := service.Describe(item, wanted)
		rows[i] = []string{strconv.Itoa(item.ID), styles.Truncate(m.Title, 60), styles.Truncate(m.Creator, 30), m.Date}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.DimStyle).
		Headers("ID", "TITLE", "CREATOR", "DATE").
		Rows(rows...).
		String()
}

// show prints the metadata, collections, cover and document of one item
func (a *app) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	wanted := fs.String("lang", a.cfg.Preferences.Language, "display language")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs.Args())
	if err != nil {
		return err
	}

	item, err := a.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	meta := service.Describe(*item, *wanted)
	labels := a.catalog.CollectionLabels(ctx, service.CollectionIDs([]domain.CatalogItem{*item}), *wanted)
	cover, _ := a.media.ResolveThumbnail(ctx, *item)
	doc, docErr := a.media.ResolvePDF(ctx, *item)
	if docErr != nil && !errors.Is(docErr, domain.ErrDocumentNotFound) {
		return docErr
	}

	var collections []string
	for _, ref := range item.ItemSets {
		if label, ok := labels[ref.ID]; ok {
			collections = append(collections, label)
		}
	}

	if *asJSON {
		return printJSON(struct {
			service.Meta
			Collections []string                 `json:"collections,omitempty"`
			Thumbnail   string                   `json:"thumbnail,omitempty"`
			Document    string                   `json:"document,omitempty"`
			Sources     []service.DocumentSource `json:"sources,omitempty"`
		}{meta, collections, cover, doc, a.media.DocumentSources(doc)})
	}

	fmt.Fprintln(stdout, styles.TitleStyle.Render(meta.Title))
	if meta.AlternativeTitle != "" {
		fmt.Fprintln(stdout, styles.SubtitleStyle.Render(meta.AlternativeTitle))
	}
	fmt.Fprintln(stdout)
	for _, f := range []struct{ label, value string }{
		{"Creator", meta.Creator},
		{"Contributor", meta.Contributor},
		{"Publisher", meta.Publisher},
		{"Date", meta.Date},
		{"Type", meta.Type},
		{"Format", meta.Format},
		{"Extent", meta.Extent},
		{"Language", meta.Language},
		{"Subject", meta.Subject},
		{"Identifier", meta.Identifier},
		{"Rights", meta.Rights},
		{"Collections", strings.Join(collections, ", ")},
		{"Added", meta.Created},
		{"Cover", cover},
		{"Document", doc},
	} {
		if f.value != "" {
			fmt.Fprintf(stdout, "%s %s\n", styles.LabelStyle.Render(f.label), f.value)
		}
	}
	if meta.Description != "" {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, meta.Description)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, styles.DimStyle.Render("Language: "+lang.Label(*wanted)))
	return nil
}

// pdf resolves the document behind a media or item id and optionally opens it
func (a *app) pdf(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdf", flag.ContinueOnError)
	open := fs.Bool("open", false, "open the document in the viewer")
	all := fs.Bool("sources", false, "list every viewer source, not just the direct URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs.Args())
	if err != nil {
		return err
	}

	url, err := a.media.ResolvePDFByID(ctx, id)
	if err != nil {
		return err
	}

	if *all {
		for _, s := range a.media.DocumentSources(url) {
			fmt.Fprintf(stdout, "%-10s %s\n", s.Name, s.URL)
		}
	} else {
		fmt.Fprintln(stdout, url)
	}

	if *open {
		return a.reader.OpenURL(url)
	}
	return nil
}

func idArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
