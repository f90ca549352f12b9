package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

// Command factories for async operations

const (
	listTimeout   = 60 * time.Second
	detailTimeout = 30 * time.Second
	statusTTL     = 4 * time.Second
	inspectDelay  = 150 * time.Millisecond
)

// LoadItemsCmd loads one page of the catalog
func LoadItemsCmd(svc *service.CatalogService, q domain.ListQuery, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()

		items, err := svc.List(ctx, q)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading items", Seq: seq}
		}
		return ItemsLoadedMsg{Seq: seq, Query: q, Items: items}
	}
}

// LoadCollectionLabelsCmd resolves labels for the collections of a page
func LoadCollectionLabelsCmd(svc *service.CatalogService, items []domain.CatalogItem, language string, seq uint64) tea.Cmd {
	ids := service.CollectionIDs(items)
	if len(ids) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		return CollectionLabelsMsg{
			Seq:      seq,
			Language: language,
			Labels:   svc.CollectionLabels(ctx, ids, language),
		}
	}
}

// ResolveCoverCmd finds the cover of an item
func ResolveCoverCmd(media *service.MediaResolver, item domain.CatalogItem, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		url, ok := media.ResolveThumbnail(ctx, item)
		return CoverResolvedMsg{Seq: seq, ItemID: item.ID, URL: url, Found: ok}
	}
}

// ResolveDocumentCmd finds the PDF of an item and its viewer sources
func ResolveDocumentCmd(media *service.MediaResolver, item domain.CatalogItem, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		url, err := media.ResolvePDF(ctx, item)
		if err != nil {
			return DocumentResolvedMsg{Seq: seq, ItemID: item.ID, Err: err}
		}
		return DocumentResolvedMsg{Seq: seq, ItemID: item.ID, URL: url, Sources: media.DocumentSources(url)}
	}
}

// InspectAfterCmd waits for the selection to settle before resolving media
func InspectAfterCmd(seq uint64) tea.Cmd {
	return tea.Tick(inspectDelay, func(time.Time) tea.Msg {
		return inspectMsg{Seq: seq}
	})
}

// OpenDocumentCmd opens the item's PDF in the external viewer
func OpenDocumentCmd(reader *service.ReaderService, item domain.CatalogItem, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		url, err := reader.OpenDocument(ctx, item)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				return StatusMsg{Message: "No PDF for " + title + " (O opens the original file)", IsError: true}
			}
			return ErrMsg{Err: err, Context: "opening document"}
		}
		return DocumentOpenedMsg{Title: title, URL: url}
	}
}

// OpenOriginalCmd opens the item's first original file whatever its type
func OpenOriginalCmd(reader *service.ReaderService, item domain.CatalogItem, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		url, err := reader.OpenOriginal(ctx, item)
		if err != nil {
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				return StatusMsg{Message: "No files attached to " + title, IsError: true}
			}
			return ErrMsg{Err: err, Context: "opening original"}
		}
		return DocumentOpenedMsg{Title: title, URL: url}
	}
}

// OpenCoverCmd opens the item's cover image
func OpenCoverCmd(reader *service.ReaderService, item domain.CatalogItem, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detailTimeout)
		defer cancel()

		if err := reader.OpenCover(ctx, item); err != nil {
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				return StatusMsg{Message: "No cover for " + title, IsError: true}
			}
			return ErrMsg{Err: err, Context: "opening cover"}
		}
		return StatusMsg{Message: "Opened cover of " + title}
	}
}

// ClearStatusCmd clears the status bar after a delay
func ClearStatusCmd() tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
