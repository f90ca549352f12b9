package tui

import (
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

// Message types for the TUI.
// Asynchronous results carry the sequence number of the request that
// produced them; results for a superseded request are dropped.

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
	Seq     uint64 // Zero for errors not tied to a list request
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// ItemsLoadedMsg signals that a page of items has been loaded
type ItemsLoadedMsg struct {
	Seq   uint64
	Query domain.ListQuery
	Items []domain.CatalogItem
}

// CollectionLabelsMsg carries display labels for the collections on a page
type CollectionLabelsMsg struct {
	Seq      uint64
	Language string
	Labels   map[int]string
}

// CoverResolvedMsg carries the cover of the inspected item
type CoverResolvedMsg struct {
	Seq    uint64
	ItemID int
	URL    string
	Found  bool
}

// DocumentResolvedMsg carries the PDF of the inspected item
type DocumentResolvedMsg struct {
	Seq     uint64
	ItemID  int
	URL     string
	Sources []service.DocumentSource
	Err     error
}

// inspectMsg fires once the selection has settled
type inspectMsg struct {
	Seq uint64
}

// DocumentOpenedMsg signals that the viewer was launched
type DocumentOpenedMsg struct {
	Title string
	URL   string
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
