package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/lang"
	"github.com/mmcdole/folio/internal/service"
	"github.com/mmcdole/folio/internal/tui/components"
	"github.com/mmcdole/folio/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateSearching
	StateHelp
)

// Layout proportions
const (
	ListColumnPercent = 45
	MinColumnWidth    = 24
	MinSplitWidth     = 80 // Below this the inspector is hidden
	DefaultPageSize   = 24

	// Vertical layout: single footer line
	ChromeHeight = 1
)

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	CatalogSvc *service.CatalogService
	MediaSvc   *service.MediaResolver
	ReaderSvc  *service.ReaderService

	// UI Components
	List        *components.ItemList
	Inspector   components.Inspector
	SearchInput textinput.Model
	Spinner     spinner.Model

	// Data
	Query       domain.ListQuery
	Language    string
	Collections map[int]string // Labels for the current page, in Language

	// Request sequencing; results tagged with an older sequence are stale
	listSeq   uint64
	detailSeq uint64

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg     string
	StatusIsErr   bool
	Loading       bool
	ShowInspector bool
}

// NewModel creates a new application model
func NewModel(
	catalogSvc *service.CatalogService,
	mediaSvc *service.MediaResolver,
	readerSvc *service.ReaderService,
	language string,
	pageSize int,
) Model {
	if language == "" {
		language = lang.Offered[0].Tag
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := domain.ListQuery{Page: 1, Limit: pageSize, SortOrder: domain.SortDesc}

	ti := textinput.New()
	ti.Placeholder = "Search the catalog..."
	ti.CharLimit = 200
	ti.Prompt = "search: "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.Paper)
	ti.PlaceholderStyle = styles.DimStyle

	list := components.NewItemList()
	list.SetLoading(true)

	m := Model{
		State:       StateBrowsing,
		CatalogSvc:  catalogSvc,
		MediaSvc:    mediaSvc,
		ReaderSvc:   readerSvc,
		List:        list,
		Inspector:   components.NewInspector(),
		SearchInput: ti,
		Spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.SpinnerStyle),
		),
		Query:         q,
		Language:      lang.Normalize(language),
		Collections:   make(map[int]string),
		listSeq:       1, // The first page is requested by Init
		Loading:       true,
		ShowInspector: true,
	}
	m.updateTitle()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		LoadItemsCmd(m.CatalogSvc, m.Query, m.listSeq),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case ItemsLoadedMsg:
		if msg.Seq != m.listSeq {
			return m, nil
		}
		m.Loading = false
		m.List.SetLoading(false)
		m.List.SetItems(msg.Items, m.Language)
		m.Collections = make(map[int]string)
		m.Inspector.SetDetail(nil)
		m.updateTitle()
		cmd := tea.Batch(
			LoadCollectionLabelsCmd(m.CatalogSvc, msg.Items, m.Language, m.listSeq),
			m.selectionChanged(),
		)
		return m, cmd

	case CollectionLabelsMsg:
		if msg.Seq != m.listSeq || msg.Language != m.Language {
			return m, nil
		}
		m.Collections = msg.Labels
		m.refreshDetailMeta()
		return m, nil

	case inspectMsg:
		if msg.Seq != m.detailSeq {
			return m, nil
		}
		item := m.List.SelectedItem()
		if item == nil || !m.ShowInspector {
			return m, nil
		}
		return m, tea.Batch(
			ResolveCoverCmd(m.MediaSvc, *item, msg.Seq),
			ResolveDocumentCmd(m.MediaSvc, *item, msg.Seq),
		)

	case CoverResolvedMsg:
		d := m.Inspector.Detail()
		if msg.Seq != m.detailSeq || d == nil || d.ItemID != msg.ItemID {
			return m, nil
		}
		d.CoverResolved = true
		d.Cover = msg.URL
		return m, nil

	case DocumentResolvedMsg:
		m.List.SetDocument(msg.ItemID, msg.Err == nil)
		d := m.Inspector.Detail()
		if msg.Seq != m.detailSeq || d == nil || d.ItemID != msg.ItemID {
			return m, nil
		}
		d.DocumentResolved = true
		d.Document = msg.URL
		d.DocumentErr = msg.Err
		d.Sources = msg.Sources
		return m, nil

	case DocumentOpenedMsg:
		return m.setStatus("Opened "+msg.Title, false)

	case StatusMsg:
		return m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		if msg.Seq != 0 {
			if msg.Seq != m.listSeq {
				return m, nil
			}
			m.Loading = false
			m.List.SetLoading(false)
		}
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, nil
	}

	return m, nil
}

// loadPage starts fetching the current query, superseding any page in flight
func (m *Model) loadPage() tea.Cmd {
	m.listSeq++
	m.Loading = true
	m.List.SetLoading(true)
	m.updateTitle()
	return LoadItemsCmd(m.CatalogSvc, m.Query, m.listSeq)
}

// selectionChanged resets the inspector to the selected item and schedules
// media resolution once the cursor settles
func (m *Model) selectionChanged() tea.Cmd {
	item := m.List.SelectedItem()
	if d := m.Inspector.Detail(); d != nil && item != nil && d.ItemID == item.ID {
		return nil
	}
	m.detailSeq++
	if item == nil {
		m.Inspector.SetDetail(nil)
		return nil
	}
	m.Inspector.SetDetail(&components.Detail{
		ItemID:      item.ID,
		Meta:        service.Describe(*item, m.Language),
		Collections: m.collectionLabels(*item),
	})
	if !m.ShowInspector {
		return nil
	}
	return InspectAfterCmd(m.detailSeq)
}

// refreshDetailMeta re-renders the inspected item's text in the current language
func (m *Model) refreshDetailMeta() {
	d := m.Inspector.Detail()
	item := m.List.SelectedItem()
	if d == nil || item == nil || d.ItemID != item.ID {
		return
	}
	d.Meta = service.Describe(*item, m.Language)
	d.Collections = m.collectionLabels(*item)
}

func (m *Model) collectionLabels(item domain.CatalogItem) []string {
	var out []string
	for _, ref := range item.ItemSets {
		if ref.ID <= 0 {
			continue
		}
		if label, ok := m.Collections[ref.ID]; ok {
			out = append(out, label)
		}
	}
	return out
}

// cycleLanguage switches to the next offered language. Titles are re-picked
// locally; collection labels are fetched again.
func (m *Model) cycleLanguage() tea.Cmd {
	m.Language = lang.Next(m.Language)
	m.List.SetLanguage(m.Language)
	m.refreshDetailMeta()
	m.updateTitle()
	m.StatusMsg = "Language: " + lang.Label(m.Language)
	m.StatusIsErr = false
	return tea.Batch(
		LoadCollectionLabelsCmd(m.CatalogSvc, m.List.Items(), m.Language, m.listSeq),
		ClearStatusCmd(),
	)
}

func (m *Model) updateTitle() {
	title := fmt.Sprintf("Catalog · page %d", m.Query.Page)
	if m.Query.Text != "" {
		title = fmt.Sprintf("Search %q · page %d", m.Query.Text, m.Query.Page)
	}
	m.List.SetTitle(title)
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return m, ClearStatusCmd()
}

// selectedTitle is the display title of the selected item
func (m Model) selectedTitle() string {
	if r := m.List.Selected(); r != nil && r.Title != "" {
		return r.Title
	}
	if item := m.List.SelectedItem(); item != nil {
		return fmt.Sprintf("item %d", item.ID)
	}
	return ""
}
