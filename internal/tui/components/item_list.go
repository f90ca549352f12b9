package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
	"github.com/mmcdole/folio/internal/tui/styles"
)

// Layout constants shared by bordered panels
const (
	BorderHeight         = 2
	ScrollIndicatorLines = 2
)

// ItemList is the scrollable list of catalog items on the current page,
// with an optional in-page fuzzy filter
type ItemList struct {
	items    []domain.CatalogItem
	results  []service.FilterResult
	language string

	documents map[int]bool // Items known to carry a PDF

	title      string
	cursor     int
	offset     int
	maxVisible int
	width      int
	height     int
	focused    bool
	loading    bool

	filterActive bool
	filterInput  textinput.Model
}

// NewItemList creates an empty item list
func NewItemList() *ItemList {
	ti := textinput.New()
	ti.Placeholder = "filter this page..."
	ti.CharLimit = 100
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.Paper)
	ti.PlaceholderStyle = styles.DimStyle

	return &ItemList{
		documents:   make(map[int]bool),
		focused:     true,
		filterInput: ti,
	}
}

// SetItems replaces the list contents and resets the selection
func (l *ItemList) SetItems(items []domain.CatalogItem, language string) {
	l.items = items
	l.language = language
	l.documents = make(map[int]bool)
	l.cursor = 0
	l.offset = 0
	l.applyFilter()
}

// SetLanguage recomputes display titles, keeping the selected item selected
func (l *ItemList) SetLanguage(language string) {
	selected := l.SelectedItem()
	l.language = language
	l.applyFilter()
	if selected != nil {
		l.selectID(selected.ID)
	}
}

// SetDocument records whether an item has a PDF
func (l *ItemList) SetDocument(itemID int, has bool) {
	l.documents[itemID] = has
}

// SetTitle sets the heading line
func (l *ItemList) SetTitle(title string) {
	l.title = title
}

// SetFocused sets whether the list has keyboard focus
func (l *ItemList) SetFocused(focused bool) {
	l.focused = focused
}

// SetLoading marks the list as waiting for a page
func (l *ItemList) SetLoading(loading bool) {
	l.loading = loading
}

// IsLoading reports whether a page is being fetched
func (l *ItemList) IsLoading() bool {
	return l.loading
}

func (l *ItemList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// Len is the number of rows currently shown
func (l *ItemList) Len() int {
	return len(l.results)
}

// PageLen is the number of items on the page, ignoring the filter
func (l *ItemList) PageLen() int {
	return len(l.items)
}

// Items returns the unfiltered page
func (l *ItemList) Items() []domain.CatalogItem {
	return l.items
}

// Selected returns the highlighted row, or nil when the list is empty
func (l *ItemList) Selected() *service.FilterResult {
	if l.cursor < 0 || l.cursor >= len(l.results) {
		return nil
	}
	return &l.results[l.cursor]
}

// SelectedItem returns the highlighted item, or nil
func (l *ItemList) SelectedItem() *domain.CatalogItem {
	if r := l.Selected(); r != nil {
		return &r.Item
	}
	return nil
}

// SelectedIndex returns the cursor position
func (l *ItemList) SelectedIndex() int {
	return l.cursor
}

// ToggleFilter activates the filter input
func (l *ItemList) ToggleFilter() tea.Cmd {
	l.filterActive = true
	l.recalcMaxVisible()
	return l.filterInput.Focus()
}

// IsFiltering returns true if filter mode is active
func (l *ItemList) IsFiltering() bool {
	return l.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (l *ItemList) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all items
func (l *ItemList) ClearFilter() {
	selected := l.SelectedItem()
	l.filterActive = false
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.applyFilter()
	l.recalcMaxVisible()
	if selected != nil {
		l.selectID(selected.ID)
	}
}

// FilterQuery returns the current filter text
func (l *ItemList) FilterQuery() string {
	return l.filterInput.Value()
}

// Update handles navigation and filter typing
func (l *ItemList) Update(msg tea.Msg) tea.Cmd {
	if !l.focused {
		return nil
	}

	if l.IsFilterTyping() {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc":
				l.ClearFilter()
				return nil
			case "enter":
				// Keep the filter, return to navigation
				l.filterInput.Blur()
				return nil
			case "backspace":
				if l.filterInput.Value() == "" {
					l.ClearFilter()
					return nil
				}
			}
		}

		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		l.cursor = 0
		l.offset = 0
		return cmd
	}

	count := l.Len()
	if count == 0 {
		return nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j", "down":
			if l.cursor < count-1 {
				l.cursor++
				l.ensureVisible()
			}
		case "k", "up":
			if l.cursor > 0 {
				l.cursor--
				l.ensureVisible()
			}
		case "g", "home":
			l.cursor = 0
			l.offset = 0
		case "G", "end":
			l.cursor = count - 1
			l.ensureVisible()
		case "ctrl+d", "pgdown":
			l.cursor = min(l.cursor+max(l.maxVisible/2, 1), count-1)
			l.ensureVisible()
		case "ctrl+u", "pgup":
			l.cursor = max(l.cursor-max(l.maxVisible/2, 1), 0)
			l.ensureVisible()
		}
	}
	return nil
}

func (l *ItemList) View() string {
	style := styles.InactiveBorder
	if l.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(max(l.width-frameW, 0)).
		Height(max(l.height-frameH, 0)).
		Render(l.renderContent(l.width - frameW))
}

func (l *ItemList) renderContent(width int) string {
	var lines []string
	lines = append(lines, styles.AccentStyle.Render(styles.Truncate(l.title, width)))

	if l.filterActive {
		lines = append(lines, l.filterInput.View())
	}

	switch {
	case l.loading && len(l.items) == 0:
		lines = append(lines, "", styles.DimStyle.Render("Loading..."))
		return strings.Join(lines, "\n")
	case len(l.items) == 0:
		lines = append(lines, "", styles.DimStyle.Render("No items"))
		return strings.Join(lines, "\n")
	case len(l.results) == 0:
		lines = append(lines, "", styles.DimStyle.Render("No matches"))
		return strings.Join(lines, "\n")
	}

	up := " "
	if l.offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	lines = append(lines, up)

	end := min(l.offset+l.maxVisible, len(l.results))
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderRow(l.results[i], i == l.cursor, width))
	}

	down := " "
	if end < len(l.results) {
		down = styles.DimStyle.Render(fmt.Sprintf("↓ %d more", len(l.results)-end))
	}
	lines = append(lines, down)

	return strings.Join(lines, "\n")
}

func (l *ItemList) renderRow(r service.FilterResult, selected bool, width int) string {
	marker := styles.UnknownChar
	if l.documents[r.Item.ID] {
		marker = styles.DocumentChar
	}

	id := fmt.Sprintf(" #%d", r.Item.ID)
	suffix := ""
	if r.InDescription {
		suffix = " ~"
	}
	titleWidth := width - 2 - lipgloss.Width(marker) - 1 - lipgloss.Width(id) - lipgloss.Width(suffix)

	title := r.Title
	if title == "" {
		title = fmt.Sprintf("Item %d", r.Item.ID)
	}

	dim := styles.DimGray
	accent := styles.Saffron
	parts := []styles.RowPart{{Text: marker + " ", Foreground: &accent}}
	if lipgloss.Width(title) > titleWidth {
		parts = append(parts, styles.RowPart{Text: styles.Truncate(title, titleWidth)})
	} else {
		parts = append(parts, styles.HighlightParts(title, r.MatchedIndexes)...)
	}
	parts = append(parts, styles.RowPart{Text: id + suffix, Foreground: &dim})

	return styles.RenderListRow(parts, selected, width)
}

func (l *ItemList) recalcMaxVisible() {
	// Interior minus title line and the two scroll indicators
	l.maxVisible = l.height - BorderHeight - ScrollIndicatorLines - 1
	if l.filterActive {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *ItemList) ensureVisible() {
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
}

func (l *ItemList) applyFilter() {
	l.results = service.FilterItems(l.items, l.filterInput.Value(), l.language)
	if l.cursor >= len(l.results) {
		l.cursor = max(len(l.results)-1, 0)
	}
	l.ensureVisible()
}

func (l *ItemList) selectID(id int) {
	for i, r := range l.results {
		if r.Item.ID == id {
			l.cursor = i
			l.ensureVisible()
			return
		}
	}
}
