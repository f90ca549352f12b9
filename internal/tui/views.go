package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/folio/internal/lang"
	"github.com/mmcdole/folio/internal/tui/styles"
)

func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	layout := m.calculateColumnLayout(m.Width)
	content := m.List.View()
	if layout.inspectorWidth > 0 {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, m.Inspector.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, m.renderFooter())
}

func (m Model) renderFooter() string {
	if m.State == StateSearching {
		return m.SearchInput.View()
	}

	// Left side: spinner + status
	var left string
	switch {
	case m.Loading:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Loading page...")
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.DimStyle.Render(m.StatusMsg)
	}

	// Center: active search and language badges
	center := styles.DimBadgeStyle.Render(lang.Label(m.Language))
	if m.Query.Text != "" {
		center = styles.BadgeStyle.Render(styles.Truncate(m.Query.Text, 24)) + " " + center
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		// Not enough space - just left + right
		left = styles.Truncate(left, max(m.Width-rightWidth-1, 0))
		gap := max(m.Width-lipgloss.Width(left)-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHelp renders the help screen
type helpEntry struct{ key, desc string }

var helpColumn = lipgloss.NewStyle().Width(36)

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"NAVIGATION", []helpEntry{
		{"j/k", "Up/down"},
		{"g/G", "First/last item"},
		{"C-u/C-d", "Scroll half page"},
		{"[ / ]", "Previous/next page"},
	}},
	{"DOCUMENTS", []helpEntry{
		{"Enter", "Open PDF"},
		{"O", "Open original file"},
		{"c", "Open cover"},
		{"i", "Toggle details"},
		{"J/K", "Scroll details"},
	}},
	{"SEARCH", []helpEntry{
		{"s", "Search catalog"},
		{"/", "Filter this page"},
		{"Esc", "Clear filter/search"},
	}},
	{"OTHER", []helpEntry{
		{"L", "Next language"},
		{"r", "Refresh"},
		{"q", "Quit"},
		{"?", "This help"},
	}},
}

func (m Model) renderHelp() string {
	columns := make([]string, 0, 2)
	var column []string
	for i, section := range helpSections {
		column = append(column, styles.ModalTitleStyle.Render(section.title))
		for _, e := range section.entries {
			column = append(column, "  "+
				styles.HelpKeyStyle.Render(styles.Pad(e.key, 10))+" "+
				styles.HelpDescStyle.Render(e.desc))
		}
		column = append(column, "")
		// Two sections per column
		if i%2 == 1 || i == len(helpSections)-1 {
			columns = append(columns, helpColumn.Render(strings.Join(column, "\n")))
			column = nil
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	help := lipgloss.JoinVertical(lipgloss.Left, body, styles.DimStyle.Render("Press any key to return..."))

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}
