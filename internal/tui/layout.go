package tui

import "github.com/charmbracelet/lipgloss"

// columnLayout holds calculated column widths for the View
type columnLayout struct {
	listWidth      int
	inspectorWidth int // 0 if not shown
}

// calculateColumnLayout splits the width between the item list and the inspector
func (m Model) calculateColumnLayout(availableWidth int) columnLayout {
	if !m.ShowInspector || availableWidth < MinSplitWidth {
		return columnLayout{listWidth: availableWidth}
	}
	list := max(availableWidth*ListColumnPercent/100, MinColumnWidth)
	return columnLayout{
		listWidth:      list,
		inspectorWidth: availableWidth - list,
	}
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	contentHeight := m.Height - ChromeHeight
	layout := m.calculateColumnLayout(m.Width)

	m.List.SetSize(layout.listWidth, contentHeight)
	if layout.inspectorWidth > 0 {
		m.Inspector.SetSize(layout.inspectorWidth, contentHeight)
	}
	m.SearchInput.Width = max(m.Width-lipgloss.Width(m.SearchInput.Prompt)-2, 10)
}

