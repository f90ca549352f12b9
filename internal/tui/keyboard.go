package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

// handleKeyMsg routes key presses by application state
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.State {
	case StateHelp:
		// Any key returns
		m.State = StateBrowsing
		return m, nil
	case StateSearching:
		return m.handleSearchKey(msg)
	}

	// Filter typing owns the keyboard until accepted or cleared
	if m.List.IsFilterTyping() {
		before := m.List.SelectedItem()
		cmd := m.List.Update(msg)
		cmd = tea.Batch(cmd, m.afterCursorMove(before))
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		return m.handleEscape()

	case key.Matches(msg, Keys.Filter):
		return m, m.List.ToggleFilter()

	case key.Matches(msg, Keys.Search):
		m.State = StateSearching
		m.SearchInput.SetValue(m.Query.Text)
		m.SearchInput.CursorEnd()
		cmd := m.SearchInput.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Language):
		cmd := m.cycleLanguage()
		return m, cmd

	case key.Matches(msg, Keys.Refresh):
		// Covers that were missing may have been added since
		for _, item := range m.List.Items() {
			m.MediaSvc.ForgetThumbnail(item.ID)
		}
		cmd := m.loadPage()
		return m, cmd

	case key.Matches(msg, Keys.NextPage):
		// A short page is the last one
		if m.Loading || m.List.PageLen() < m.Query.Limit {
			return m, nil
		}
		m.Query.Page++
		cmd := m.loadPage()
		return m, cmd

	case key.Matches(msg, Keys.PrevPage):
		if m.Query.Page <= 1 {
			return m, nil
		}
		m.Query.Page--
		cmd := m.loadPage()
		return m, cmd

	case key.Matches(msg, Keys.ToggleInspector):
		m.ShowInspector = !m.ShowInspector
		m.updateLayout()
		if m.ShowInspector {
			m.Inspector.SetDetail(nil)
			cmd := m.selectionChanged()
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, Keys.ScrollDetail):
		m.Inspector.ScrollDown(3)
		return m, nil

	case key.Matches(msg, Keys.ScrollDetailUp):
		m.Inspector.ScrollUp(3)
		return m, nil

	case key.Matches(msg, Keys.Open):
		return m.withSelected(OpenDocumentCmd)

	case key.Matches(msg, Keys.OpenOriginal):
		return m.withSelected(OpenOriginalCmd)

	case key.Matches(msg, Keys.OpenCover):
		return m.withSelected(OpenCoverCmd)
	}

	before := m.List.SelectedItem()
	cmd := m.List.Update(msg)
	cmd = tea.Batch(cmd, m.afterCursorMove(before))
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.State = StateBrowsing
		m.SearchInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.State = StateBrowsing
		m.SearchInput.Blur()
		m.Query.Text = strings.TrimSpace(m.SearchInput.Value())
		m.Query.Page = 1
		if m.List.IsFiltering() {
			m.List.ClearFilter()
		}
		cmd := m.loadPage()
		return m, cmd
	}

	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	return m, cmd
}

// handleEscape peels back one layer: the page filter, then the remote search
func (m Model) handleEscape() (tea.Model, tea.Cmd) {
	switch {
	case m.List.IsFiltering():
		before := m.List.SelectedItem()
		m.List.ClearFilter()
		cmd := m.afterCursorMove(before)
		return m, cmd
	case m.Query.Text != "":
		m.Query.Text = ""
		m.Query.Page = 1
		cmd := m.loadPage()
		return m, cmd
	}
	return m, nil
}

// withSelected runs an action command against the selected item
func (m Model) withSelected(action func(*service.ReaderService, domain.CatalogItem, string) tea.Cmd) (tea.Model, tea.Cmd) {
	item := m.List.SelectedItem()
	if item == nil {
		return m, nil
	}
	m.StatusMsg = "Opening " + m.selectedTitle() + "..."
	m.StatusIsErr = false
	return m, action(m.ReaderSvc, *item, m.selectedTitle())
}

// afterCursorMove refreshes the inspector when the selection moved
func (m *Model) afterCursorMove(before *domain.CatalogItem) tea.Cmd {
	after := m.List.SelectedItem()
	if before != nil && after != nil && before.ID == after.ID {
		return nil
	}
	if before == nil && after == nil {
		return nil
	}
	return m.selectionChanged()
}
