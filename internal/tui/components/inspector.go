package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/folio/internal/service"
	"github.com/mmcdole/folio/internal/tui/styles"
)

// Detail is everything the inspector knows about the selected item.
// Cover and document arrive asynchronously after the metadata.
type Detail struct {
	ItemID      int
	Meta        service.Meta
	Collections []string

	CoverResolved bool
	Cover         string

	DocumentResolved bool
	Document         string
	DocumentErr      error
	Sources          []service.DocumentSource
}

// inspectorContent holds the three-zone layout content
type inspectorContent struct {
	header string // fixed top
	body   string // scrollable middle
	footer string // fixed bottom
}

// Inspector displays metadata, cover and document links for one item
type Inspector struct {
	detail     *Detail
	width      int
	height     int
	offset     int
	maxVisible int
}

// NewInspector creates an empty inspector
func NewInspector() Inspector {
	return Inspector{}
}

// SetDetail replaces the displayed item and resets scrolling
func (i *Inspector) SetDetail(d *Detail) {
	i.detail = d
	i.offset = 0
}

// Detail returns the displayed item, or nil
func (i *Inspector) Detail() *Detail {
	return i.detail
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
	i.maxVisible = max(height-BorderHeight-ScrollIndicatorLines-2, 1)
}

// ScrollDown moves the body window down by n lines
func (i *Inspector) ScrollDown(n int) {
	i.offset += n
}

// ScrollUp moves the body window up by n lines
func (i *Inspector) ScrollUp(n int) {
	i.offset = max(i.offset-n, 0)
}

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder
	contentWidth := max(i.width-3, 10)
	content := i.render(contentWidth)

	headerLines := splitLines(content.header)
	footerLines := splitLines(content.footer)
	bodyLines := splitLines(content.body)

	available := max(i.maxVisible-len(headerLines)-len(footerLines), 1)
	offset := min(i.offset, max(len(bodyLines)-available, 0))
	end := min(offset+available, len(bodyLines))
	visible := bodyLines[offset:end]

	up := " "
	if offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < len(bodyLines) {
		down = styles.DimStyle.Render("↓ more")
	}

	parts := []string{styles.AccentStyle.Render("Details"), ""}
	parts = append(parts, headerLines...)
	parts = append(parts, up)
	parts = append(parts, visible...)
	for j := len(visible); j < available; j++ {
		parts = append(parts, "")
	}
	parts = append(parts, down)
	parts = append(parts, footerLines...)

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(max(i.width-frameW, 0)).
		Height(max(i.height-frameH, 0)).
		Render(strings.Join(parts, "\n"))
}

func (i Inspector) render(width int) inspectorContent {
	d := i.detail
	if d == nil {
		return inspectorContent{body: styles.DimStyle.Render("No item selected")}
	}
	m := d.Meta

	var header strings.Builder
	title := m.Title
	if title == "" {
		title = fmt.Sprintf("Item %d", d.ItemID)
	}
	header.WriteString(styles.TitleStyle.Width(width).Render(wordWrap(title, width)))
	if m.AlternativeTitle != "" {
		header.WriteString("\n")
		header.WriteString(styles.SubtitleStyle.Render(wordWrap(m.AlternativeTitle, width)))
	}

	var body strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		valueWidth := max(width-lipgloss.Width(styles.LabelStyle.Render(""))-1, 10)
		body.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			styles.LabelStyle.Render(label),
			" "+wordWrap(value, valueWidth)))
		body.WriteString("\n")
	}
	field("Creator", m.Creator)
	field("Contributor", m.Contributor)
	field("Publisher", m.Publisher)
	field("Date", m.Date)
	field("Type", m.Type)
	field("Format", m.Format)
	field("Extent", m.Extent)
	field("Language", m.Language)
	field("Subject", m.Subject)
	field("Identifier", m.Identifier)
	field("Rights", m.Rights)
	field("Collections", strings.Join(d.Collections, ", "))
	field("Added", m.Created)

	if m.Description != "" {
		body.WriteString("\n")
		body.WriteString(styles.SubtitleStyle.Render(wordWrap(m.Description, width-2)))
	}

	return inspectorContent{
		header: header.String(),
		body:   strings.TrimRight(body.String(), "\n"),
		footer: renderAvailability(d, width),
	}
}

func renderAvailability(d *Detail, width int) string {
	var b strings.Builder

	b.WriteString(styles.LabelStyle.Render("Cover"))
	switch {
	case !d.CoverResolved:
		b.WriteString(styles.DimStyle.Render(" resolving..."))
	case d.Cover == "":
		b.WriteString(styles.DimStyle.Render(" none"))
	default:
		b.WriteString(" " + styles.LinkStyle.Render(styles.Truncate(d.Cover, width-15)))
	}
	b.WriteString("\n")

	b.WriteString(styles.LabelStyle.Render("Document"))
	switch {
	case !d.DocumentResolved:
		b.WriteString(styles.DimStyle.Render(" resolving..."))
	case d.DocumentErr != nil:
		b.WriteString(styles.ErrorStyle.Render(" " + styles.Truncate(d.DocumentErr.Error(), width-15)))
	default:
		b.WriteString(" " + styles.SuccessStyle.Render(styles.DocumentChar) + " ")
		b.WriteString(styles.LinkStyle.Render(styles.Truncate(d.Document, width-17)))
		for _, s := range d.Sources[min(1, len(d.Sources)):] {
			b.WriteString("\n")
			b.WriteString(styles.DimStyle.Render(styles.Pad("  via "+s.Name, 14)))
			b.WriteString(" " + styles.DimStyle.Render(styles.Truncate(s.URL, width-15)))
		}
	}
	return b.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// wordWrap wraps text to the specified cell width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for i, word := range strings.Fields(text) {
		wordLen := lipgloss.Width(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}
