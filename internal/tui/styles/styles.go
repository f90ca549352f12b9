package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Color palette
var (
	Saffron    = lipgloss.Color("#D97706")
	InkDark    = lipgloss.Color("#1C1917")
	InkLight   = lipgloss.Color("#44403C")
	DimGray    = lipgloss.Color("#78716C")
	LightGray  = lipgloss.Color("#A8A29E")
	Paper      = lipgloss.Color("#FAFAF9")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Blue       = lipgloss.Color("#3B82F6")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Saffron)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(Paper).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Saffron)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	LinkStyle = lipgloss.NewStyle().
			Foreground(Blue).
			Underline(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(DimGray).
			Width(14)
)

// Document availability markers
const (
	DocumentChar = "▤"
	UnknownChar  = "·"
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Saffron).
			Padding(1, 2).
			Background(InkDark)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(Paper).
			Bold(true).
			MarginBottom(1)
)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(Saffron)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Badge styles
var (
	BadgeStyle = lipgloss.NewStyle().
			Foreground(Paper).
			Background(Saffron).
			Padding(0, 1)

	DimBadgeStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Background(InkLight).
			Padding(0, 1)
)

// Spinner style
var (
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Saffron)
)

// Filter styles
var (
	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Saffron).
				Bold(true)
)

// Helper functions

// Truncate shortens s to the given cell width with an ellipsis.
// Width is measured in terminal cells so Thai and CJK titles cut cleanly.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width == 1 {
		return ansi.Truncate(s, 1, "")
	}
	return ansi.Truncate(s, width, "…")
}

// Pad pads s with spaces to the given cell width, truncating if needed
func Pad(s string, width int) string {
	s = Truncate(s, width)
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// RenderListRow renders a complete list row with uniform background when selected.
// Each part is styled explicitly to avoid ANSI reset codes breaking the background.
// parts is a slice of {text, fgColor} pairs. Use nil for default foreground.
func RenderListRow(parts []RowPart, selected bool, width int) string {
	bg := InkLight
	defaultFg := LightGray
	selectedFg := Paper

	var result strings.Builder
	visibleLen := 0

	for _, part := range parts {
		style := lipgloss.NewStyle()
		switch {
		case part.Foreground != nil:
			style = style.Foreground(*part.Foreground)
		case selected:
			style = style.Foreground(selectedFg)
		default:
			style = style.Foreground(defaultFg)
		}
		if part.Bold {
			style = style.Bold(true)
		}
		if selected {
			style = style.Background(bg)
		}
		result.WriteString(style.Render(part.Text))
		visibleLen += lipgloss.Width(part.Text)
	}

	// Fill to width, leaving room for the two margins
	if paddingNeeded := width - visibleLen - 2; paddingNeeded > 0 {
		padStyle := lipgloss.NewStyle()
		if selected {
			padStyle = padStyle.Background(bg)
		}
		result.WriteString(padStyle.Render(strings.Repeat(" ", paddingNeeded)))
	}

	marginStyle := lipgloss.NewStyle()
	if selected {
		marginStyle = marginStyle.Background(bg)
	}
	margin := marginStyle.Render(" ")

	return margin + result.String() + margin
}

// RowPart represents a part of a row with optional foreground color
type RowPart struct {
	Text       string
	Foreground *lipgloss.Color
	Bold       bool
}

// HighlightParts splits text into row parts, emphasizing the runes at the
// given byte offsets
func HighlightParts(text string, matched []int) []RowPart {
	if len(matched) == 0 {
		return []RowPart{{Text: text}}
	}
	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}

	accent := Saffron
	var parts []RowPart
	var run strings.Builder
	runHit := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		p := RowPart{Text: run.String()}
		if runHit {
			p.Foreground = &accent
			p.Bold = true
		}
		parts = append(parts, p)
		run.Reset()
	}
	for i, r := range text {
		if hit := set[i]; hit != runHit {
			flush()
			runHit = hit
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}
