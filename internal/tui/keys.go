package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	HalfUp   key.Binding
	HalfDown key.Binding
	Home     key.Binding
	End      key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Actions
	Quit            key.Binding
	Help            key.Binding
	Escape          key.Binding
	Filter          key.Binding
	Search          key.Binding
	Language        key.Binding
	Refresh         key.Binding
	Open            key.Binding
	OpenOriginal    key.Binding
	OpenCover       key.Binding
	ToggleInspector key.Binding
	ScrollDetail    key.Binding
	ScrollDetailUp  key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		HalfUp: key.NewBinding(
			key.WithKeys("ctrl+u", "pgup"),
			key.WithHelp("C-u", "half page up"),
		),
		HalfDown: key.NewBinding(
			key.WithKeys("ctrl+d", "pgdown"),
			key.WithHelp("C-d", "half page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "go to bottom"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "l", "right"),
			key.WithHelp("]", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "h", "left"),
			key.WithHelp("[", "previous page"),
		),

		// Actions
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/clear"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter page"),
		),
		Search: key.NewBinding(
			key.WithKeys("s", "f"),
			key.WithHelp("s", "search catalog"),
		),
		Language: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "next language"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "o"),
			key.WithHelp("enter", "open PDF"),
		),
		OpenOriginal: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "open original file"),
		),
		OpenCover: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "open cover"),
		),
		ToggleInspector: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle details"),
		),
		ScrollDetail: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "scroll details"),
		),
		ScrollDetailUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "scroll details up"),
		),
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
