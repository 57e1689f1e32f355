package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	End       key.Binding
	Search    key.Binding
	Kind      key.Binding
	Clear     key.Binding
	Copy      key.Binding
	SelectAll key.Binding
	Retry     key.Binding
	Cancel    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "scroll up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "scroll down")),
	PageUp:    key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
	PageDown:  key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "page down")),
	Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "oldest loaded")),
	End:       key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "newest")),
	Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Kind:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "cycle kind filter")),
	Clear:     key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "clear filter")),
	Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy selection")),
	SelectAll: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select all")),
	Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection / quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Kind, k.Copy, k.Cancel, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.End},
		{k.Search, k.Kind, k.Clear, k.Retry},
		{k.Copy, k.SelectAll, k.Cancel, k.Help, k.Quit},
	}
}
