// Package ui is the terminal front end of the admin log viewer. It owns the
// viewport over the widget's surface, translates keys and mouse events and
// paints the list with lipgloss.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/selection"
	"github.com/go-go-golems/adminlog/pkg/widget"
	"github.com/rs/zerolog/log"
)

// Clipboard receives copied selections.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

type Option func(*Model)

func WithClipboard(c Clipboard) Option {
	return func(m *Model) { m.clipboard = c }
}

type Model struct {
	w         *widget.Widget
	clipboard Clipboard
	help      help.Model
	search    textinput.Model

	width, height int
	offset        int
	searching     bool
	showHelp      bool
	kindIndex     int
	status        string
	quitting      bool
}

var _ tea.Model = &Model{}

func New(w *widget.Widget, opts ...Option) *Model {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search events"

	m := &Model{
		w:         w,
		clipboard: SystemClipboard{},
		help:      help.New(),
		search:    search,
		kindIndex: -1,
	}
	for _, o := range opts {
		o(m)
	}
	w.OnScrollTo(func(top int) { m.offset = top })
	w.OnCancelled(func() { m.quitting = true })
	w.OnLink(func(l eventlog.Link) { m.status = "link " + l.Target })
	w.OnError(func(err error) {
		log.Error().Err(err).Msg("widget error")
	})
	return m
}

// Quitting reports whether the model asked the program to exit.
func (m *Model) Quitting() bool { return m.quitting }

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) listHeight() int {
	h := m.height - 1
	if m.searching {
		h--
	}
	if m.showHelp {
		h -= lipgloss.Height(m.help.View(keys))
	}
	return max(h, 1)
}

func (m *Model) resize() {
	m.w.ResizeToWidth(m.width, m.listHeight())
}

// sync clamps the viewport and reports it to the widget.
func (m *Model) sync() tea.Cmd {
	if m.width == 0 {
		return nil
	}
	h := m.listHeight()
	m.offset = min(max(m.offset, 0), max(m.w.Height()-h, 0))
	return m.w.SetVisibleRange(m.offset, m.offset+h)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.search.Width = max(msg.Width-2, 1)
		m.resize()
	case tea.KeyMsg:
		if m.searching {
			cmds = append(cmds, m.updateSearch(msg))
		} else {
			cmds = append(cmds, m.handleKey(msg))
		}
	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))
	default:
		cmds = append(cmds, m.w.Update(msg))
	}
	if m.quitting {
		m.w.Close()
		return m, tea.Quit
	}
	cmds = append(cmds, m.sync())
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	page := max(m.listHeight()-1, 1)
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
	case key.Matches(msg, keys.Up):
		m.w.ScrollBy(-1)
	case key.Matches(msg, keys.Down):
		m.w.ScrollBy(1)
	case key.Matches(msg, keys.PageUp):
		m.w.ScrollBy(-page)
	case key.Matches(msg, keys.PageDown):
		m.w.ScrollBy(page)
	case key.Matches(msg, keys.Top):
		m.w.ScrollBy(-m.w.Height())
	case key.Matches(msg, keys.End):
		m.w.ScrollToEnd()
	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.SetValue(m.w.Filter().Query)
		m.resize()
		return m.search.Focus()
	case key.Matches(msg, keys.Kind):
		m.kindIndex = (m.kindIndex+2)%(len(eventlog.Kinds)+1) - 1
		f := m.w.Filter()
		f.Kinds = nil
		if m.kindIndex >= 0 {
			f.Kinds = []eventlog.Kind{eventlog.Kinds[m.kindIndex]}
		}
		return m.w.ApplyFilter(f)
	case key.Matches(msg, keys.Clear):
		m.kindIndex = -1
		return m.w.ApplyFilter(eventlog.Filter{})
	case key.Matches(msg, keys.Copy):
		m.copySelection()
	case key.Matches(msg, keys.SelectAll):
		m.w.SelectAll()
	case key.Matches(msg, keys.Retry):
		m.status = ""
		return m.w.RetryFailed()
	case key.Matches(msg, keys.Cancel):
		m.w.Cancel()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resize()
	}
	return nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.resize()
		f := m.w.Filter()
		f.Query = strings.TrimSpace(m.search.Value())
		return m.w.ApplyFilter(f)
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.resize()
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model) copySelection() {
	t := m.w.SelectedText()
	if t.Empty() {
		m.status = "nothing selected"
		return
	}
	if err := m.clipboard.WriteAll(t.Text); err != nil {
		log.Warn().Err(err).Msg("clipboard write failed")
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("copied %d characters", len([]rune(t.Text)))
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	lh := m.listHeight()
	x, y := msg.X, m.offset+msg.Y
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.w.ScrollBy(-3)
		case tea.MouseButtonWheelDown:
			m.w.ScrollBy(3)
		case tea.MouseButtonLeft:
			if msg.Y >= lh {
				return nil
			}
			return m.w.Press(x, y, selection.Modifiers{Alt: msg.Alt, Ctrl: msg.Ctrl, Shift: msg.Shift})
		}
	case tea.MouseActionMotion:
		if msg.Y >= lh && msg.Button == tea.MouseButtonNone {
			m.w.Leave()
			return nil
		}
		return m.w.Move(x, y)
	case tea.MouseActionRelease:
		return m.w.Release(x, y)
	}
	return nil
}
