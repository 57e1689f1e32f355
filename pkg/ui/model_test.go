package ui

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/adminlog/pkg/clock"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/preload"
	"github.com/go-go-golems/adminlog/pkg/transport/memory"
	"github.com/go-go-golems/adminlog/pkg/widget"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

func events(n int64) []*eventlog.Item {
	var items []*eventlog.Item
	for id := int64(1); id <= n; id++ {
		items = append(items, &eventlog.Item{
			ID:      id,
			Date:    start.Add(time.Duration(id) * time.Minute),
			ActorID: 7,
			Actor:   "Bob",
			Payload: &eventlog.Text{Body: fmt.Sprintf("event %d", id)},
		})
	}
	return items
}

func newModel(t *testing.T, n int64) (*Model, *fakeClipboard) {
	t.Helper()
	return newModelFrom(t, events(n))
}

func newModelFrom(t *testing.T, items []*eventlog.Item) (*Model, *fakeClipboard) {
	t.Helper()
	src, err := memory.New(items)
	require.NoError(t, err)

	w := widget.New(src, widget.Config{
		Preload: preload.Config{FirstPageSize: 20, PageSize: 20, PreloadScreens: 1},
	}, widget.WithClock(clock.NewFake(start)))
	t.Cleanup(w.Close)

	cb := &fakeClipboard{}
	m := New(w, WithClipboard(cb))
	drain(m, sendMsg(m, tea.WindowSizeMsg{Width: 40, Height: 11}))
	return m, cb
}

func sendMsg(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain feeds every message produced by cmd back into the model.
func drain(m *Model, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, clock.Fired, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			queue = append(queue, sendMsg(m, msg))
		}
	}
}

func TestModel_FirstPaint(t *testing.T) {
	m, _ := newModel(t, 100)
	require.Equal(t, 20, m.w.Store().Len())
	require.Equal(t, 10, m.offset)

	view := m.View()
	require.Contains(t, view, "11:40")
	require.Contains(t, view, "Bob: event 100")
	require.NotContains(t, view, "Bob: event 81\n")
	require.Contains(t, view, "20 loaded")
	require.Contains(t, view, "all events")
}

func TestModel_EmptySource(t *testing.T) {
	m, _ := newModel(t, 0)
	require.Contains(t, m.View(), "No events")
}

func TestModel_CopySelectAll(t *testing.T) {
	m, cb := newModel(t, 100)

	drain(m, sendMsg(m, runes("y")))
	require.Empty(t, cb.text)
	require.Equal(t, "nothing selected", m.status)

	drain(m, sendMsg(m, tea.KeyMsg{Type: tea.KeyCtrlA}))
	drain(m, sendMsg(m, runes("y")))
	require.Contains(t, cb.text, "Bob: event 81\n")
	require.Contains(t, cb.text, "Bob: event 100")
	require.Contains(t, m.status, "copied")
}

func TestModel_EscapeClearsSelectionThenQuits(t *testing.T) {
	m, _ := newModel(t, 100)
	drain(m, sendMsg(m, tea.KeyMsg{Type: tea.KeyCtrlA}))
	require.True(t, m.w.HasSelection())

	drain(m, sendMsg(m, tea.KeyMsg{Type: tea.KeyEsc}))
	require.False(t, m.w.HasSelection())
	require.False(t, m.Quitting())

	cmd := sendMsg(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, m.Quitting())
	require.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_KindFilterCycles(t *testing.T) {
	m, _ := newModel(t, 100)

	drain(m, sendMsg(m, runes("f")))
	require.Equal(t, []eventlog.Kind{eventlog.KindText}, m.w.Filter().Kinds)
	require.Equal(t, 20, m.w.Store().Len())
	require.Contains(t, m.View(), "kinds: text")

	drain(m, sendMsg(m, runes("f")))
	require.Equal(t, []eventlog.Kind{eventlog.KindPinned}, m.w.Filter().Kinds)
	require.Contains(t, m.View(), "No events matching the filter")

	drain(m, sendMsg(m, runes("F")))
	require.True(t, m.w.Filter().IsEmpty())
	require.Equal(t, 20, m.w.Store().Len())
}

func TestModel_SearchAppliesQuery(t *testing.T) {
	m, _ := newModel(t, 100)

	// The cursor blink command is not drained.
	sendMsg(m, runes("/"))
	require.True(t, m.searching)
	for _, r := range "event 42" {
		sendMsg(m, runes(string(r)))
	}
	drain(m, sendMsg(m, tea.KeyMsg{Type: tea.KeyEnter}))

	require.False(t, m.searching)
	require.Equal(t, "event 42", m.w.Filter().Query)
	require.Equal(t, 1, m.w.Store().Len())
	require.Contains(t, m.View(), `search: "event 42"`)
}

func TestModel_WheelScrolls(t *testing.T) {
	m, _ := newModel(t, 100)
	sendMsg(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	require.Equal(t, 7, m.offset)

	sendMsg(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	sendMsg(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	require.Equal(t, 10, m.offset)
}

func TestModel_ClickActorLinkShowsStatus(t *testing.T) {
	m, _ := newModel(t, 100)
	// Row 9 is the newest item and "Bob" starts at the gutter.
	drain(m, sendMsg(m, tea.MouseMsg{X: widget.Gutter + 1, Y: 9, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}))
	drain(m, sendMsg(m, tea.MouseMsg{X: widget.Gutter + 1, Y: 9, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}))
	require.Equal(t, "link actor:7", m.status)
}

func TestModel_DaySeparatorRow(t *testing.T) {
	items := events(10)
	for _, it := range items[:5] {
		it.Date = it.Date.Add(-24 * time.Hour)
	}
	m, _ := newModelFrom(t, items)
	require.Equal(t, 2, m.offset)

	lines := strings.Split(m.View(), "\n")
	require.Equal(t, "Friday, 1 March", strings.TrimSpace(lines[4]))
	require.Contains(t, lines[3], "Bob: event 5")
	require.Contains(t, lines[5], "Bob: event 6")
}
