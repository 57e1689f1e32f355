package selection

import (
	"testing"
	"time"

	"github.com/go-go-golems/adminlog/pkg/clock"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/textlayout"
	"github.com/stretchr/testify/require"
)

// rows lays out one item per row, one rune per cell.
type rows struct {
	ids   []int64
	texts map[int64]eventlog.PreparedText
	dates map[int64]time.Time
}

func newRows(texts ...eventlog.PreparedText) *rows {
	r := &rows{texts: map[int64]eventlog.PreparedText{}, dates: map[int64]time.Time{}}
	for i, t := range texts {
		id := int64(100 + i)
		r.ids = append(r.ids, id)
		r.texts[id] = t
		r.dates[id] = time.Date(2024, 3, 1+i, 12, 30, 0, 0, time.UTC)
	}
	return r
}

func (r *rows) HitTest(x, y int) (Point, bool) {
	if len(r.ids) == 0 {
		return Point{}, false
	}
	id := r.ids[min(max(y, 0), len(r.ids)-1)]
	t := r.texts[id]
	switch {
	case y < 0:
		return Point{ItemID: id}, true
	case y >= len(r.ids):
		return Point{ItemID: id, Offset: t.RuneLen()}, true
	case x >= t.RuneLen():
		return Point{ItemID: id, Offset: t.RuneLen(), Inside: true}, true
	}
	off := max(x, 0)
	if l, ok := t.LinkAt(off); ok {
		return Point{ItemID: id, Offset: off, State: textlayout.CursorLink, Link: l, Inside: true}, true
	}
	return Point{ItemID: id, Offset: off, State: textlayout.CursorText, Inside: true}, true
}

func (r *rows) Index(id int64) int {
	for i, v := range r.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (r *rows) IDAt(i int) (int64, bool) {
	if i < 0 || i >= len(r.ids) {
		return 0, false
	}
	return r.ids[i], true
}

func (r *rows) Text(id int64) (eventlog.PreparedText, bool) {
	t, ok := r.texts[id]
	return t, ok
}

func (r *rows) Date(id int64) (time.Time, bool) {
	d, ok := r.dates[id]
	return d, ok
}

func plain(s string) eventlog.PreparedText { return eventlog.PreparedText{Text: s} }

func newEngine(r *rows) (*Engine, *clock.Fake) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := New(r, textlayout.NewMonospace(), clk, Config{
		DragThreshold:      1,
		MultiClickInterval: 400 * time.Millisecond,
		MultiClickDistance: 1,
		TooltipDelay:       time.Second,
	})
	return e, clk
}

func advance(e *Engine, clk *clock.Fake, d time.Duration) bool {
	repaint := false
	for _, msg := range clk.Advance(d) {
		eff, _ := e.Update(msg)
		repaint = repaint || eff.Repaint
	}
	return repaint
}

func TestEngine_SelectAcrossItemsIsOrderIndependent(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"), plain("the quick fox"))
	e, clk := newEngine(r)

	e.Press(2, 0, Modifiers{})
	require.Equal(t, ModeSelecting, e.Mode())
	require.True(t, e.Move(3, 1).Repaint)
	e.Release(3, 1)
	require.Equal(t, ModeNone, e.Mode())

	forward, ok := e.Range()
	require.True(t, ok)
	require.Equal(t, Pos{ItemID: 100, Offset: 2}, forward.Start)
	require.Equal(t, Pos{ItemID: 101, Offset: 3}, forward.End)
	require.Equal(t, "llo world\nfoo", e.SelectedText().Text)

	clk.Advance(time.Second)
	e.Press(3, 1, Modifiers{})
	e.Move(2, 0)
	e.Release(2, 0)
	backward, ok := e.Range()
	require.True(t, ok)
	require.Equal(t, forward, backward)
}

func TestEngine_SpanCoversMiddleItems(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"), plain("the quick fox"))
	e, _ := newEngine(r)
	e.Press(6, 0, Modifiers{})
	e.Move(3, 2)
	e.Release(3, 2)

	from, to, ok := e.Span(100)
	require.True(t, ok)
	require.Equal(t, []int{6, 11}, []int{from, to})
	from, to, ok = e.Span(101)
	require.True(t, ok)
	require.Equal(t, []int{0, 11}, []int{from, to})
	from, to, ok = e.Span(102)
	require.True(t, ok)
	require.Equal(t, []int{0, 3}, []int{from, to})
}

func TestEngine_ClickWithoutMovementLeavesNoSelection(t *testing.T) {
	r := newRows(plain("hello world"))
	e, _ := newEngine(r)
	e.Press(2, 0, Modifiers{})
	e.Release(2, 0)
	require.False(t, e.HasSelection())
	require.Empty(t, e.SelectedText().Text)
}

func TestEngine_DoubleThenTripleClick(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"), plain("the quick fox"))
	e, clk := newEngine(r)

	e.Press(5, 2, Modifiers{})
	e.Release(5, 2)
	clk.Advance(100 * time.Millisecond)

	eff := e.Press(5, 2, Modifiers{})
	require.NotNil(t, eff.Cmd)
	e.Release(5, 2)
	require.Equal(t, textlayout.SelectWords, e.SelectType())
	require.Equal(t, "quick", e.SelectedText().Text)
	clk.Advance(100 * time.Millisecond)

	e.Press(6, 2, Modifiers{})
	e.Release(6, 2)
	rg, ok := e.Range()
	require.True(t, ok)
	require.Equal(t, Pos{ItemID: 102}, rg.Start)
	require.Equal(t, Pos{ItemID: 102, Offset: 13}, rg.End)
	require.Equal(t, "the quick fox", e.SelectedText().Text)

	// A fourth press after the window is an ordinary click.
	advance(e, clk, time.Second)
	e.Press(6, 2, Modifiers{})
	require.Equal(t, ModePreparingDrag, e.Mode())
	require.True(t, e.Release(6, 2).Repaint)
	require.False(t, e.HasSelection())
}

func TestEngine_SlowSecondClickIsNotDouble(t *testing.T) {
	r := newRows(plain("hello world"))
	e, clk := newEngine(r)
	e.Press(1, 0, Modifiers{})
	e.Release(1, 0)
	clk.Advance(time.Second)
	e.Press(1, 0, Modifiers{})
	require.Equal(t, textlayout.SelectLetters, e.SelectType())
	e.Release(1, 0)
	require.False(t, e.HasSelection())
}

func TestEngine_WordDragSnapsBothEnds(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"))
	e, clk := newEngine(r)
	e.Press(8, 0, Modifiers{})
	e.Release(8, 0)
	clk.Advance(50 * time.Millisecond)
	e.Press(8, 0, Modifiers{})
	e.Move(5, 1)
	e.Release(5, 1)
	require.Equal(t, "world\nfoo bar", e.SelectedText().Text)
}

func TestEngine_DragScrolls(t *testing.T) {
	r := newRows(plain("hello"), plain("world"), plain("again"))
	e, _ := newEngine(r)

	e.Press(20, 0, Modifiers{})
	require.Equal(t, ModePreparingDrag, e.Mode())
	require.Zero(t, e.Move(20, 1).ScrollBy)
	require.Equal(t, ModePreparingDrag, e.Mode())

	require.Equal(t, -3, e.Move(20, 3).ScrollBy)
	require.Equal(t, ModeDragging, e.Mode())
	require.Equal(t, 1, e.Move(20, 2).ScrollBy)

	eff := e.Release(20, 2)
	require.Nil(t, eff.Activate)
	require.Equal(t, ModeNone, e.Mode())
}

func TestEngine_AltPressDrags(t *testing.T) {
	r := newRows(plain("hello world"))
	e, _ := newEngine(r)
	e.Press(2, 0, Modifiers{Alt: true})
	require.Equal(t, ModePreparingDrag, e.Mode())
}

func TestEngine_ClickActivatesLink(t *testing.T) {
	linked := eventlog.PreparedText{
		Text:  "Ann pinned «hi»",
		Links: []eventlog.Link{{Offset: 0, Length: 3, Target: "actor:7"}},
	}
	r := newRows(linked)
	e, _ := newEngine(r)

	e.Press(1, 0, Modifiers{})
	require.Equal(t, ModePreparingDrag, e.Mode())
	eff := e.Release(1, 0)
	require.NotNil(t, eff.Activate)
	require.Equal(t, "actor:7", eff.Activate.Target)
}

func TestEngine_PressInsideSelectionKeepsItUntilClick(t *testing.T) {
	r := newRows(plain("hello world"))
	e, _ := newEngine(r)
	e.Press(0, 0, Modifiers{})
	e.Move(5, 0)
	e.Release(5, 0)
	require.Equal(t, "hello", e.SelectedText().Text)

	e.Press(2, 0, Modifiers{})
	require.Equal(t, ModePreparingDrag, e.Mode())
	require.True(t, e.HasSelection())
	e.Release(2, 0)
	require.False(t, e.HasSelection())
}

func TestEngine_ShiftPressExtends(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"))
	e, _ := newEngine(r)
	e.Press(0, 0, Modifiers{})
	e.Move(5, 0)
	e.Release(5, 0)

	e.Press(3, 1, Modifiers{Shift: true})
	e.Release(3, 1)
	require.Equal(t, "hello world\nfoo", e.SelectedText().Text)
}

func TestEngine_SelectedTextShiftsLinks(t *testing.T) {
	first := eventlog.PreparedText{Text: "Bob: hi"}
	second := eventlog.PreparedText{
		Text:  "Ann pinned «hi»",
		Links: []eventlog.Link{{Offset: 0, Length: 3, Target: "actor:7"}},
	}
	r := newRows(first, second)
	e, _ := newEngine(r)
	e.Press(5, 0, Modifiers{})
	e.Move(15, 1)
	e.Release(15, 1)

	got := e.SelectedText()
	require.Equal(t, "hi\nAnn pinned «hi»", got.Text)
	require.Equal(t, []eventlog.Link{{Offset: 3, Length: 3, Target: "actor:7"}}, got.Entities)
}

func TestEngine_VanishedItemsDropSelection(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"))
	e, _ := newEngine(r)
	e.Press(0, 0, Modifiers{})
	e.Move(3, 1)
	e.Release(3, 1)
	require.True(t, e.HasSelection())

	r.ids = r.ids[:1]
	require.False(t, e.HasSelection())
}

func TestEngine_Tooltip(t *testing.T) {
	r := newRows(plain("hello world"), plain("foo bar baz"))
	e, clk := newEngine(r)

	eff := e.Move(2, 0)
	require.NotNil(t, eff.Cmd)
	require.Nil(t, e.Tooltip())
	require.False(t, advance(e, clk, 500*time.Millisecond))
	require.True(t, advance(e, clk, 500*time.Millisecond))

	tip := e.Tooltip()
	require.NotNil(t, tip)
	require.Equal(t, "Friday, 1 March 2024 12:30:00", tip.Text)
	require.Equal(t, 2, tip.X)

	e.Move(3, 0)
	require.NotNil(t, e.Tooltip())

	require.True(t, e.Move(10, 3).Repaint)
	require.Nil(t, e.Tooltip())
	advance(e, clk, time.Second)
	require.Nil(t, e.Tooltip(), "clamped points show no tooltip")
}

func TestEngine_PressDismissesTooltip(t *testing.T) {
	r := newRows(plain("hello world"))
	e, clk := newEngine(r)
	e.Move(1, 0)
	advance(e, clk, time.Second)
	require.NotNil(t, e.Tooltip())
	require.True(t, e.Press(1, 0, Modifiers{}).Repaint)
	require.Nil(t, e.Tooltip())
}

func TestEngine_EmptyList(t *testing.T) {
	e, _ := newEngine(newRows())
	e.Press(0, 0, Modifiers{})
	require.Equal(t, ModePreparingDrag, e.Mode())
	eff := e.Release(0, 0)
	require.Nil(t, eff.Activate)
	require.False(t, e.HasSelection())
	require.False(t, e.SelectAll(0))
}
