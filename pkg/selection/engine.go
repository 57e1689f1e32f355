// Package selection turns pointer input over the item list into drag
// scrolling, link clicks, text selection and hover tooltips.
//
// The engine knows nothing about painting. It talks to the list through
// Geometry, which maps cells to items and offsets, and to the text layout
// through TextLayout, which snaps offsets to word and paragraph bounds.
package selection

import (
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/clock"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/textlayout"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Mode int

const (
	ModeNone Mode = iota
	ModePreparingDrag
	ModeDragging
	ModeSelecting
)

func (m Mode) String() string {
	switch m {
	case ModePreparingDrag:
		return "preparing-drag"
	case ModeDragging:
		return "dragging"
	case ModeSelecting:
		return "selecting"
	default:
		return "none"
	}
}

// Point is a hit test result in list coordinates.
type Point struct {
	ItemID int64
	Offset int
	State  textlayout.CursorState
	Link   eventlog.Link
	// Inside is false when the point was clamped to the first or last item.
	Inside bool
}

// Geometry is the view of the list the engine needs.
type Geometry interface {
	// HitTest maps a cell to an item and offset. It reports false only when
	// the list is empty.
	HitTest(x, y int) (Point, bool)
	// Index returns the position of id in the list or -1.
	Index(id int64) int
	IDAt(index int) (int64, bool)
	Text(id int64) (eventlog.PreparedText, bool)
	Date(id int64) (time.Time, bool)
}

type TextLayout interface {
	WordAt(text string, offset int) (from, to int)
	SnapStart(text string, from int, st textlayout.SelectType) int
	SnapEnd(text string, to int, st textlayout.SelectType, empty bool) int
	Selected(p eventlog.PreparedText, from, to int) eventlog.TextWithEntities
}

type Config struct {
	DragThreshold      int
	MultiClickInterval time.Duration
	MultiClickDistance int
	TooltipDelay       time.Duration
}

func (c Config) withDefaults() Config {
	if c.DragThreshold <= 0 {
		c.DragThreshold = 1
	}
	if c.MultiClickInterval <= 0 {
		c.MultiClickInterval = 400 * time.Millisecond
	}
	if c.MultiClickDistance <= 0 {
		c.MultiClickDistance = 1
	}
	if c.TooltipDelay <= 0 {
		c.TooltipDelay = time.Second
	}
	return c
}

type Modifiers struct {
	Alt   bool
	Ctrl  bool
	Shift bool
}

// Pos is a rune offset within an item.
type Pos struct {
	ItemID int64
	Offset int
}

// Range is a normalized, snapped selection. End is exclusive.
type Range struct {
	Start      Pos
	End        Pos
	StartIndex int
	EndIndex   int
}

type Tooltip struct {
	Text string
	X, Y int
}

// Effect is what the owner has to do after an input event.
type Effect struct {
	Repaint bool
	// ScrollBy is the number of rows the viewport moves while dragging.
	ScrollBy int
	// Activate is the link clicked, if any.
	Activate *eventlog.Link
	Cmd      tea.Cmd
}

type Engine struct {
	geo    Geometry
	text   TextLayout
	clock  clock.Clock
	cfg    Config
	logger zerolog.Logger

	mode    Mode
	selType textlayout.SelectType
	anchor  Pos
	active  Pos
	has     bool

	pressX, pressY int
	press          Point
	pressOK        bool
	dragY          int

	clicks       int
	lastAt       time.Time
	lastX, lastY int
	triple       *clock.Timer

	hover          *clock.Timer
	hoverX, hoverY int
	tooltip        *Tooltip
}

func New(geo Geometry, text TextLayout, clk clock.Clock, cfg Config) *Engine {
	id := uuid.NewString()[:8]
	return &Engine{
		geo:    geo,
		text:   text,
		clock:  clk,
		cfg:    cfg.withDefaults(),
		logger: log.With().Str("component", "selection").Str("engine", id).Logger(),
		triple: clock.NewTimer("selection/" + id + "/triple"),
		hover:  clock.NewTimer("selection/" + id + "/tooltip"),
	}
}

func (e *Engine) Mode() Mode { return e.mode }

func (e *Engine) SelectType() textlayout.SelectType { return e.selType }

// Tooltip returns the visible tooltip, or nil.
func (e *Engine) Tooltip() *Tooltip { return e.tooltip }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (e *Engine) beyond(x0, y0, x1, y1, d int) bool {
	return abs(x1-x0) > d || abs(y1-y0) > d
}

func (e *Engine) compare(a Pos, ia int, b Pos, ib int) int {
	if ia != ib {
		return ia - ib
	}
	return a.Offset - b.Offset
}

// Range returns the current selection. An empty or vanished selection
// reports false.
func (e *Engine) Range() (Range, bool) {
	if !e.has {
		return Range{}, false
	}
	a, b := e.anchor, e.active
	ia, ib := e.geo.Index(a.ItemID), e.geo.Index(b.ItemID)
	if ia < 0 || ib < 0 {
		return Range{}, false
	}
	if e.compare(b, ib, a, ia) < 0 {
		a, b, ia, ib = b, a, ib, ia
	}
	empty := ia == ib && a.Offset == b.Offset
	if e.selType != textlayout.SelectLetters {
		if t, ok := e.geo.Text(a.ItemID); ok {
			a.Offset = e.text.SnapStart(t.Text, a.Offset, e.selType)
		}
		if t, ok := e.geo.Text(b.ItemID); ok {
			b.Offset = e.text.SnapEnd(t.Text, b.Offset, e.selType, empty)
		}
	}
	if ia == ib && a.Offset >= b.Offset {
		return Range{}, false
	}
	return Range{Start: a, End: b, StartIndex: ia, EndIndex: ib}, true
}

func (e *Engine) HasSelection() bool {
	_, ok := e.Range()
	return ok
}

// Span returns the selected part of item id for painting.
func (e *Engine) Span(id int64) (from, to int, ok bool) {
	r, ok := e.Range()
	if !ok {
		return 0, 0, false
	}
	i := e.geo.Index(id)
	if i < r.StartIndex || i > r.EndIndex {
		return 0, 0, false
	}
	t, ok := e.geo.Text(id)
	if !ok {
		return 0, 0, false
	}
	from, to = 0, t.RuneLen()
	if i == r.StartIndex {
		from = r.Start.Offset
	}
	if i == r.EndIndex {
		to = r.End.Offset
	}
	return from, to, from < to
}

func (e *Engine) inside(p Point) bool {
	r, ok := e.Range()
	if !ok {
		return false
	}
	i := e.geo.Index(p.ItemID)
	pos := Pos{ItemID: p.ItemID, Offset: p.Offset}
	return e.compare(pos, i, r.Start, r.StartIndex) >= 0 && e.compare(pos, i, r.End, r.EndIndex) < 0
}

// SelectedText exports the selection across items. Items are joined by a
// newline and link offsets are relative to the exported text.
func (e *Engine) SelectedText() eventlog.TextWithEntities {
	r, ok := e.Range()
	if !ok {
		return eventlog.TextWithEntities{}
	}
	var sb strings.Builder
	var ret eventlog.TextWithEntities
	offset := 0
	for i := r.StartIndex; i <= r.EndIndex; i++ {
		id, ok := e.geo.IDAt(i)
		if !ok {
			break
		}
		t, ok := e.geo.Text(id)
		if !ok {
			continue
		}
		from, to := 0, t.RuneLen()
		if i == r.StartIndex {
			from = r.Start.Offset
		}
		if i == r.EndIndex {
			to = r.End.Offset
		}
		if i > r.StartIndex {
			sb.WriteByte('\n')
			offset++
		}
		part := e.text.Selected(t, from, to)
		for _, l := range part.Entities {
			l.Offset += offset
			ret.Entities = append(ret.Entities, l)
		}
		sb.WriteString(part.Text)
		offset += utf8.RuneCountInString(part.Text)
	}
	ret.Text = sb.String()
	return ret
}

// Clear drops the selection and any gesture in progress.
func (e *Engine) Clear() bool {
	had := e.HasSelection()
	e.has = false
	e.mode = ModeNone
	e.selType = textlayout.SelectLetters
	e.triple.Cancel()
	return had
}

// SelectAll selects from the start of the first item to the end of the last.
func (e *Engine) SelectAll(count int) bool {
	if count == 0 {
		return false
	}
	first, _ := e.geo.IDAt(0)
	last, _ := e.geo.IDAt(count - 1)
	t, _ := e.geo.Text(last)
	e.anchor = Pos{ItemID: first}
	e.active = Pos{ItemID: last, Offset: t.RuneLen()}
	e.selType = textlayout.SelectLetters
	e.has = true
	return e.HasSelection()
}

func (e *Engine) hideTooltip() bool {
	e.hover.Cancel()
	if e.tooltip == nil {
		return false
	}
	e.tooltip = nil
	return true
}

// Press handles a button press at cell x, y.
func (e *Engine) Press(x, y int, mods Modifiers) Effect {
	eff := Effect{Repaint: e.hideTooltip()}
	p, ok := e.geo.HitTest(x, y)
	now := e.clock.Now()

	near := e.clicks > 0 && !e.beyond(e.lastX, e.lastY, x, y, e.cfg.MultiClickDistance)
	triple := near && e.clicks == 2 && e.triple.Armed() && now.Before(e.triple.Deadline())
	double := near && e.clicks == 1 && now.Sub(e.lastAt) <= e.cfg.MultiClickInterval
	e.triple.Cancel()
	e.lastAt, e.lastX, e.lastY = now, x, y
	e.pressX, e.pressY, e.press, e.pressOK = x, y, p, ok
	e.clicks = 1

	if !ok {
		e.mode = ModePreparingDrag
		return eff
	}

	switch {
	case triple:
		t, _ := e.geo.Text(p.ItemID)
		e.anchor = Pos{ItemID: p.ItemID}
		e.active = Pos{ItemID: p.ItemID, Offset: t.RuneLen()}
		e.selType = textlayout.SelectParagraphs
		e.has = true
		e.mode = ModeSelecting
		e.clicks = 3
		e.logger.Debug().Int64("item", p.ItemID).Msg("triple click")
		eff.Repaint = true
		return eff

	case double && p.State != textlayout.CursorNone:
		t, _ := e.geo.Text(p.ItemID)
		from, to := e.text.WordAt(t.Text, p.Offset)
		e.anchor = Pos{ItemID: p.ItemID, Offset: from}
		e.active = Pos{ItemID: p.ItemID, Offset: to}
		e.selType = textlayout.SelectWords
		e.has = true
		e.mode = ModeSelecting
		e.clicks = 2
		eff.Cmd = e.triple.Arm(e.clock, e.cfg.MultiClickInterval)
		eff.Repaint = true
		return eff

	case mods.Shift && e.has && p.State != textlayout.CursorNone:
		e.active = Pos{ItemID: p.ItemID, Offset: p.Offset}
		e.mode = ModeSelecting
		eff.Repaint = true
		return eff

	case p.State == textlayout.CursorText && !mods.Alt && !e.inside(p):
		eff.Repaint = e.HasSelection() || eff.Repaint
		e.anchor = Pos{ItemID: p.ItemID, Offset: p.Offset}
		e.active = e.anchor
		e.selType = textlayout.SelectLetters
		e.has = true
		e.mode = ModeSelecting
		return eff
	}

	e.mode = ModePreparingDrag
	return eff
}

// Move handles pointer motion, with or without a button held.
func (e *Engine) Move(x, y int) Effect {
	var eff Effect
	switch e.mode {
	case ModeNone:
		return e.hoverAt(x, y)

	case ModePreparingDrag:
		if !e.beyond(e.pressX, e.pressY, x, y, e.cfg.DragThreshold) {
			return eff
		}
		e.mode = ModeDragging
		e.dragY = e.pressY
		fallthrough

	case ModeDragging:
		eff.ScrollBy = e.dragY - y
		e.dragY = y

	case ModeSelecting:
		p, ok := e.geo.HitTest(x, y)
		if !ok {
			return eff
		}
		pos := Pos{ItemID: p.ItemID, Offset: p.Offset}
		if pos != e.active {
			e.active = pos
			eff.Repaint = true
		}
	}
	return eff
}

// Release ends the gesture. A press that never moved is a click.
func (e *Engine) Release(x, y int) Effect {
	var eff Effect
	switch e.mode {
	case ModePreparingDrag:
		if e.pressOK && e.press.State == textlayout.CursorLink {
			link := e.press.Link
			eff.Activate = &link
			e.logger.Debug().Str("target", link.Target).Msg("link activated")
		} else if e.HasSelection() {
			e.has = false
			eff.Repaint = true
		}
	case ModeSelecting:
		if !e.HasSelection() {
			e.has = false
		}
	}
	e.mode = ModeNone
	return eff
}

// Leave handles the pointer leaving the list.
func (e *Engine) Leave() Effect {
	return Effect{Repaint: e.hideTooltip()}
}

func (e *Engine) hoverAt(x, y int) Effect {
	var eff Effect
	if e.tooltip != nil {
		if !e.beyond(e.tooltip.X, e.tooltip.Y, x, y, e.cfg.DragThreshold) {
			return eff
		}
		eff.Repaint = e.hideTooltip()
	}
	if e.hover.Armed() && x == e.hoverX && y == e.hoverY {
		return eff
	}
	e.hoverX, e.hoverY = x, y
	eff.Cmd = e.hover.Arm(e.clock, e.cfg.TooltipDelay)
	return eff
}

// Update consumes the engine's timer messages.
func (e *Engine) Update(msg tea.Msg) (Effect, bool) {
	fired, ok := msg.(clock.Fired)
	if !ok {
		return Effect{}, false
	}
	if e.triple.Fire(fired) {
		return Effect{}, true
	}
	if !e.hover.Fire(fired) {
		return Effect{}, false
	}
	if e.mode != ModeNone {
		return Effect{}, true
	}
	p, ok := e.geo.HitTest(e.hoverX, e.hoverY)
	if !ok || !p.Inside {
		return Effect{}, true
	}
	var text string
	if p.State == textlayout.CursorLink {
		text = p.Link.Target
	} else if date, ok := e.geo.Date(p.ItemID); ok {
		text = date.Format("Monday, 2 January 2006 15:04:05")
	}
	if text == "" {
		return Effect{}, true
	}
	e.tooltip = &Tooltip{Text: text, X: e.hoverX, Y: e.hoverY}
	return Effect{Repaint: true}, true
}
