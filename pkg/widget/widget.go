// Package widget assembles the admin log list: the loaded window, its
// layout, dependency resolution, preloading, selection and the scroll date
// badge.
//
// A Widget lives on the bubbletea loop. The owner forwards messages to
// Update, reports the viewport with SetVisibleRange and paints with
// Enumerate. The widget asks the owner to move the viewport through the
// scrollTo callback.
package widget

import (
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/clock"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/layout"
	"github.com/go-go-golems/adminlog/pkg/preload"
	"github.com/go-go-golems/adminlog/pkg/resolver"
	"github.com/go-go-golems/adminlog/pkg/scrolldate"
	"github.com/go-go-golems/adminlog/pkg/selection"
	"github.com/go-go-golems/adminlog/pkg/textlayout"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/window"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Gutter is the width of the time column left of each item.
const Gutter = 6

// TextLayout measures, wraps and hit tests described item text.
type TextLayout interface {
	selection.TextLayout
	Lines(text string, width int) []textlayout.Line
	Height(text string, width int) int
	HitTest(p eventlog.PreparedText, width, x, y int) textlayout.Hit
}

type Config struct {
	Preload       preload.Config
	Selection     selection.Config
	ScrollDate    scrolldate.Config
	ItemGap       int
	MaxConcurrent int64
}

type Option func(*Widget)

func WithClock(c clock.Clock) Option {
	return func(w *Widget) { w.clock = c }
}

func WithTextLayout(t TextLayout) Option {
	return func(w *Widget) { w.text = t }
}

// State is a saved widget. It owns the items moved out of the widget.
type State struct {
	Filter    eventlog.Filter
	Contents  window.Contents
	TopItemID int64
	TopOffset int
}

type scrollAnchor struct {
	id     int64
	offset int
	ok     bool
}

// Row is one item prepared for painting. Top is the first row of the body.
// When Separator is set the row above Top holds the day separator.
type Row struct {
	Index     int
	Item      *eventlog.Item
	Top       int
	Separator bool
	Text      eventlog.PreparedText
	Lines []textlayout.Line
	// SelFrom and SelTo are the selected offsets when Selected is set.
	SelFrom  int
	SelTo    int
	Selected bool
}

type Widget struct {
	store      *window.Store
	table      *layout.Table
	text       TextLayout
	clock      clock.Clock
	dispatcher *transport.Dispatcher
	resolver   *resolver.Resolver
	preload    *preload.Controller
	selection  *selection.Engine
	overlay    *scrolldate.Overlay
	logger     zerolog.Logger

	visibleTop    int
	visibleBottom int
	anchor        scrollAnchor
	jumpTo        int64

	scrollTo    func(top int)
	onCancelled func()
	onError     func(error)
	onLink      func(eventlog.Link)

	repaint bool
	err     error
	closed  bool
}

func New(source transport.Source, cfg Config, opts ...Option) *Widget {
	w := &Widget{
		store:  window.NewStore(),
		clock:  clock.Real{},
		text:   textlayout.NewMonospace(),
		logger: log.With().Str("component", "widget").Logger(),
	}
	for _, o := range opts {
		o(w)
	}
	w.dispatcher = transport.NewDispatcher(source, cfg.MaxConcurrent)
	w.table = layout.NewTable(w.store, w.measure, cfg.ItemGap)
	w.table.SetSeparator(newDay)
	w.resolver = resolver.New(w.store, w.dispatcher)
	w.preload = preload.New(w.store, w.dispatcher, cfg.Preload)
	w.selection = selection.New(geometry{w}, w.text, w.clock, cfg.Selection)
	w.overlay = scrolldate.New(w.clock, cfg.ScrollDate)
	return w
}

func textWidth(width int) int { return max(width-Gutter, 1) }

// newDay puts a date separator above the first item of each day.
func newDay(prev, it *eventlog.Item) bool {
	return prev == nil || !scrolldate.SameDay(prev.Date, it.Date)
}

func (w *Widget) measure(it *eventlog.Item, width int) int {
	return w.text.Height(w.prepared(it).Text, textWidth(width))
}

func (w *Widget) prepared(it *eventlog.Item) eventlog.PreparedText {
	return it.Prepared(w.store.Lookup())
}

// OnScrollTo sets the callback asking the owner to move the viewport top.
func (w *Widget) OnScrollTo(fn func(top int)) { w.scrollTo = fn }

// OnCancelled sets the callback fired by Cancel when nothing is selected.
func (w *Widget) OnCancelled(fn func()) { w.onCancelled = fn }

// OnError sets the hook receiving ordering errors and other failures the
// widget cannot recover from itself.
func (w *Widget) OnError(fn func(error)) { w.onError = fn }

// OnLink sets the callback for activated links that do not point at a
// loaded item.
func (w *Widget) OnLink(fn func(eventlog.Link)) { w.onLink = fn }

func (w *Widget) Store() *window.Store { return w.store }

func (w *Widget) Filter() eventlog.Filter { return w.preload.Filter() }

func (w *Widget) Height() int { return w.table.Height() }

func (w *Widget) Width() int { return w.table.Width() }

// Now is the widget clock's current time.
func (w *Widget) Now() time.Time { return w.clock.Now() }

func (w *Widget) VisibleTop() int { return w.visibleTop }

func (w *Widget) VisibleBottom() int { return w.visibleBottom }

// TakeRepaint reports and clears the repaint flag.
func (w *Widget) TakeRepaint() bool {
	r := w.repaint
	w.repaint = false
	return r
}

// LastError is the most recent failure worth showing to the user.
func (w *Widget) LastError() error {
	if w.err != nil {
		return w.err
	}
	if err := w.preload.LastError(); err != nil {
		return err
	}
	return w.resolver.LastError()
}

// Loading reports whether a page request is in flight.
func (w *Widget) Loading() bool {
	return w.preload.InFlight(eventlog.Up) || w.preload.InFlight(eventlog.Down)
}

// EmptyText is the placeholder shown when there is nothing to list.
func (w *Widget) EmptyText() string {
	switch {
	case !w.store.Empty():
		return ""
	case w.Loading():
		return "Loading…"
	case w.LastError() != nil:
		return "Could not load events"
	case !w.store.UpLoaded():
		return "Loading…"
	case !w.Filter().IsEmpty():
		return "No events matching the filter"
	}
	return "No events"
}

func (w *Widget) fail(err error) {
	w.err = err
	w.repaint = true
	if w.onError != nil {
		w.onError(err)
	}
}

func (w *Widget) captureTop() scrollAnchor {
	i := w.table.Band(w.visibleTop)
	if i < 0 {
		return scrollAnchor{}
	}
	return scrollAnchor{id: w.store.At(i).ID, offset: w.visibleTop - w.table.Top(i), ok: true}
}

func (w *Widget) scroll(top int) {
	h := w.visibleBottom - w.visibleTop
	top = min(max(top, 0), max(w.table.Height()-h, 0))
	w.visibleTop, w.visibleBottom = top, top+h
	w.anchor = w.captureTop()
	w.repaint = true
	if w.scrollTo != nil {
		w.scrollTo(top)
	}
}

// RestoreScrollPosition keeps the item that was at the viewport top in place
// after the layout above it changed.
func (w *Widget) RestoreScrollPosition() {
	if !w.anchor.ok {
		return
	}
	i := w.store.IndexOf(w.anchor.id)
	if i < 0 {
		return
	}
	top := w.table.Top(i) + w.anchor.offset
	if top != w.visibleTop {
		w.scroll(top)
	}
}

// SetVisibleRange reports the rows of the surface the viewport shows.
func (w *Widget) SetVisibleRange(top, bottom int) tea.Cmd {
	moved := top != w.visibleTop || bottom != w.visibleBottom
	w.visibleTop, w.visibleBottom = top, bottom
	if !w.store.Empty() {
		w.anchor = w.captureTop()
	}
	cmds := []tea.Cmd{w.check()}
	if moved {
		cmds = append(cmds, w.scrollDate())
	}
	return batch(cmds...)
}

func (w *Widget) check() tea.Cmd {
	if w.closed {
		return nil
	}
	return w.preload.Check(w.visibleTop, w.visibleBottom, w.table.ItemsTop(), w.table.ItemsHeight())
}

func (w *Widget) scrollDate() tea.Cmd {
	h := w.visibleBottom - w.visibleTop
	nearEnd := w.visibleTop > w.table.Height()-2*h
	var date time.Time
	found := false
	w.table.Enumerate(w.visibleTop, w.visibleBottom, func(i int, it *eventlog.Item, _ int) bool {
		date, found = it.Date, true
		return false
	})
	return w.overlay.Scrolled(w.visibleTop, date, found, nearEnd)
}

// ScrollToEnd moves the viewport to the newest loaded item and hides the
// date badge at once.
func (w *Widget) ScrollToEnd() {
	w.scroll(w.table.Height())
	w.overlay.HideNow()
}

func (w *Widget) ScrollBy(delta int) {
	w.scroll(w.visibleTop + delta)
}

// ResizeToWidth lays the items out at a new width. minHeight is the height
// of the viewport, below which content is pinned to the bottom.
func (w *Widget) ResizeToWidth(width, minHeight int) {
	changed := w.table.Resize(width, minHeight)
	if w.visibleBottom-w.visibleTop != minHeight {
		w.visibleBottom = w.visibleTop + minHeight
	}
	if changed {
		w.repaint = true
	}
	w.RestoreScrollPosition()
}

// ApplyFilter restarts loading with filter, even when it equals the current
// one. Loaded items, pending requests and the selection are dropped.
func (w *Widget) ApplyFilter(filter eventlog.Filter) tea.Cmd {
	w.logger.Info().Interface("filter", filter).Msg("filter applied")
	w.jumpTo = 0
	w.preload.SetAnchor(0)
	w.reset(filter)
	return w.check()
}

// JumpTo restarts loading around item id and scrolls to it once loaded.
func (w *Widget) JumpTo(id int64) tea.Cmd {
	if i := w.store.IndexOf(id); i >= 0 {
		w.scroll(w.table.Top(i))
		return w.check()
	}
	w.jumpTo = id
	w.preload.SetAnchor(id)
	w.reset(w.preload.Filter())
	return w.check()
}

func (w *Widget) reset(filter eventlog.Filter) {
	w.selection.Clear()
	w.resolver.Reset()
	w.preload.Reset(filter)
	w.anchor = scrollAnchor{}
	w.err = nil
	w.repaint = true
}

// SaveState moves the loaded window out of the widget. The widget is empty
// afterwards.
func (w *Widget) SaveState() State {
	w.anchor = w.captureTop()
	st := State{
		Filter:    w.preload.Filter(),
		TopItemID: w.anchor.id,
		TopOffset: w.anchor.offset,
	}
	w.resolver.Reset()
	w.preload.Adopt(st.Filter)
	w.selection.Clear()
	st.Contents = w.store.Take()
	w.anchor = scrollAnchor{}
	return st
}

// RestoreState adopts a saved window without refetching it.
func (w *Widget) RestoreState(st State) (tea.Cmd, error) {
	if err := w.store.Restore(st.Contents); err != nil {
		return nil, errors.Wrap(err, "restore state")
	}
	w.resolver.Reset()
	w.preload.Adopt(st.Filter)
	w.selection.Clear()
	w.anchor = scrollAnchor{id: st.TopItemID, offset: st.TopOffset, ok: st.TopItemID != 0}
	w.repaint = true
	w.RestoreScrollPosition()
	return w.resolver.Track(w.store.Items()), nil
}

// RemoveItem drops an item the source reported as deleted.
func (w *Widget) RemoveItem(id int64) tea.Cmd {
	if !w.store.Remove(id) {
		return nil
	}
	if w.anchor.id == id {
		w.anchor = w.captureTop()
	}
	cmd := w.resolver.Forget(id)
	w.RestoreScrollPosition()
	w.repaint = true
	if w.preload.Retarget() {
		cmd = batch(cmd, w.check())
	}
	return cmd
}

// RetryFailed re-issues dependency requests that failed.
func (w *Widget) RetryFailed() tea.Cmd {
	w.err = nil
	return batch(w.resolver.RetryFailed(), w.check())
}

// Update handles the messages the widget issued.
func (w *Widget) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case preload.LoadedMsg:
		if !w.preload.Owns(msg) {
			return nil
		}
		return w.loaded(msg)
	case resolver.ResolvedMsg:
		if !w.resolver.Owns(msg) {
			return nil
		}
		if w.resolver.Apply(msg) {
			w.repaint = true
			w.RestoreScrollPosition()
		}
		return nil
	case clock.Fired:
		if eff, ok := w.selection.Update(msg); ok {
			return w.apply(eff)
		}
		if cmd, ok := w.overlay.Update(msg); ok {
			w.repaint = true
			return cmd
		}
	}
	return nil
}

func (w *Widget) loaded(msg preload.LoadedMsg) tea.Cmd {
	wasEmpty := w.store.Empty()
	items, err := w.preload.Apply(msg)
	if err != nil {
		w.fail(err)
		return nil
	}
	w.repaint = true
	if len(items) == 0 {
		return nil
	}
	w.err = nil

	switch {
	case wasEmpty && w.jumpTo != 0:
		if i := w.store.IndexOf(w.jumpTo); i >= 0 {
			w.scroll(w.table.Top(i))
		} else {
			w.scroll(w.table.Height())
		}
		w.jumpTo = 0
	case wasEmpty:
		w.scroll(w.table.Height())
	default:
		w.RestoreScrollPosition()
	}
	return batch(w.resolver.Track(items), w.check())
}

func (w *Widget) apply(eff selection.Effect) tea.Cmd {
	if eff.Repaint {
		w.repaint = true
	}
	if eff.ScrollBy != 0 {
		w.ScrollBy(eff.ScrollBy)
	}
	if eff.Activate != nil {
		w.activate(*eff.Activate)
	}
	return eff.Cmd
}

func (w *Widget) activate(l eventlog.Link) {
	if rest, ok := strings.CutPrefix(l.Target, "item:"); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			if i := w.store.IndexOf(id); i >= 0 {
				w.scroll(w.table.Top(i))
				return
			}
		}
	}
	if w.onLink != nil {
		w.onLink(l)
	}
}

// Press, Move and Release take cells in surface coordinates.
func (w *Widget) Press(x, y int, mods selection.Modifiers) tea.Cmd {
	return w.apply(w.selection.Press(x, y, mods))
}

func (w *Widget) Move(x, y int) tea.Cmd {
	return w.apply(w.selection.Move(x, y))
}

func (w *Widget) Release(x, y int) tea.Cmd {
	return w.apply(w.selection.Release(x, y))
}

func (w *Widget) Leave() {
	w.apply(w.selection.Leave())
}

// Cancel clears the selection, or fires the cancelled callback when there
// is none.
func (w *Widget) Cancel() {
	if w.selection.Clear() {
		w.repaint = true
		return
	}
	if w.onCancelled != nil {
		w.onCancelled()
	}
}

func (w *Widget) SelectAll() bool {
	if w.selection.SelectAll(w.store.Len()) {
		w.repaint = true
		return true
	}
	return false
}

func (w *Widget) HasSelection() bool { return w.selection.HasSelection() }

func (w *Widget) SelectedText() eventlog.TextWithEntities {
	return w.selection.SelectedText()
}

func (w *Widget) Tooltip() *selection.Tooltip { return w.selection.Tooltip() }

func (w *Widget) ScrollDate() scrolldate.State { return w.overlay.State() }

// Enumerate calls fn for the items intersecting rows [top, bottom).
func (w *Widget) Enumerate(top, bottom int, fn func(Row) bool) {
	tw := textWidth(w.table.Width())
	w.table.Enumerate(top, bottom, func(i int, it *eventlog.Item, _ int) bool {
		p := w.prepared(it)
		row := Row{
			Index:     i,
			Item:      it,
			Top:       w.table.BodyTop(i),
			Separator: w.table.HasSeparator(i),
			Text:      p,
			Lines:     w.text.Lines(p.Text, tw),
		}
		row.SelFrom, row.SelTo, row.Selected = w.selection.Span(it.ID)
		return fn(row)
	})
}

// Close cancels every request. The widget must not be used afterwards.
func (w *Widget) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.preload.Close()
	w.resolver.Reset()
	w.dispatcher.Close()
}

func batch(cmds ...tea.Cmd) tea.Cmd {
	var valid []tea.Cmd
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}
	return tea.Batch(valid...)
}

// geometry exposes the widget's layout to the selection engine.
type geometry struct{ w *Widget }

func (g geometry) HitTest(x, y int) (selection.Point, bool) {
	w := g.w
	i := w.table.Band(y)
	if i < 0 {
		return selection.Point{}, false
	}
	it := w.store.At(i)
	top, bottom := w.table.BodyTop(i), w.table.Bottom(i)
	h := w.text.HitTest(w.prepared(it), textWidth(w.table.Width()), x-Gutter, y-top)
	return selection.Point{
		ItemID: it.ID,
		Offset: h.Offset,
		State:  h.State,
		Link:   h.Link,
		Inside: y >= top && y < bottom,
	}, true
}

func (g geometry) Index(id int64) int { return g.w.store.IndexOf(id) }

func (g geometry) IDAt(i int) (int64, bool) {
	if i < 0 || i >= g.w.store.Len() {
		return 0, false
	}
	return g.w.store.At(i).ID, true
}

func (g geometry) Text(id int64) (eventlog.PreparedText, bool) {
	it, ok := g.w.store.ByID(id)
	if !ok {
		return eventlog.PreparedText{}, false
	}
	return g.w.prepared(it), true
}

func (g geometry) Date(id int64) (time.Time, bool) {
	it, ok := g.w.store.ByID(id)
	if !ok {
		return time.Time{}, false
	}
	return it.Date, true
}
