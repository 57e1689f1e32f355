// Package layout keeps the vertical geometry of the loaded window: the band
// each item occupies and the lookups from a row back to an item.
//
// Offsets are prefix sums of item heights, recomputed lazily from the first
// invalid index whenever the store reports a mutation. An item may carry a
// one row separator above its body; the separator belongs to the item's band.
package layout

import (
	"sort"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/window"
)

// MeasureFunc returns the height of an item rendered at width.
type MeasureFunc func(it *eventlog.Item, width int) int

// SeparatorFunc reports whether a separator row goes above it. prev is nil
// for the oldest item of the log.
type SeparatorFunc func(prev, it *eventlog.Item) bool

type Table struct {
	store     *window.Store
	measure   MeasureFunc
	separator SeparatorFunc

	width     int
	minHeight int
	gap       int

	// starts[i] is the offset of item i from the top of the items block.
	starts []int
	valid  int
}

func NewTable(store *window.Store, measure MeasureFunc, gap int) *Table {
	t := &Table{store: store, measure: measure, gap: max(gap, 0)}
	store.OnInvalidate(t.InvalidateFrom)
	return t
}

// SetSeparator installs the separator predicate. nil removes separators.
func (t *Table) SetSeparator(fn SeparatorFunc) {
	t.separator = fn
	t.InvalidateFrom(0)
}

// HasSeparator reports whether item i has a separator row above it. The
// first loaded item has one only once nothing older can be loaded.
func (t *Table) HasSeparator(i int) bool {
	if t.separator == nil || i < 0 || i >= t.store.Len() {
		return false
	}
	if i == 0 {
		return t.store.UpLoaded() && t.separator(nil, t.store.At(0))
	}
	return t.separator(t.store.At(i-1), t.store.At(i))
}

func (t *Table) separatorHeight(i int) int {
	if t.HasSeparator(i) {
		return 1
	}
	return 0
}

// Resize sets the render width and the minimum height of the surface.
func (t *Table) Resize(width, minHeight int) bool {
	changed := width != t.width
	t.width = width
	t.minHeight = minHeight
	if changed {
		t.InvalidateFrom(0)
	}
	return changed
}

func (t *Table) Width() int { return t.width }

func (t *Table) MinHeight() int { return t.minHeight }

// InvalidateFrom drops every offset at or after index i.
func (t *Table) InvalidateFrom(i int) {
	if i < t.valid {
		t.valid = max(i, 0)
	}
}

// ItemHeight returns the cached height of an item, measuring it on a miss.
func (t *Table) ItemHeight(it *eventlog.Item) int {
	if h, ok := it.CachedHeight(t.width); ok {
		return h
	}
	h := 1
	if t.measure != nil && t.width > 0 {
		h = max(t.measure(it, t.width), 1)
	}
	if t.width > 0 {
		it.SetHeight(t.width, h)
	}
	return h
}

func (t *Table) ensure() {
	n := t.store.Len()
	if cap(t.starts) < n+1 {
		starts := make([]int, n+1, 2*n+1)
		copy(starts, t.starts[:t.valid])
		t.starts = starts
	}
	t.starts = t.starts[:n+1]
	if t.valid > n {
		t.valid = n
	}
	if t.valid == 0 {
		t.starts[0] = 0
		t.valid = 1
	}
	for i := t.valid; i <= n; i++ {
		t.starts[i] = t.starts[i-1] + t.separatorHeight(i-1) + t.ItemHeight(t.store.At(i-1)) + t.gap
	}
	t.valid = n + 1
}

func (t *Table) itemsHeight() int {
	t.ensure()
	n := t.store.Len()
	if n == 0 {
		return 0
	}
	return t.starts[n] - t.gap
}

// ItemsTop is the row of the first item. Content shorter than the minimum
// height is pinned to the bottom.
func (t *Table) ItemsTop() int {
	h := t.itemsHeight()
	if h < t.minHeight {
		return t.minHeight - h
	}
	return 0
}

// ItemsHeight is the height of the items block without the top padding.
func (t *Table) ItemsHeight() int { return t.itemsHeight() }

// Height is the full height of the surface.
func (t *Table) Height() int {
	return max(t.itemsHeight(), t.minHeight)
}

// Top returns the first row of the band of item i, its separator included.
func (t *Table) Top(i int) int {
	t.ensure()
	if i < 0 || i >= t.store.Len() {
		return -1
	}
	return t.ItemsTop() + t.starts[i]
}

// BodyTop returns the first row of the body of item i, below its separator.
func (t *Table) BodyTop(i int) int {
	top := t.Top(i)
	if top < 0 {
		return -1
	}
	return top + t.separatorHeight(i)
}

// Bottom returns the row after the last row of item i.
func (t *Table) Bottom(i int) int {
	top := t.BodyTop(i)
	if top < 0 {
		return -1
	}
	return top + t.ItemHeight(t.store.At(i))
}

// Band returns the index of the item whose band contains y. Rows above the
// first item map to the first item and rows below the last item map to the
// last. A row in the gap between two items maps to the item above it.
// Band returns -1 only for an empty window.
func (t *Table) Band(y int) int {
	n := t.store.Len()
	if n == 0 {
		return -1
	}
	t.ensure()
	rel := y - t.ItemsTop()
	i := sort.Search(n, func(i int) bool { return t.starts[i+1] > rel })
	return min(max(i, 0), n-1)
}

// Enumerate calls fn for every item whose band intersects [top, bottom),
// top to bottom, until fn returns false. itemTop is the top of the band.
func (t *Table) Enumerate(top, bottom int, fn func(i int, it *eventlog.Item, itemTop int) bool) {
	n := t.store.Len()
	if n == 0 || bottom <= top {
		return
	}
	for i := t.Band(top); i < n; i++ {
		itemTop := t.Top(i)
		if itemTop >= bottom {
			return
		}
		it := t.store.At(i)
		if t.Bottom(i) <= top {
			continue
		}
		if !fn(i, it, itemTop) {
			return
		}
	}
}
