package window

import (
	"fmt"
	"sort"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/pkg/errors"
)

// OrderingError reports a batch that does not abut the window edge it was
// inserted at. It means the source broke the paging contract.
type OrderingError struct {
	Direction eventlog.Direction
	EdgeID    int64
	ItemID    int64
	Reason    string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("window: %s insert at edge %d: item %d %s", e.Direction, e.EdgeID, e.ItemID, e.Reason)
}

// IsOrderingError reports whether err wraps an *OrderingError.
func IsOrderingError(err error) bool {
	var oe *OrderingError
	return errors.As(err, &oe)
}

// Edge names the window edge a batch was requested against.
// An ID of 0 on an empty window means the newest page.
type Edge struct {
	Direction eventlog.Direction
	ID        int64
}

// Contents is the window moved out of a Store.
type Contents struct {
	Items      []*eventlog.Item
	UpLoaded   bool
	DownLoaded bool
}

// Store is the contiguous run of loaded items, kept in strict ascending id order.
//
// Store is not safe for concurrent use. It is owned by the UI loop.
type Store struct {
	items      []*eventlog.Item
	upLoaded   bool
	downLoaded bool

	onInvalidate func(from int)
}

func NewStore() *Store {
	return &Store{}
}

// OnInvalidate sets the hook called with the first index whose layout changed.
func (s *Store) OnInvalidate(fn func(from int)) {
	s.onInvalidate = fn
}

func (s *Store) invalidate(from int) {
	if s.onInvalidate != nil {
		s.onInvalidate(from)
	}
}

func (s *Store) Len() int { return len(s.items) }

func (s *Store) Empty() bool { return len(s.items) == 0 }

func (s *Store) At(i int) *eventlog.Item {
	if i < 0 || i >= len(s.items) {
		return nil
	}
	return s.items[i]
}

// Items returns the loaded items. The slice must not be modified.
func (s *Store) Items() []*eventlog.Item { return s.items }

func (s *Store) MinID() int64 {
	if len(s.items) == 0 {
		return 0
	}
	return s.items[0].ID
}

func (s *Store) MaxID() int64 {
	if len(s.items) == 0 {
		return 0
	}
	return s.items[len(s.items)-1].ID
}

// EdgeID returns the id a request in direction d extends from.
func (s *Store) EdgeID(d eventlog.Direction) int64 {
	if d == eventlog.Up {
		return s.MinID()
	}
	return s.MaxID()
}

func (s *Store) Loaded(d eventlog.Direction) bool {
	if d == eventlog.Up {
		return s.upLoaded
	}
	return s.downLoaded
}

func (s *Store) UpLoaded() bool   { return s.upLoaded }
func (s *Store) DownLoaded() bool { return s.downLoaded }

// SetLoaded marks that no more items exist beyond the edge.
func (s *Store) SetLoaded(d eventlog.Direction, loaded bool) {
	if d == eventlog.Up {
		if s.upLoaded != loaded && len(s.items) > 0 {
			// The oldest item's separator depends on it.
			s.invalidate(0)
		}
		s.upLoaded = loaded
	} else {
		s.downLoaded = loaded
	}
}

// IndexOf returns the position of id, or -1.
func (s *Store) IndexOf(id int64) int {
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].ID >= id })
	if i < len(s.items) && s.items[i].ID == id {
		return i
	}
	return -1
}

// ByID is a non-owning lookup. Callers must not keep the pointer across
// mutations of the store.
func (s *Store) ByID(id int64) (*eventlog.Item, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return s.items[i], true
}

// Lookup returns ByID as an eventlog.Lookup.
func (s *Store) Lookup() eventlog.Lookup { return s.ByID }

// Insert adds a batch at the edge it was requested against. On error the
// store is unchanged.
func (s *Store) Insert(batch []*eventlog.Item, edge Edge) error {
	if err := s.validate(batch, edge); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	if edge.Direction == eventlog.Up {
		items := make([]*eventlog.Item, 0, len(batch)+len(s.items))
		items = append(items, batch...)
		s.items = append(items, s.items...)
		s.invalidate(0)
		return nil
	}
	from := len(s.items)
	s.items = append(s.items, batch...)
	s.invalidate(from)
	return nil
}

func (s *Store) validate(batch []*eventlog.Item, edge Edge) error {
	fail := func(id int64, reason string) error {
		return &OrderingError{Direction: edge.Direction, EdgeID: edge.ID, ItemID: id, Reason: reason}
	}
	if len(s.items) > 0 && edge.ID != s.EdgeID(edge.Direction) {
		return fail(0, fmt.Sprintf("requested against stale edge, window edge is %d", s.EdgeID(edge.Direction)))
	}
	for i, it := range batch {
		if it == nil {
			return fail(0, "is nil")
		}
		if i > 0 && it.ID <= batch[i-1].ID {
			return fail(it.ID, fmt.Sprintf("not after %d", batch[i-1].ID))
		}
	}
	if len(batch) == 0 || (edge.ID == 0 && len(s.items) == 0) {
		return nil
	}
	if edge.Direction == eventlog.Up {
		if last := batch[len(batch)-1]; last.ID >= edge.ID {
			return fail(last.ID, "is not older than the edge")
		}
	} else if first := batch[0]; first.ID <= edge.ID {
		return fail(first.ID, "is not newer than the edge")
	}
	return nil
}

// Remove drops an item invalidated by the source.
func (s *Store) Remove(id int64) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.invalidate(i)
	return true
}

// Touch drops the cached text and height of one item.
func (s *Store) Touch(id int64) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.items[i].Invalidate()
	s.invalidate(i)
	return true
}

// InvalidateAll drops every cached height, used when the width changes.
func (s *Store) InvalidateAll() {
	for _, it := range s.items {
		it.Invalidate()
	}
	s.invalidate(0)
}

// Clear empties the window and resets both loaded flags.
func (s *Store) Clear() {
	s.items = nil
	s.upLoaded = false
	s.downLoaded = false
	s.invalidate(0)
}

// Take moves the window out of the store, leaving it empty.
func (s *Store) Take() Contents {
	c := Contents{Items: s.items, UpLoaded: s.upLoaded, DownLoaded: s.downLoaded}
	s.items = nil
	s.upLoaded = false
	s.downLoaded = false
	s.invalidate(0)
	return c
}

// Restore moves a previously taken window back in.
func (s *Store) Restore(c Contents) error {
	if err := checkOrder(c.Items); err != nil {
		return errors.Wrap(err, "restore window")
	}
	s.items = c.Items
	s.upLoaded = c.UpLoaded
	s.downLoaded = c.DownLoaded
	s.invalidate(0)
	return nil
}

// Check verifies the strict ascending order of the window.
func (s *Store) Check() error {
	return checkOrder(s.items)
}

func checkOrder(items []*eventlog.Item) error {
	for i := 1; i < len(items); i++ {
		if items[i].ID <= items[i-1].ID {
			return errors.Errorf("window: item %d at %d is not after %d", items[i].ID, i, items[i-1].ID)
		}
	}
	return nil
}
