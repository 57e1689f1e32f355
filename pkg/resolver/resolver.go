// Package resolver binds pinned, game score and payment entries to the item
// they reference.
//
// A reference whose target is loaded in the window binds locally with no
// request. Otherwise at most one request per owning item is issued through
// the dispatcher. Results re-enter the UI loop as ResolvedMsg.
package resolver

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/window"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ResolvedMsg carries the result of a dependency request.
type ResolvedMsg struct {
	Owner      string
	Generation uint64
	Handle     string
	ItemID     int64
	RefID      int64
	Item       *eventlog.Item
	Err        error
}

type Resolver struct {
	id         string
	store      *window.Store
	dispatcher *transport.Dispatcher
	logger     zerolog.Logger

	generation uint64
	inflight   map[int64]*transport.Handle
	failed     map[int64]struct{}
	lastErr    error
}

func New(store *window.Store, dispatcher *transport.Dispatcher) *Resolver {
	id := uuid.NewString()
	return &Resolver{
		id:         id,
		store:      store,
		dispatcher: dispatcher,
		logger:     log.With().Str("component", "resolver").Str("resolver", id[:8]).Logger(),
		inflight:   map[int64]*transport.Handle{},
		failed:     map[int64]struct{}{},
	}
}

func (r *Resolver) Generation() uint64 { return r.generation }

// InFlight is the number of dependency requests awaiting a response.
func (r *Resolver) InFlight() int { return len(r.inflight) }

// LastError is the most recent transient failure.
func (r *Resolver) LastError() error { return r.lastErr }

// Track starts resolution for items and binds pending references whose
// target has arrived in the window since they were issued.
func (r *Resolver) Track(items []*eventlog.Item) tea.Cmd {
	var cmds []tea.Cmd
	for _, it := range items {
		if cmd := r.track(it); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	for itemID, h := range r.inflight {
		it, ok := r.store.ByID(itemID)
		if !ok {
			continue
		}
		dep := it.Dependency()
		if _, loaded := r.store.ByID(dep.RefID); loaded {
			h.Cancel()
			delete(r.inflight, itemID)
			dep.BindLocal()
			r.store.Touch(itemID)
			r.logger.Debug().Int64("item", itemID).Int64("ref", dep.RefID).Msg("target arrived, request cancelled")
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (r *Resolver) track(it *eventlog.Item) tea.Cmd {
	dep := it.Dependency()
	if dep == nil || dep.Settled() || dep.Pending() != "" {
		return nil
	}
	if _, failed := r.failed[it.ID]; failed {
		return nil
	}
	if _, ok := r.store.ByID(dep.RefID); ok {
		dep.BindLocal()
		r.store.Touch(it.ID)
		return nil
	}

	h := r.dispatcher.NewHandle()
	dep.SetPending(h.ID)
	r.inflight[it.ID] = h
	owner, gen, itemID, refID := r.id, r.generation, it.ID, dep.RefID
	r.logger.Debug().Int64("item", itemID).Int64("ref", refID).Str("handle", h.ID).Msg("resolving dependency")
	return r.dispatcher.Dependency(h, refID, func(target *eventlog.Item, err error) tea.Msg {
		return ResolvedMsg{
			Owner:      owner,
			Generation: gen,
			Handle:     h.ID,
			ItemID:     itemID,
			RefID:      refID,
			Item:       target,
			Err:        err,
		}
	})
}

// Owns reports whether msg was issued by this resolver.
func (r *Resolver) Owns(msg ResolvedMsg) bool { return msg.Owner == r.id }

// Apply settles the reference a response belongs to. It reports whether the
// owning item changed and needs a repaint.
func (r *Resolver) Apply(msg ResolvedMsg) bool {
	if !r.Owns(msg) || msg.Generation != r.generation {
		r.logger.Debug().Int64("item", msg.ItemID).Uint64("generation", msg.Generation).Msg("stale dependency response")
		return false
	}
	it, ok := r.store.ByID(msg.ItemID)
	if !ok {
		return false
	}
	dep := it.Dependency()
	if dep == nil || dep.Pending() != msg.Handle {
		r.logger.Debug().Int64("item", msg.ItemID).Str("handle", msg.Handle).Msg("superseded dependency response")
		return false
	}
	delete(r.inflight, msg.ItemID)

	switch {
	case msg.Err == nil && msg.Item != nil:
		dep.BindTarget(msg.Item)
	case transport.IsNotFound(msg.Err) || msg.Err == nil:
		dep.SetNotFound()
	case transport.IsCanceled(msg.Err):
		dep.SetPending("")
		return false
	default:
		dep.SetPending("")
		r.failed[msg.ItemID] = struct{}{}
		r.lastErr = msg.Err
		r.logger.Warn().Err(msg.Err).Int64("item", msg.ItemID).Int64("ref", msg.RefID).Msg("dependency request failed")
		return false
	}
	r.store.Touch(msg.ItemID)
	return true
}

// RetryFailed issues requests again for references whose last request failed.
func (r *Resolver) RetryFailed() tea.Cmd {
	var items []*eventlog.Item
	for id := range r.failed {
		if it, ok := r.store.ByID(id); ok {
			items = append(items, it)
		}
	}
	clear(r.failed)
	r.lastErr = nil
	return r.Track(items)
}

// Forget handles the removal of item id from the window. Its request is
// cancelled and references bound locally to it are resolved again.
func (r *Resolver) Forget(id int64) tea.Cmd {
	if h, ok := r.inflight[id]; ok {
		h.Cancel()
		delete(r.inflight, id)
	}
	delete(r.failed, id)

	var again []*eventlog.Item
	for _, it := range r.store.Items() {
		dep := it.Dependency()
		if dep != nil && dep.Local() && dep.RefID == id {
			dep.Unsettle()
			r.store.Touch(it.ID)
			again = append(again, it)
		}
	}
	return r.Track(again)
}

// Reset cancels every request and makes outstanding responses stale.
// References left pending on items still in the window become trackable again.
func (r *Resolver) Reset() {
	for id, h := range r.inflight {
		h.Cancel()
		delete(r.inflight, id)
		if it, ok := r.store.ByID(id); ok {
			it.Dependency().SetPending("")
		}
	}
	clear(r.failed)
	r.lastErr = nil
	r.generation++
}
