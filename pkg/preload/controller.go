// Package preload streams pages into the window as the viewport nears
// either edge.
//
// There is at most one request per direction. Every request carries the
// generation it was issued in; Reset bumps the generation so late pages are
// dropped instead of being applied to a window they no longer belong to.
package preload

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/window"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	FirstPageSize  int
	PageSize       int
	PreloadScreens int
}

func (c Config) withDefaults() Config {
	if c.FirstPageSize <= 0 {
		c.FirstPageSize = 20
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.PreloadScreens <= 0 {
		c.PreloadScreens = 3
	}
	return c
}

// LoadedMsg carries a page back to the controller that requested it.
type LoadedMsg struct {
	Owner      string
	Generation uint64
	Handle     string
	Direction  eventlog.Direction
	Page       transport.ItemsPage
	Err        error
}

type request struct {
	handle *transport.Handle
	edge   int64
	limit  int
}

type Controller struct {
	id         string
	store      *window.Store
	dispatcher *transport.Dispatcher
	cfg        Config
	logger     zerolog.Logger

	filter     eventlog.Filter
	anchor     int64
	generation uint64
	inflight   [2]*request
	lastErr    error
}

func New(store *window.Store, dispatcher *transport.Dispatcher, cfg Config) *Controller {
	id := uuid.NewString()
	return &Controller{
		id:         id,
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg.withDefaults(),
		logger:     log.With().Str("component", "preload").Str("controller", id[:8]).Logger(),
	}
}

func (c *Controller) Filter() eventlog.Filter { return c.filter }

func (c *Controller) Generation() uint64 { return c.generation }

func (c *Controller) InFlight(d eventlog.Direction) bool { return c.inflight[d] != nil }

// LastError is the most recent failed load, cleared by the next success.
func (c *Controller) LastError() error { return c.lastErr }

// SetAnchor sets the id loading starts from when the window is empty.
// Zero means the newest item.
func (c *Controller) SetAnchor(id int64) { c.anchor = max(id, 0) }

func (c *Controller) Anchor() int64 { return c.anchor }

// Check issues preloads for the edges the viewport is within the preload
// threshold of. All coordinates share the surface's row space.
func (c *Controller) Check(visibleTop, visibleBottom, itemsTop, itemsHeight int) tea.Cmd {
	if c.store.Empty() {
		switch {
		case !c.store.UpLoaded():
			edge := int64(0)
			if c.anchor > 0 {
				edge = c.anchor + 1
			}
			return c.request(eventlog.Up, edge, c.cfg.FirstPageSize)
		case c.anchor > 0 && !c.store.DownLoaded():
			return c.request(eventlog.Down, c.anchor, c.cfg.FirstPageSize)
		}
		return nil
	}

	threshold := c.cfg.PreloadScreens * max(visibleBottom-visibleTop, 1)
	var cmds []tea.Cmd
	if visibleTop < itemsTop+threshold && !c.store.UpLoaded() {
		cmds = append(cmds, c.request(eventlog.Up, c.store.MinID(), c.cfg.PageSize))
	}
	if visibleBottom+threshold > itemsTop+itemsHeight && !c.store.DownLoaded() {
		cmds = append(cmds, c.request(eventlog.Down, c.store.MaxID(), c.cfg.PageSize))
	}
	return batch(cmds)
}

func batch(cmds []tea.Cmd) tea.Cmd {
	var valid []tea.Cmd
	for _, cmd := range cmds {
		if cmd != nil {
			valid = append(valid, cmd)
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

func (c *Controller) request(d eventlog.Direction, edge int64, limit int) tea.Cmd {
	if c.inflight[d] != nil {
		return nil
	}
	h := c.dispatcher.NewHandle()
	c.inflight[d] = &request{handle: h, edge: edge, limit: limit}
	c.logger.Debug().Stringer("direction", d).Int64("edge", edge).Int("limit", limit).Str("handle", h.ID).Msg("preload")

	owner, gen := c.id, c.generation
	req := transport.ItemsRequest{Direction: d, EdgeID: edge, Filter: c.filter, Limit: limit}
	return c.dispatcher.Items(h, req, func(page transport.ItemsPage, err error) tea.Msg {
		return LoadedMsg{Owner: owner, Generation: gen, Handle: h.ID, Direction: d, Page: page, Err: err}
	})
}

func (c *Controller) Owns(msg LoadedMsg) bool { return msg.Owner == c.id }

// Apply inserts a page into the window. It returns the inserted items, or
// nothing for stale, cancelled and failed loads. A transient failure is
// recorded and retried by the next Check. An *window.OrderingError is
// returned as is.
func (c *Controller) Apply(msg LoadedMsg) ([]*eventlog.Item, error) {
	if !c.Owns(msg) || msg.Generation != c.generation {
		c.logger.Debug().Uint64("generation", msg.Generation).Stringer("direction", msg.Direction).Msg("stale page dropped")
		return nil, nil
	}
	req := c.inflight[msg.Direction]
	if req == nil || req.handle.ID != msg.Handle {
		c.logger.Debug().Str("handle", msg.Handle).Msg("superseded page dropped")
		return nil, nil
	}
	c.inflight[msg.Direction] = nil

	if msg.Err != nil {
		if transport.IsCanceled(msg.Err) {
			return nil, nil
		}
		c.lastErr = msg.Err
		c.logger.Warn().Err(msg.Err).Stringer("direction", msg.Direction).Int64("edge", req.edge).Msg("preload failed")
		return nil, nil
	}

	wasEmpty := c.store.Empty()
	if err := c.store.Insert(msg.Page.Items, window.Edge{Direction: msg.Direction, ID: req.edge}); err != nil {
		c.lastErr = err
		c.logger.Error().Err(err).Msg("page does not abut the window")
		return nil, errors.WithStack(err)
	}
	c.lastErr = nil
	if len(msg.Page.Items) < req.limit || msg.Page.EndOfStream {
		c.store.SetLoaded(msg.Direction, true)
	}
	if wasEmpty && msg.Direction == eventlog.Up && req.edge == 0 {
		// The newest page has nothing after it.
		c.store.SetLoaded(eventlog.Down, true)
	}
	return msg.Page.Items, nil
}

// Retarget cancels in-flight requests whose edge is no longer the window's
// edge, as after removing the oldest or newest item. It reports whether any
// request was dropped; the next Check reissues it from the current edge.
func (c *Controller) Retarget() bool {
	if c.store.Empty() {
		return false
	}
	dropped := false
	for d, req := range c.inflight {
		if req == nil || req.edge == c.store.EdgeID(eventlog.Direction(d)) {
			continue
		}
		c.logger.Debug().Stringer("direction", eventlog.Direction(d)).Int64("edge", req.edge).Msg("edge moved, request dropped")
		req.handle.Cancel()
		c.inflight[d] = nil
		dropped = true
	}
	return dropped
}

// Reset clears the window for a new filter and makes in-flight pages stale.
// The next Check restarts loading from the anchor.
func (c *Controller) Reset(filter eventlog.Filter) {
	c.cancel()
	c.filter = filter
	c.store.Clear()
	c.logger.Debug().Uint64("generation", c.generation).Msg("reset")
}

// Adopt takes over a window restored from a saved state without refetching.
func (c *Controller) Adopt(filter eventlog.Filter) {
	c.cancel()
	c.filter = filter
}

func (c *Controller) cancel() {
	for d, req := range c.inflight {
		if req != nil {
			req.handle.Cancel()
			c.inflight[d] = nil
		}
	}
	c.lastErr = nil
	c.generation++
}

// Close cancels in-flight requests.
func (c *Controller) Close() { c.cancel() }
