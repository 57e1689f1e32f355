package transport

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Handle identifies one in-flight request and cancels it.
type Handle struct {
	ID string

	ctx    context.Context
	once   sync.Once
	cancel context.CancelFunc
}

// Cancel aborts the request. The command still delivers its message, with a
// cancellation error.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
}

// Canceled reports whether Cancel was called or the dispatcher closed.
func (h *Handle) Canceled() bool {
	return h != nil && h.ctx != nil && h.ctx.Err() != nil
}

// Dispatcher runs source requests as commands, at most MaxConcurrent at a time.
type Dispatcher struct {
	source Source
	sem    *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(source Source, maxConcurrent int64) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		source: source,
		sem:    semaphore.NewWeighted(maxConcurrent),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *Dispatcher) Source() Source { return d.source }

// NewHandle allocates the handle for a request about to be issued.
func (d *Dispatcher) NewHandle() *Handle {
	ctx, cancel := context.WithCancel(d.ctx)
	return &Handle{ID: uuid.NewString(), ctx: ctx, cancel: cancel}
}

func (d *Dispatcher) run(h *Handle, op string, fn func(ctx context.Context) error) error {
	ctx := h.ctx
	defer h.Cancel()
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.sem.Release(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	err := Transient(op, fn(ctx))
	if err != nil && !IsCanceled(err) {
		log.Debug().Err(err).Str("component", "transport").Str("handle", h.ID).Str("op", op).Msg("request failed")
	}
	return err
}

// Items returns a command fetching a page. wrap builds the message delivered
// back to the UI loop.
func (d *Dispatcher) Items(h *Handle, req ItemsRequest, wrap func(ItemsPage, error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		var page ItemsPage
		err := d.run(h, "fetch items", func(ctx context.Context) error {
			var err error
			page, err = d.source.FetchItems(ctx, req)
			return err
		})
		return wrap(page, err)
	}
}

// Dependency returns a command fetching one referenced item.
func (d *Dispatcher) Dependency(h *Handle, id int64, wrap func(*eventlog.Item, error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		var item *eventlog.Item
		err := d.run(h, "fetch dependency", func(ctx context.Context) error {
			var err error
			item, err = d.source.FetchDependency(ctx, id)
			return err
		})
		return wrap(item, err)
	}
}

// Close cancels every request issued through the dispatcher.
func (d *Dispatcher) Close() {
	d.cancel()
}
