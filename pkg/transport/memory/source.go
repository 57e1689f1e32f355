// Package memory is an in-process admin-log source used by tests and the
// demo mode of the viewer.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/pkg/errors"
)

// Source serves clones of its items, so callers own what they receive.
type Source struct {
	mu       sync.RWMutex
	items    []*eventlog.Item
	latency  time.Duration
	failNext error

	itemCalls       atomic.Int64
	dependencyCalls atomic.Int64
}

var _ transport.Source = &Source{}

type Option func(*Source)

// WithLatency delays every response, honouring cancellation.
func WithLatency(d time.Duration) Option {
	return func(s *Source) { s.latency = d }
}

func New(items []*eventlog.Item, opts ...Option) (*Source, error) {
	s := &Source{}
	for _, o := range opts {
		o(s)
	}
	if err := s.Append(items...); err != nil {
		return nil, err
	}
	return s, nil
}

// Append adds items newer than every stored item.
func (s *Source) Append(items ...*eventlog.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := make([]*eventlog.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			return errors.New("memory source: nil item")
		}
		sorted = append(sorted, it.Clone())
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	last := int64(0)
	if n := len(s.items); n > 0 {
		last = s.items[n-1].ID
	}
	for _, it := range sorted {
		if it.ID <= last {
			return errors.Errorf("memory source: item %d is not newer than %d", it.ID, last)
		}
		last = it.ID
	}
	s.items = append(s.items, sorted...)
	return nil
}

func (s *Source) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// FailNext makes the next request of either kind fail with err.
func (s *Source) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Source) ItemCalls() int64       { return s.itemCalls.Load() }
func (s *Source) DependencyCalls() int64 { return s.dependencyCalls.Load() }

func (s *Source) indexOf(id int64) int {
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].ID >= id })
	if i < len(s.items) && s.items[i].ID == id {
		return i
	}
	return -1
}

func (s *Source) wait(ctx context.Context) error {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Source) FetchItems(ctx context.Context, req transport.ItemsRequest) (transport.ItemsPage, error) {
	s.itemCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return transport.ItemsPage{}, err
	}
	if req.Limit <= 0 {
		return transport.ItemsPage{}, errors.New("memory source: limit must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var page []*eventlog.Item
	end := true
	if req.Direction == eventlog.Up {
		for i := len(s.items) - 1; i >= 0; i-- {
			it := s.items[i]
			if (req.EdgeID != 0 && it.ID >= req.EdgeID) || !req.Filter.Match(it) {
				continue
			}
			if len(page) == req.Limit {
				end = false
				break
			}
			page = append(page, it.Clone())
		}
		for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
			page[i], page[j] = page[j], page[i]
		}
	} else {
		for _, it := range s.items {
			if it.ID <= req.EdgeID || !req.Filter.Match(it) {
				continue
			}
			if len(page) == req.Limit {
				end = false
				break
			}
			page = append(page, it.Clone())
		}
	}
	return transport.ItemsPage{Items: page, EndOfStream: end}, nil
}

func (s *Source) FetchDependency(ctx context.Context, id int64) (*eventlog.Item, error) {
	s.dependencyCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, transport.ErrNotFound
	}
	return s.items[i].Clone(), nil
}
