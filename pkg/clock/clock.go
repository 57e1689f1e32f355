// Package clock provides the time source and single-shot timers used by the
// widget. Timers fire as bubbletea messages so they re-enter the UI loop.
package clock

import (
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type Clock interface {
	Now() time.Time
	// After returns a command that delivers msg once d has elapsed.
	After(d time.Duration, msg tea.Msg) tea.Cmd
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// Fired is delivered when an armed Timer elapses.
type Fired struct {
	Timer string
	Seq   uint64
}

// Timer is a single-shot timer token. Rearming or cancelling makes earlier
// Fired messages stale.
type Timer struct {
	name     string
	seq      uint64
	armed    bool
	deadline time.Time
}

func NewTimer(name string) *Timer {
	return &Timer{name: name}
}

func (t *Timer) Name() string { return t.name }

// Arm schedules the timer d from now, replacing any earlier schedule.
func (t *Timer) Arm(c Clock, d time.Duration) tea.Cmd {
	t.seq++
	t.armed = true
	t.deadline = c.Now().Add(d)
	return c.After(d, Fired{Timer: t.name, Seq: t.seq})
}

func (t *Timer) Cancel() {
	t.seq++
	t.armed = false
}

func (t *Timer) Armed() bool { return t.armed }

func (t *Timer) Deadline() time.Time { return t.deadline }

// Fire consumes msg if it belongs to the current schedule of this timer.
func (t *Timer) Fire(msg Fired) bool {
	if !t.armed || msg.Timer != t.name || msg.Seq != t.seq {
		return false
	}
	t.armed = false
	return true
}

type scheduled struct {
	at  time.Time
	msg tea.Msg
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	now     time.Time
	pending []scheduled
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time { return f.now }

func (f *Fake) After(d time.Duration, msg tea.Msg) tea.Cmd {
	f.pending = append(f.pending, scheduled{at: f.now.Add(d), msg: msg})
	return func() tea.Msg { return msg }
}

// Pending returns the number of scheduled messages not yet delivered.
func (f *Fake) Pending() int { return len(f.pending) }

// Advance moves time forward and returns the messages that became due, in
// deadline order.
func (f *Fake) Advance(d time.Duration) []tea.Msg {
	f.now = f.now.Add(d)
	sort.SliceStable(f.pending, func(i, j int) bool { return f.pending[i].at.Before(f.pending[j].at) })
	var due []tea.Msg
	rest := f.pending[:0]
	for _, s := range f.pending {
		if !s.at.After(f.now) {
			due = append(due, s.msg)
		} else {
			rest = append(rest, s)
		}
	}
	f.pending = rest
	return due
}
