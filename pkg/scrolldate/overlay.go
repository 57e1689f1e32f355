// Package scrolldate shows the date of the topmost visible item while the
// list is being scrolled and fades it out once scrolling stops.
package scrolldate

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/clock"
	"github.com/google/uuid"
)

type Phase int

const (
	PhaseHidden Phase = iota
	PhaseShowing
	PhaseVisible
	PhaseFadingOut
)

func (p Phase) String() string {
	switch p {
	case PhaseShowing:
		return "showing"
	case PhaseVisible:
		return "visible"
	case PhaseFadingOut:
		return "fading-out"
	default:
		return "hidden"
	}
}

type Config struct {
	HideDelay     time.Duration
	FadeDuration  time.Duration
	FrameInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HideDelay <= 0 {
		c.HideDelay = time.Second
	}
	if c.FadeDuration <= 0 {
		c.FadeDuration = 200 * time.Millisecond
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = 50 * time.Millisecond
	}
	return c
}

// State is what the painter needs to draw the badge.
type State struct {
	Phase   Phase
	Opacity float64
	Date    time.Time
	Text    string
}

type Overlay struct {
	clock clock.Clock
	cfg   Config

	phase   Phase
	from    float64
	phaseAt time.Time
	date    time.Time
	top     int
	hide    *clock.Timer
	frame   *clock.Timer
}

func New(clk clock.Clock, cfg Config) *Overlay {
	id := uuid.NewString()[:8]
	return &Overlay{
		clock: clk,
		cfg:   cfg.withDefaults(),
		hide:  clock.NewTimer("scrolldate/" + id + "/hide"),
		frame: clock.NewTimer("scrolldate/" + id + "/frame"),
	}
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (o *Overlay) progress() float64 {
	elapsed := o.clock.Now().Sub(o.phaseAt)
	return min(max(float64(elapsed)/float64(o.cfg.FadeDuration), 0), 1)
}

// settle moves finished animations to their resting phase.
func (o *Overlay) settle() {
	switch o.phase {
	case PhaseShowing:
		if o.opacity() >= 1 {
			o.phase = PhaseVisible
		}
	case PhaseFadingOut:
		if o.opacity() <= 0 {
			o.phase = PhaseHidden
			o.frame.Cancel()
		}
	}
}

func (o *Overlay) opacity() float64 {
	switch o.phase {
	case PhaseShowing:
		return min(o.from+o.progress(), 1)
	case PhaseVisible:
		return 1
	case PhaseFadingOut:
		return max(o.from-o.progress(), 0)
	}
	return 0
}

func (o *Overlay) Phase() Phase {
	o.settle()
	return o.phase
}

func (o *Overlay) State() State {
	o.settle()
	s := State{Phase: o.phase, Opacity: o.opacity(), Date: o.date}
	if o.phase != PhaseHidden {
		s.Text = Format(o.date, o.clock.Now())
	}
	return s
}

// Format renders a badge date, with the year only when it is not the
// current one.
func Format(date, now time.Time) string {
	if date.Year() == now.Year() {
		return date.Format("Monday, 2 January")
	}
	return date.Format("2 January 2006")
}

func (o *Overlay) startShowing() tea.Cmd {
	o.from = o.opacity()
	o.phase = PhaseShowing
	o.phaseAt = o.clock.Now()
	return o.frame.Arm(o.clock, o.cfg.FrameInterval)
}

// Scrolled reports a change of the visible range. top is the viewport top
// and date the date of the topmost item intersecting it. nearEnd is true
// when the viewport is within the last two screens of content.
func (o *Overlay) Scrolled(top int, date time.Time, hasDate, nearEnd bool) tea.Cmd {
	o.settle()
	moved := top != o.top
	o.top = top
	if !hasDate || nearEnd {
		o.HideNow()
		return nil
	}

	var cmds []tea.Cmd
	switch {
	case o.phase == PhaseHidden || !SameDay(date, o.date):
		o.date = date
		if o.phase != PhaseShowing && o.phase != PhaseVisible {
			cmds = append(cmds, o.startShowing())
		}
		cmds = append(cmds, o.hide.Arm(o.clock, o.cfg.HideDelay))
	case o.phase == PhaseFadingOut && moved:
		cmds = append(cmds, o.startShowing(), o.hide.Arm(o.clock, o.cfg.HideDelay))
	case moved && o.phase != PhaseFadingOut:
		cmds = append(cmds, o.hide.Arm(o.clock, o.cfg.HideDelay))
	}
	return batch(cmds)
}

func batch(cmds []tea.Cmd) tea.Cmd {
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	}
	return tea.Batch(cmds...)
}

// HideNow hides the badge without a fade, as on scroll to end.
func (o *Overlay) HideNow() {
	o.phase = PhaseHidden
	o.from = 0
	o.hide.Cancel()
	o.frame.Cancel()
}

// Update consumes the overlay's timer messages. It reports whether msg was
// one of them, in which case the badge needs a repaint.
func (o *Overlay) Update(msg tea.Msg) (tea.Cmd, bool) {
	fired, ok := msg.(clock.Fired)
	if !ok {
		return nil, false
	}
	switch {
	case o.hide.Fire(fired):
		o.settle()
		if o.phase == PhaseHidden {
			return nil, true
		}
		o.from = o.opacity()
		o.phase = PhaseFadingOut
		o.phaseAt = o.clock.Now()
		return o.frame.Arm(o.clock, o.cfg.FrameInterval), true
	case o.frame.Fire(fired):
		o.settle()
		if o.phase == PhaseShowing || o.phase == PhaseFadingOut {
			return o.frame.Arm(o.clock, o.cfg.FrameInterval), true
		}
		return nil, true
	}
	return nil, false
}
