package eventlog

import (
	"time"
)

// Kind discriminates the payload carried by an Item.
type Kind string

const (
	KindText         Kind = "text"
	KindPinned       Kind = "pinned"
	KindGameScore    Kind = "game_score"
	KindPayment      Kind = "payment"
	KindJoined       Kind = "joined"
	KindTitleChanged Kind = "title_changed"
	KindLeft         Kind = "left"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindText, KindPinned, KindGameScore, KindPayment, KindJoined, KindTitleChanged, KindLeft}

// Direction names an edge of the loaded window.
// Up is the oldest loaded item, Down the newest.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Lookup resolves an item id against the owner of the items, usually the window.
type Lookup func(id int64) (*Item, bool)

// Item is one entry of the admin log.
//
// The cached height and prepared text belong to the item and are dropped by
// Invalidate whenever something the text depends on changes.
type Item struct {
	ID      int64
	Date    time.Time
	ActorID int64
	Actor   string
	Payload Payload

	prepared    *PreparedText
	height      int
	heightWidth int
}

// Kind returns the payload discriminator.
func (it *Item) Kind() Kind {
	if it == nil || it.Payload == nil {
		return KindText
	}
	return it.Payload.Kind()
}

// Dependency returns the reference carried by pinned, game score and payment
// entries, or nil for kinds without one.
func (it *Item) Dependency() *Dependency {
	if it == nil {
		return nil
	}
	switch p := it.Payload.(type) {
	case *Pinned:
		return &p.Dependency
	case *GameScore:
		return &p.Dependency
	case *Payment:
		return &p.Dependency
	}
	return nil
}

// CachedHeight returns the height computed for width, if still valid.
func (it *Item) CachedHeight(width int) (int, bool) {
	if it.heightWidth == 0 || it.heightWidth != width {
		return 0, false
	}
	return it.height, true
}

func (it *Item) SetHeight(width, height int) {
	it.heightWidth = width
	it.height = height
}

// Prepared returns the cached described text, computing it with lookup on a miss.
func (it *Item) Prepared(lookup Lookup) PreparedText {
	if it.prepared == nil {
		p := Describe(it, lookup)
		it.prepared = &p
	}
	return *it.prepared
}

// Invalidate drops the cached text and height.
func (it *Item) Invalidate() {
	it.prepared = nil
	it.height = 0
	it.heightWidth = 0
}

// Clone returns a deep copy without caches or dependency runtime state.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	c := &Item{
		ID:      it.ID,
		Date:    it.Date,
		ActorID: it.ActorID,
		Actor:   it.Actor,
	}
	if it.Payload != nil {
		c.Payload = it.Payload.clone()
	}
	return c
}

// Payload is the closed set of per-kind data.
type Payload interface {
	Kind() Kind
	clone() Payload
}

type Text struct {
	Body string
}

type Pinned struct {
	Dependency
}

type GameScore struct {
	Dependency
	Score int
}

type Payment struct {
	Dependency
	Amount string
}

type Joined struct {
	Inviter string
}

type TitleChanged struct {
	Title string
}

type Left struct{}

func (*Text) Kind() Kind         { return KindText }
func (*Pinned) Kind() Kind       { return KindPinned }
func (*GameScore) Kind() Kind    { return KindGameScore }
func (*Payment) Kind() Kind      { return KindPayment }
func (*Joined) Kind() Kind       { return KindJoined }
func (*TitleChanged) Kind() Kind { return KindTitleChanged }
func (*Left) Kind() Kind         { return KindLeft }

func (p *Text) clone() Payload { c := *p; return &c }
func (p *Pinned) clone() Payload {
	return &Pinned{Dependency: Dependency{RefID: p.RefID}}
}
func (p *GameScore) clone() Payload {
	return &GameScore{Dependency: Dependency{RefID: p.RefID}, Score: p.Score}
}
func (p *Payment) clone() Payload {
	return &Payment{Dependency: Dependency{RefID: p.RefID}, Amount: p.Amount}
}
func (p *Joined) clone() Payload       { c := *p; return &c }
func (p *TitleChanged) clone() Payload { c := *p; return &c }
func (p *Left) clone() Payload         { return &Left{} }
