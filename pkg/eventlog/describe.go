package eventlog

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const quoteLimit = 40

// Link is a clickable span of a PreparedText. Offsets count runes.
type Link struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Target string `json:"target"`
}

// PreparedText is the displayed text of an item together with its links.
type PreparedText struct {
	Text  string
	Links []Link
}

// RuneLen is the length of the text in runes, the unit of every offset.
func (p PreparedText) RuneLen() int {
	return utf8.RuneCountInString(p.Text)
}

// LinkAt returns the link covering the rune offset.
func (p PreparedText) LinkAt(offset int) (Link, bool) {
	for _, l := range p.Links {
		if offset >= l.Offset && offset < l.Offset+l.Length {
			return l, true
		}
	}
	return Link{}, false
}

// TextWithEntities is exported text with the links that intersect it.
type TextWithEntities struct {
	Text     string
	Entities []Link
}

func (t TextWithEntities) Empty() bool { return t.Text == "" }

// ActorTarget is the link target of an actor mention.
func ActorTarget(actorID int64) string { return fmt.Sprintf("actor:%d", actorID) }

// ItemTarget is the link target of a referenced item.
func ItemTarget(id int64) string { return fmt.Sprintf("item:%d", id) }

type textBuilder struct {
	sb    strings.Builder
	runes int
	links []Link
}

func (b *textBuilder) add(s string) {
	b.sb.WriteString(s)
	b.runes += utf8.RuneCountInString(s)
}

func (b *textBuilder) link(s, target string) {
	n := utf8.RuneCountInString(s)
	if n > 0 && target != "" {
		b.links = append(b.links, Link{Offset: b.runes, Length: n, Target: target})
	}
	b.add(s)
}

func (b *textBuilder) done() PreparedText {
	return PreparedText{Text: b.sb.String(), Links: b.links}
}

// Describe generates the displayed text of an item. lookup resolves locally
// bound dependencies and may be nil.
func Describe(it *Item, lookup Lookup) PreparedText {
	b := &textBuilder{}
	actor := it.Actor
	if actor == "" {
		actor = "Someone"
	}
	from := func() { b.link(actor, ActorTarget(it.ActorID)) }

	switch p := it.Payload.(type) {
	case *Pinned:
		from()
		target, ok := p.Target(lookup)
		switch {
		case ok:
			b.add(" pinned «")
			b.link(quote(target), ItemTarget(p.RefID))
			b.add("»")
		case p.State() == DependencyNotFound:
			b.add(" pinned a deleted message")
		default:
			b.add(" pinned a message")
		}
	case *GameScore:
		from()
		b.add(fmt.Sprintf(" scored %d", p.Score))
		if target, ok := p.Target(lookup); ok {
			b.add(" in «")
			b.link(quote(target), ItemTarget(p.RefID))
			b.add("»")
		}
	case *Payment:
		from()
		b.add(" transferred " + p.Amount)
		if target, ok := p.Target(lookup); ok {
			b.add(" for «")
			b.link(quote(target), ItemTarget(p.RefID))
			b.add("»")
		}
	case *Joined:
		if p.Inviter != "" {
			b.add(p.Inviter + " added ")
			from()
		} else {
			from()
			b.add(" joined the group")
		}
	case *TitleChanged:
		from()
		b.add(" changed group name to «" + p.Title + "»")
	case *Left:
		from()
		b.add(" left the group")
	case *Text:
		from()
		b.add(": " + p.Body)
	default:
		from()
	}
	return b.done()
}

// quote is the short single-line form of a referenced item.
func quote(target *Item) string {
	var s string
	if t, ok := target.Payload.(*Text); ok {
		s = t.Body
	} else {
		s = Describe(target, nil).Text
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > quoteLimit {
		r := []rune(s)
		s = string(r[:quoteLimit-1]) + "…"
	}
	return s
}
