// Package textlayout wraps described item text into terminal rows and maps
// cells back to rune offsets.
package textlayout

import (
	"unicode"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// CursorState classifies what lies under a hit point.
type CursorState int

const (
	// CursorNone is a point outside of the text, past a line end or outside the rows.
	CursorNone CursorState = iota
	CursorText
	CursorLink
)

func (c CursorState) String() string {
	switch c {
	case CursorText:
		return "text"
	case CursorLink:
		return "link"
	default:
		return "none"
	}
}

// SelectType is the granularity selection ends snap to.
type SelectType int

const (
	SelectLetters SelectType = iota
	SelectWords
	SelectParagraphs
)

// Line is one wrapped row. Start and End are rune offsets, End exclusive
// and never including the newline.
type Line struct {
	Start int
	End   int
	Text  string
}

// Hit is the result of a hit test.
type Hit struct {
	Offset int
	State  CursorState
	Link   eventlog.Link
}

// Monospace lays out text on a cell grid using East Asian width rules.
type Monospace struct{}

func NewMonospace() *Monospace { return &Monospace{} }

// Lines wraps text to width, breaking after spaces where possible.
func (m *Monospace) Lines(text string, width int) []Line {
	width = max(width, 1)
	runes := []rune(text)
	var lines []Line
	emit := func(start, end int) {
		lines = append(lines, Line{Start: start, End: end, Text: string(runes[start:end])})
	}

	start, col, lastSpace := 0, 0, -1
	for i, r := range runes {
		if r == '\n' {
			emit(start, i)
			start, col, lastSpace = i+1, 0, -1
			continue
		}
		w := runewidth.RuneWidth(r)
		if col+w > width && i > start {
			if lastSpace >= start {
				emit(start, lastSpace+1)
				start = lastSpace + 1
			} else {
				emit(start, i)
				start = i
			}
			col = runewidth.StringWidth(string(runes[start:i]))
			lastSpace = -1
		}
		if unicode.IsSpace(r) {
			lastSpace = i
		}
		col += w
	}
	emit(start, len(runes))
	return lines
}

// Height is the number of rows text occupies at width.
func (m *Monospace) Height(text string, width int) int {
	return len(m.Lines(text, width))
}

// HitTest maps a cell relative to the top left of the text to a rune offset.
// Rows above the text clamp to offset 0, rows below to the end.
func (m *Monospace) HitTest(p eventlog.PreparedText, width, x, y int) Hit {
	lines := m.Lines(p.Text, width)
	if y < 0 {
		return Hit{Offset: 0}
	}
	if y >= len(lines) {
		return Hit{Offset: p.RuneLen()}
	}
	line := lines[y]
	if x < 0 {
		return Hit{Offset: line.Start}
	}
	col := 0
	for i, r := range []rune(line.Text) {
		w := runewidth.RuneWidth(r)
		if x < col+w {
			off := line.Start + i
			if l, ok := p.LinkAt(off); ok {
				return Hit{Offset: off, State: CursorLink, Link: l}
			}
			return Hit{Offset: off, State: CursorText}
		}
		col += w
	}
	return Hit{Offset: line.End}
}

// WordAt returns the bounds of the word segment containing offset.
func (m *Monospace) WordAt(text string, offset int) (from, to int) {
	state := -1
	rest := text
	pos := 0
	var word string
	for len(rest) > 0 {
		word, rest, state = uniseg.FirstWordInString(rest, state)
		n := len([]rune(word))
		if offset < pos+n {
			return pos, pos + n
		}
		pos += n
	}
	return pos, pos
}

// ParagraphAt returns the bounds of the newline separated paragraph
// containing offset.
func (m *Monospace) ParagraphAt(text string, offset int) (from, to int) {
	runes := []rune(text)
	offset = min(max(offset, 0), len(runes))
	from = offset
	for from > 0 && runes[from-1] != '\n' {
		from--
	}
	to = offset
	for to < len(runes) && runes[to] != '\n' {
		to++
	}
	return from, to
}

// SnapStart moves a selection start back to the boundary of st.
func (m *Monospace) SnapStart(text string, from int, st SelectType) int {
	switch st {
	case SelectWords:
		f, _ := m.WordAt(text, from)
		return f
	case SelectParagraphs:
		f, _ := m.ParagraphAt(text, from)
		return f
	}
	return from
}

// SnapEnd moves an exclusive selection end forward to the boundary of st.
// An end on a boundary stays put unless it is the start of the selection.
func (m *Monospace) SnapEnd(text string, to int, st SelectType, empty bool) int {
	switch st {
	case SelectWords:
		end := to
		if !empty && to > 0 {
			end = to - 1
		}
		_, t := m.WordAt(text, end)
		return max(t, to)
	case SelectParagraphs:
		_, t := m.ParagraphAt(text, to)
		return t
	}
	return to
}

// Adjust snaps a normalized selection within one text outward to st.
func (m *Monospace) Adjust(text string, from, to int, st SelectType) (int, int) {
	return m.SnapStart(text, from, st), m.SnapEnd(text, to, st, from == to)
}

// Selected returns the text between two offsets with the links that
// intersect it, shifted to the selected range.
func (m *Monospace) Selected(p eventlog.PreparedText, from, to int) eventlog.TextWithEntities {
	runes := []rune(p.Text)
	from = min(max(from, 0), len(runes))
	to = min(max(to, from), len(runes))
	ret := eventlog.TextWithEntities{Text: string(runes[from:to])}
	for _, l := range p.Links {
		s := max(l.Offset, from)
		e := min(l.Offset+l.Length, to)
		if s < e {
			ret.Entities = append(ret.Entities, eventlog.Link{Offset: s - from, Length: e - s, Target: l.Target})
		}
	}
	return ret
}
