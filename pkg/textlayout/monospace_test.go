package textlayout

import (
	"testing"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/stretchr/testify/require"
)

func lineTexts(lines []Line) []string {
	ret := make([]string, 0, len(lines))
	for _, l := range lines {
		ret = append(ret, l.Text)
	}
	return ret
}

func TestMonospace_Wrap(t *testing.T) {
	m := NewMonospace()
	require.Equal(t, []string{"Bob: ", "hello ", "world"}, lineTexts(m.Lines("Bob: hello world", 10)))
	require.Equal(t, []string{"abcdef", "gh"}, lineTexts(m.Lines("abcdefgh", 6)))
	require.Equal(t, []string{"a", "", "b"}, lineTexts(m.Lines("a\n\nb", 6)))
	require.Equal(t, []string{"日本", "語"}, lineTexts(m.Lines("日本語", 4)))
	require.Equal(t, 1, m.Height("", 10))

	lines := m.Lines("a\nbc", 10)
	require.Equal(t, Line{Start: 2, End: 4, Text: "bc"}, lines[1])
}

func TestMonospace_HitTest(t *testing.T) {
	m := NewMonospace()
	p := eventlog.PreparedText{
		Text:  "Bob: hello world",
		Links: []eventlog.Link{{Offset: 0, Length: 3, Target: "actor:1"}},
	}

	hit := m.HitTest(p, 10, 2, 1)
	require.Equal(t, 7, hit.Offset)
	require.Equal(t, CursorText, hit.State)

	hit = m.HitTest(p, 10, 1, 0)
	require.Equal(t, CursorLink, hit.State)
	require.Equal(t, "actor:1", hit.Link.Target)

	hit = m.HitTest(p, 10, 9, 1)
	require.Equal(t, Hit{Offset: 11}, hit)

	require.Equal(t, Hit{Offset: 0}, m.HitTest(p, 10, 3, -1))
	require.Equal(t, Hit{Offset: 16}, m.HitTest(p, 10, 0, 5))

	wide := eventlog.PreparedText{Text: "日本語"}
	require.Equal(t, 1, m.HitTest(wide, 4, 3, 0).Offset)
	require.Equal(t, 2, m.HitTest(wide, 4, 0, 1).Offset)
}

func TestMonospace_WordAndParagraph(t *testing.T) {
	m := NewMonospace()
	text := "Bob: hello world"

	from, to := m.WordAt(text, 7)
	require.Equal(t, 5, from)
	require.Equal(t, 10, to)

	from, to = m.Adjust(text, 7, 7, SelectWords)
	require.Equal(t, 5, from)
	require.Equal(t, 10, to)

	from, to = m.Adjust(text, 6, 12, SelectWords)
	require.Equal(t, 5, from)
	require.Equal(t, 16, to)

	from, to = m.Adjust("a\nbc\nd", 3, 3, SelectParagraphs)
	require.Equal(t, 2, from)
	require.Equal(t, 4, to)

	from, to = m.Adjust(text, 6, 8, SelectLetters)
	require.Equal(t, 6, from)
	require.Equal(t, 8, to)
}

func TestMonospace_Selected(t *testing.T) {
	m := NewMonospace()
	p := eventlog.PreparedText{
		Text:  "Bob: hello",
		Links: []eventlog.Link{{Offset: 0, Length: 3, Target: "actor:1"}},
	}

	sel := m.Selected(p, 1, 7)
	require.Equal(t, "ob: he", sel.Text)
	require.Equal(t, []eventlog.Link{{Offset: 0, Length: 2, Target: "actor:1"}}, sel.Entities)

	sel = m.Selected(p, 5, 100)
	require.Equal(t, "hello", sel.Text)
	require.Empty(t, sel.Entities)
}
