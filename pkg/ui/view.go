package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/scrolldate"
	"github.com/go-go-golems/adminlog/pkg/textlayout"
	"github.com/go-go-golems/adminlog/pkg/widget"
	"github.com/mattn/go-runewidth"
)

var (
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("#FFFDF5"))
	badgeStyle    = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("#FFFDF5")).
			Padding(0, 1).
			Bold(true)
	fadedBadgeStyle = badgeStyle.Faint(true)
	tooltipStyle    = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFFDF5")).
			Padding(0, 1)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF")).Bold(true)
	emptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	lh := m.listHeight()

	var body string
	if text := m.w.EmptyText(); text != "" {
		body = lipgloss.Place(m.width, lh, lipgloss.Center, lipgloss.Center, emptyStyle.Render(text))
	} else {
		rows := m.rows(lh)
		m.paintBadge(rows, m.w.ScrollDate())
		m.paintTooltip(rows)
		body = strings.Join(rows, "\n")
	}

	parts := []string{body}
	if m.searching {
		parts = append(parts, m.search.View())
	}
	parts = append(parts, m.statusLine())
	if m.showHelp {
		parts = append(parts, m.help.View(keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) rows(lh int) []string {
	rows := make([]string, lh)
	pad := strings.Repeat(" ", widget.Gutter)
	now := m.w.Now()
	m.w.Enumerate(m.offset, m.offset+lh, func(r widget.Row) bool {
		if y := r.Top - 1 - m.offset; r.Separator && y >= 0 && y < lh {
			label := separatorStyle.Render(scrolldate.Format(r.Item.Date, now))
			rows[y] = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, label)
		}
		for li, line := range r.Lines {
			y := r.Top + li - m.offset
			if y < 0 {
				continue
			}
			if y >= lh {
				return false
			}
			gutter := pad
			if li == 0 {
				gutter = timeStyle.Render(r.Item.Date.Format("15:04 "))
			}
			rows[y] = gutter + paintLine(r, line)
		}
		return true
	})
	return rows
}

// paintLine styles one wrapped line, splitting it at selection and link
// bounds.
func paintLine(r widget.Row, line textlayout.Line) string {
	cuts := []int{line.Start, line.End}
	clip := func(v int) int { return min(max(v, line.Start), line.End) }
	if r.Selected {
		cuts = append(cuts, clip(r.SelFrom), clip(r.SelTo))
	}
	for _, l := range r.Text.Links {
		cuts = append(cuts, clip(l.Offset), clip(l.Offset+l.Length))
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	runes := []rune(line.Text)
	var sb strings.Builder
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		seg := string(runes[from-line.Start : to-line.Start])
		_, link := r.Text.LinkAt(from)
		selected := r.Selected && from >= r.SelFrom && to <= r.SelTo
		switch {
		case selected && link:
			sb.WriteString(selectedStyle.Underline(true).Render(seg))
		case selected:
			sb.WriteString(selectedStyle.Render(seg))
		case link:
			sb.WriteString(linkStyle.Render(seg))
		default:
			sb.WriteString(seg)
		}
	}
	return sb.String()
}

func (m *Model) paintBadge(rows []string, st scrolldate.State) {
	if st.Phase == scrolldate.PhaseHidden || st.Opacity <= 0 || len(rows) == 0 {
		return
	}
	style := badgeStyle
	if st.Opacity < 0.5 {
		style = fadedBadgeStyle
	}
	rows[0] = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, style.Render(st.Text))
}

func (m *Model) paintTooltip(rows []string) {
	tip := m.w.Tooltip()
	if tip == nil {
		return
	}
	y := tip.Y - m.offset + 1
	if y >= len(rows) {
		y -= 2
	}
	if y < 0 || y >= len(rows) {
		return
	}
	room := max(m.width-2, 1)
	text := runewidth.Truncate(tip.Text, room, "…")
	x := min(max(tip.X, 0), max(m.width-runewidth.StringWidth(text)-2, 0))
	rows[y] = strings.Repeat(" ", x) + tooltipStyle.Render(text)
}

func describeFilter(f eventlog.Filter) string {
	var parts []string
	if len(f.Kinds) > 0 {
		kinds := make([]string, 0, len(f.Kinds))
		for _, k := range f.Kinds {
			kinds = append(kinds, string(k))
		}
		parts = append(parts, "kinds: "+strings.Join(kinds, ","))
	}
	if len(f.Actors) > 0 {
		parts = append(parts, fmt.Sprintf("actors: %v", f.Actors))
	}
	if f.Query != "" {
		parts = append(parts, fmt.Sprintf("search: %q", f.Query))
	}
	if len(parts) == 0 {
		return "all events"
	}
	return strings.Join(parts, " · ")
}

func (m *Model) statusLine() string {
	left := fmt.Sprintf("%d loaded · %s", m.w.Store().Len(), describeFilter(m.w.Filter()))
	if m.w.Loading() {
		left += " · loading…"
	}
	if m.status != "" {
		left += " · " + m.status
	}
	line := statusStyle.Render(left)
	if err := m.w.LastError(); err != nil {
		line += "  " + errorStyle.Render(err.Error())
	}
	return runewidth.Truncate(line, max(m.width, 1)*4, "")
}
