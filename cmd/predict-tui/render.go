package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"predictboard/internal/dashboard"
	"predictboard/internal/domain"
)

const chartHeight = 10

// styles are built per render from the current theme's palette.
type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	accent   lipgloss.Style
	up       lipgloss.Style
	down     lipgloss.Style
	errBox   lipgloss.Style
	card     lipgloss.Style
	button   lipgloss.Style
	footer   lipgloss.Style
}

func newStyles(p dashboard.Palette) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Accent)),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		text:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Text)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		accent:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)),
		up:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.Up)),
		down:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Down)),
		errBox: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Down)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Down)).
			Padding(0, 1),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1).
			MarginRight(1),
		button: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.Background)).
			Background(lipgloss.Color(p.Accent)).
			Padding(0, 1),
		footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)).
			Background(lipgloss.Color(p.Surface)),
	}
}

func (st styles) direction(d domain.Direction) lipgloss.Style {
	if d == domain.DirectionDown {
		return st.down
	}
	return st.up
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	v := dashboard.BuildView(m.state, m.now)
	st := newStyles(v.Palette)

	button := st.button.Render(v.Form.Button)
	if v.Form.Disabled {
		button = m.spinner.View() + " " + st.muted.Render(v.Form.Button)
	}
	form := m.input.View() + "  " + button

	header := st.title.Render(v.Title) + "\n" +
		st.subtitle.Render(v.Subtitle) + "\n\n" +
		form

	help := " enter predict  esc dismiss/leave input  / edit  t theme  q quit  pgup/dn scroll"
	if m.input.Focused() {
		help = " enter predict  tab complete  esc dismiss/leave input  ctrl+t theme  ctrl+c quit"
	}
	right := fmt.Sprintf("%s %.0f%% ", v.Theme, m.viewport.ScrollPercent()*100)
	gap := m.width - lipgloss.Width(help) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	footer := st.footer.Render(padOrTrunc(help+strings.Repeat(" ", gap)+right, m.width))

	return header + "\n" + m.viewport.View() + "\n" + footer
}

func (m model) renderContent() string {
	v := dashboard.BuildView(m.state, m.now)
	st := newStyles(v.Palette)

	var b strings.Builder
	if m.notice != "" {
		b.WriteString(st.down.Render(m.notice))
		b.WriteString("\n")
	}
	if v.Error != "" {
		b.WriteString(st.errBox.Render(v.Error + "  " + st.muted.Render("(esc to dismiss)")))
		b.WriteString("\n")
	}

	if v.Chart != nil {
		b.WriteString("\n")
		renderChart(&b, st, v.Chart, m.width)
	}
	if v.Cards != nil {
		b.WriteString("\n")
		b.WriteString(renderCards(st, v.Cards))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	renderBoard(&b, st, v.Board, m.width)
	return b.String()
}

func renderChart(b *strings.Builder, st styles, c *dashboard.ChartView, width int) {
	title := fmt.Sprintf("%s  %d days + prediction for %s", c.Ticker, len(c.Points)-1, dashboard.FormatDate(c.TargetDate))
	if c.UpdatedAgo != "" {
		title += "  · updated " + c.UpdatedAgo
	}
	b.WriteString(st.text.Bold(true).Render(title))
	b.WriteString("\n")

	const labelW = 10
	plotW := width - labelW - 2
	if plotW < 10 {
		plotW = 10
	}
	line := st.direction(c.Trend)

	rows := dashboard.Sparkline(c.Series(), plotW, chartHeight)
	for i, row := range rows {
		label := ""
		switch i {
		case 0:
			label = fmt.Sprintf("$%.2f", c.Max)
		case len(rows) - 1:
			label = fmt.Sprintf("$%.2f", c.Min)
		}
		b.WriteString(st.muted.Render(fmt.Sprintf("%*s ", labelW, label)))
		b.WriteString("│")
		for _, r := range row {
			switch r {
			case dashboard.GlyphPrediction:
				b.WriteString(st.accent.Render(string(r)))
			case ' ':
				b.WriteRune(r)
			default:
				b.WriteString(line.Render(string(r)))
			}
		}
		b.WriteString("\n")
	}

	if n := len(c.Points); n > 0 {
		first, last := c.Points[0], c.Points[n-1]
		axis := fmt.Sprintf("%*s  %s → %s", labelW, "", first.Label, last.Label)
		b.WriteString(st.muted.Render(axis))
		b.WriteString("\n")
	}
}

func renderCards(st styles, c *dashboard.CardsView) string {
	card := func(cd dashboard.Card) string {
		lines := []string{
			st.muted.Render(cd.Label) + "  " + st.accent.Render("["+cd.Badge+"]"),
			st.text.Bold(true).Render(cd.Value),
		}
		if cd.Change != "" {
			lines = append(lines, st.direction(cd.Direction).Render(cd.Change))
		}
		lines = append(lines, st.muted.Render(cd.Date))
		return st.card.Render(strings.Join(lines, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, card(c.Current), card(c.Predicted))
}

func renderBoard(b *strings.Builder, st styles, bv dashboard.BoardView, width int) {
	status := "Live prices"
	if bv.Loading {
		status = "Loading live prices..."
	}
	if bv.UpdatedAgo != "" {
		status += "  · updated " + bv.UpdatedAgo
	}
	b.WriteString(st.text.Bold(true).Render(status))
	if bv.Error != "" {
		b.WriteString("  ")
		b.WriteString(st.down.Render(bv.Error))
	}
	b.WriteString("\n")

	var row []string
	rowW := 0
	flush := func() {
		if len(row) > 0 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
			b.WriteString("\n")
		}
		row, rowW = nil, 0
	}
	for _, q := range bv.Quotes {
		c := st.card.Render(
			st.accent.Bold(true).Render(q.Ticker) + "\n" +
				st.text.Render(q.Price) + "\n" +
				st.direction(q.Direction).Render(q.Change+" "+q.Percent))
		w := lipgloss.Width(c)
		if rowW+w > width && len(row) > 0 {
			flush()
		}
		row = append(row, c)
		rowW += w
	}
	flush()
}

func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return s
	}
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s
}
