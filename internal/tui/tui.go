// Package tui renders the live dashboard in a terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"daybook/internal/model"
	"daybook/internal/notify"
	"daybook/internal/session"
	"daybook/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4A90E2")).
			Padding(0, 1).
			MarginBottom(1)

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	alarmOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 2).
			MarginBottom(1)
)

const (
	tickInterval = time.Second
	maxToasts    = 3
	minBoxWidth  = 40
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model. It only reads from the session; the session's
// own tasks keep the status and alarms current.
type Model struct {
	session *session.Session
	feed    *notify.Feed
	width   int
	height  int
	now     time.Time
}

func New(sess *session.Session, feed *notify.Feed) Model {
	return Model{session: sess, feed: feed, now: sess.Now()}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "a":
			e := m.session.Alarms()
			e.SetEnabled(!e.Enabled())
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	}
	return m, nil
}

func (m Model) View() string {
	width := m.width - 4
	if width < minBoxWidth {
		width = minBoxWidth
	}

	st := m.session.Status()
	rep := m.session.Stats()

	header := headerStyle.Render(fmt.Sprintf("📅 %s", m.now.Format("Mon Jan 2  15:04:05")))

	sections := []string{
		header,
		boxStyle.Width(width).Render(nowSection(st, width-6)),
		boxStyle.Width(width).Render(statsSection(rep, width-6)),
	}
	if m.feed != nil {
		if toasts := m.feed.Recent(); len(toasts) > 0 {
			sections = append(sections, boxStyle.Width(width).Render(toastSection(toasts)))
		}
	}

	alarms := "alarms on"
	if !m.session.Alarms().Enabled() {
		alarms = alarmOffStyle.Render("alarms off")
	}
	sections = append(sections, mutedStyle.Render("q quit • a toggle alarms • "+alarms))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func nowSection(st session.Status, barWidth int) string {
	var b strings.Builder
	b.WriteString("NOW\n\n")
	if st.Current == nil {
		b.WriteString(mutedStyle.Render("Nothing scheduled"))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "%s  %s\n", currentStyle.Render(label(*st.Current)), mutedStyle.Render(st.Current.Interval().String()))
		fmt.Fprintf(&b, "%s %.0f%%\n", progressBar(st.Progress, barWidth-6), st.Progress)
		fmt.Fprintf(&b, "%s left\n", stats.FormatMinutes(st.RemainingMinutes))
	}
	if st.Next != nil {
		fmt.Fprintf(&b, "\nNext: %s at %s", label(*st.Next), st.Next.Start)
	}
	return b.String()
}

func statsSection(rep stats.Report, barWidth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TODAY  %s elapsed (%.0f%%)  •  %d done\n\n",
		stats.FormatMinutes(rep.ElapsedMinutes), rep.DayElapsedPercent, rep.CompletedActivities)
	for _, c := range rep.Categories {
		fmt.Fprintf(&b, "%-2s %-12s %6s %s %3.0f%%\n",
			c.Category.DefaultEmoji(), c.Label, c.Hours(),
			progressBar(c.ProgressPercent, barWidth-28), c.ProgressPercent)
	}
	return strings.TrimRight(b.String(), "\n")
}

func toastSection(toasts []notify.Toast) string {
	if len(toasts) > maxToasts {
		toasts = toasts[:maxToasts]
	}
	lines := make([]string, 0, len(toasts))
	for _, t := range toasts {
		lines = append(lines, fmt.Sprintf("%s %s  %s", mutedStyle.Render(t.At.Format("15:04")), t.Title, t.Description))
	}
	return strings.Join(lines, "\n")
}

func label(a model.Activity) string {
	if a.Emoji == "" {
		return a.Title
	}
	return a.Emoji + " " + a.Title
}

func progressBar(pct float64, width int) string {
	if width < 10 {
		width = 10
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return currentStyle.Render(bar)
}

// Run starts the full-screen dashboard and blocks until the user quits.
func Run(sess *session.Session, feed *notify.Feed) error {
	p := tea.NewProgram(New(sess, feed), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
