// Package tui renders a live status view over the sink: recent metric
// buckets and the alarm state derived from the newest sample.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runwatch/runwatch/internal/alarm"
	"github.com/runwatch/runwatch/internal/metric"
)

const (
	refreshEvery = 2 * time.Second
	lookback     = time.Hour
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	alarmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

// Model is the bubbletea model behind `runwatch status`.
type Model struct {
	extractor *metric.Extractor
	threshold int
	prefix    string

	table     table.Model
	state     alarm.State
	refreshed time.Time
	err       error
}

// New builds the status model.
func New(extractor *metric.Extractor, threshold int, prefix string) Model {
	columns := []table.Column{
		{Title: "Bucket", Width: 20},
		{Title: "Failures", Width: 10},
		{Title: "Breaching", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(12),
		table.WithFocused(true),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderBottom(true)
	t.SetStyles(s)

	m := Model{
		extractor: extractor,
		threshold: threshold,
		prefix:    prefix,
		table:     t,
		state:     alarm.StateOK,
	}
	m.refresh(time.Now())
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.refresh(time.Time(msg))
		return m, tick()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh reloads the recent buckets and derives the displayed state from
// the newest sample. Absent samples leave the state where it was, mirroring
// the dispatcher's missing-data policy.
func (m *Model) refresh(now time.Time) {
	samples, err := m.extractor.Buckets(now.Add(-lookback), now)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.refreshed = now

	rows := make([]table.Row, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- { // newest first
		s := samples[i]
		breaching := "no"
		if s.Count >= m.threshold {
			breaching = "yes"
		}
		rows = append(rows, table.Row{
			s.Bucket.Format("2006-01-02 15:04:05"),
			strconv.Itoa(s.Count),
			breaching,
		})
	}
	m.table.SetRows(rows)

	if len(samples) > 0 {
		if samples[len(samples)-1].Count >= m.threshold {
			m.state = alarm.StateAlarm
		} else {
			m.state = alarm.StateOK
		}
	}
}

func (m Model) View() string {
	var b strings.Builder

	state := okStyle.Render(string(alarm.StateOK))
	if m.state == alarm.StateAlarm {
		state = alarmStyle.Render(string(alarm.StateAlarm))
	}
	b.WriteString(titleStyle.Render(m.prefix) + " " + state + "\n\n")

	if m.err != nil {
		b.WriteString(alarmStyle.Render("error: "+m.err.Error()) + "\n\n")
	}
	b.WriteString(m.table.View() + "\n")
	if !m.refreshed.IsZero() {
		b.WriteString(dimStyle.Render("refreshed "+m.refreshed.Format("15:04:05")+"  q to quit") + "\n")
	}
	return b.String()
}

// RenderPlain prints the same information without the interactive table,
// for non-tty output.
func RenderPlain(extractor *metric.Extractor, threshold int, prefix string, now time.Time) (string, error) {
	samples, err := extractor.Buckets(now.Add(-lookback), now)
	if err != nil {
		return "", err
	}

	state := alarm.StateOK
	if len(samples) > 0 && samples[len(samples)-1].Count >= threshold {
		state = alarm.StateAlarm
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", prefix, state)
	for _, s := range samples {
		marker := ""
		if s.Count >= threshold {
			marker = "  << breaching"
		}
		fmt.Fprintf(&b, "  %s  failures=%d%s\n", s.Bucket.Format("2006-01-02 15:04:05"), s.Count, marker)
	}
	if len(samples) == 0 {
		b.WriteString("  no records in the last hour\n")
	}
	return b.String(), nil
}
