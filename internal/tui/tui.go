// Package tui is the terminal monitor: live readings and decoder counters
// drawn with bubbletea.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/report"
	"github.com/sweeney/wx-receiver/internal/status"
)

const maxHistory = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	waitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type tickMsg time.Time

type historyEntry struct {
	at   time.Time
	line string
}

// Model is the monitor's bubbletea model. It samples a status snapshot on
// every tick.
type Model struct {
	source   string
	snapshot func() status.Snapshot
	interval time.Duration

	snap     status.Snapshot
	lastSeen time.Time
	history  []historyEntry

	spinner  spinner.Model
	width    int
	height   int
	quitting bool
}

// New returns a model that calls snapshot every interval. source labels the
// edge source in the header.
func New(source string, snapshot func() status.Snapshot, interval time.Duration) Model {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return Model{
		source:   source,
		snapshot: snapshot,
		interval: interval,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(waitStyle),
		),
		width:  80,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tickCmd())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.refresh()
		return m, m.tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.snapshot()
	r := m.snap.Reading
	if r == nil || !r.Timestamp.After(m.lastSeen) {
		return
	}
	m.lastSeen = r.Timestamp
	m.history = append(m.history, historyEntry{at: r.Timestamp, line: report.FormatLine(*r)})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// Readings returns how many distinct readings the model has shown.
func (m Model) Readings() int {
	return len(m.history)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("WX-RECEIVER MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Source: %s | Uptime: %s | Press 'q' to quit",
		m.source, m.snap.Uptime().Truncate(time.Second))))
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Render(m.readingView()))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.decoderView()))
	s.WriteString("\n")

	var hist strings.Builder
	hist.WriteString(labelStyle.Render("Recent readings:"))
	hist.WriteString("\n")
	if len(m.history) == 0 {
		hist.WriteString(headerStyle.Render("  (none yet)"))
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		hist.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(e.at.Format("15:04:05")), e.line))
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(strings.TrimRight(hist.String(), "\n")))
	return s.String()
}

func row(label, value string) string {
	return fmt.Sprintf("%-14s %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

func (m Model) readingView() string {
	r := m.snap.Reading
	if r == nil {
		return m.spinner.View() + waitStyle.Render(" Waiting for a complete reading...")
	}
	var b strings.Builder
	b.WriteString(row("Temperature:", fmt.Sprintf("%.1f°C", r.TemperatureC)))
	b.WriteString(row("Humidity:", fmt.Sprintf("%d%%", r.Humidity)))
	b.WriteString(row("Dewpoint:", fmt.Sprintf("%.1f°C", r.DewpointC)))
	b.WriteString(row("Wind:", fmt.Sprintf("%.1f km/h %s", r.WindSpeedKmh, strings.TrimSpace(r.Compass()))))
	b.WriteString(row("Wind chill:", fmt.Sprintf("%.1f°C", r.WindChillC)))
	b.WriteString(row("Rain 1h/24h:", fmt.Sprintf("%.1f / %.1f mm", logic.RainMM(r.Rain1h), logic.RainMM(r.Rain24h))))
	b.WriteString(row("Rain total:", fmt.Sprintf("%.1f mm", logic.RainMM(r.RainTotal))))
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) decoderView() string {
	d := m.snap.Decoder
	seen := strings.Join(status.SeenTypes(d.Seen), ",")
	if seen == "" {
		seen = "-"
	}

	state := valueStyle.Render(d.State.String())
	if d.State == logic.StateReceiving {
		state = m.spinner.View() + state
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-14s %s\n", labelStyle.Render("State:"), state))
	b.WriteString(row("Seen:", seen))
	b.WriteString(row("Clock:", d.Clock.String()))
	b.WriteString(row("Edges:", fmt.Sprintf("%d (noise %d)", d.Receiver.Edges, d.Receiver.Noise)))
	b.WriteString(row("Packets:", fmt.Sprintf("%d", d.Receiver.Packets)))

	errs := d.Parser.Checksum + d.Parser.Redundancy
	rejected := fmt.Sprintf("%d checksum, %d redundancy", d.Parser.Checksum, d.Parser.Redundancy)
	if errs > 0 {
		rejected = errorStyle.Render(rejected)
	} else {
		rejected = valueStyle.Render(rejected)
	}
	b.WriteString(fmt.Sprintf("%-14s %s\n", labelStyle.Render("Rejected:"), rejected))
	b.WriteString(row("Desyncs:", fmt.Sprintf("%d (missed %d ones, %d zeros, dropped %d)",
		d.Receiver.Desyncs, d.Receiver.MissedOnes, d.Receiver.MissedZeros, d.Receiver.Dropped)))
	return strings.TrimRight(b.String(), "\n")
}
