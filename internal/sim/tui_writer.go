package sim

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"truckops-sim/internal/config"
	"truckops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// snapshotMsg carries a published snapshot into the model.
type snapshotMsg struct{ telemetry.MetricsSnapshot }

// runningMsg reports whether the simulator timer is active.
type runningMsg struct{ running bool }

type setControlsMsg struct {
	pause  func()
	resume func()
}

const (
	hudWidth    = 60
	gaugeWidth  = 24
	maxHUDLines = 200
)

var (
	accent     = lipgloss.Color("#4FFBDF")
	pink       = lipgloss.Color("#FF69B4")
	warnColor  = lipgloss.Color("#FFB347")
	errorColor = lipgloss.Color("#FF6B6B")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	statStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(hudWidth/2 - 2)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// TUIWriter renders snapshots as a terminal HUD using bubbletea.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements SnapshotWriter.
func (w *TUIWriter) Write(row telemetry.MetricsSnapshot) error {
	w.program.Send(snapshotMsg{row})
	return nil
}

// WriteBatch renders only the newest snapshot of the batch.
func (w *TUIWriter) WriteBatch(rows []telemetry.MetricsSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return w.Write(rows[len(rows)-1])
}

// SetRunning updates the ticking indicator.
func (w *TUIWriter) SetRunning(running bool) {
	w.program.Send(runningMsg{running: running})
}

// SetControls registers callbacks for the pause/resume key.
func (w *TUIWriter) SetControls(pause, resume func()) {
	w.program.Send(setControlsMsg{pause: pause, resume: resume})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	snap         telemetry.MetricsSnapshot
	haveSnap     bool
	health       table.Model
	statusVP     viewport.Model
	expanded     bool
	wrap         bool
	running      bool
	pause        func()
	resume       func()
	help         bool
	width        int
	height       int
	lastStatusID int64
	statusLog    []telemetry.StatusEvent
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Subsystem", Width: 14},
		{Title: "Value", Width: 6},
		{Title: "Max", Width: 6},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(6))
	return tuiModel{
		cfg:      cfg,
		health:   t,
		statusVP: viewport.New(hudWidth, 6),
		expanded: true,
		running:  true,
		width:    hudWidth,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusVP.Width = min(msg.Width, hudWidth)
		m.refreshStatus()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "left":
			m.expanded = !m.expanded
		case "w":
			m.wrap = !m.wrap
			m.refreshStatus()
		case " ":
			if m.running && m.pause != nil {
				go m.pause()
				m.running = false
			} else if !m.running && m.resume != nil {
				go m.resume()
				m.running = true
			}
		case "h", "?":
			m.help = !m.help
		default:
			var cmd tea.Cmd
			m.statusVP, cmd = m.statusVP.Update(msg)
			return m, cmd
		}
	case snapshotMsg:
		m.snap = msg.MetricsSnapshot
		m.haveSnap = true
		rows := make([]table.Row, 0, len(m.snap.SystemHealth))
		for _, h := range m.snap.SystemHealth {
			rows = append(rows, table.Row{h.Subject, fmt.Sprintf("%.0f", h.Value), fmt.Sprintf("%.0f", h.Max)})
		}
		m.health.SetRows(rows)
		m.statusLog = append([]telemetry.StatusEvent(nil), m.snap.StatusUpdates...)
		m.lastStatusID = m.snap.LastStatusID()
		m.refreshStatus()
	case runningMsg:
		m.running = msg.running
	case setControlsMsg:
		m.pause = msg.pause
		m.resume = msg.resume
	}
	return m, nil
}

func (m *tuiModel) refreshStatus() {
	lines := make([]string, 0, len(m.statusLog))
	for _, ev := range m.statusLog {
		line := fmt.Sprintf("%s %s", ev.Message, labelStyle.Render(ev.Timestamp))
		if m.wrap {
			line = wordwrap.String(line, m.statusVP.Width-2)
		}
		bar := lipgloss.NewStyle().Foreground(severityLipColor(ev.Severity)).Render("▌")
		lines = append(lines, bar+" "+line)
	}
	if len(lines) > maxHUDLines {
		lines = lines[:maxHUDLines]
	}
	m.statusVP.SetContent(strings.Join(lines, "\n"))
	m.statusVP.GotoTop()
}

func severityLipColor(s telemetry.Severity) lipgloss.Color {
	switch s {
	case telemetry.SeverityError:
		return errorColor
	case telemetry.SeverityWarning:
		return warnColor
	default:
		return accent
	}
}

func (m tuiModel) View() string {
	if !m.haveSnap {
		return titleStyle.Render("Loading truck data...")
	}
	if !m.expanded {
		return titleStyle.Render("← Truck Analytics") + "  " + helpStyle.Render("(tab to expand)")
	}
	if m.help {
		return m.renderHelp()
	}
	var b strings.Builder
	state := "live"
	if !m.running {
		state = "paused"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Truck Analytics · %s", m.snap.VehicleID)))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  tick %d · %s", m.snap.Tick, state)))
	b.WriteString("\n\n")

	b.WriteString(renderGauge("Engine Health", m.snap.EngineHealth, 100, accent))
	b.WriteString("\n")
	b.WriteString(renderGauge("Fuel Level", math.Round(m.snap.FuelLevel*10)/10, 100, pink))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStat(formatTemp(m.snap.EngineTemp), "Engine Temp"),
		renderStat(fmt.Sprintf("%.0f%%", m.snap.BatteryLevel), "Battery")))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStat(fmt.Sprintf("%.0f PSI", m.snap.TirePressure), "Tire Pressure"),
		renderStat(formatService(m.snap.NextService), "Next Service")))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render(titleStyle.Render("System Health")))
	b.WriteString("\n" + m.health.View() + "\n")

	b.WriteString(sectionStyle.Render(titleStyle.Render("Maintenance Status")))
	b.WriteString("\n")
	for _, it := range m.snap.Maintenance {
		b.WriteString(renderGauge(it.Label, it.Value, 100, pink))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render(titleStyle.Render("Performance History")))
	b.WriteString("\n" + renderPerformance(m.snap.Performance) + "\n")

	b.WriteString(sectionStyle.Render(titleStyle.Render("System Status")))
	b.WriteString("\n" + m.statusVP.View() + "\n")
	b.WriteString(helpStyle.Render("tab collapse · space pause · w wrap · h help · q quit"))
	return b.String()
}

func (m tuiModel) renderHelp() string {
	rows := [][2]string{
		{"tab / ← / →", "collapse or expand the HUD"},
		{"space", "pause or resume ticking"},
		{"w", "wrap status messages"},
		{"↑ / ↓", "scroll the status list"},
		{"h / ?", "toggle this help"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys") + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-14s %s\n", r[0], r[1])
	}
	if m.cfg != nil {
		b.WriteString("\n" + titleStyle.Render("Config") + "\n")
		fmt.Fprintf(&b, "%-14s %s\n", "tick interval", m.cfg.TickInterval)
		fmt.Fprintf(&b, "%-14s %s\n", "temp step", m.cfg.TempStepMode)
		fmt.Fprintf(&b, "%-14s < %.1f\n", "low fuel", m.cfg.Thresholds.LowFuel)
		fmt.Fprintf(&b, "%-14s > %.1f\n", "critical temp", m.cfg.Thresholds.CriticalTemp)
	}
	return b.String()
}

// renderGauge draws a labelled horizontal bar for value out of max.
func renderGauge(label string, value, max float64, color lipgloss.Color) string {
	filled := 0
	if max > 0 {
		ratio := math.Max(0, math.Min(1, value/max))
		filled = int(math.Round(ratio * gaugeWidth))
	}
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		labelStyle.Render(strings.Repeat("░", gaugeWidth-filled))
	return fmt.Sprintf("%-14s %s %5.1f", label, bar, value)
}

func renderStat(value, label string) string {
	return statStyle.Render(titleStyle.Render(value) + "\n" + labelStyle.Render(label))
}

// renderPerformance draws one column per point, scaled to the window maximum.
func renderPerformance(points []telemetry.PerformancePoint) string {
	levels := []rune("▁▂▃▄▅▆▇█")
	maxV := 0.0
	for _, p := range points {
		maxV = math.Max(maxV, p.Value)
	}
	var bars, labels strings.Builder
	for _, p := range points {
		idx := 0
		if maxV > 0 {
			idx = int(math.Round(p.Value / maxV * float64(len(levels)-1)))
		}
		bars.WriteString(lipgloss.NewStyle().Foreground(accent).Render(strings.Repeat(string(levels[idx]), 5)))
		bars.WriteString(" ")
		labels.WriteString(fmt.Sprintf("%-6s", p.Label))
	}
	return bars.String() + "\n" + labelStyle.Render(labels.String())
}

func formatTemp(t float64) string {
	return fmt.Sprintf("%.1f°C", t)
}

func formatService(miles float64) string {
	return fmt.Sprintf("%.1fK mi", miles/1000)
}
