package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/steelspec/bucklab/internal/pipeline"
	"github.com/steelspec/bucklab/internal/store"
)

const (
	graphWidth  = 60
	graphHeight = 8
	sparkWidth  = 24
	maxWarnings = 8
)

type eventMsg pipeline.Event

type streamDoneMsg struct{}

type tickMsg time.Time

// caseRow is one line of the live table.
type caseRow struct {
	specimen string
	caseID   string
	phase    pipeline.Phase
	status   store.CaseStatus
	running  bool
	curve    []float64
}

// Monitor follows a pipeline event stream and renders run progress.
// It quits on its own when the stream closes.
type Monitor struct {
	events       <-chan pipeline.Event
	rows         []caseRow
	warnings     []string
	curve        []float64
	curveOwner   string
	frame        int
	showWarnings bool
	finished     bool
}

// NewMonitor wraps an event channel, typically a ChannelSink's.
func NewMonitor(events <-chan pipeline.Event) Monitor {
	return Monitor{events: events, showWarnings: true}
}

func waitEvent(ch <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return eventMsg(e)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Monitor) Init() tea.Cmd {
	return tea.Batch(waitEvent(m.events), tick())
}

// Update consumes stream events and keystrokes.
func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.showWarnings = !m.showWarnings
		}
	case tickMsg:
		m.frame++
		if m.finished {
			return m, nil
		}
		return m, tick()
	case eventMsg:
		m.apply(pipeline.Event(msg))
		return m, waitEvent(m.events)
	case streamDoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Monitor) apply(e pipeline.Event) {
	switch e.Kind {
	case pipeline.CaseStarted:
		m.rows = append(m.rows, caseRow{specimen: e.Specimen, caseID: e.Case, running: true})
	case pipeline.PhaseStarted:
		if r := m.row(e.Specimen, e.Case); r != nil {
			r.phase = e.Phase
		}
	case pipeline.PhaseDone:
		if len(e.Curve) > 0 {
			m.curve = e.Curve
			m.curveOwner = e.Specimen + " " + e.Case
			if r := m.row(e.Specimen, e.Case); r != nil {
				r.curve = e.Curve
			}
		}
	case pipeline.CaseDone:
		if r := m.row(e.Specimen, e.Case); r != nil {
			r.status = e.Status
			r.running = false
		}
	case pipeline.Warning:
		w := e.Message
		if e.Specimen != "" {
			w = strings.TrimSuffix(e.Specimen+" "+e.Case, " ") + ": " + w
		}
		m.warnings = append(m.warnings, w)
		if len(m.warnings) > maxWarnings {
			m.warnings = m.warnings[len(m.warnings)-maxWarnings:]
		}
	}
}

// row finds the newest entry for a specimen and case.
func (m *Monitor) row(specimen, caseID string) *caseRow {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].specimen == specimen && m.rows[i].caseID == caseID {
			return &m.rows[i]
		}
	}
	return nil
}

func (m Monitor) statusCell(r caseRow) string {
	if r.running {
		return statusRunning.Render(Spinner(m.frame) + " " + string(r.phase))
	}
	switch r.status {
	case store.StatusCompleted:
		return statusCompleted.Render("✓ completed")
	case store.StatusFailed:
		return statusFailed.Render("✗ failed")
	case store.StatusSkipped:
		return statusSkipped.Render("- skipped")
	default:
		return statusSkipped.Render("pending")
	}
}

// View renders the table, the newest equilibrium path, and warnings.
func (m Monitor) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("BUCKLAB LIVE") + "\n")

	done := 0
	for _, r := range m.rows {
		if !r.running {
			done++
		}
	}
	if len(m.rows) > 0 {
		s.WriteString(fmt.Sprintf("%s %d/%d cases\n\n",
			ProgressBar(float64(done)/float64(len(m.rows)), 30), done, len(m.rows)))
	}

	for _, r := range m.rows {
		spark := Sparkline(r.curve, sparkWidth)
		s.WriteString(fmt.Sprintf("%s  %s  %s  %s\n",
			labelStyle.Render(r.specimen),
			valueStyle.Render(fmt.Sprintf("%-18s", r.caseID)),
			spark,
			m.statusCell(r)))
	}

	if len(m.curve) > 1 {
		s.WriteString("\n" + phaseStyle.Render(m.curveOwner) + "\n")
		s.WriteString(graphStyle.Render(Curve(m.curve, peakOf(m.curve), graphWidth, graphHeight)) + "\n")
	}

	if m.showWarnings && len(m.warnings) > 0 {
		s.WriteString("\n")
		for _, w := range m.warnings {
			s.WriteString(warnStyle.Render("! "+w) + "\n")
		}
	}

	if m.finished {
		s.WriteString("\n" + valueStyle.Render("run finished") + "\n")
	}
	s.WriteString(helpStyle.Render("q quit · w warnings"))
	return s.String()
}
