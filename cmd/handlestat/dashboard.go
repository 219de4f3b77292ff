package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/jsbridge/handle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var quitKeys = key.NewBinding(
	key.WithKeys("q", "ctrl+c", "esc"),
	key.WithHelp("q", "quit"),
)

const refreshInterval = 200 * time.Millisecond

type dashboardModel struct {
	w       *workload
	cancel  context.CancelFunc
	ctx     context.Context
	err     error
	stats   []handle.Stats
	started time.Time
	elapsed time.Duration
	spinner spinner.Model
	done    bool
}

type tickMsg time.Time

type finishedMsg struct {
	err error
}

func newDashboardModel(ctx context.Context, w *workload) *dashboardModel {
	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = valueStyle
	return &dashboardModel{
		w:       w,
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
		started: time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			m.cancel()
			return m, tea.Quit
		}

	case tickMsg:
		m.stats = m.w.Stats()
		if !m.done {
			m.elapsed = time.Since(m.started)
		}
		return m, tick()

	case finishedMsg:
		m.done = true
		m.err = msg.err
		m.stats = m.w.Stats()
		m.elapsed = time.Since(m.started)
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("handlestat"))
	b.WriteString(" run ")
	b.WriteString(m.w.runID)
	b.WriteString("\n\n")

	status := m.spinner.View() + " running"
	if m.done {
		status = valueStyle.Render("done")
		if m.err != nil {
			status = errorStyle.Render(fmt.Sprintf("failed: %v", m.err))
		}
	}
	fmt.Fprintf(&b, "%s  %d/%d ops  %s\n\n", status, m.w.Done(), m.w.Total(), m.elapsed.Round(time.Millisecond))

	b.WriteString(m.renderTable())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(quitKeys.Help().Key + " " + quitKeys.Help().Desc))
	return b.String()
}

func (m *dashboardModel) renderTable() string {
	columns := []string{"engine", "slots", "free", "active", "weak", "queued", "pending", "released", "revived", "collected"}

	var b strings.Builder
	for _, c := range columns {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s", c)))
	}
	b.WriteString("\n")

	for _, s := range m.stats {
		pending := s.PendingDispose + s.PendingWeak + s.PendingStrong
		cells := []int64{
			int64(s.Engine), int64(s.Slots), int64(s.Free), int64(s.Active),
			int64(s.WeakPending), int64(s.QueuedForDisposal), int64(pending),
			int64(s.Released), int64(s.Revived), int64(s.Collected),
		}
		for i, v := range cells {
			cell := fmt.Sprintf("%-10d", v)
			if columns[i] == "pending" && v > 0 {
				b.WriteString(warnStyle.Render(cell))
				continue
			}
			b.WriteString(valueStyle.Render(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// runDashboard runs the workload under a live view. It returns once both
// the view has exited and the workload has stopped, so engines are never
// closed under a running op.
func runDashboard(ctx context.Context, w *workload) error {
	m := newDashboardModel(ctx, w)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	finished := make(chan error, 1)
	go func() {
		err := w.Run(m.ctx)
		finished <- err
		p.Send(finishedMsg{err: err})
	}()

	_, viewErr := p.Run()
	m.cancel()
	if err := <-finished; err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	if viewErr != nil && ctx.Err() == nil {
		return viewErr
	}
	return nil
}
