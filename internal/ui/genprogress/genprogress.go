// Package genprogress shows a progress bar while the generator writes
// accounts. It is only used when stdout is a terminal.
package genprogress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/sadopc/smartvault/internal/theme"
)

const maxWidth = 60

// AccountMsg reports that done of total accounts are written.
type AccountMsg struct {
	Done  int
	Total int
}

// DoneMsg ends the view. Err is the generator's result.
type DoneMsg struct {
	Err error
}

// Model is the bubbletea model for the progress view.
type Model struct {
	title     string
	th        *theme.Theme
	bar       progress.Model
	spinner   spinner.Model
	done      int
	total     int
	finished  bool
	err       error
	cancel    context.CancelFunc
	Cancelled bool
}

// New creates the view. cancel is called when the user interrupts.
func New(th *theme.Theme, title string, total int, cancel context.CancelFunc) Model {
	if th == nil {
		th = theme.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = th.Muted

	return Model{
		title:   title,
		th:      th,
		bar:     progress.New(progress.WithGradient(th.ProgressStart, th.ProgressEnd), progress.WithWidth(maxWidth)),
		spinner: sp,
		total:   total,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles progress, completion, resize and interrupt messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxWidth)
		return m, nil

	case AccountMsg:
		m.done, m.total = msg.Done, msg.Total
		return m, nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Percent is the completed fraction in [0, 1].
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

// View renders the bar with an account counter.
func (m Model) View() string {
	var b strings.Builder

	status := m.spinner.View()
	switch {
	case m.err != nil:
		status = m.th.Error.Render("✗")
	case m.finished:
		status = m.th.Success.Render("✓")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, status, " ", m.th.Title.Render(m.title)))
	b.WriteByte('\n')
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteByte('\n')
	b.WriteString(m.th.Muted.Render(fmt.Sprintf("accounts %d/%d", m.done, m.total)))
	b.WriteByte('\n')
	return b.String()
}

// Work is the generation step driven by Run. It must call onAccount after
// every account.
type Work func(ctx context.Context, onAccount func(done, total int)) error

// Run shows the view on out while work runs and returns work's error.
// Interrupting the view cancels the context passed to work.
func Run(ctx context.Context, out io.Writer, th *theme.Theme, title string, total int, work Work) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(th, title, total, cancel), tea.WithOutput(out))

	errc := make(chan error, 1)
	go func() {
		err := work(ctx, func(done, total int) {
			p.Send(AccountMsg{Done: done, Total: total})
		})
		p.Send(DoneMsg{Err: err})
		errc <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return fmt.Errorf("progress view: %w", err)
	}
	// The view may have quit on an interrupt before work returned.
	return <-errc
}

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
