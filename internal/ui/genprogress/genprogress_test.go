package genprogress

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/smartvault/internal/theme"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return mm, cmd
}

func TestAccountProgress(t *testing.T) {
	m := New(theme.Default(), "Generating", 4, nil)
	if m.Percent() != 0 {
		t.Errorf("initial Percent() = %v, want 0", m.Percent())
	}

	m, cmd := update(t, m, AccountMsg{Done: 1, Total: 4})
	if cmd != nil {
		t.Error("AccountMsg should not return a command")
	}
	if m.Percent() != 0.25 {
		t.Errorf("Percent() = %v, want 0.25", m.Percent())
	}
	if !strings.Contains(m.View(), "accounts 1/4") {
		t.Errorf("View() missing counter:\n%s", m.View())
	}
	if !strings.Contains(m.View(), "Generating") {
		t.Errorf("View() missing title:\n%s", m.View())
	}
}

func TestZeroTotalIsComplete(t *testing.T) {
	m := New(nil, "Generating", 0, nil)
	if m.Percent() != 1 {
		t.Errorf("Percent() = %v, want 1", m.Percent())
	}
}

func TestDoneQuits(t *testing.T) {
	m := New(theme.Default(), "Generating", 2, nil)
	m, cmd := update(t, m, DoneMsg{})
	if cmd == nil {
		t.Fatal("DoneMsg should return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("DoneMsg command is not tea.Quit")
	}
	if !strings.Contains(m.View(), "✓") {
		t.Errorf("finished view lacks success mark:\n%s", m.View())
	}

	failed, _ := update(t, New(theme.Default(), "Generating", 2, nil), DoneMsg{Err: errors.New("boom")})
	if !strings.Contains(failed.View(), "✗") {
		t.Errorf("failed view lacks error mark:\n%s", failed.View())
	}
}

func TestInterruptCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(theme.Default(), "Generating", 10, cancel)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.Cancelled {
		t.Error("Cancelled = false after ctrl+c")
	}
	if ctx.Err() == nil {
		t.Error("ctrl+c did not cancel the work context")
	}
	if cmd == nil {
		t.Error("ctrl+c should quit")
	}
}

func TestOtherKeysIgnored(t *testing.T) {
	m := New(theme.Default(), "Generating", 10, nil)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if cmd != nil || m.Cancelled {
		t.Error("unrelated key changed state")
	}
}

func TestWindowResizeCapsWidth(t *testing.T) {
	m := New(theme.Default(), "Generating", 10, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	if m.bar.Width != maxWidth {
		t.Errorf("bar width = %d, want %d", m.bar.Width, maxWidth)
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 30, Height: 40})
	if m.bar.Width != 26 {
		t.Errorf("bar width = %d, want 26", m.bar.Width)
	}
}
