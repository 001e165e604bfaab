package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/replay/internal/workflow"
)

var (
	sbBaseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("235")).Padding(0, 1)
	sbRunningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	sbIdleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	sbFinishedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	sbDimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	sbWarnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type StatusBarModel struct {
	Status  workflow.Status
	Step    int
	Steps   int
	Cadence time.Duration
	Issues  int
	dir     string
	width   int
}

func NewStatusBarModel(dir string, cadence time.Duration) *StatusBarModel {
	return &StatusBarModel{Cadence: cadence, dir: displayDir(dir)}
}

func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

func (m *StatusBarModel) SetSnapshot(snap workflow.Snapshot) {
	m.Status = snap.Status
	m.Steps = snap.Steps
	m.Step = 0
	if snap.Steps > 0 {
		m.Step = snap.StepIndex + 1
	}
}

func (m *StatusBarModel) View() string {
	statusStyle := sbIdleStyle
	switch m.Status {
	case workflow.StatusRunning:
		statusStyle = sbRunningStyle
	case workflow.StatusFinished:
		statusStyle = sbFinishedStyle
	}
	parts := []string{
		statusStyle.Render(fmt.Sprintf("[%s]", strings.ToUpper(m.Status.String()))),
		fmt.Sprintf("step %d/%d", m.Step, m.Steps),
		sbDimStyle.Render(fmt.Sprintf("every %s", m.Cadence)),
	}
	if m.Issues > 0 {
		parts = append(parts, sbWarnStyle.Render(fmt.Sprintf("%d unreadable file(s)", m.Issues)))
	}
	left := strings.Join(parts, " | ")

	dir := m.dir
	if m.width > 0 {
		room := m.width - lipgloss.Width(left) - 6
		dir = truncateLeft(dir, room)
	}
	if dir != "" {
		left += " | " + dir
	}
	return sbBaseStyle.Width(m.width).Render(left)
}

func truncateLeft(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return "…" + string(r[len(r)-max+1:])
}

func displayDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return abs
	}
	home = filepath.Clean(home)
	if abs == home {
		return "~"
	}
	prefix := home + string(filepath.Separator)
	if strings.HasPrefix(abs, prefix) {
		return "~" + string(filepath.Separator) + strings.TrimPrefix(abs, prefix)
	}
	return abs
}
