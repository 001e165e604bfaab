package config

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("86"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type formField struct {
	label  string
	value  func(*Config) string
	toggle func(*Config)
}

var formFields = []formField{
	{
		label: "Diff renderer",
		value: func(c *Config) string { return c.Diff.Renderer },
		toggle: func(c *Config) {
			if c.Diff.Renderer == "http" {
				c.Diff.Renderer = "git"
			} else {
				c.Diff.Renderer = "http"
			}
		},
	},
	{
		label:  "Diff cache",
		value:  func(c *Config) string { return onOff(c.Cache.Enabled) },
		toggle: func(c *Config) { c.Cache.Enabled = !c.Cache.Enabled },
	},
	{
		label:  "Query search",
		value:  func(c *Config) string { return onOff(c.Search.Enabled) },
		toggle: func(c *Config) { c.Search.Enabled = !c.Search.Enabled },
	},
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

type FormModel struct {
	cfg    *Config
	cursor int
	dirty  bool
	notice string
	save   func(*Config) error
}

func NewFormModel(cfg *Config) *FormModel {
	return &FormModel{cfg: cfg, save: (*Config).Save}
}

func (m *FormModel) Init() tea.Cmd {
	return nil
}

func (m *FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.cfg == nil {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(formFields)-1 {
			m.cursor++
		}
	case "enter", " ":
		formFields[m.cursor].toggle(m.cfg)
		m.dirty = true
		m.notice = ""
	case "s":
		if err := m.cfg.Validate(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		if err := m.save(m.cfg); err != nil {
			m.notice = "save failed: " + err.Error()
			return m, nil
		}
		m.dirty = false
		m.notice = "saved to " + GetConfigPath()
	}
	return m, nil
}

func (m *FormModel) View() string {
	if m.cfg == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Replay Configuration") + "\n\n")

	b.WriteString(sectionStyle.Render("playback") + "\n")
	b.WriteString(itemStyle.Render(fmt.Sprintf("Cadence: %s", m.cfg.Playback.Cadence)) + "\n")
	b.WriteString(itemStyle.Render(fmt.Sprintf("Actions dir: %s", m.cfg.Playback.ActionsDir)) + "\n")
	b.WriteString(itemStyle.Render(fmt.Sprintf("Diff timeout: %s", m.cfg.Playback.DiffTimeout)) + "\n\n")

	b.WriteString(sectionStyle.Render("toggles") + "\n")
	for i, f := range formFields {
		line := fmt.Sprintf("%s: %s", f.label, f.value(m.cfg))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+line) + "\n")
		}
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	hint := "\nup/down select, enter toggle, s save, q quit"
	if m.dirty {
		hint += " (unsaved changes)"
	}
	b.WriteString(hint + "\n")
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func RunConfigForm(cfg *Config) error {
	p := tea.NewProgram(NewFormModel(cfg))
	_, err := p.Run()
	return err
}
