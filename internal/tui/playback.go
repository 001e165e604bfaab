package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/replay/internal/diff"
	"github.com/yubzen/replay/internal/workflow"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	timestampStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tagStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1)
	tagCurrentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("39")).Bold(true).Padding(0, 1)
	tagDoneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
	phaseActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	phaseDoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	phaseTodoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	failureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// rows used by header, progress strip, phase indicator, spacer and status bar
const chromeHeight = 5

type Options struct {
	Dir         string
	Cadence     time.Duration
	DiffTimeout time.Duration
	Renderer    workflow.DiffRenderer
	Feed        *RecordsFeed
	Issues      int
}

// PlaybackModel hosts a workflow.Sequencer inside the bubbletea update loop.
type PlaybackModel struct {
	ctx         context.Context
	seq         *workflow.Sequencer
	renderer    workflow.DiffRenderer
	cadence     time.Duration
	diffTimeout time.Duration
	feed        *RecordsFeed
	dir         string

	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *StatusBarModel

	lastDiff    workflow.DiffRequest
	diffContent string
	width       int
	height      int
}

func NewPlaybackModel(ctx context.Context, records []workflow.ActionRecord, opts Options) *PlaybackModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Cadence <= 0 {
		opts.Cadence = 3 * time.Second
	}
	if opts.DiffTimeout <= 0 {
		opts.DiffTimeout = 30 * time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	sb := NewStatusBarModel(opts.Dir, opts.Cadence)
	sb.Issues = opts.Issues

	m := &PlaybackModel{
		ctx:         ctx,
		seq:         workflow.NewSequencer(records),
		renderer:    opts.Renderer,
		cadence:     opts.Cadence,
		diffTimeout: opts.DiffTimeout,
		feed:        opts.Feed,
		dir:         opts.Dir,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		statusbar:   sb,
	}
	m.sync()
	return m
}

func (m *PlaybackModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForRecords(m.feed))
}

func (m *PlaybackModel) Snapshot() workflow.Snapshot {
	return m.seq.Snapshot()
}

func (m *PlaybackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusbar.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.diffContent = ""
		m.sync()

	case PlaybackTickMsg:
		cmd := m.apply(m.seq.Tick(msg.Epoch))
		// tea.Tick fires once; keep the cadence going while this epoch is live.
		if m.seq.Running() && msg.Epoch == m.seq.Epoch() {
			cmd = tea.Batch(cmd, playbackTickCmd(m.cadence, msg.Epoch))
		}
		return m, cmd

	case DiffResolvedMsg:
		m.seq.Resolve(msg.Result)
		m.sync()

	case RecordsLoadedMsg:
		m.statusbar.Issues = len(msg.Issues)
		cmd := m.apply(m.seq.SetRecords(msg.Records))
		return m, tea.Batch(cmd, waitForRecords(m.feed))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *PlaybackModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case " ", "space", "p":
		if m.seq.Running() {
			return m.apply(m.seq.Pause())
		}
		return m.apply(m.seq.Play())
	case "r":
		return m.apply(m.seq.Reset())
	case "up", "down", "pgup", "pgdown", "k", "j", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// apply carries out an Effect: a fresh tea.Tick for an armed timer and a
// diff command for a new request. Disarming needs no command since the
// epoch has already moved on.
func (m *PlaybackModel) apply(eff workflow.Effect) tea.Cmd {
	var cmds []tea.Cmd
	if eff.Timer == workflow.TimerArm {
		cmds = append(cmds, playbackTickCmd(m.cadence, eff.Epoch))
	}
	if eff.Diff != nil {
		m.lastDiff = *eff.Diff
		cmds = append(cmds, diffCmd(m.ctx, m.renderer, m.diffTimeout, *eff.Diff))
	}
	m.sync()
	return tea.Batch(cmds...)
}

func playbackTickCmd(d time.Duration, epoch uint64) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return PlaybackTickMsg{Epoch: epoch}
	})
}

func diffCmd(ctx context.Context, r workflow.DiffRenderer, timeout time.Duration, req workflow.DiffRequest) tea.Cmd {
	return func() tea.Msg {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return DiffResolvedMsg{Result: workflow.Materialize(callCtx, r, req)}
	}
}

// sync pushes the current snapshot into the status bar and the diff
// viewport. The viewport is only rewritten when its text changes so the
// scroll offset survives unrelated updates.
func (m *PlaybackModel) sync() {
	snap := m.seq.Snapshot()
	m.statusbar.SetSnapshot(snap)

	content := ""
	if snap.DiffReady() {
		content = snap.DiffText
	}
	if content == m.diffContent && m.viewport.TotalLineCount() > 0 {
		return
	}
	m.diffContent = content
	m.viewport.SetContent(diff.Colorize(content))
	m.viewport.GotoTop()
}

func (m *PlaybackModel) View() string {
	snap := m.seq.Snapshot()
	body := m.renderBody(snap)
	if m.height > 0 {
		body = lipgloss.NewStyle().Height(max(m.height-chromeHeight, 1)).MaxHeight(max(m.height-chromeHeight, 1)).Render(body)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(snap),
		m.renderProgress(snap),
		m.renderPhases(snap),
		"",
		body,
		m.statusbar.View(),
	)
}

func (m *PlaybackModel) renderHeader(snap workflow.Snapshot) string {
	if snap.Current == nil {
		return headerStyle.Render("no actions loaded")
	}
	header := headerStyle.Render(snap.Current.FileName())
	if ts := strings.TrimSpace(snap.Current.Timestamp); ts != "" {
		header += "  " + timestampStyle.Render(ts)
	}
	return header
}

func (m *PlaybackModel) renderProgress(snap workflow.Snapshot) string {
	tags := make([]string, 0, len(snap.FileNumbers))
	for i, n := range snap.FileNumbers {
		label := fmt.Sprintf("#%d", n)
		switch {
		case i == snap.StepIndex:
			tags = append(tags, tagCurrentStyle.Render(label))
		case i < snap.StepIndex:
			tags = append(tags, tagDoneStyle.Render(label))
		default:
			tags = append(tags, tagStyle.Render(label))
		}
	}
	strip := strings.Join(tags, "")
	if m.width > 0 && lipgloss.Width(strip) > m.width {
		strip = lipgloss.NewStyle().MaxWidth(m.width).Render(strip)
	}
	return strip
}

func (m *PlaybackModel) renderPhases(snap workflow.Snapshot) string {
	phases := []workflow.SubPhase{workflow.PhaseFiles, workflow.PhaseQuery, workflow.PhaseDiff}
	parts := make([]string, 0, len(phases))
	for _, p := range phases {
		switch {
		case snap.Empty():
			parts = append(parts, phaseTodoStyle.Render("○ "+p.Title()))
		case p == snap.SubPhase:
			parts = append(parts, phaseActiveStyle.Render("● "+p.Title()))
		case p < snap.SubPhase || snap.Status == workflow.StatusFinished:
			parts = append(parts, phaseDoneStyle.Render("✓ "+p.Title()))
		default:
			parts = append(parts, phaseTodoStyle.Render("○ "+p.Title()))
		}
	}
	return strings.Join(parts, "  ")
}

func (m *PlaybackModel) renderBody(snap workflow.Snapshot) string {
	if snap.Empty() {
		return placeholderStyle.Render(fmt.Sprintf("no *_chat_action.yml files in %s", m.dir)) + "\n" +
			hintStyle.Render("waiting for the directory to change, q to quit")
	}
	rec := snap.Current

	switch snap.SubPhase {
	case workflow.PhaseFiles:
		if len(rec.URLs) == 0 {
			return placeholderStyle.Render("no referenced files")
		}
		return bulletList("• ", rec.URLs, m.width)

	case workflow.PhaseQuery:
		if strings.TrimSpace(rec.Query) == "" {
			return placeholderStyle.Render("empty query")
		}
		return wrapToWidth(rec.Query, m.width)

	default:
		switch {
		case snap.DiffPending:
			return m.spinner.View() + " rendering diff for " + rec.FileName()
		case !snap.DiffReady():
			return placeholderStyle.Render("waiting for diff")
		case snap.DiffFailed:
			return failureStyle.Render("diff unavailable: " + snap.DiffError)
		case snap.DiffText == "":
			return placeholderStyle.Render("no code changes recorded")
		}
		return m.viewport.View()
	}
}
