package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yubzen/replay/internal/workflow"
)

const (
	DefaultCadence     = 3 * time.Second
	DefaultDiffTimeout = 30 * time.Second
)

var (
	ErrPlayerNotReady = errors.New("player is not initialized")
	ErrAlreadyStarted = errors.New("player already started")
)

type Options struct {
	Cadence     time.Duration
	DiffTimeout time.Duration
	Clock       Clock
	Logger      *slog.Logger
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdReset
	cmdSetRecords
	cmdSync
)

type command struct {
	kind    commandKind
	records []workflow.ActionRecord
	ack     chan struct{}
}

// Player runs a workflow.Sequencer on its own goroutine with a real cadence
// timer. All sequencer transitions happen on that goroutine; diff calls run
// on their own goroutines and report back through a channel.
type Player struct {
	RunID string
	Done  chan struct{}

	seq         *workflow.Sequencer
	renderer    workflow.DiffRenderer
	clock       Clock
	cadence     time.Duration
	diffTimeout time.Duration
	logger      *slog.Logger

	cmds    chan command
	results chan workflow.DiffResult
	changes chan workflow.Snapshot

	mu       sync.RWMutex
	snapshot workflow.Snapshot
	started  bool
	cancel   context.CancelFunc
}

func New(records []workflow.ActionRecord, renderer workflow.DiffRenderer, opts Options) *Player {
	if opts.Cadence <= 0 {
		opts.Cadence = DefaultCadence
	}
	if opts.DiffTimeout <= 0 {
		opts.DiffTimeout = DefaultDiffTimeout
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	runID := newRunID()
	seq := workflow.NewSequencer(records)
	return &Player{
		RunID:       runID,
		Done:        make(chan struct{}),
		seq:         seq,
		renderer:    renderer,
		clock:       opts.Clock,
		cadence:     opts.Cadence,
		diffTimeout: opts.DiffTimeout,
		logger:      opts.Logger.With("run_id", runID),
		cmds:        make(chan command),
		results:     make(chan workflow.DiffResult, 8),
		changes:     make(chan workflow.Snapshot, 1),
		snapshot:    seq.Snapshot(),
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Start launches the run loop. The loop exits, releasing the cadence timer,
// when ctx is cancelled or Close is called.
func (p *Player) Start(ctx context.Context) error {
	if p == nil {
		return ErrPlayerNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Debug("player started", "steps", p.seq.Len(), "cadence", p.cadence)
	go p.loop(runCtx)
	return nil
}

func (p *Player) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	<-p.Done
}

func (p *Player) Play()  { p.send(command{kind: cmdPlay}) }
func (p *Player) Pause() { p.send(command{kind: cmdPause}) }
func (p *Player) Reset() { p.send(command{kind: cmdReset}) }

// SetRecords replaces the step set. Before Start it is applied directly so
// a reload that lands ahead of the run loop is not lost.
func (p *Player) SetRecords(records []workflow.ActionRecord) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if !p.started {
		p.seq.SetRecords(records)
		p.snapshot = p.seq.Snapshot()
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.send(command{kind: cmdSetRecords, records: records})
}

// sync returns once every command and tick received before it has been
// applied.
func (p *Player) sync() { p.send(command{kind: cmdSync}) }

// send hands cmd to the run loop and waits until it is applied. Commands
// other than SetRecords sent before Start, and all commands after Close,
// are dropped.
func (p *Player) send(cmd command) {
	if p == nil {
		return
	}
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return
	}
	cmd.ack = make(chan struct{})
	select {
	case p.cmds <- cmd:
	case <-p.Done:
		return
	}
	select {
	case <-cmd.ack:
	case <-p.Done:
	}
}

func (p *Player) Snapshot() workflow.Snapshot {
	if p == nil {
		return workflow.Snapshot{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Changes delivers the latest snapshot after each transition. Slow readers
// only see the most recent one.
func (p *Player) Changes() <-chan workflow.Snapshot {
	return p.changes
}

func (p *Player) loop(ctx context.Context) {
	var ticker Ticker
	var tickC <-chan time.Time

	disarm := func() {
		if ticker != nil {
			ticker.Stop()
		}
		ticker = nil
		tickC = nil
	}
	defer close(p.Done)
	defer disarm()

	handle := func(eff workflow.Effect) {
		switch eff.Timer {
		case workflow.TimerArm:
			disarm()
			ticker = p.clock.NewTicker(p.cadence)
			tickC = ticker.C()
		case workflow.TimerDisarm:
			disarm()
		}
		if eff.Diff != nil {
			go p.materialize(ctx, *eff.Diff)
		}
		p.publish()
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("player stopped", "reason", ctx.Err())
			return

		case cmd := <-p.cmds:
			switch cmd.kind {
			case cmdPlay:
				handle(p.seq.Play())
			case cmdPause:
				handle(p.seq.Pause())
			case cmdReset:
				handle(p.seq.Reset())
			case cmdSetRecords:
				handle(p.seq.SetRecords(cmd.records))
				p.logger.Debug("records replaced", "steps", p.seq.Len())
			}
			close(cmd.ack)

		case <-tickC:
			handle(p.seq.Tick(p.seq.Epoch()))
			if p.seq.Status() == workflow.StatusFinished {
				p.logger.Info("playback finished", "steps", p.seq.Len())
			}

		case res := <-p.results:
			if p.seq.Resolve(res) {
				if res.Err != nil {
					p.logger.Warn("diff materialization failed", "file_number", res.Owner, "error", res.Err)
				}
			} else {
				p.logger.Debug("discarded stale diff", "file_number", res.Owner, "generation", res.Generation)
			}
			p.publish()
		}
	}
}

func (p *Player) materialize(ctx context.Context, req workflow.DiffRequest) {
	callCtx, cancel := context.WithTimeout(ctx, p.diffTimeout)
	defer cancel()

	res := workflow.Materialize(callCtx, p.renderer, req)
	select {
	case p.results <- res:
	case <-ctx.Done():
	}
}

func (p *Player) publish() {
	snap := p.seq.Snapshot()

	p.mu.Lock()
	p.snapshot = snap
	p.mu.Unlock()

	select {
	case p.changes <- snap:
		return
	default:
	}
	select {
	case <-p.changes:
	default:
	}
	select {
	case p.changes <- snap:
	default:
	}
}
