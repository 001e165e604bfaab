package workflow

import "errors"

var ErrNoSteps = errors.New("workflow has no steps")

type TimerAction int

const (
	TimerKeep TimerAction = iota
	TimerArm
	TimerDisarm
)

// Effect tells the host what a transition needs from the outside world: a
// cadence timer change and, when a step enters the diff phase, a diff to
// materialize.
type Effect struct {
	Timer TimerAction
	Epoch uint64
	Diff  *DiffRequest
}

// Sequencer is the playback state machine. It owns no goroutines and no
// clock; hosts feed it commands, ticks and diff results from a single event
// loop and carry out the returned Effects.
//
// Progress is a single index pos = step*3 + phase.
type Sequencer struct {
	steps  []ActionRecord
	pos    int
	status Status
	epoch  uint64
	slot   diffSlot
}

func NewSequencer(records []ActionRecord) *Sequencer {
	return &Sequencer{steps: Order(records)}
}

func (s *Sequencer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.steps)
}

func (s *Sequencer) Running() bool {
	return s != nil && s.status == StatusRunning
}

func (s *Sequencer) Status() Status {
	if s == nil {
		return StatusIdle
	}
	return s.status
}

// Epoch identifies the currently armed cadence timer. It changes every time
// the timer is armed or disarmed, so ticks scheduled under an older epoch
// are ignored.
func (s *Sequencer) Epoch() uint64 {
	if s == nil {
		return 0
	}
	return s.epoch
}

func (s *Sequencer) Steps() []ActionRecord {
	if s == nil {
		return nil
	}
	return Order(s.steps)
}

func (s *Sequencer) position() (int, SubPhase) {
	if len(s.steps) == 0 {
		return 0, PhaseFiles
	}
	step, phase := s.pos/phasesPerStep, SubPhase(s.pos%phasesPerStep)
	if step > len(s.steps)-1 {
		step = len(s.steps) - 1
	}
	return step, phase
}

func (s *Sequencer) current() (ActionRecord, bool) {
	if len(s.steps) == 0 {
		return ActionRecord{}, false
	}
	step, _ := s.position()
	return s.steps[step], true
}

func (s *Sequencer) Play() Effect {
	if s == nil || len(s.steps) == 0 || s.status != StatusIdle {
		return Effect{}
	}
	s.status = StatusRunning
	s.epoch++
	return Effect{Timer: TimerArm, Epoch: s.epoch}
}

func (s *Sequencer) Pause() Effect {
	if s == nil || s.status != StatusRunning {
		return Effect{}
	}
	s.status = StatusIdle
	s.epoch++
	return Effect{Timer: TimerDisarm, Epoch: s.epoch}
}

// Reset returns to the first step's files phase, stops playback and clears
// the diff slot. Legal from any state.
func (s *Sequencer) Reset() Effect {
	if s == nil {
		return Effect{}
	}
	wasRunning := s.status == StatusRunning
	s.pos = 0
	s.status = StatusIdle
	s.slot.clear()
	if !wasRunning {
		return Effect{}
	}
	s.epoch++
	return Effect{Timer: TimerDisarm, Epoch: s.epoch}
}

// Tick advances one sub-phase. Ticks for a stale epoch or while not running
// are ignored.
func (s *Sequencer) Tick(epoch uint64) Effect {
	if s == nil || s.status != StatusRunning || epoch != s.epoch {
		return Effect{}
	}
	if len(s.steps) == 0 {
		s.status = StatusIdle
		s.epoch++
		return Effect{Timer: TimerDisarm, Epoch: s.epoch}
	}

	step, phase := s.position()
	if phase < PhaseDiff {
		s.pos = step*phasesPerStep + int(phase) + 1
		if phase+1 == PhaseDiff {
			return Effect{Diff: s.enterDiff()}
		}
		return Effect{}
	}
	if step >= len(s.steps)-1 {
		s.status = StatusFinished
		s.epoch++
		return Effect{Timer: TimerDisarm, Epoch: s.epoch}
	}
	s.pos = (step + 1) * phasesPerStep
	return Effect{}
}

func (s *Sequencer) enterDiff() *DiffRequest {
	cur, ok := s.current()
	if !ok {
		return nil
	}
	if !cur.HasResponse() {
		s.slot.settleEmpty(cur.FileNumber)
		return nil
	}
	req := s.slot.issue(cur.FileNumber, cur.Response)
	return &req
}

// Resolve applies a diff result if it still belongs to the step on display
// at the diff phase and to the latest request. It reports whether the
// result was applied.
func (s *Sequencer) Resolve(res DiffResult) bool {
	if s == nil {
		return false
	}
	cur, ok := s.current()
	_, phase := s.position()
	if !ok || phase != PhaseDiff || cur.FileNumber != res.Owner || res.Generation != s.slot.generation || !s.slot.pending {
		s.slot.staleDiscarded++
		return false
	}
	s.slot.apply(res)
	return true
}

// SetRecords replaces the step set. Position is kept but clamped to the new
// last step. When the step now on display is at the diff phase and its diff
// is missing or outdated, a new diff is requested.
func (s *Sequencer) SetRecords(records []ActionRecord) Effect {
	if s == nil {
		return Effect{}
	}
	s.steps = Order(records)

	if len(s.steps) == 0 {
		s.pos = 0
		if s.status == StatusRunning {
			s.status = StatusIdle
			s.epoch++
			return Effect{Timer: TimerDisarm, Epoch: s.epoch}
		}
		s.status = StatusIdle
		return Effect{}
	}

	step, phase := s.position()
	s.pos = step*phasesPerStep + int(phase)

	if s.status == StatusFinished && (step < len(s.steps)-1 || phase != PhaseDiff) {
		s.status = StatusIdle
	}

	if phase != PhaseDiff {
		return Effect{}
	}
	cur := s.steps[step]
	if s.slot.satisfies(cur.FileNumber, cur.Response) {
		return Effect{}
	}
	return Effect{Diff: s.enterDiff()}
}

func (s *Sequencer) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	step, phase := s.position()
	snap := Snapshot{
		StepIndex:    step,
		SubPhase:     phase,
		Status:       s.status,
		Running:      s.status == StatusRunning,
		Steps:        len(s.steps),
		FileNumbers:  make([]int, 0, len(s.steps)),
		DiffText:     s.slot.text,
		DiffOwner:    s.slot.owner,
		HasDiffOwner: s.slot.hasOwner,
		DiffPending:  s.slot.pending,
		DiffFailed:   s.slot.failed,
		DiffError:    s.slot.errMsg,
		StaleResults: s.slot.staleDiscarded,
		Epoch:        s.epoch,
	}
	for _, r := range s.steps {
		snap.FileNumbers = append(snap.FileNumbers, r.FileNumber)
	}
	if cur, ok := s.current(); ok {
		c := cur.clone()
		snap.Current = &c
	}
	return snap
}
