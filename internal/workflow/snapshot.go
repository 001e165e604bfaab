package workflow

// Snapshot is a read-only copy of the playback state for rendering.
type Snapshot struct {
	StepIndex    int
	SubPhase     SubPhase
	Status       Status
	Running      bool
	Steps        int
	FileNumbers  []int
	Current      *ActionRecord
	DiffText     string
	DiffOwner    int
	HasDiffOwner bool
	DiffPending  bool
	DiffFailed   bool
	DiffError    string
	StaleResults int
	Epoch        uint64
}

func (s Snapshot) Empty() bool {
	return s.Steps == 0 || s.Current == nil
}

// DiffReady reports whether DiffText belongs to the step on display.
func (s Snapshot) DiffReady() bool {
	return s.SubPhase == PhaseDiff &&
		s.Current != nil &&
		s.HasDiffOwner &&
		s.DiffOwner == s.Current.FileNumber &&
		!s.DiffPending
}

// Progress is the fraction of sub-phases already shown, in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Steps == 0 {
		return 0
	}
	if s.Status == StatusFinished {
		return 1
	}
	total := s.Steps * phasesPerStep
	done := s.StepIndex*phasesPerStep + int(s.SubPhase)
	return float64(done) / float64(total-1)
}
