package workflow

type SubPhase int

const (
	PhaseFiles SubPhase = iota
	PhaseQuery
	PhaseDiff
)

const phasesPerStep = 3

func (p SubPhase) String() string {
	switch p {
	case PhaseFiles:
		return "files"
	case PhaseQuery:
		return "query"
	case PhaseDiff:
		return "diff"
	default:
		return "unknown"
	}
}

// Title is the heading shown by the phase renderer.
func (p SubPhase) Title() string {
	switch p {
	case PhaseFiles:
		return "Referenced Files"
	case PhaseQuery:
		return "Query"
	case PhaseDiff:
		return "Code Changes"
	default:
		return ""
	}
}

type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}
