package workflow

// diffSlot holds the most recently materialized diff plus the identity it
// was computed for. generation grows with every request and every clear so
// completions issued before either can be recognised as stale.
type diffSlot struct {
	text     string
	owner    int
	hasOwner bool
	source   string
	failed   bool
	errMsg   string

	generation     uint64
	pending        bool
	pendingOwner   int
	pendingSource  string
	staleDiscarded int
}

func (s *diffSlot) clear() {
	s.text = ""
	s.owner = 0
	s.hasOwner = false
	s.source = ""
	s.failed = false
	s.errMsg = ""
	s.pending = false
	s.generation++
}

func (s *diffSlot) issue(owner int, response string) DiffRequest {
	s.generation++
	s.pending = true
	s.pendingOwner = owner
	s.pendingSource = response
	return DiffRequest{Owner: owner, Generation: s.generation, Response: response}
}

// settleEmpty records an empty diff for owner without a renderer call.
func (s *diffSlot) settleEmpty(owner int) {
	s.generation++
	s.pending = false
	s.text = ""
	s.owner = owner
	s.hasOwner = true
	s.source = ""
	s.failed = false
	s.errMsg = ""
}

func (s *diffSlot) apply(res DiffResult) {
	s.pending = false
	s.owner = res.Owner
	s.hasOwner = true
	s.source = s.pendingSource
	if res.Err != nil {
		s.text = ""
		s.failed = true
		s.errMsg = res.Err.Error()
		return
	}
	s.text = res.Text
	s.failed = false
	s.errMsg = ""
}

// satisfies reports whether the slot already holds, or is waiting on, the
// diff for owner's response.
func (s *diffSlot) satisfies(owner int, response string) bool {
	if s.pending {
		return s.pendingOwner == owner && s.pendingSource == response
	}
	return s.hasOwner && s.owner == owner && s.source == response
}
