package billing

// LockEvaluator reports the current lock state of the invoice being edited.
// It is called at every attempt so a registration or report created
// mid-edit is seen.
type LockEvaluator func() (LockState, error)

type sessionLine struct {
	Line
	added bool
}

// EditSession tracks the lines of one invoice during an edit. Lines added
// in this session can always be taken back out; anything touching
// committed lines requires the invoice to be Unlocked.
type EditSession struct {
	lines            []sessionLine
	evaluate         LockEvaluator
	committedRemoved bool
}

func NewEditSession(committed []Line, evaluate LockEvaluator) *EditSession {
	s := &EditSession{evaluate: evaluate}
	for _, l := range committed {
		s.lines = append(s.lines, sessionLine{Line: l})
	}
	return s
}

func (s *EditSession) requireUnlocked() error {
	if s.evaluate == nil {
		return nil
	}
	state, err := s.evaluate()
	if err != nil {
		return err
	}
	return state.CheckEditable()
}

// Add appends a new line after duplicate, input and lock checks.
func (s *EditSession) Add(line Line) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if err := CheckDuplicate(s.Lines(), line.Name); err != nil {
		return err
	}
	if err := s.requireUnlocked(); err != nil {
		return err
	}
	s.lines = append(s.lines, sessionLine{Line: line, added: true})
	return nil
}

// Remove drops the line with the given (normalized) name.
func (s *EditSession) Remove(name string) error {
	i := FindByName(s.Lines(), name)
	if i < 0 {
		return ErrTestNotInBooking
	}
	if !s.lines[i].added {
		if err := s.requireUnlocked(); err != nil {
			return err
		}
		s.committedRemoved = true
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return nil
}

// Lines returns the current lines, committed first then session-added.
func (s *EditSession) Lines() []Line {
	out := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l.Line)
	}
	return out
}

// Changed reports whether committed content would differ after Commit.
func (s *EditSession) Changed() bool {
	if s.committedRemoved {
		return true
	}
	for _, l := range s.lines {
		if l.added {
			return true
		}
	}
	return false
}

// Commit re-checks the lock and returns the lines to persist. A session
// with nothing to persist returns ok=false.
func (s *EditSession) Commit() (lines []Line, ok bool, err error) {
	if !s.Changed() {
		return nil, false, nil
	}
	if err := s.requireUnlocked(); err != nil {
		return nil, false, err
	}
	return s.Lines(), true, nil
}
