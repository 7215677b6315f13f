package genesisparser

import "github.com/luxfi/log"

// Action is what a manipulator wants done with the line it was shown.
type Action int

const (
	// ActionKeep leaves the original line in place.
	ActionKeep Action = iota
	// ActionRemove drops the original line. A single remove from any
	// manipulator wins over every keep.
	ActionRemove
)

func (a Action) String() string {
	if a == ActionRemove {
		return "remove"
	}
	return "keep"
}

// WriteDecision is a manipulator's verdict on one line during the write pass.
// ExtraLines are appended after the original line, whether it is kept or not.
type WriteDecision struct {
	Action     Action
	ExtraLines []Line
}

// Keep returns a keep decision appending lines.
func Keep(lines ...Line) *WriteDecision {
	return &WriteDecision{Action: ActionKeep, ExtraLines: lines}
}

// Remove returns a remove decision appending lines in place of the original.
func Remove(lines ...Line) *WriteDecision {
	return &WriteDecision{Action: ActionRemove, ExtraLines: lines}
}

// Manipulator is a rule plugged into the two pass rewrite.
//
// ProcessRead observes every line carrying a value during the read pass and
// must only update the manipulator's own fields. PrepareWrite runs once
// between the passes; an error there aborts the whole run. ProcessWrite is
// called for every line carrying a value during the write pass and returns
// nil when it has nothing to say about the line.
type Manipulator interface {
	ProcessRead(line Line) error
	PrepareWrite() error
	ProcessWrite(line Line) (*WriteDecision, error)
}

// Named is implemented by manipulators that want to be identified in logs.
type Named interface {
	Name() string
}

// Logged is implemented by manipulators that log their decisions. The parser
// hands them its logger before the read pass.
type Logged interface {
	SetLogger(log.Logger)
}

// decide runs every manipulator on line in order and folds the decisions.
func decide(manipulators []Manipulator, line Line) (remove bool, extra []Line, err error) {
	for _, m := range manipulators {
		d, err := m.ProcessWrite(line)
		if err != nil {
			return false, nil, wrapManipulatorErr(m, err)
		}
		if d == nil {
			continue
		}
		if d.Action == ActionRemove {
			remove = true
		}
		extra = append(extra, d.ExtraLines...)
	}
	return remove, extra, nil
}

func manipulatorName(m Manipulator) string {
	if n, ok := m.(Named); ok {
		return n.Name()
	}
	return "manipulator"
}
