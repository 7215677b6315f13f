package manipulators

import (
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/scale"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// RoundInfo is the staking round record.
type RoundInfo struct {
	Current uint32
	First   uint32
	Length  uint32
}

// RoundManipulator rewrites ParachainStaking.Round through a caller function.
type RoundManipulator struct {
	base
	key    string
	update func(RoundInfo) RoundInfo
}

// NewRoundManipulator creates a RoundManipulator
func NewRoundManipulator(update func(RoundInfo) RoundInfo) *RoundManipulator {
	return &RoundManipulator{
		base:   base{name: "round"},
		key:    storagekey.Encode("ParachainStaking", "Round"),
		update: update,
	}
}

// FixedRound returns an update that restarts the current round at block
// first with the given length.
func FixedRound(first, length uint32) func(RoundInfo) RoundInfo {
	return func(r RoundInfo) RoundInfo {
		return RoundInfo{Current: r.Current, First: first, Length: length}
	}
}

func (m *RoundManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	if line.Key != m.key {
		return nil, nil
	}
	value, err := decodeValue(line)
	if err != nil {
		return nil, err
	}
	var round RoundInfo
	fields := []*uint32{&round.Current, &round.First, &round.Length}
	for i, f := range fields {
		if *f, err = scale.U32(value, 4*i); err != nil {
			return nil, err
		}
	}

	next := m.update(round)
	m.info("Rewriting round", "current", next.Current, "first", next.First, "length", next.Length)

	out := make([]byte, 0, len(value))
	out = append(out, scale.PutU32(next.Current)...)
	out = append(out, scale.PutU32(next.First)...)
	out = append(out, scale.PutU32(next.Length)...)
	out = append(out, value[12:]...)
	return replaceWith(line.Key, out), nil
}
