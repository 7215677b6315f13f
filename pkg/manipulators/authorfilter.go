package manipulators

import (
	"github.com/luxfi/statepatch/pkg/core"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/scale"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// AuthorFilteringManipulator sets the share of selected collators eligible to
// author each block, and the eligible count derived from it.
type AuthorFilteringManipulator struct {
	base
	ratio uint8

	totalSelectedKey string
	ratioKey         string
	countKey         string

	totalSelected uint32
	seen          bool
}

// NewAuthorFilteringManipulator creates an AuthorFilteringManipulator for a
// ratio given in percent.
func NewAuthorFilteringManipulator(ratio uint8) (*AuthorFilteringManipulator, error) {
	if ratio > 100 {
		return nil, core.ErrInvalidConfigf("eligible ratio %d is above 100 percent", ratio)
	}
	return &AuthorFilteringManipulator{
		base:             base{name: "author-filter"},
		ratio:            ratio,
		totalSelectedKey: storagekey.Encode("ParachainStaking", "TotalSelected"),
		ratioKey:         storagekey.Encode("AuthorFilter", "EligibleRatio"),
		countKey:         storagekey.Encode("AuthorFilter", "EligibleCount"),
	}, nil
}

func (m *AuthorFilteringManipulator) ProcessRead(line genesisparser.Line) error {
	if line.Key != m.totalSelectedKey {
		return nil
	}
	value, err := decodeValue(line)
	if err != nil {
		return err
	}
	if m.totalSelected, err = scale.U32(value, 0); err != nil {
		return err
	}
	m.seen = true
	return nil
}

// EligibleCount is floor(totalSelected * ratio / 100).
func (m *AuthorFilteringManipulator) EligibleCount() uint32 {
	return uint32(uint64(m.totalSelected) * uint64(m.ratio) / 100)
}

func (m *AuthorFilteringManipulator) PrepareWrite() error {
	if !m.seen {
		m.warn("Total selected not found, eligible count left untouched")
		return nil
	}
	m.info("Eligible authors", "selected", m.totalSelected, "ratio", m.ratio, "count", m.EligibleCount())
	return nil
}

func (m *AuthorFilteringManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	switch {
	case line.Key == m.ratioKey:
		return replaceWith(line.Key, []byte{m.ratio}), nil
	case line.Key == m.countKey && m.seen:
		return replaceWith(line.Key, scale.PutU32(m.EligibleCount())), nil
	}
	return nil, nil
}
