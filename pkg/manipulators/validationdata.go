package manipulators

import (
	"fmt"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/scale"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// ValidationDataManipulator points the parachain at a relay parent of the
// caller's choosing and forgets the relay storage root, so the fork can be
// driven by a fresh local relay chain.
type ValidationDataManipulator struct {
	base
	parentNumber uint32

	validationKey string
	lastRelayKey  string
}

// NewValidationDataManipulator creates a ValidationDataManipulator
func NewValidationDataManipulator(parentNumber uint32) *ValidationDataManipulator {
	return &ValidationDataManipulator{
		base:          base{name: "validation-data"},
		parentNumber:  parentNumber,
		validationKey: storagekey.Encode("ParachainSystem", "ValidationData"),
		lastRelayKey:  storagekey.Encode("ParachainSystem", "LastRelayChainBlockNumber"),
	}
}

func (m *ValidationDataManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	switch line.Key {
	case m.validationKey:
		value, err := decodeValue(line)
		if err != nil {
			return nil, err
		}
		// parent_head: Vec<u8>, then relay_parent_number u32 and the storage root
		n, size, err := scale.DecodeCompact(value)
		if err != nil {
			return nil, fmt.Errorf("validation data parent head: %w", err)
		}
		if n > uint64(len(value)-size) {
			return nil, fmt.Errorf("%w: validation data parent head of %d bytes exceeds the record", genesisparser.ErrInvalidValue, n)
		}
		offset := size + int(n)
		if len(value) < offset+4+32 {
			return nil, fmt.Errorf("%w: validation data is %d bytes", genesisparser.ErrInvalidValue, len(value))
		}
		value = append([]byte{}, value...)
		copy(value[offset:], scale.PutU32(m.parentNumber))
		clear(value[offset+4 : offset+4+32])
		m.info("Resetting validation data", "relayParent", m.parentNumber)
		return replaceWith(line.Key, value), nil

	case m.lastRelayKey:
		return replaceWith(line.Key, scale.PutU32(m.parentNumber)), nil
	}
	return nil, nil
}
