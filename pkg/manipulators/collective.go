package manipulators

import (
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/scale"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// CollectiveManipulator replaces the members of a collective such as
// CouncilCollective, dropping its prime when the prime is no longer a member.
type CollectiveManipulator struct {
	base
	collective string
	members    []common.Address
	membersKey string
	primeKey   string
}

// NewCollectiveManipulator creates a CollectiveManipulator
func NewCollectiveManipulator(collective string, members []common.Address) *CollectiveManipulator {
	return &CollectiveManipulator{
		base:       base{name: "collective:" + collective},
		collective: collective,
		members:    members,
		membersKey: storagekey.Encode(collective, "Members"),
		primeKey:   storagekey.Encode(collective, "Prime"),
	}
}

func (m *CollectiveManipulator) isMember(a common.Address) bool {
	for _, member := range m.members {
		if member == a {
			return true
		}
	}
	return false
}

func (m *CollectiveManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	switch line.Key {
	case m.membersKey:
		m.info("Replacing members", "collective", m.collective, "members", len(m.members))
		return replaceWith(line.Key, scale.EncodeAccounts(m.members)), nil

	case m.primeKey:
		value, err := hexutil.Decode(line.Value)
		if err != nil || len(value) != common.AddressLength || !m.isMember(common.BytesToAddress(value)) {
			return genesisparser.Remove(), nil
		}
	}
	return nil, nil
}
