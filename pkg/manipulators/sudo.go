package manipulators

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// SudoManipulator hands the sudo key to a new account.
type SudoManipulator struct {
	base
	account common.Address
	key     string
}

// NewSudoManipulator creates a SudoManipulator
func NewSudoManipulator(account common.Address) *SudoManipulator {
	return &SudoManipulator{
		base:    base{name: "sudo"},
		account: account,
		key:     storagekey.Encode("Sudo", "Key"),
	}
}

func (m *SudoManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	if line.Key != m.key {
		return nil, nil
	}
	m.info("Replacing sudo key", "account", m.account.Hex())
	return replaceWith(line.Key, m.account.Bytes()), nil
}
