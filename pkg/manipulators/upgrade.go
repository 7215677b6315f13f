package manipulators

import (
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// AuthorizedUpgradeManipulator authorizes a runtime upgrade to the code with
// the given hash. When the record is absent it is inserted after the first
// storage entry.
type AuthorizedUpgradeManipulator struct {
	base
	value []byte
	key   string

	found    bool
	inserted bool
}

// NewAuthorizedUpgradeManipulator creates an AuthorizedUpgradeManipulator.
// checkVersion, when set, is encoded after the hash as newer runtimes expect.
func NewAuthorizedUpgradeManipulator(codeHash common.Hash, checkVersion *bool) *AuthorizedUpgradeManipulator {
	value := codeHash.Bytes()
	if checkVersion != nil {
		flag := byte(0)
		if *checkVersion {
			flag = 1
		}
		value = append(value, flag)
	}
	return &AuthorizedUpgradeManipulator{
		base:  base{name: "authorized-upgrade"},
		value: value,
		key:   storagekey.Encode("ParachainSystem", "AuthorizedUpgrade"),
	}
}

func (m *AuthorizedUpgradeManipulator) ProcessRead(line genesisparser.Line) error {
	if line.Key == m.key {
		m.found = true
	}
	return nil
}

func (m *AuthorizedUpgradeManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	if line.Key == m.key {
		m.info("Replacing authorized upgrade", "value", hexutil.Encode(m.value))
		return replaceWith(line.Key, m.value), nil
	}
	if m.found || m.inserted || !isStorageLine(line) {
		return nil, nil
	}
	m.inserted = true
	m.info("Inserting authorized upgrade", "value", hexutil.Encode(m.value))
	return genesisparser.Keep(genesisparser.StringLine(m.key, hexutil.Encode(m.value))), nil
}

// isStorageLine reports whether line is a hex keyed storage entry.
func isStorageLine(line genesisparser.Line) bool {
	return line.Kind == genesisparser.ValueString && len(line.Key) >= storagekey.PrefixLen && strings.HasPrefix(line.Key, "0x")
}
