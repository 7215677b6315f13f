package manipulators

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/scale"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// Assets.Asset details: owner, issuer, admin, freezer (20 bytes each), then
// supply, deposit, min_balance (u128), is_sufficient (bool) and the account,
// sufficient and approval counters (u32).
const (
	assetSupplyOffset      = 4 * common.AddressLength
	assetAccountsOffset    = assetSupplyOffset + 3*16 + 1
	assetSufficientsOffset = assetAccountsOffset + 4

	assetIDSize = 16

	// ExistenceReason::Sufficient
	reasonSufficient = 1
)

// AssetsManipulator sets balances of one asset and keeps the asset supply
// and holder counters consistent with them.
type AssetsManipulator struct {
	base
	assetID []byte
	order   []common.Address
	targets map[common.Address]*uint256.Int

	detailsKey    string
	accountPrefix string

	current map[common.Address]*uint256.Int
	found   bool
}

// NewAssetsManipulator creates an AssetsManipulator for a u128 asset id.
func NewAssetsManipulator(assetID *uint256.Int, balances []AccountBalance) *AssetsManipulator {
	id := scale.PutU128(assetID)
	order, targets := dedupe(balances)
	return &AssetsManipulator{
		base:          base{name: "assets:" + assetID.Dec()},
		assetID:       id,
		order:         order,
		targets:       targets,
		detailsKey:    storagekey.EncodeBlake128MapKey("Assets", "Asset", id),
		accountPrefix: storagekey.Encode("Assets", "Account") + storagekey.Blake128ConcatSuffix(id),
		current:       make(map[common.Address]*uint256.Int),
	}
}

func (m *AssetsManipulator) account(key string) (common.Address, bool) {
	if !strings.HasPrefix(key, m.accountPrefix) {
		return common.Address{}, false
	}
	prefix := storagekey.Encode("Assets", "Account")
	_, raw, ok := storagekey.DecodeBlake128DoubleMapKey(prefix, key, assetIDSize)
	if !ok || len(raw) != common.AddressLength {
		return common.Address{}, false
	}
	account := common.BytesToAddress(raw)
	_, target := m.targets[account]
	return account, target
}

func (m *AssetsManipulator) ProcessRead(line genesisparser.Line) error {
	if line.Key == m.detailsKey {
		m.found = true
		return nil
	}
	account, ok := m.account(line.Key)
	if !ok {
		return nil
	}
	value, err := decodeValue(line)
	if err != nil {
		return err
	}
	balance, err := scale.U128(value, 0)
	if err != nil {
		return err
	}
	m.current[account] = balance
	return nil
}

func (m *AssetsManipulator) PrepareWrite() error {
	if !m.found {
		m.warn("Asset not found, balances left untouched")
		return nil
	}
	m.info("Setting asset balances", "accounts", len(m.order), "new", len(m.order)-len(m.current))
	return nil
}

func (m *AssetsManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	if line.Key == m.detailsKey {
		return m.rewriteDetails(line)
	}
	account, ok := m.account(line.Key)
	if !ok {
		return nil, nil
	}
	value, err := decodeValue(line)
	if err != nil {
		return nil, err
	}
	value = append([]byte{}, value...)
	copy(value, scale.PutU128(m.targets[account]))
	return replaceWith(line.Key, value), nil
}

func (m *AssetsManipulator) rewriteDetails(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	value, err := decodeValue(line)
	if err != nil {
		return nil, err
	}
	if len(value) < assetSufficientsOffset+4 {
		return nil, fmt.Errorf("%w: asset details are %d bytes", genesisparser.ErrInvalidValue, len(value))
	}
	value = append([]byte{}, value...)

	supply, _ := scale.U128(value, assetSupplyOffset)
	if supply, err = applyDelta(supply, m.order, m.targets, m.current); err != nil {
		return nil, fmt.Errorf("asset supply: %w", err)
	}
	copy(value[assetSupplyOffset:], scale.PutU128(supply))

	added := uint32(len(m.order) - len(m.current))
	for _, offset := range []int{assetAccountsOffset, assetSufficientsOffset} {
		n, _ := scale.U32(value, offset)
		copy(value[offset:], scale.PutU32(n+added))
	}

	lines := []genesisparser.Line{genesisparser.StringLine(line.Key, hexutil.Encode(value))}
	for _, a := range m.order {
		if _, ok := m.current[a]; ok {
			continue
		}
		record := append(scale.PutU128(m.targets[a]), 0, reasonSufficient)
		lines = append(lines, genesisparser.StringLine(
			storagekey.EncodeBlake128DoubleMapKey("Assets", "Account", m.assetID, a.Bytes()),
			hexutil.Encode(record),
		))
	}
	m.info("Adjusted asset supply", "supply", supply.Dec(), "holdersAdded", added)
	return genesisparser.Remove(lines...), nil
}
