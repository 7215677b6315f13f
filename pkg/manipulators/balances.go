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

// System.Account value: nonce, consumers, providers, sufficients (u32 each)
// followed by free, reserved and two frozen balances (u128 each).
const (
	accountFreeOffset = 16
	accountInfoSize   = accountFreeOffset + 4*16
)

// BalancesManipulator sets the free balance of a set of accounts and moves
// the total issuance by the same amount.
type BalancesManipulator struct {
	base
	order   []common.Address
	targets map[common.Address]*uint256.Int

	accountPrefix string
	issuanceKey   string

	current  map[common.Address]*uint256.Int
	issuance *uint256.Int
	total    *uint256.Int
}

// NewBalancesManipulator creates a BalancesManipulator
func NewBalancesManipulator(balances []AccountBalance) *BalancesManipulator {
	order, targets := dedupe(balances)
	return &BalancesManipulator{
		base:          base{name: "balances"},
		order:         order,
		targets:       targets,
		accountPrefix: storagekey.Encode("System", "Account"),
		issuanceKey:   storagekey.Encode("Balances", "TotalIssuance"),
		current:       make(map[common.Address]*uint256.Int),
	}
}

func (m *BalancesManipulator) ProcessRead(line genesisparser.Line) error {
	switch {
	case line.Key == m.issuanceKey:
		value, err := decodeValue(line)
		if err != nil {
			return err
		}
		if m.issuance, err = scale.U128(value, 0); err != nil {
			return err
		}

	case strings.HasPrefix(line.Key, m.accountPrefix):
		raw, ok := storagekey.DecodeBlake128MapKey(m.accountPrefix, line.Key)
		if !ok || len(raw) != common.AddressLength {
			return nil
		}
		account := common.BytesToAddress(raw)
		if _, ok := m.targets[account]; !ok {
			return nil
		}
		value, err := decodeValue(line)
		if err != nil {
			return err
		}
		free, err := scale.U128(value, accountFreeOffset)
		if err != nil {
			return err
		}
		m.current[account] = free
	}
	return nil
}

func (m *BalancesManipulator) PrepareWrite() error {
	if m.issuance == nil {
		m.warn("Total issuance not found, new accounts will not be inserted")
		return nil
	}
	total, err := applyDelta(m.issuance, m.order, m.targets, m.current)
	if err != nil {
		return fmt.Errorf("total issuance: %w", err)
	}
	m.total = total
	m.info("Adjusting total issuance", "from", m.issuance.Dec(), "to", m.total.Dec(), "accounts", len(m.order), "new", len(m.order)-len(m.current))
	return nil
}

// TotalIssuance returns the issuance computed by PrepareWrite.
func (m *BalancesManipulator) TotalIssuance() *uint256.Int { return m.total }

func (m *BalancesManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	switch {
	case line.Key == m.issuanceKey && m.total != nil:
		lines := []genesisparser.Line{
			genesisparser.StringLine(line.Key, hexutil.Encode(scale.PutU128(m.total))),
		}
		for _, a := range m.order {
			if _, ok := m.current[a]; ok {
				continue
			}
			lines = append(lines, genesisparser.StringLine(
				storagekey.EncodeBlake128MapKey("System", "Account", a.Bytes()),
				hexutil.Encode(newAccountInfo(m.targets[a])),
			))
		}
		return genesisparser.Remove(lines...), nil

	case strings.HasPrefix(line.Key, m.accountPrefix):
		raw, ok := storagekey.DecodeBlake128MapKey(m.accountPrefix, line.Key)
		if !ok || len(raw) != common.AddressLength {
			return nil, nil
		}
		target, ok := m.targets[common.BytesToAddress(raw)]
		if !ok {
			return nil, nil
		}
		value, err := decodeValue(line)
		if err != nil {
			return nil, err
		}
		value = append([]byte{}, value...)
		copy(value[accountFreeOffset:], scale.PutU128(target))
		return replaceWith(line.Key, value), nil
	}
	return nil, nil
}

// newAccountInfo encodes an account with a single provider and free balance.
func newAccountInfo(free *uint256.Int) []byte {
	info := make([]byte, accountInfoSize)
	copy(info[8:], scale.PutU32(1))
	copy(info[accountFreeOffset:], scale.PutU128(free))
	return info
}
