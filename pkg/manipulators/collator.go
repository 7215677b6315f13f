package manipulators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/scale"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// ErrNoCollatorAvailable is returned when no selected candidate can hand its
// author slot to the new session key.
var ErrNoCollatorAvailable = errors.New("no collator available to replace")

// SessionKey is a 32 byte nimbus author id.
type SessionKey [32]byte

// ParseSessionKey parses a 0x prefixed 32 byte hex session key.
func ParseSessionKey(s string) (SessionKey, error) {
	var k SessionKey
	b, err := hexutil.Decode(s)
	if err != nil {
		return k, fmt.Errorf("invalid session key %q: %w", s, err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("invalid session key %q: want %d bytes, got %d", s, len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

func (k SessionKey) Hex() string { return hexutil.Encode(k[:]) }

// mapping value: account (20) ++ deposit (u128) ++ keys (32, newer runtimes)
const (
	mappingKeysOffset = common.AddressLength + 16
	mappingKeysEnd    = mappingKeysOffset + 32
)

// CollatorManipulator hands the author slot of an existing selected collator
// to a new session key, so a node holding that key authors for the fork.
type CollatorManipulator struct {
	base
	newKey SessionKey

	selectedKey   string
	orbiterPrefix string
	mappingPrefix string
	lookupPrefix  string

	candidates []common.Address
	orbiters   map[common.Address]bool
	owners     map[SessionKey]common.Address
	lookups    map[common.Address]SessionKey

	collator      common.Address
	oldKey        SessionKey
	ownerLookup   string
	oldMappingKey string
	newMappingKey string
	lookupKey     string
}

// NewCollatorManipulator creates a CollatorManipulator
func NewCollatorManipulator(newKey SessionKey) *CollatorManipulator {
	return &CollatorManipulator{
		base:          base{name: "collator"},
		newKey:        newKey,
		selectedKey:   storagekey.Encode("ParachainStaking", "SelectedCandidates"),
		orbiterPrefix: storagekey.Encode("MoonbeamOrbiters", "AccountLookupOverride"),
		mappingPrefix: storagekey.Encode("AuthorMapping", "MappingWithDeposit"),
		lookupPrefix:  storagekey.Encode("AuthorMapping", "NimbusLookup"),
		orbiters:      make(map[common.Address]bool),
		owners:        make(map[SessionKey]common.Address),
		lookups:       make(map[common.Address]SessionKey),
	}
}

// Collator returns the collator chosen by PrepareWrite.
func (m *CollatorManipulator) Collator() common.Address { return m.collator }

func (m *CollatorManipulator) ProcessRead(line genesisparser.Line) error {
	switch {
	case line.Key == m.selectedKey:
		value, err := decodeValue(line)
		if err != nil {
			return err
		}
		if m.candidates, err = scale.DecodeAccounts(value); err != nil {
			return fmt.Errorf("selected candidates: %w", err)
		}

	case strings.HasPrefix(line.Key, m.orbiterPrefix):
		if raw, ok := storagekey.DecodeBlake128MapKey(m.orbiterPrefix, line.Key); ok && len(raw) == common.AddressLength {
			m.orbiters[common.BytesToAddress(raw)] = true
		}

	case strings.HasPrefix(line.Key, m.mappingPrefix):
		raw, ok := storagekey.DecodeBlake128MapKey(m.mappingPrefix, line.Key)
		if !ok || len(raw) != len(SessionKey{}) {
			return nil
		}
		value, err := decodeValue(line)
		if err != nil {
			return err
		}
		if len(value) < common.AddressLength {
			return fmt.Errorf("%w: author mapping %s too short", genesisparser.ErrInvalidValue, line.Key)
		}
		m.owners[SessionKey(raw)] = common.BytesToAddress(value[:common.AddressLength])

	case strings.HasPrefix(line.Key, m.lookupPrefix):
		raw, ok := storagekey.DecodeBlake128MapKey(m.lookupPrefix, line.Key)
		if !ok || len(raw) != common.AddressLength {
			return nil
		}
		value, err := decodeValue(line)
		if err != nil {
			return err
		}
		if len(value) != len(SessionKey{}) {
			return fmt.Errorf("%w: nimbus lookup %s is %d bytes", genesisparser.ErrInvalidValue, line.Key, len(value))
		}
		m.lookups[common.BytesToAddress(raw)] = SessionKey(value)
	}
	return nil
}

// PrepareWrite picks the first selected candidate that is not an orbiter and
// has both a nimbus lookup and the matching author mapping.
func (m *CollatorManipulator) PrepareWrite() error {
	for _, c := range m.candidates {
		if m.orbiters[c] {
			continue
		}
		key, ok := m.lookups[c]
		if !ok {
			continue
		}
		if owner, ok := m.owners[key]; !ok || owner != c {
			continue
		}
		m.collator = c
		m.oldKey = key
		break
	}
	if m.collator == (common.Address{}) {
		return fmt.Errorf("%w: %d candidates, %d orbiters, %d mappings", ErrNoCollatorAvailable, len(m.candidates), len(m.orbiters), len(m.owners))
	}

	if owner, ok := m.owners[m.newKey]; ok && owner != m.collator {
		m.ownerLookup = storagekey.EncodeBlake128MapKey("AuthorMapping", "NimbusLookup", owner.Bytes())
	}
	m.oldMappingKey = storagekey.EncodeBlake128MapKey("AuthorMapping", "MappingWithDeposit", m.oldKey[:])
	m.newMappingKey = storagekey.EncodeBlake128MapKey("AuthorMapping", "MappingWithDeposit", m.newKey[:])
	m.lookupKey = storagekey.EncodeBlake128MapKey("AuthorMapping", "NimbusLookup", m.collator.Bytes())

	m.info("Replacing collator session key", "collator", m.collator.Hex(), "old", m.oldKey.Hex(), "new", m.newKey.Hex())
	return nil
}

func (m *CollatorManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	switch {
	case line.Key == m.oldMappingKey:
		value, err := decodeValue(line)
		if err != nil {
			return nil, err
		}
		if len(value) >= mappingKeysEnd {
			value = append([]byte{}, value...)
			copy(value[mappingKeysOffset:mappingKeysEnd], m.newKey[:])
		}
		return replaceWith(m.newMappingKey, value), nil

	case line.Key == m.newMappingKey:
		return genesisparser.Remove(), nil

	case line.Key == m.lookupKey:
		return replaceWith(line.Key, m.newKey[:]), nil

	case m.ownerLookup != "" && line.Key == m.ownerLookup:
		return genesisparser.Remove(), nil
	}
	return nil, nil
}
