// Package manipulators holds the state surgery rules used to turn an exported
// parachain state into one a local fork can start from. Each rule only knows
// the storage keys it touches and keeps whatever it learns during the read
// pass on its own fields.
package manipulators

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/statepatch/pkg/genesisparser"
)

// base provides the optional hooks so rules only implement what they use.
type base struct {
	name string
	log  log.Logger
}

func (b *base) Name() string { return b.name }

func (b *base) SetLogger(l log.Logger) { b.log = l }

func (b *base) ProcessRead(genesisparser.Line) error { return nil }

func (b *base) PrepareWrite() error { return nil }

func (b *base) info(msg string, ctx ...interface{}) {
	if b.log != nil {
		b.log.Info(msg, append([]interface{}{"manipulator", b.name}, ctx...)...)
	}
}

func (b *base) warn(msg string, ctx ...interface{}) {
	if b.log != nil {
		b.log.Warn(msg, append([]interface{}{"manipulator", b.name}, ctx...)...)
	}
}

// AccountBalance is a target balance for one account.
type AccountBalance struct {
	Account common.Address
	Amount  *uint256.Int
}

// decodeValue decodes the hex value of line.
func decodeValue(line genesisparser.Line) ([]byte, error) {
	b, err := hexutil.Decode(line.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", genesisparser.ErrInvalidValue, line.Key, err)
	}
	return b, nil
}

// replaceWith drops the original record and writes value under key instead.
func replaceWith(key string, value []byte) *genesisparser.WriteDecision {
	return genesisparser.Remove(genesisparser.StringLine(key, hexutil.Encode(value)))
}

// dedupe keeps the last amount given for each account, in first seen order.
func dedupe(balances []AccountBalance) ([]common.Address, map[common.Address]*uint256.Int) {
	order := make([]common.Address, 0, len(balances))
	amounts := make(map[common.Address]*uint256.Int, len(balances))
	for _, b := range balances {
		if _, ok := amounts[b.Account]; !ok {
			order = append(order, b.Account)
		}
		amount := new(uint256.Int)
		if b.Amount != nil {
			amount.Set(b.Amount)
		}
		amounts[b.Account] = amount
	}
	return order, amounts
}

// applyDelta returns total + sum(targets) - sum(currents) for the accounts
// in order. Accounts missing from currents count as zero. The result must be
// a valid u128.
func applyDelta(total *uint256.Int, order []common.Address, targets, currents map[common.Address]*uint256.Int) (*uint256.Int, error) {
	add := new(uint256.Int).Set(total)
	sub := new(uint256.Int)
	for _, a := range order {
		add.Add(add, targets[a])
		if cur, ok := currents[a]; ok {
			sub.Add(sub, cur)
		}
	}
	if add.Lt(sub) {
		return nil, fmt.Errorf("%w: total %s is below the replaced balances", genesisparser.ErrInvalidValue, total.Dec())
	}
	out := add.Sub(add, sub)
	if out.BitLen() > 128 {
		return nil, fmt.Errorf("%w: adjusted total %s does not fit in u128", genesisparser.ErrInvalidValue, out.Dec())
	}
	return out, nil
}
