// Package plan decodes which manipulators to run, and with what parameters,
// from the viper configuration.
package plan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/spf13/viper"

	"github.com/luxfi/statepatch/configs"
	"github.com/luxfi/statepatch/pkg/core"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/manipulators"
)

// Key is the configuration key the plan lives under.
const Key = "patch"

// Plan lists the manipulators to register. Absent sections are skipped.
type Plan struct {
	Spec              *SpecConfig         `mapstructure:"spec"`
	Round             *RoundConfig        `mapstructure:"round"`
	AuthorFilter      *AuthorFilterConfig `mapstructure:"authorFilter"`
	Collator          *CollatorConfig     `mapstructure:"collator"`
	ClearXCM          bool                `mapstructure:"clearXcm"`
	Collectives       []CollectiveConfig  `mapstructure:"collectives"`
	Balances          []BalanceConfig     `mapstructure:"balances"`
	ValidationData    *ValidationConfig   `mapstructure:"validationData"`
	Sudo              string              `mapstructure:"sudo"`
	AuthorizedUpgrade *UpgradeConfig      `mapstructure:"authorizedUpgrade"`
	Assets            []AssetConfig       `mapstructure:"assets"`
}

type SpecConfig struct {
	Name           string  `mapstructure:"name"`
	ID             string  `mapstructure:"id"`
	ChainType      string  `mapstructure:"chainType"`
	ProtocolID     string  `mapstructure:"protocolId"`
	RelayChain     string  `mapstructure:"relayChain"`
	ParaID         *uint64 `mapstructure:"paraId"`
	ClearBootNodes bool    `mapstructure:"clearBootNodes"`
}

type RoundConfig struct {
	First  uint32 `mapstructure:"first"`
	Length uint32 `mapstructure:"length"`
}

type AuthorFilterConfig struct {
	Ratio uint8 `mapstructure:"ratio"`
}

type CollatorConfig struct {
	SessionKey string `mapstructure:"sessionKey"`
}

type CollectiveConfig struct {
	Name    string   `mapstructure:"name"`
	Members []string `mapstructure:"members"`
}

type BalanceConfig struct {
	Account string `mapstructure:"account"`
	Amount  string `mapstructure:"amount"`
}

type ValidationConfig struct {
	ParentNumber uint32 `mapstructure:"parentNumber"`
}

type UpgradeConfig struct {
	CodeHash     string `mapstructure:"codeHash"`
	CheckVersion *bool  `mapstructure:"checkVersion"`
}

type AssetConfig struct {
	ID       string          `mapstructure:"id"`
	Balances []BalanceConfig `mapstructure:"balances"`
}

// Load decodes the plan from v, falling back to the embedded local fork plan
// when v has none.
func Load(v *viper.Viper) (*Plan, error) {
	if v == nil || !v.IsSet(Key) {
		return Default()
	}
	return decode(v)
}

// LoadFile decodes the plan from a YAML file. Unlike Load it never falls back
// to the embedded plan: a file without a patch section is a configuration
// error.
func LoadFile(file string) (*Plan, error) {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapConfigError(err, "failed to read plan %s", file)
	}
	if !v.IsSet(Key) {
		return nil, core.ErrInvalidConfigf("plan %s has no %q section", file, Key)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Plan, error) {
	var p Plan
	if err := v.UnmarshalKey(Key, &p); err != nil {
		return nil, core.WrapConfigError(err, "failed to decode %s plan", Key)
	}
	return &p, nil
}

// Default returns the embedded local fork plan.
func Default() (*Plan, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(configs.LocalForkPlan)); err != nil {
		return nil, fmt.Errorf("failed to read embedded plan: %w", err)
	}
	var p Plan
	if err := v.UnmarshalKey(Key, &p); err != nil {
		return nil, fmt.Errorf("failed to decode embedded plan: %w", err)
	}
	return &p, nil
}

// Build turns the plan into manipulators in their canonical order.
func (p *Plan) Build() ([]genesisparser.Manipulator, error) {
	var out []genesisparser.Manipulator

	if p.Spec != nil {
		out = append(out, manipulators.NewSpecManipulator(manipulators.SpecFields{
			Name:           p.Spec.Name,
			ID:             p.Spec.ID,
			ChainType:      p.Spec.ChainType,
			ProtocolID:     p.Spec.ProtocolID,
			RelayChain:     p.Spec.RelayChain,
			ParaID:         p.Spec.ParaID,
			ClearBootNodes: p.Spec.ClearBootNodes,
		}))
	}
	if p.Round != nil {
		if p.Round.Length == 0 {
			return nil, core.ErrInvalidConfig("round length must be positive")
		}
		out = append(out, manipulators.NewRoundManipulator(manipulators.FixedRound(p.Round.First, p.Round.Length)))
	}
	if p.AuthorFilter != nil {
		m, err := manipulators.NewAuthorFilteringManipulator(p.AuthorFilter.Ratio)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if p.Collator != nil {
		key, err := manipulators.ParseSessionKey(p.Collator.SessionKey)
		if err != nil {
			return nil, core.WrapConfigError(err, "collator")
		}
		out = append(out, manipulators.NewCollatorManipulator(key))
	}
	if p.ClearXCM {
		out = append(out, manipulators.NewXCMManipulator())
	}
	for _, c := range p.Collectives {
		members, err := parseAccounts(c.Members)
		if err != nil {
			return nil, core.WrapConfigError(err, "collective %s", c.Name)
		}
		out = append(out, manipulators.NewCollectiveManipulator(c.Name, members))
	}
	if len(p.Balances) > 0 {
		balances, err := parseBalances(p.Balances)
		if err != nil {
			return nil, core.WrapConfigError(err, "balances")
		}
		out = append(out, manipulators.NewBalancesManipulator(balances))
	}
	if p.ValidationData != nil {
		out = append(out, manipulators.NewValidationDataManipulator(p.ValidationData.ParentNumber))
	}
	if p.Sudo != "" {
		account, err := parseAccount(p.Sudo)
		if err != nil {
			return nil, core.WrapConfigError(err, "sudo")
		}
		out = append(out, manipulators.NewSudoManipulator(account))
	}
	if p.AuthorizedUpgrade != nil {
		hash := p.AuthorizedUpgrade.CodeHash
		if len(strings.TrimPrefix(hash, "0x")) != 2*common.HashLength {
			return nil, core.ErrInvalidConfigf("authorized upgrade code hash %q is not 32 bytes", hash)
		}
		out = append(out, manipulators.NewAuthorizedUpgradeManipulator(common.HexToHash(hash), p.AuthorizedUpgrade.CheckVersion))
	}
	for _, a := range p.Assets {
		id, err := parseAmount(a.ID)
		if err != nil {
			return nil, core.WrapConfigError(err, "asset id")
		}
		balances, err := parseBalances(a.Balances)
		if err != nil {
			return nil, core.WrapConfigError(err, "asset %s", a.ID)
		}
		out = append(out, manipulators.NewAssetsManipulator(id, balances))
	}
	return out, nil
}

func parseAccount(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid account %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAccounts(list []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(list))
	for _, s := range list {
		a, err := parseAccount(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// parseAmount accepts decimal or 0x prefixed hex.
func parseAmount(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "0x") {
		return uint256.FromHex(s)
	}
	return uint256.FromDecimal(s)
}

func parseBalances(list []BalanceConfig) ([]manipulators.AccountBalance, error) {
	out := make([]manipulators.AccountBalance, 0, len(list))
	for _, b := range list {
		account, err := parseAccount(b.Account)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount for %s: %w", b.Account, err)
		}
		if amount.BitLen() > 128 {
			return nil, fmt.Errorf("amount for %s does not fit in u128", b.Account)
		}
		out = append(out, manipulators.AccountBalance{Account: account, Amount: amount})
	}
	return out, nil
}
