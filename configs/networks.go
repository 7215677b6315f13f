package configs

import (
	_ "embed"
)

// Patch plans and network snapshot locations
// These are embedded at compile time for reliable access

var (
	//go:embed local-fork.yaml
	LocalForkPlan []byte // default plan for a local fork
)

// SnapshotBaseURL is where exported network states are published.
const SnapshotBaseURL = "https://s3.us-east-2.amazonaws.com/snapshots.moonbeam.network"

// NetworkConfig represents a network whose state can be forked
type NetworkConfig struct {
	Name       string `json:"name"`
	ParaID     uint64 `json:"paraId"`
	RelayChain string `json:"relayChain"`
}

// Networks maps network names to their configurations
var Networks = map[string]*NetworkConfig{
	"moonbeam": {
		Name:       "moonbeam",
		ParaID:     2004,
		RelayChain: "polkadot",
	},
	"moonriver": {
		Name:       "moonriver",
		ParaID:     2023,
		RelayChain: "kusama",
	},
	"moonbase-alpha": {
		Name:       "moonbase-alpha",
		ParaID:     1000,
		RelayChain: "westend",
	},
}

// GetNetwork returns the configuration for a network name
func GetNetwork(name string) (*NetworkConfig, bool) {
	config, exists := Networks[name]
	return config, exists
}
