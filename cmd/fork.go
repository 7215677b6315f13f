package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/luxfi/statepatch/configs"
	"github.com/luxfi/statepatch/pkg/application"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/statemanager"
)

// NewForkCmd creates the fork command
func NewForkCmd(app *application.StatePatch) *cobra.Command {
	var (
		input       string
		planFile    string
		snapshotURL string
	)

	cmd := &cobra.Command{
		Use:   "fork [network]",
		Short: "Download a network snapshot and patch it into a local fork",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			network := args[0]
			if _, ok := configs.GetNetwork(network); !ok {
				return fmt.Errorf("unknown network %q, expected one of %v", network, networkNames())
			}
			p, err := loadPlan(app, planFile)
			if err != nil {
				return err
			}

			manager := statemanager.New(app, genesisparser.New(app, nil))
			if snapshotURL != "" {
				manager.WithBaseURL(snapshotURL)
			}

			output, err := manager.Fork(cmd.Context(), network, p, input)
			if err != nil {
				return err
			}
			cmd.Printf("✅ Fork state written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "use this exported state instead of downloading one")
	cmd.Flags().StringVar(&planFile, "plan", "", "YAML file holding a patch plan")
	cmd.Flags().StringVar(&snapshotURL, "snapshot-url", configs.SnapshotBaseURL, "snapshot host")

	return cmd
}

func networkNames() []string {
	names := make([]string, 0, len(configs.Networks))
	for name := range configs.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
