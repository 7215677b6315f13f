package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/statepatch/pkg/application"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/plan"
)

// NewPatchCmd creates the patch command
func NewPatchCmd(app *application.StatePatch) *cobra.Command {
	var (
		planFile    string
		batchSize   int
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "patch [input] [output]",
		Short: "Run a patch plan over an exported state file",
		Long: `Streams the exported state twice: once so every manipulator can observe the
records it cares about, and once to write the patched copy. The plan comes from
--plan, else from the "patch" section of the config file, else the embedded
local fork plan.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlan(app, planFile)
			if err != nil {
				return err
			}
			manipulators, err := p.Build()
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			metrics, err := genesisparser.NewMetrics(registry)
			if err != nil {
				return err
			}
			parser := genesisparser.New(app, metrics).WithBatchSize(batchSize)

			cmd.Printf("Patching %s into %s with %d manipulators...\n", args[0], args[1], len(manipulators))
			if err := parser.ProcessState(args[0], args[1], manipulators); err != nil {
				return fmt.Errorf("patch failed: %w", err)
			}

			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
			}
			cmd.Printf("✅ State patched successfully.\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&planFile, "plan", "", "YAML file holding a patch plan")
	cmd.Flags().IntVar(&batchSize, "batch-size", genesisparser.DefaultBatchSize, "lines buffered between writes")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this textfile")

	return cmd
}

// loadPlan reads the plan from file when given, else from the app config.
func loadPlan(app *application.StatePatch, file string) (*plan.Plan, error) {
	if file == "" {
		return plan.Load(app.Config)
	}
	return plan.LoadFile(file)
}
