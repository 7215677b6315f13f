package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxfi/statepatch/pkg/application"
)

var (
	// Version information (set by ldflags)
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// Global flags
	configFile string
	baseDir    string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	app := application.New()
	config := viper.New()

	rootCmd := &cobra.Command{
		Use:     "statepatch",
		Short:   "Exported chain state patching tool",
		Long:    `Rewrites multi-gigabyte exported parachain states line by line so they can seed a local fork.`,
		Version: fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(config); err != nil {
				return err
			}
			return initializeApp(app, config)
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./statepatch.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "base directory for snapshots and output")

	// Add commands
	rootCmd.AddCommand(NewPatchCmd(app))
	rootCmd.AddCommand(NewForkCmd(app))
	rootCmd.AddCommand(NewStorageKeyCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// initConfig reads the config file into v. A missing ./statepatch.yaml leaves
// the embedded defaults in charge; a file named with --config must be readable.
func initConfig(v *viper.Viper) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("statepatch")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("STATEPATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func initializeApp(app *application.StatePatch, config *viper.Viper) error {
	// Set up base directory
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		baseDir = filepath.Join(homeDir, ".statepatch")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}

	logger := log.NewLogger("statepatch")
	app.Setup(baseDir, logger, config)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("statepatch %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		},
	}
}
