package application

import (
	"path/filepath"

	"github.com/luxfi/log"
	"github.com/spf13/viper"
)

// StatePatch is the main application context that holds all dependencies
type StatePatch struct {
	Log     log.Logger
	BaseDir string
	Config  *viper.Viper
}

// New creates a new StatePatch application instance
func New() *StatePatch {
	return &StatePatch{}
}

// Setup initializes the application with dependencies
func (s *StatePatch) Setup(baseDir string, logger log.Logger, config *viper.Viper) {
	s.BaseDir = baseDir
	s.Log = logger
	s.Config = config
}

// GetDataDir returns the data directory path
func (s *StatePatch) GetDataDir() string {
	return filepath.Join(s.BaseDir, "data")
}

// GetSnapshotDir returns the directory downloaded state snapshots are cached in
func (s *StatePatch) GetSnapshotDir() string {
	return filepath.Join(s.BaseDir, "snapshots")
}

// GetOutputDir returns the output directory path
func (s *StatePatch) GetOutputDir() string {
	return filepath.Join(s.BaseDir, "output")
}
