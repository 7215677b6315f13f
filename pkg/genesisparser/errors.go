package genesisparser

import (
	"errors"
	"fmt"
)

// Rewrite errors
var (
	// ErrMissingPath indicates the input or destination path was empty
	ErrMissingPath = errors.New("input and destination paths are required")

	// ErrSamePath indicates the destination would overwrite the input
	ErrSamePath = errors.New("destination must differ from input")

	// ErrInvalidValue indicates a record did not have the expected encoding
	ErrInvalidValue = errors.New("invalid storage value")
)

func wrapManipulatorErr(m Manipulator, err error) error {
	return fmt.Errorf("%s: %w", manipulatorName(m), err)
}
