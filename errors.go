package lic

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for invalid inputs: non-positive step
	// size or step count, too few vector components, a missing field.
	ErrConfiguration = errors.New("lic: invalid configuration")

	// ErrCapability is returned when the adapter cannot run the engine.
	ErrCapability = errors.New("lic: device does not support LIC")

	// ErrResource is returned when a device buffer cannot be allocated.
	ErrResource = errors.New("lic: resource allocation failed")

	// ErrBuild is matched by every *BuildError.
	ErrBuild = errors.New("lic: program build failed")

	// ErrNoResult is returned by ReadResult before a successful Execute.
	ErrNoResult = errors.New("lic: no result available")
)

// BuildStage identifies where a program build failed.
type BuildStage uint8

const (
	// StageCompile is shader source compilation.
	StageCompile BuildStage = iota + 1

	// StageLink is module, layout and pipeline creation on the device.
	StageLink
)

// String returns the stage name.
func (s BuildStage) String() string {
	switch s {
	case StageCompile:
		return "compile"
	case StageLink:
		return "link"
	default:
		return "unknown"
	}
}

// BuildError reports a failed program build.
type BuildError struct {
	Program string
	Stage   BuildStage
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("lic: %s program: %s failed: %v", e.Program, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }

// Is reports whether target is ErrBuild.
func (e *BuildError) Is(target error) bool { return target == ErrBuild }

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}
