package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error taxonomy. Callers test with errors.Is against these sentinels.
var (
	ErrNotFound        = errors.New("not found")
	ErrCorruptState    = errors.New("corrupt state")
	ErrMissingVariable = errors.New("missing variable")
	ErrConfig          = errors.New("invalid override layer")
	ErrIOFailure       = errors.New("io failure")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotConfirmed = errors.New("operation not confirmed")
	ErrConflict     = errors.New("record changed concurrently")
	ErrHistoryGap   = errors.New("version history is behind current record")
	ErrNoProject    = errors.New("no .promptkeep directory found")
)

// NotFoundf wraps ErrNotFound with a formatted subject.
func NotFoundf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// InvalidInputf wraps ErrInvalidInput with a formatted reason.
func InvalidInputf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// CorruptStateError reports a persisted file that cannot be read back.
// It is never repaired automatically.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state in %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

func (e *CorruptStateError) Is(target error) bool { return target == ErrCorruptState }

// NewCorruptState builds a CorruptStateError with a stack attached.
func NewCorruptState(path string, err error) error {
	return errors.WithStack(&CorruptStateError{Path: path, Err: err})
}

// IOError reports a failed filesystem write, rename or removal.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIOFailure }

// NewIOFailure builds an IOError with a stack attached.
func NewIOFailure(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// MissingVariableError is returned when a template placeholder has no binding.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing variable %q", e.Name)
}

func (e *MissingVariableError) Is(target error) bool { return target == ErrMissingVariable }

// ConfigError reports an override layer that failed to load. Resolution keeps
// going without the layer and surfaces this value as a warning.
type ConfigError struct {
	Scope Scope
	Path  string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s override layer %s: %v", e.Scope, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// HistoryGapWarning marks an entity whose latest mutation has no matching snapshot,
// typically because the process stopped between the record write and the snapshot.
type HistoryGapWarning struct {
	EntityID      int
	LatestVersion int
}

func (w *HistoryGapWarning) Error() string {
	if w.LatestVersion == 0 {
		return fmt.Sprintf("prompt %d has no recorded versions", w.EntityID)
	}
	return fmt.Sprintf("prompt %d changed after version %d without a snapshot", w.EntityID, w.LatestVersion)
}

func (w *HistoryGapWarning) Is(target error) bool { return target == ErrHistoryGap }
