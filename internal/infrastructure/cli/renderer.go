package cli

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/doeshing/promptkeep/internal/domain"
)

// Exit codes by error kind.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitNotFound     = 3
	ExitConflict     = 4
	ExitCorrupt      = 5
	ExitNotConfirmed = 6
)

var errorLabel = color.New(color.FgRed, color.Bold)

// RenderError prints err with a label for its kind plus any hints, and returns
// the process exit code.
func RenderError(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}

	label, code := classify(err)
	errorLabel.Fprintf(w, "%s: ", label)
	fmt.Fprintln(w, err.Error())

	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "hint: %s\n", hint)
	}
	var missing *domain.MissingVariableError
	if errors.As(err, &missing) {
		fmt.Fprintf(w, "hint: pass --var %s=<value>\n", missing.Name)
	}
	return code
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrNoProject):
		return "no project", ExitUsage
	case errors.Is(err, domain.ErrNotFound):
		return "not found", ExitNotFound
	case errors.Is(err, domain.ErrMissingVariable):
		return "missing variable", ExitUsage
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid input", ExitUsage
	case errors.Is(err, domain.ErrNotConfirmed):
		return "not confirmed", ExitNotConfirmed
	case errors.Is(err, domain.ErrConflict):
		return "conflict", ExitConflict
	case errors.Is(err, domain.ErrCorruptState):
		return "corrupt state", ExitCorrupt
	case errors.Is(err, domain.ErrConfig):
		return "config error", ExitFailure
	case errors.Is(err, domain.ErrIOFailure):
		return "io failure", ExitFailure
	default:
		return "error", ExitFailure
	}
}
