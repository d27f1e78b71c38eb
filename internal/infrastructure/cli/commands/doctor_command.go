package commands

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check store consistency and environment setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorDiagnostics(cmd, cmd.OutOrStdout(), session)
		},
	}
}

// runDoctorDiagnostics runs store and environment diagnostics
func runDoctorDiagnostics(cmd *cobra.Command, out io.Writer, session *helpers.Session) error {
	ctx := cmd.Context()
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	if container.DoctorService == nil {
		return errors.New(ErrDoctorServiceUnavailable)
	}

	report, err := container.DoctorService.Run(ctx)

	// Display report even if there were errors
	helpers.PrintHealthReport(out, report)

	if err != nil {
		return errors.Wrap(err, "diagnostics completed with errors")
	}
	if !report.Healthy() {
		return errors.New("one or more checks failed")
	}
	return nil
}
