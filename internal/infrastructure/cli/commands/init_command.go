package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/app"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewInitCommand creates the init command that lays out a new store.
func NewInitCommand(session *helpers.Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a prompt store",
		Long: `Initialize a prompt store in the given directory (default: --root or the
current directory).

This creates .promptkeep/ with:
  config.yaml   model registry and preferences
  prompts/      one JSON file per prompt
  versions/     numbered snapshots per prompt

Existing files are left untouched, so running init twice is safe.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := session.Options.Root
			if len(args) == 1 {
				root = args[0]
			}
			if root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return domain.NewIOFailure("getwd", ".", err)
				}
				root = wd
			}
			return runInit(cmd, session, root)
		},
	}

	return cmd
}

// runInit creates the state directory and points the session at it
func runInit(cmd *cobra.Command, session *helpers.Session, root string) error {
	state, err := app.InitProject(cmd.Context(), root)
	if err != nil {
		return err
	}
	session.Options.Root = filepath.Dir(state)
	displayCompletionInstructions(cmd.OutOrStdout(), state)
	return nil
}

// displayCompletionInstructions displays instructions after successful initialization
func displayCompletionInstructions(out io.Writer, state string) {
	helpers.Success(out, "Initialized prompt store in %s", state)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Review the model registry:")
	fmt.Fprintf(out, "     %s\n\n", filepath.Join(state, domain.ConfigFileName))
	fmt.Fprintln(out, "  2. Create your first prompt:")
	fmt.Fprintln(out, "     promptkeep prompt create --name greeting -t \"Hello, {name}!\"")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "  3. Verify your setup:")
	fmt.Fprintln(out, "     promptkeep doctor")
}
