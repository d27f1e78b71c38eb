package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/app"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/commands"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
	"github.com/doeshing/promptkeep/internal/infrastructure/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Options holds CLI-level configuration.
type Options struct {
	Verbose  bool
	JSONLogs bool
}

// NewRootCmd wires the cobra root command. The container is built lazily by
// the first subcommand that needs it.
func NewRootCmd(opts Options) *cobra.Command {
	session := helpers.NewSession(app.Options{Verbose: opts.Verbose, JSONLogs: opts.JSONLogs})

	root := &cobra.Command{
		Use:     "promptkeep",
		Short:   "Versioned prompt store",
		Long:    "promptkeep stores prompt templates with numbered version history, renders them, and resolves per-model parameters.",
		Version: Version,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return session.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&session.Options.Root, "root", "", "Project directory (default: nearest parent with .promptkeep)")
	flags.StringVar(&session.Options.ConfigPath, "config", "", "Config file (default .promptkeep/config.yaml or $"+config.ConfigEnvVar+")")
	flags.BoolVarP(&session.AssumeYes, "yes", "y", false, "Answer yes to confirmation prompts")
	flags.BoolVarP(&session.Options.Verbose, "verbose", "v", opts.Verbose, "Enable debug logging")
	flags.BoolVar(&session.Options.JSONLogs, "log-json", opts.JSONLogs, "Emit logs as JSON")

	root.AddCommand(
		commands.NewInitCommand(session),
		commands.NewPromptCommand(session),
		commands.NewVersionCommand(session),
		commands.NewOptimizeCommand(session),
		commands.NewModelsCommand(session),
		commands.NewIndexCommand(session),
		commands.NewConfigCommand(session),
		commands.NewDoctorCommand(session),
	)
	return root
}
