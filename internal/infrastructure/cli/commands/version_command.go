package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewVersionCommand creates the version command with all subcommands
func NewVersionCommand(session *helpers.Session) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Inspect and restore prompt versions",
	}

	versionCmd.AddCommand(
		newVersionHistoryCommand(session),
		newVersionShowCommand(session),
		newVersionRestoreCommand(session),
		newVersionDiffCommand(session),
	)

	return versionCmd
}

// newVersionHistoryCommand creates the 'version history' subcommand
func newVersionHistoryCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "List the versions of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return showHistory(cmd.Context(), cmd.OutOrStdout(), session, id)
		},
	}
}

// newVersionShowCommand creates the 'version show' subcommand
func newVersionShowCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id> <version>",
		Short: "Show one recorded version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := container.Prompts.Version(cmd.Context(), id, n)
			if err != nil {
				return err
			}
			helpers.PrintVersion(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

// newVersionRestoreCommand creates the 'version restore' subcommand
func newVersionRestoreCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id> <version>",
		Short: "Make a past version current (recorded as a new version)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			return restoreVersion(cmd, session, id, n)
		},
	}
}

// newVersionDiffCommand creates the 'version diff' subcommand
func newVersionDiffCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> <from> <to>",
		Short: "Line diff of two versions' templates",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			from, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			to, err := parseVersion(args[2])
			if err != nil {
				return err
			}
			return diffVersions(cmd.Context(), cmd.OutOrStdout(), session, id, from, to)
		},
	}
}

// showHistory lists versions and any history warnings
func showHistory(ctx context.Context, out io.Writer, session *helpers.Session, id int) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	report, err := container.Prompts.History(ctx, id)
	if err != nil {
		return err
	}
	if len(report.Versions) == 0 {
		fmt.Fprintln(out, MsgNoVersions)
	} else {
		helpers.PrintVersionTable(out, report.Versions)
	}
	helpers.PrintWarnings(out, report.Warnings)
	return nil
}

// restoreVersion confirms and restores
func restoreVersion(cmd *cobra.Command, session *helpers.Session, id, n int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}

	snap, err := container.Prompts.Version(ctx, id, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Prompt: %d\nVersion: %d\n", id, n)
	if snap.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", snap.Message)
	}
	if !session.Confirm(cmd, "Restore to this version? This will replace the current prompt.") {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	res, err := container.Prompts.Restore(ctx, id, n)
	if err != nil {
		return err
	}
	helpers.Success(out, "Restored prompt %d to version %d", id, n)
	printRecordedVersion(out, res)
	return nil
}

// diffVersions prints a unified diff between two versions
func diffVersions(ctx context.Context, out io.Writer, session *helpers.Session, id, from, to int) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	text, err := container.Prompts.UnifiedDiff(ctx, id, from, to)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintln(out, MsgNoChanges)
		return nil
	}
	helpers.PrintUnifiedDiff(out, text)
	return nil
}
