package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/app"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewIndexCommand creates the index command with all subcommands
func NewIndexCommand(session *helpers.Session) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Search or rebuild the version index",
	}

	indexCmd.AddCommand(
		newIndexRebuildCommand(session),
		newIndexSearchCommand(session),
	)

	return indexCmd
}

// newIndexRebuildCommand creates the 'index rebuild' subcommand
func newIndexRebuildCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from version files",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := indexedContainer(cmd.Context(), session)
			if err != nil {
				return err
			}
			count, err := container.Index.Rebuild(cmd.Context(), container.Versions)
			if err != nil {
				return err
			}
			helpers.Success(cmd.OutOrStdout(), "Indexed %d versions", count)
			return nil
		},
	}
}

// newIndexSearchCommand creates the 'index search' subcommand
func newIndexSearchCommand(session *helpers.Session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find versions whose template, name or message contains text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return searchIndex(cmd.Context(), cmd.OutOrStdout(), session, strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultSearchLimit, "Maximum results")
	return cmd
}

// searchIndex prints matching versions
func searchIndex(ctx context.Context, out io.Writer, session *helpers.Session, text string, limit int) error {
	container, err := indexedContainer(ctx, session)
	if err != nil {
		return err
	}
	hits, err := container.Index.Search(ctx, text, limit)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(out, MsgNoMatches)
		return nil
	}
	helpers.PrintVersionTable(out, hits)
	return nil
}

// indexedContainer returns the container, failing when the index is off
func indexedContainer(ctx context.Context, session *helpers.Session) (*app.Container, error) {
	container, err := session.Container(ctx)
	if err != nil {
		return nil, err
	}
	if container.Index == nil {
		return nil, errors.WithHint(errors.New(ErrIndexDisabled), "set index.enabled: true in config.yaml")
	}
	return container, nil
}
