package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewOptimizeCommand creates the optimize command
func NewOptimizeCommand(session *helpers.Session) *cobra.Command {
	var req prompts.OptimizeRequest

	cmd := &cobra.Command{
		Use:   "optimize <id>",
		Short: "Rewrite a prompt from a dataset and record it as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runOptimize(cmd, session, id, req)
		},
	}

	cmd.Flags().StringVar(&req.Strategy, "strategy", domain.DefaultStrategy, "Optimization strategy")
	cmd.Flags().StringVar(&req.DatasetPath, "dataset", "", "JSONL dataset (default .promptkeep/dataset.jsonl)")
	return cmd
}

// runOptimize runs the optimizer with a spinner on stderr
func runOptimize(cmd *cobra.Command, session *helpers.Session, id int, req prompts.OptimizeRequest) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	if req.DatasetPath == "" {
		req.DatasetPath = container.DatasetPath()
	}

	stop := helpers.StartSpinner(cmd.ErrOrStderr())
	res, err := container.Prompts.Optimize(ctx, id, req)
	stop()
	if err != nil {
		return err
	}

	helpers.Success(out, "Optimized prompt %d with %s", id, req.Strategy)
	if res.Version != nil && len(res.Version.Metrics) > 0 {
		keys := make([]string, 0, len(res.Version.Metrics))
		for k := range res.Version.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %g\n", k, res.Version.Metrics[k])
		}
	}
	printRecordedVersion(out, res)
	return nil
}
