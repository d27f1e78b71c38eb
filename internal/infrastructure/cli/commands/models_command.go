package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewModelsCommand creates the model command with all subcommands
func NewModelsCommand(session *helpers.Session) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:     "model",
		Aliases: []string{"models"},
		Short:   "Manage the model registry",
	}

	modelsCmd.AddCommand(
		newModelsListCommand(session),
		newModelsAddCommand(session),
		newModelsRemoveCommand(session),
		newModelsDefaultCommand(session),
		newModelsResolveCommand(session),
	)

	return modelsCmd
}

// newModelsListCommand creates the 'model list' subcommand
func newModelsListCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd.Context(), cmd.OutOrStdout(), session)
		},
	}
}

// newModelsAddCommand creates the 'model add' subcommand
func newModelsAddCommand(session *helpers.Session) *cobra.Command {
	var opts modelAddOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new model definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return addModel(cmd.Context(), cmd.OutOrStdout(), session, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Model name (identifier)")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "Provider (openai, anthropic, ...)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Model identifier at the provider (override layers are keyed by it)")
	cmd.Flags().StringVar(&opts.APIKeyEnv, "api-key-env", "", "Environment variable containing the API key")
	cmd.Flags().Float64Var(&opts.Temperature, "temperature", domain.DefaultTemperature, "Sampling temperature")
	cmd.Flags().IntVar(&opts.MaxTokens, "max-tokens", domain.DefaultMaxTokens, "Max tokens for responses")
	cmd.Flags().BoolVar(&opts.MakeDefault, "default", false, "Make this the default model")

	return cmd
}

// newModelsRemoveCommand creates the 'model remove' subcommand
func newModelsRemoveCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove model definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeModel(cmd.Context(), cmd.OutOrStdout(), session, args[0])
		},
	}
}

// newModelsDefaultCommand creates the 'model default' subcommand
func newModelsDefaultCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "default <name>",
		Short: "Set default model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDefaultModel(cmd.Context(), cmd.OutOrStdout(), session, args[0])
		},
	}
}

// newModelsResolveCommand creates the 'model resolve' subcommand
func newModelsResolveCommand(session *helpers.Session) *cobra.Command {
	var (
		name     string
		promptID int
	)

	cmd := &cobra.Command{
		Use:   "resolve [name]",
		Short: "Show effective params after applying override layers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				name = args[0]
			}
			return resolveModel(cmd.Context(), cmd.OutOrStdout(), session, prompts.ModelRequest{Model: name, PromptID: promptID})
		},
	}

	cmd.Flags().IntVar(&promptID, "prompt", 0, "Resolve the model a prompt would use")
	return cmd
}

// modelAddOptions holds options for adding a new model
type modelAddOptions struct {
	Name        string
	Provider    string
	Model       string
	APIKeyEnv   string
	Temperature float64
	MaxTokens   int
	MakeDefault bool
}

// listModels lists all configured models
func listModels(ctx context.Context, out io.Writer, session *helpers.Session) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "NAME\tPROVIDER\tMODEL\tDEFAULT\n")
	for _, model := range cfg.Models {
		defaultMarker := ""
		if cfg.Preferences.DefaultModel == model.Name {
			defaultMarker = "*"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", model.Name, model.Provider, model.ModelID(), defaultMarker)
	}
	return nil
}

// addModel adds a new model definition
func addModel(ctx context.Context, out io.Writer, session *helpers.Session, opts modelAddOptions) error {
	if opts.Name == "" {
		return domain.InvalidInputf(ErrNameRequired)
	}
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}

	model := domain.ModelDefinition{
		Name:        opts.Name,
		Provider:    opts.Provider,
		Model:       opts.Model,
		APIKeyEnv:   opts.APIKeyEnv,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if err := cfg.AddModel(model); err != nil {
		return domain.InvalidInputf("%v", err)
	}
	if opts.MakeDefault {
		if err := cfg.SetDefaultModel(model.Name); err != nil {
			return err
		}
	}
	if err := helpers.SaveConfigWithValidation(ctx, container, cfg); err != nil {
		return err
	}
	helpers.Success(out, "Added model %s", model.Name)
	return nil
}

// removeModel removes a model definition
func removeModel(ctx context.Context, out io.Writer, session *helpers.Session, name string) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}
	if err := cfg.RemoveModel(name); err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(ctx, container, cfg); err != nil {
		return err
	}
	helpers.Success(out, "Removed model %s", name)
	return nil
}

// setDefaultModel sets the default model
func setDefaultModel(ctx context.Context, out io.Writer, session *helpers.Session, name string) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}
	if err := cfg.SetDefaultModel(name); err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(ctx, container, cfg); err != nil {
		return err
	}
	helpers.Success(out, "Default model is now %s", name)
	return nil
}

// resolveModel prints the merged params for a model
func resolveModel(ctx context.Context, out io.Writer, session *helpers.Session, req prompts.ModelRequest) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	model, res, err := container.Prompts.ResolveModelParams(ctx, req)
	if err != nil {
		return err
	}
	helpers.PrintResolution(out, model, res)
	return nil
}
