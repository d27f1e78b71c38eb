package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/promptkeep/internal/infrastructure/config"
)

const (
	envKeyEditor  = "EDITOR"
	defaultEditor = "vi"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(session *helpers.Session) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect project configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), session)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(session),
		newConfigGetCommand(session),
		newConfigSetCommand(session),
		newConfigPathCommand(session),
		newConfigEditCommand(session),
		newConfigValidateCommand(session),
		newConfigResetCommand(session),
		newConfigDiffCommand(session),
	)

	return configCmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show full configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), session)
		},
	}
}

// newConfigGetCommand creates the 'config get' subcommand
func newConfigGetCommand(session *helpers.Session) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific configuration value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return domain.InvalidInputf(ErrKeyRequired)
			}
			return getConfigurationValue(cmd.Context(), cmd.OutOrStdout(), session, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key path (e.g., preferences.default_model)")
	return cmd
}

// newConfigSetCommand creates the 'config set' subcommand
func newConfigSetCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value (value accepts YAML syntax)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.Join(args[1:], " ")
			return setConfigurationValue(cmd.Context(), cmd.OutOrStdout(), session, args[0], value)
		},
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config and override layer paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigurationPaths(cmd.Context(), cmd.OutOrStdout(), session)
		},
	}
}

// newConfigEditCommand creates the 'config edit' subcommand
func newConfigEditCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigurationInEditor(cmd.Context(), session)
		},
	}
}

// newConfigValidateCommand creates the 'config validate' subcommand
func newConfigValidateCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := container.ConfigProvider.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := cfg.ValidateConsistency(); err != nil {
				return domain.InvalidInputf("config %s: %v", container.ConfigLoader.Path(), err)
			}
			helpers.Success(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

// newConfigResetCommand creates the 'config reset' subcommand
func newConfigResetCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetConfigurationToDefaults(cmd, session)
		},
	}
}

// newConfigDiffCommand creates the 'config diff' subcommand
func newConfigDiffCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show diff versus default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigurationDiff(cmd.Context(), cmd.OutOrStdout(), session)
		},
	}
}

// showConfiguration displays the full configuration in YAML format
func showConfiguration(ctx context.Context, out io.Writer, session *helpers.Session) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal configuration")
	}

	fmt.Fprint(out, string(data))
	return nil
}

// getConfigurationValue retrieves a specific configuration value by key path
func getConfigurationValue(ctx context.Context, out io.Writer, session *helpers.Session, keyPath string) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}

	cfgMap, err := helpers.ConfigToMap(cfg)
	if err != nil {
		return err
	}

	value, found := helpers.TraverseNestedMap(cfgMap, strings.Split(keyPath, "."))
	if !found {
		return domain.NotFoundf("key %s not found in configuration", keyPath)
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "marshal value")
	}

	fmt.Fprint(out, string(data))
	return nil
}

// setConfigurationValue updates a configuration value by key path
func setConfigurationValue(ctx context.Context, out io.Writer, session *helpers.Session, keyPath, value string) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}

	cfgMap, err := helpers.ConfigToMap(cfg)
	if err != nil {
		return err
	}

	if !helpers.SetNestedMapValue(cfgMap, strings.Split(keyPath, "."), helpers.ParseYAMLValue(value)) {
		return domain.InvalidInputf("unable to set key %s", keyPath)
	}

	updated, err := helpers.MapToConfig(cfgMap)
	if err != nil {
		return err
	}

	if err := helpers.SaveConfigWithValidation(ctx, container, updated); err != nil {
		return err
	}
	helpers.Success(out, "Set %s", keyPath)
	return nil
}

// showConfigurationPaths lists where configuration and override layers live
func showConfigurationPaths(ctx context.Context, out io.Writer, session *helpers.Session) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	global, user, project := container.ConfigLoader.OverridePaths(container.Config)

	fmt.Fprintf(out, "config:   %s\n", container.ConfigLoader.Path())
	fmt.Fprintf(out, "global:   %s\n", global)
	fmt.Fprintf(out, "user:     %s\n", user)
	fmt.Fprintf(out, "project:  %s\n", project)
	if container.Index != nil {
		fmt.Fprintf(out, "index:    %s\n", container.ConfigLoader.IndexPath(container.Config))
	}
	fmt.Fprintf(out, "dataset:  %s\n", container.DatasetPath())
	return nil
}

// editConfigurationInEditor opens the configuration file in the user's editor
func editConfigurationInEditor(ctx context.Context, session *helpers.Session) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}

	editorCommand := getEditorCommand()
	cmd := exec.CommandContext(ctx, editorCommand, loader.Path())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "run editor %s", editorCommand)
	}

	return nil
}

// resetConfigurationToDefaults rewrites the configuration with default values
func resetConfigurationToDefaults(cmd *cobra.Command, session *helpers.Session) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}

	if !session.Confirm(cmd, fmt.Sprintf("Reset %s to defaults?", loader.Path())) {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	defaults, err := configinfra.DefaultConfig()
	if err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(ctx, container, defaults); err != nil {
		return err
	}
	helpers.Success(out, "Configuration reset at %s", loader.Path())
	return nil
}

// showConfigurationDiff shows the difference between current and default configuration
func showConfigurationDiff(ctx context.Context, out io.Writer, session *helpers.Session) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	currentConfig, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}

	defaults, err := configinfra.DefaultConfig()
	if err != nil {
		return err
	}

	diff := cmp.Diff(defaults, currentConfig)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}

	fmt.Fprintln(out, diff)
	return nil
}

// getEditorCommand retrieves the editor command from environment or returns default
func getEditorCommand() string {
	if editor := os.Getenv(envKeyEditor); editor != "" {
		return editor
	}
	return defaultEditor
}
