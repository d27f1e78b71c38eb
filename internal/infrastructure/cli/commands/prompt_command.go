package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/cli/helpers"
)

// NewPromptCommand creates the prompt command with all subcommands
func NewPromptCommand(session *helpers.Session) *cobra.Command {
	promptCmd := &cobra.Command{
		Use:     "prompt",
		Aliases: []string{"p"},
		Short:   "Create, inspect and render prompts",
	}

	promptCmd.AddCommand(
		newPromptCreateCommand(session),
		newPromptListCommand(session),
		newPromptShowCommand(session),
		newPromptUpdateCommand(session),
		newPromptDeleteCommand(session),
		newPromptRenderCommand(session),
		newPromptFindCommand(session),
	)

	return promptCmd
}

// promptFields holds the editable prompt flags shared by create and update
type promptFields struct {
	name         string
	description  string
	template     string
	templateFile string
	tags         []string
	model        string
	meta         []string
	message      string
}

func (f *promptFields) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Prompt name")
	cmd.Flags().StringVar(&f.description, "description", "", "Short description")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "Template text with {placeholders}")
	cmd.Flags().StringVarP(&f.templateFile, "template-file", "f", "", "Read the template from a file ('-' for stdin)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&f.model, "model", "", "Preferred model name from the registry")
	cmd.Flags().StringArrayVar(&f.meta, "meta", nil, "Metadata key=value (value parsed as YAML, repeatable)")
	cmd.Flags().StringVarP(&f.message, "message", "m", "", "Version message")
}

// newPromptCreateCommand creates the 'prompt create' subcommand
func newPromptCreateCommand(session *helpers.Session) *cobra.Command {
	var fields promptFields

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a prompt and record version 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			return createPrompt(cmd, session, fields)
		},
	}
	fields.bind(cmd)
	return cmd
}

// newPromptListCommand creates the 'prompt list' subcommand
func newPromptListCommand(session *helpers.Session) *cobra.Command {
	var tag, sortBy string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPrompts(cmd.Context(), cmd.OutOrStdout(), session, tag, sortBy)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Only prompts with this tag")
	cmd.Flags().StringVar(&sortBy, "sort", DefaultListSort, "Sort by id|name|updated|created")
	return cmd
}

// newPromptShowCommand creates the 'prompt show' subcommand
func newPromptShowCommand(session *helpers.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return showPrompt(cmd.Context(), cmd.OutOrStdout(), session, id)
		},
	}
}

// newPromptUpdateCommand creates the 'prompt update' subcommand
func newPromptUpdateCommand(session *helpers.Session) *cobra.Command {
	var fields promptFields

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a prompt and record a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return updatePrompt(cmd, session, id, fields)
		},
	}
	fields.bind(cmd)
	return cmd
}

// newPromptDeleteCommand creates the 'prompt delete' subcommand
func newPromptDeleteCommand(session *helpers.Session) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a prompt (history is kept unless --purge-history)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return deletePrompt(cmd, session, id, purge)
		},
	}

	cmd.Flags().BoolVar(&purge, "purge-history", false, "Also delete every recorded version")
	return cmd
}

// newPromptRenderCommand creates the 'prompt render' subcommand
func newPromptRenderCommand(session *helpers.Session) *cobra.Command {
	var (
		vars     []string
		varsFile string
		copyOut  bool
	)

	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Render a prompt with variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return renderPrompt(cmd, session, id, vars, varsFile, copyOut)
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable name=value (repeatable)")
	cmd.Flags().StringVar(&varsFile, "vars-file", "", "JSON object of variables; --var wins on conflict")
	cmd.Flags().BoolVarP(&copyOut, "copy", "c", false, "Copy the rendered text to the clipboard")
	return cmd
}

// newPromptFindCommand creates the 'prompt find' subcommand
func newPromptFindCommand(session *helpers.Session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy-find prompts by name, description and template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return findPrompts(cmd.Context(), cmd.OutOrStdout(), session, strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultFindLimit, "Number of matches to show")
	return cmd
}

// createPrompt creates a new prompt from flags
func createPrompt(cmd *cobra.Command, session *helpers.Session, fields promptFields) error {
	if strings.TrimSpace(fields.name) == "" {
		return domain.InvalidInputf(ErrNameRequired)
	}
	tmpl, ok, err := readTemplate(fields.template, fields.templateFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if !ok {
		return domain.InvalidInputf(ErrTemplateRequired)
	}
	meta, err := helpers.ParseMetadata(fields.meta)
	if err != nil {
		return err
	}

	container, err := session.Container(cmd.Context())
	if err != nil {
		return err
	}
	if fields.model != "" && !container.Config.HasModel(fields.model) {
		return domain.NotFoundf("model %s", fields.model)
	}

	res, err := container.Prompts.Create(cmd.Context(), domain.PromptDraft{
		Name:           fields.name,
		Description:    fields.description,
		Template:       tmpl,
		Tags:           fields.tags,
		PreferredModel: fields.model,
		Metadata:       meta,
	}, fields.message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	helpers.Success(out, "Created prompt %d (%s)", res.Record.ID, res.Record.Name)
	printRecordedVersion(out, res)
	return nil
}

// listPrompts lists prompts
func listPrompts(ctx context.Context, out io.Writer, session *helpers.Session, tag, sortBy string) error {
	key := domain.SortKey(sortBy)
	switch key {
	case domain.SortByID, domain.SortByName, domain.SortUpdated, domain.SortCreated:
	default:
		return domain.InvalidInputf("unknown sort key %q", sortBy)
	}

	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	records, err := container.Prompts.List(ctx, domain.ListOptions{Tag: tag, SortBy: key})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoPrompts)
		return nil
	}
	helpers.PrintRecordTable(out, records)
	return nil
}

// showPrompt shows one prompt and its placeholders
func showPrompt(ctx context.Context, out io.Writer, session *helpers.Session, id int) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	rec, warnings, err := container.Prompts.Inspect(ctx, id)
	if err != nil {
		return err
	}
	helpers.PrintRecord(out, rec)
	defer helpers.PrintWarnings(out, warnings)

	vars, err := container.Prompts.Variables(ctx, id)
	if err != nil {
		return err
	}
	if len(vars) > 0 {
		fmt.Fprintf(out, "Variables: %s\n", strings.Join(vars, ", "))
	}
	return nil
}

// updatePrompt applies the flags that were set
func updatePrompt(cmd *cobra.Command, session *helpers.Session, id int, fields promptFields) error {
	flags := cmd.Flags()
	tmpl, tmplSet, err := readTemplate(fields.template, fields.templateFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	tmplSet = tmplSet || flags.Changed("template")
	meta, err := helpers.ParseMetadata(fields.meta)
	if err != nil {
		return err
	}

	changed := tmplSet || len(meta) > 0
	for _, name := range []string{"name", "description", "tag", "model"} {
		changed = changed || flags.Changed(name)
	}
	if !changed {
		return domain.InvalidInputf("nothing to update; pass at least one field flag")
	}

	container, err := session.Container(cmd.Context())
	if err != nil {
		return err
	}
	if flags.Changed("model") && fields.model != "" && !container.Config.HasModel(fields.model) {
		return domain.NotFoundf("model %s", fields.model)
	}

	res, err := container.Prompts.Update(cmd.Context(), id, func(rec *domain.PromptRecord) error {
		if flags.Changed("name") {
			rec.Name = fields.name
		}
		if flags.Changed("description") {
			rec.Description = fields.description
		}
		if tmplSet {
			rec.Template = tmpl
		}
		if flags.Changed("tag") {
			rec.Tags = fields.tags
		}
		if flags.Changed("model") {
			rec.PreferredModel = fields.model
		}
		if len(meta) > 0 && rec.Metadata == nil {
			rec.Metadata = make(map[string]interface{}, len(meta))
		}
		for k, v := range meta {
			rec.Metadata[k] = v
		}
		return nil
	}, fields.message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	helpers.Success(out, "Updated prompt %d", id)
	printRecordedVersion(out, res)
	return nil
}

// deletePrompt removes a prompt after confirmation
func deletePrompt(cmd *cobra.Command, session *helpers.Session, id int, purge bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}

	question := fmt.Sprintf("Delete prompt %d?", id)
	if purge {
		question = fmt.Sprintf("Delete prompt %d and its entire version history?", id)
	}
	if !session.Confirm(cmd, question) {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	if err := container.Prompts.Delete(ctx, id, prompts.DeleteOptions{Confirmed: true, PurgeHistory: purge}); err != nil {
		return err
	}
	if purge {
		helpers.Success(out, "Deleted prompt %d and its history", id)
	} else {
		helpers.Success(out, "Deleted prompt %d (history kept)", id)
	}
	return nil
}

// renderPrompt renders a prompt and optionally copies it
func renderPrompt(cmd *cobra.Command, session *helpers.Session, id int, pairs []string, varsFile string, copyOut bool) error {
	vars, err := helpers.ParseVars(pairs)
	if err != nil {
		return err
	}
	if vars, err = readVarsFile(varsFile, vars); err != nil {
		return err
	}
	container, err := session.Container(cmd.Context())
	if err != nil {
		return err
	}
	text, err := container.Prompts.Render(cmd.Context(), id, vars)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)

	if copyOut {
		clip := helpers.NewClipboard()
		if err := clip.Copy(text); err != nil {
			helpers.Warning(cmd.ErrOrStderr(), "clipboard copy failed: %v", err)
		}
	}
	return nil
}

// findPrompts prints the best match, or a ranked table when none is clear
func findPrompts(ctx context.Context, out io.Writer, session *helpers.Session, query string, limit int) error {
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	matches, err := container.Prompts.Find(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, MsgNoPrompts)
		return nil
	}
	if best := matches[0]; best.Score >= prompts.ConfidentMatch {
		helpers.Success(out, "Best match: prompt %d - %s (score: %.0f%%)", best.Record.ID, best.Record.Name, best.Score*100)
		return nil
	}
	helpers.PrintMatchTable(out, matches)
	return nil
}

func printRecordedVersion(out io.Writer, res prompts.Result) {
	if res.Version == nil {
		helpers.Hint(out, "auto_version is off; no version recorded")
		return
	}
	helpers.Hint(out, "recorded version %d", res.Version.Version)
}
