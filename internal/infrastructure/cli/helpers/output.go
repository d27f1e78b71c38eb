package helpers

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
)

// Success prints a green confirmation line.
func Success(out io.Writer, format string, args ...interface{}) {
	green.Fprintf(out, "✓ "+format+"\n", args...)
}

// Warning prints a yellow warning line.
func Warning(out io.Writer, format string, args ...interface{}) {
	yellow.Fprintf(out, "Warning: "+format+"\n", args...)
}

// Failure prints a red error line.
func Failure(out io.Writer, format string, args ...interface{}) {
	red.Fprintf(out, "Error: "+format+"\n", args...)
}

// Hint prints a dimmed follow-up line.
func Hint(out io.Writer, format string, args ...interface{}) {
	gray.Fprintf(out, "  "+format+"\n", args...)
}

// PrintWarnings outputs a list of warnings to the writer
func PrintWarnings(out io.Writer, warnings []error) {
	for _, w := range warnings {
		if w == nil {
			continue
		}
		Warning(out, "%s", strings.TrimSpace(w.Error()))
	}
}

// PrintUnifiedDiff prints a unified diff, colouring added and removed lines.
func PrintUnifiedDiff(out io.Writer, text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			cyan.Fprint(out, line)
		case strings.HasPrefix(line, "+"):
			green.Fprint(out, line)
		case strings.HasPrefix(line, "-"):
			red.Fprint(out, line)
		default:
			fmt.Fprint(out, line)
		}
	}
}

// PrintRecordTable prints prompts one per line.
func PrintRecordTable(out io.Writer, records []domain.PromptRecord) {
	cyan.Fprintf(out, "%-5s %-24s %-20s %s\n", "ID", "NAME", "UPDATED", "TAGS")
	for _, r := range records {
		fmt.Fprintf(out, "%-5d %-24s %-20s %s\n",
			r.ID, r.Name, r.UpdatedAt.Local().Format(domain.DisplayTimeFormat), strings.Join(r.Tags, ","))
	}
}

// PrintMatchTable prints fuzzy-find results with their scores.
func PrintMatchTable(out io.Writer, matches []prompts.Match) {
	cyan.Fprintf(out, "%-5s %-24s %s\n", "ID", "NAME", "SCORE")
	for _, m := range matches {
		fmt.Fprintf(out, "%-5d %-24s %.0f%%\n", m.Record.ID, m.Record.Name, m.Score*100)
	}
}

// PrintRecord prints a prompt in full.
func PrintRecord(out io.Writer, r domain.PromptRecord) {
	cyan.Fprintf(out, "Prompt %d: %s\n", r.ID, r.Name)
	if r.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", r.Description)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	if r.PreferredModel != "" {
		fmt.Fprintf(out, "Model: %s\n", r.PreferredModel)
	}
	fmt.Fprintf(out, "Created: %s\n", r.CreatedAt.Local().Format(domain.DisplayTimeFormat))
	fmt.Fprintf(out, "Updated: %s\n", r.UpdatedAt.Local().Format(domain.DisplayTimeFormat))
	printMap(out, "Metadata", r.Metadata)
	fmt.Fprintln(out, "Template:")
	fmt.Fprintln(out, r.Template)
}

// PrintVersionTable prints history one version per line.
func PrintVersionTable(out io.Writer, versions []domain.VersionSnapshot) {
	cyan.Fprintf(out, "%-8s %-20s %-10s %s\n", "VERSION", "CREATED", "STRATEGY", "MESSAGE")
	for _, v := range versions {
		strategy := v.Strategy
		if strategy == "" {
			strategy = "-"
		}
		fmt.Fprintf(out, "%-8d %-20s %-10s %s\n",
			v.Version, v.CreatedAt.Local().Format(domain.DisplayTimeFormat), strategy, v.Message)
	}
}

// PrintVersion prints one snapshot with its annotations.
func PrintVersion(out io.Writer, v domain.VersionSnapshot) {
	cyan.Fprintf(out, "Prompt %d, version %d\n", v.EntityID, v.Version)
	fmt.Fprintf(out, "Created: %s\n", v.CreatedAt.Local().Format(domain.DisplayTimeFormat))
	if v.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", v.Message)
	}
	if v.Strategy != "" {
		fmt.Fprintf(out, "Strategy: %s\n", v.Strategy)
	}
	if len(v.Metrics) > 0 {
		keys := make([]string, 0, len(v.Metrics))
		for k := range v.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "Metrics:")
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %g\n", k, v.Metrics[k])
		}
	}
	fmt.Fprintf(out, "Name: %s\n", v.Snapshot.Name)
	fmt.Fprintln(out, "Template:")
	fmt.Fprintln(out, v.Snapshot.Template)
}

// PrintResolution prints effective params with the scope each came from.
func PrintResolution(out io.Writer, model domain.ModelDefinition, res domain.Resolution) {
	cyan.Fprintf(out, "Model %s (%s)\n", model.Name, res.ModelID)
	keys := make([]string, 0, len(res.Params))
	for k := range res.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		source := "base"
		if scope, ok := res.Sources[k]; ok {
			source = string(scope)
		}
		fmt.Fprintf(out, "  %-24s %-30s ", k, FormatParam(res.Params[k]))
		gray.Fprintf(out, "[%s]\n", source)
	}
	PrintWarnings(out, res.Warnings)
}

// PrintHealthReport prints doctor results.
func PrintHealthReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		label := strings.ToUpper(string(check.Status))
		switch check.Status {
		case domain.HealthOK:
			green.Fprintf(out, "[%s]", label)
		case domain.HealthWarn:
			yellow.Fprintf(out, "[%s]", label)
		default:
			red.Fprintf(out, "[%s]", label)
		}
		fmt.Fprintf(out, " %s - %s\n", check.Name, check.Details)
	}
	fmt.Fprintf(out, "\n%d ok, %d warnings, %d errors\n",
		report.Count(domain.HealthOK), report.Count(domain.HealthWarn), report.Count(domain.HealthError))
}

func printMap(out io.Writer, title string, m map[string]interface{}) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %s\n", k, FormatParam(m[k]))
	}
}
