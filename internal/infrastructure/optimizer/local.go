package optimizer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/template"
	"github.com/doeshing/promptkeep/internal/ports"
)

// CompletionField is the dataset key holding the expected output.
const CompletionField = "completion"

// Strategy derives new template text from a record and a dataset.
type Strategy func(rec domain.PromptRecord, dataset []Example) (string, map[string]float64)

// Example is one decoded dataset line.
type Example map[string]interface{}

// Local runs strategies in-process. No network calls are made.
type Local struct {
	strategies  map[string]Strategy
	maxExamples int
}

// NewLocal returns an optimizer with the built-in strategies registered.
func NewLocal() *Local {
	l := &Local{strategies: map[string]Strategy{}, maxExamples: domain.DefaultFewShotExamples}
	l.Register(domain.DefaultStrategy, l.fewShot)
	return l
}

// Register adds or replaces a strategy.
func (l *Local) Register(name string, fn Strategy) {
	l.strategies[name] = fn
}

// Strategies lists registered strategy names, sorted.
func (l *Local) Strategies() []string {
	names := make([]string, 0, len(l.strategies))
	for name := range l.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Optimize implements ports.Optimizer.
func (l *Local) Optimize(ctx context.Context, strategy string, in ports.OptimizeInput) (ports.OptimizeResult, error) {
	if strategy == "" {
		strategy = domain.DefaultStrategy
	}
	fn, ok := l.strategies[strategy]
	if !ok {
		return ports.OptimizeResult{}, domain.InvalidInputf("unknown strategy %q (available: %s)", strategy, strings.Join(l.Strategies(), ", "))
	}

	dataset, err := LoadDataset(in.DatasetPath)
	if err != nil {
		return ports.OptimizeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ports.OptimizeResult{}, err
	}

	text, metrics := fn(in.Record, dataset)
	return ports.OptimizeResult{Template: text, Metrics: metrics}, nil
}

// LoadDataset reads a JSONL file. Blank and undecodable lines are skipped;
// a file with no usable lines is an error.
func LoadDataset(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(
				domain.NotFoundf("dataset %s", path),
				"pass --dataset or create .promptkeep/dataset.jsonl")
		}
		return nil, domain.NewIOFailure("open", path, err)
	}
	defer f.Close()

	var out []Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			continue
		}
		out = append(out, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewIOFailure("read", path, err)
	}
	if len(out) == 0 {
		return nil, domain.InvalidInputf("dataset %s is empty or invalid", path)
	}
	return out, nil
}

// fewShot appends labelled examples to the template. Only examples carrying a
// completion are used; inputs are limited to the template's placeholders.
func (l *Local) fewShot(rec domain.PromptRecord, dataset []Example) (string, map[string]float64) {
	var inputs []string
	for _, name := range template.Placeholders(rec.Template) {
		if name != CompletionField {
			inputs = append(inputs, name)
		}
	}

	var b strings.Builder
	used := 0
	for _, ex := range dataset {
		if used >= l.maxExamples {
			break
		}
		completion, ok := ex[CompletionField]
		if !ok {
			continue
		}
		b.WriteString("\n")
		for _, field := range inputs {
			if v, ok := ex[field]; ok {
				fmt.Fprintf(&b, "%s: %v\n", field, v)
			}
		}
		fmt.Fprintf(&b, "%s: %v\n", CompletionField, completion)
		used++
	}

	metrics := map[string]float64{
		"examples":     float64(used),
		"dataset_size": float64(len(dataset)),
	}
	if used == 0 {
		return rec.Template, metrics
	}
	return rec.Template + "\n\nExamples:\n" + b.String(), metrics
}

var _ ports.Optimizer = (*Local)(nil)
