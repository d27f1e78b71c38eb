// Package prompts orchestrates prompt mutations across the record and version stores.
//
// Every mutation writes the current record first and then appends a snapshot
// of the result. Mutations on one prompt are serialized by a per-id lock; the
// optimizer runs outside it and only the write-back is locked.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/ports"
)

// Service is the entry point the CLI uses for every prompt operation.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Records        ports.RecordStore
	Versions       ports.VersionStore
	Renderer       ports.TemplateRenderer
	Resolver       ports.ParamResolver
	Optimizer      ports.Optimizer
	Logger         ports.Logger

	locks entityLocks
}

// Result is a mutated record and the version recorded for it, if any.
type Result struct {
	Record  domain.PromptRecord
	Version *domain.VersionSnapshot
}

// DeleteOptions gate the destructive delete path.
type DeleteOptions struct {
	Confirmed    bool
	PurgeHistory bool
}

// HistoryReport lists an entity's versions plus consistency warnings.
type HistoryReport struct {
	Versions []domain.VersionSnapshot
	Warnings []error
}

// OptimizeRequest selects the strategy and dataset for Optimize.
type OptimizeRequest struct {
	Strategy    string
	DatasetPath string
}

// ModelRequest picks the model for ResolveModelParams. Model wins over PromptID.
type ModelRequest struct {
	PromptID int
	Model    string
}

func (s *Service) validate() error {
	if s.ConfigProvider == nil || s.Records == nil || s.Versions == nil {
		return errors.New("prompts.Service dependencies not satisfied")
	}
	return nil
}

func (s *Service) config(ctx context.Context) (domain.Config, error) {
	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		return domain.Config{}, errors.Wrap(err, "load config")
	}
	return cfg, nil
}

// Create stores a new prompt and records version 1 when auto-versioning is on.
func (s *Service) Create(ctx context.Context, draft domain.PromptDraft, message string) (Result, error) {
	if err := s.validate(); err != nil {
		return Result{}, err
	}
	rec := draft.ToRecord()
	if rec.Name == "" {
		return Result{}, domain.InvalidInputf("prompt name is required")
	}
	cfg, err := s.config(ctx)
	if err != nil {
		return Result{}, err
	}

	stored, err := s.Records.Create(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	s.debug("prompt created", stored.ID, nil)

	if !cfg.IsAutoVersionEnabled() {
		return Result{Record: stored}, nil
	}
	if message == "" {
		message = "Initial version"
	}
	return s.snapshot(ctx, stored, domain.SnapshotOptions{Message: message})
}

// Update applies mutate under the entity lock and records a new version when
// auto-versioning is on.
func (s *Service) Update(ctx context.Context, id int, mutate ports.Mutation, message string) (Result, error) {
	if err := s.validate(); err != nil {
		return Result{}, err
	}
	if mutate == nil {
		return Result{}, domain.InvalidInputf("no changes given for prompt %d", id)
	}
	cfg, err := s.config(ctx)
	if err != nil {
		return Result{}, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	updated, err := s.Records.Update(ctx, id, func(rec *domain.PromptRecord) error {
		if err := mutate(rec); err != nil {
			return err
		}
		if strings.TrimSpace(rec.Name) == "" {
			return domain.InvalidInputf("prompt name is required")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.debug("prompt updated", id, nil)

	if !cfg.IsAutoVersionEnabled() {
		return Result{Record: updated}, nil
	}
	return s.snapshot(ctx, updated, domain.SnapshotOptions{Message: message})
}

// Restore makes version n the current state and records it as a new version.
// Version n itself is never rewritten or reused.
func (s *Service) Restore(ctx context.Context, id, n int) (Result, error) {
	if err := s.validate(); err != nil {
		return Result{}, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	target, err := s.Versions.Get(ctx, id, n)
	if err != nil {
		return Result{}, err
	}
	content := target.Snapshot.Clone()

	restored, err := s.Records.Update(ctx, id, func(rec *domain.PromptRecord) error {
		rec.Name = content.Name
		rec.Description = content.Description
		rec.Template = content.Template
		rec.Tags = content.Tags
		rec.PreferredModel = content.PreferredModel
		rec.Metadata = content.Metadata
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.debug("prompt restored", id, map[string]interface{}{"from_version": n})

	return s.snapshot(ctx, restored, domain.SnapshotOptions{
		Message: domain.RestoreMessage(n),
		Metrics: map[string]float64{"restored_from": float64(n)},
	})
}

// Delete removes the current record. History is kept unless PurgeHistory is set.
func (s *Service) Delete(ctx context.Context, id int, opts DeleteOptions) error {
	if err := s.validate(); err != nil {
		return err
	}
	if !opts.Confirmed {
		return errors.WithHint(
			errors.Wrapf(domain.ErrNotConfirmed, "delete prompt %d", id),
			"re-run with --yes to confirm")
	}

	unlock := s.locks.lock(id)
	defer unlock()

	recErr := s.Records.Delete(ctx, id)
	if recErr != nil && !errors.Is(recErr, domain.ErrNotFound) {
		return recErr
	}
	if !opts.PurgeHistory {
		return recErr
	}

	histErr := s.Versions.DeleteHistory(ctx, id)
	switch {
	case histErr == nil:
		s.debug("prompt history purged", id, nil)
		return nil
	case errors.Is(histErr, domain.ErrNotFound) && recErr == nil:
		return nil
	case errors.Is(histErr, domain.ErrNotFound):
		return recErr
	default:
		return histErr
	}
}

// Get returns the current record.
func (s *Service) Get(ctx context.Context, id int) (domain.PromptRecord, error) {
	return s.Records.Get(ctx, id)
}

// List returns current records.
func (s *Service) List(ctx context.Context, opts domain.ListOptions) ([]domain.PromptRecord, error) {
	return s.Records.List(ctx, opts)
}

// Version returns one snapshot.
func (s *Service) Version(ctx context.Context, id, n int) (domain.VersionSnapshot, error) {
	return s.Versions.Get(ctx, id, n)
}

// History lists every version of id. A current record whose content does not
// match the latest snapshot is reported as a *domain.HistoryGapWarning.
func (s *Service) History(ctx context.Context, id int) (HistoryReport, error) {
	if err := s.validate(); err != nil {
		return HistoryReport{}, err
	}
	versions, err := s.Versions.History(ctx, id)
	if err != nil {
		return HistoryReport{}, err
	}

	current, err := s.Records.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if len(versions) == 0 {
			return HistoryReport{}, domain.NotFoundf("prompt %d", id)
		}
		// deleted prompt; history is all that remains
		return HistoryReport{Versions: versions}, nil
	case err != nil:
		return HistoryReport{}, err
	}

	report := HistoryReport{Versions: versions}
	if gap, err := s.gapWarning(ctx, current); err != nil {
		return HistoryReport{}, err
	} else if gap != nil {
		report.Warnings = append(report.Warnings, gap)
	}
	return report, nil
}

// Inspect returns the current record plus a history gap warning when its
// latest snapshot no longer matches it.
func (s *Service) Inspect(ctx context.Context, id int) (domain.PromptRecord, []error, error) {
	if err := s.validate(); err != nil {
		return domain.PromptRecord{}, nil, err
	}
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		return domain.PromptRecord{}, nil, err
	}
	gap, err := s.gapWarning(ctx, rec)
	if err != nil {
		return domain.PromptRecord{}, nil, err
	}
	if gap == nil {
		return rec, nil, nil
	}
	return rec, []error{gap}, nil
}

// gapWarning compares current with the latest snapshot of its history.
func (s *Service) gapWarning(ctx context.Context, current domain.PromptRecord) (*domain.HistoryGapWarning, error) {
	latest, ok, err := s.Versions.Latest(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if ok && latest.Snapshot.SameContent(current) {
		return nil, nil
	}
	n := 0
	if ok {
		n = latest.Version
	}
	s.warn("history gap", current.ID, map[string]interface{}{"latest_version": n})
	return &domain.HistoryGapWarning{EntityID: current.ID, LatestVersion: n}, nil
}

// Render substitutes vars into the prompt's current template.
func (s *Service) Render(ctx context.Context, id int, vars map[string]interface{}) (string, error) {
	if s.Renderer == nil {
		return "", errors.New("prompts.Service renderer not configured")
	}
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := s.Renderer.Render(rec.Template, vars)
	if err != nil {
		return "", errors.Wrapf(err, "render prompt %d", id)
	}
	return out, nil
}

// Variables lists the placeholders of the prompt's current template.
func (s *Service) Variables(ctx context.Context, id int) ([]string, error) {
	if s.Renderer == nil {
		return nil, errors.New("prompts.Service renderer not configured")
	}
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Renderer.Placeholders(rec.Template), nil
}

// Optimize runs a strategy over the prompt and records the result as a new
// version tagged with the strategy and its metrics. The optimizer runs without
// the entity lock; if the record changed meanwhile the write-back fails with
// domain.ErrConflict and nothing is written.
func (s *Service) Optimize(ctx context.Context, id int, req OptimizeRequest) (Result, error) {
	if err := s.validate(); err != nil {
		return Result{}, err
	}
	if s.Optimizer == nil {
		return Result{}, errors.New("prompts.Service optimizer not configured")
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.DefaultStrategy
	}

	cfg, err := s.config(ctx)
	if err != nil {
		return Result{}, err
	}
	base, err := s.Records.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	model, err := cfg.ModelFor(base)
	if err != nil {
		return Result{}, errors.WithHint(err, "add models with 'promptkeep model add'")
	}

	s.debug("optimizing prompt", id, map[string]interface{}{"strategy": strategy, "model": model.Name})
	out, err := s.Optimizer.Optimize(ctx, strategy, ports.OptimizeInput{
		Record:      base.Clone(),
		Model:       model,
		DatasetPath: req.DatasetPath,
	})
	if err != nil {
		return Result{}, errors.Wrapf(err, "optimize prompt %d", id)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	updated, err := s.Records.Update(ctx, id, func(rec *domain.PromptRecord) error {
		if !rec.UpdatedAt.Equal(base.UpdatedAt) {
			return errors.WithHint(
				errors.Wrapf(domain.ErrConflict, "prompt %d", id),
				"re-run optimize against the latest version")
		}
		rec.Template = out.Template
		if rec.Metadata == nil {
			rec.Metadata = map[string]interface{}{}
		}
		rec.Metadata["optimization_strategy"] = strategy
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return s.snapshot(ctx, updated, domain.SnapshotOptions{
		Message:  "Optimized with " + strategy,
		Strategy: strategy,
		Metrics:  out.Metrics,
	})
}

// ResolveModelParams returns the effective formatting params for a model.
func (s *Service) ResolveModelParams(ctx context.Context, req ModelRequest) (domain.ModelDefinition, domain.Resolution, error) {
	if err := s.validate(); err != nil {
		return domain.ModelDefinition{}, domain.Resolution{}, err
	}
	if s.Resolver == nil {
		return domain.ModelDefinition{}, domain.Resolution{}, errors.New("prompts.Service resolver not configured")
	}
	cfg, err := s.config(ctx)
	if err != nil {
		return domain.ModelDefinition{}, domain.Resolution{}, err
	}

	var model domain.ModelDefinition
	switch {
	case req.Model != "":
		var ok bool
		if model, ok = cfg.FindModelByName(req.Model); !ok {
			return domain.ModelDefinition{}, domain.Resolution{}, domain.NotFoundf("model %s", req.Model)
		}
	case req.PromptID > 0:
		rec, err := s.Records.Get(ctx, req.PromptID)
		if err != nil {
			return domain.ModelDefinition{}, domain.Resolution{}, err
		}
		if model, err = cfg.ModelFor(rec); err != nil {
			return domain.ModelDefinition{}, domain.Resolution{}, err
		}
	default:
		if model, err = cfg.GetDefaultModel(); err != nil {
			return domain.ModelDefinition{}, domain.Resolution{}, err
		}
	}

	res := s.Resolver.Resolve(ctx, model.ModelID(), model.BaseParams())
	return model, res, nil
}

// UnifiedDiff renders the template change between two versions as a unified
// diff. Identical templates give an empty string.
func (s *Service) UnifiedDiff(ctx context.Context, id, from, to int) (string, error) {
	a, err := s.Versions.Get(ctx, id, from)
	if err != nil {
		return "", err
	}
	b, err := s.Versions.Get(ctx, id, to)
	if err != nil {
		return "", err
	}
	return UnifiedDiff(a.Snapshot.Template, b.Snapshot.Template,
		fmt.Sprintf("version %d", from), fmt.Sprintf("version %d", to))
}

func (s *Service) snapshot(ctx context.Context, rec domain.PromptRecord, opts domain.SnapshotOptions) (Result, error) {
	snap, err := s.Versions.Snapshot(ctx, rec, opts)
	if err != nil {
		// The record write already landed; History reports the gap until the next mutation.
		return Result{Record: rec}, errors.Wrapf(err, "record version for prompt %d", rec.ID)
	}
	s.debug("version recorded", rec.ID, map[string]interface{}{"version": snap.Version})
	return Result{Record: rec, Version: &snap}, nil
}

func (s *Service) debug(msg string, id int, fields map[string]interface{}) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug(msg, withID(id, fields))
}

func (s *Service) warn(msg string, id int, fields map[string]interface{}) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, withID(id, fields))
}

func withID(id int, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["prompt_id"] = id
	return out
}
