// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and its
// adapters. The record and version stores are expressed as interfaces so the
// filesystem backend can be replaced (for example by an embedded key-value
// engine) without changing the call contracts the CLI and optimizer rely on.
package ports

import (
	"context"

	"github.com/doeshing/promptkeep/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from <project>/.promptkeep/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ConfigSaver persists configuration changes (model registry edits).
type ConfigSaver interface {
	Save(context.Context, domain.Config) error
}

// IDAllocator issues unique, monotonic prompt ids. An id is durable before it is returned.
type IDAllocator interface {
	NextID(context.Context) (int, error)
}

// Mutation edits a loaded record in place. Returning an error aborts the update.
type Mutation func(*domain.PromptRecord) error

// RecordStore holds the current state of each prompt.
//
// Update is not internally serialized per entity; callers hold the entity lock.
type RecordStore interface {
	Create(ctx context.Context, rec domain.PromptRecord) (domain.PromptRecord, error)
	Get(ctx context.Context, id int) (domain.PromptRecord, error)
	Update(ctx context.Context, id int, mutate Mutation) (domain.PromptRecord, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, opts domain.ListOptions) ([]domain.PromptRecord, error)
}

// VersionStore is the append-only snapshot history of each prompt.
type VersionStore interface {
	Snapshot(ctx context.Context, rec domain.PromptRecord, opts domain.SnapshotOptions) (domain.VersionSnapshot, error)
	History(ctx context.Context, id int) ([]domain.VersionSnapshot, error)
	Get(ctx context.Context, id, version int) (domain.VersionSnapshot, error)
	Latest(ctx context.Context, id int) (domain.VersionSnapshot, bool, error)
	DeleteHistory(ctx context.Context, id int) error
	Entities(ctx context.Context) ([]int, error)
}

// VersionIndex is an advisory, rebuildable lookup over snapshots. It is never
// the source of truth for history.
type VersionIndex interface {
	Record(ctx context.Context, snap domain.VersionSnapshot) error
	Forget(ctx context.Context, id int) error
	Search(ctx context.Context, text string, limit int) ([]domain.VersionSnapshot, error)
	Rebuild(ctx context.Context, versions VersionStore) (int, error)
	Close() error
}

// LayerSource supplies override layers for a model, lowest precedence first.
// Layers that fail to load are reported as *domain.ConfigError warnings.
type LayerSource interface {
	Layers(ctx context.Context, modelID string) ([]domain.OverrideLayer, []error)
}

// OptimizeInput is what a strategy receives.
type OptimizeInput struct {
	Record      domain.PromptRecord
	Model       domain.ModelDefinition
	DatasetPath string
}

// OptimizeResult is the new template text plus strategy metrics.
type OptimizeResult struct {
	Template string
	Metrics  map[string]float64
}

// Optimizer produces improved template text. It runs without any entity lock held.
type Optimizer interface {
	Strategies() []string
	Optimize(ctx context.Context, strategy string, in OptimizeInput) (OptimizeResult, error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}

// ParamResolver merges base model params with the override layers for a model.
type ParamResolver interface {
	Resolve(ctx context.Context, modelID string, base map[string]interface{}) domain.Resolution
}

// TemplateRenderer substitutes variables into template text.
type TemplateRenderer interface {
	Placeholders(tmpl string) []string
	Render(tmpl string, vars map[string]interface{}) (string, error)
}
