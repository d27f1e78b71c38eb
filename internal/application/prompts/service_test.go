package prompts

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/history"
	"github.com/doeshing/promptkeep/internal/infrastructure/optimizer"
	"github.com/doeshing/promptkeep/internal/infrastructure/overrides"
	"github.com/doeshing/promptkeep/internal/infrastructure/records"
	"github.com/doeshing/promptkeep/internal/infrastructure/template"
	"github.com/doeshing/promptkeep/internal/ports"
)

type staticConfig struct {
	cfg domain.Config
}

func (s staticConfig) Load(context.Context) (domain.Config, error) { return s.cfg, nil }

func testConfig() domain.Config {
	return domain.Config{
		Preferences: domain.Preferences{DefaultModel: "mini"},
		Models: []domain.ModelDefinition{
			{Name: "mini", Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 1024},
			{Name: "opus", Provider: "anthropic", Model: "claude-3-opus", Temperature: 0.2, MaxTokens: 4096},
		},
	}
}

type harness struct {
	svc      *Service
	root     string
	versions *history.FileStore
}

func newHarness(t *testing.T, cfg domain.Config, layers ...domain.OverrideLayer) harness {
	t.Helper()
	root := t.TempDir()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	versions := history.NewFileStore(filepath.Join(root, "versions"), cfg.GetVersionWidth()).WithClock(clock)
	svc := &Service{
		ConfigProvider: staticConfig{cfg: cfg},
		Records:        records.NewFileStore(filepath.Join(root, "prompts"), records.NewCounter(filepath.Join(root, "counter"))).WithClock(clock),
		Versions:       versions,
		Renderer:       template.Renderer{},
		Resolver:       overrides.NewResolver(overrides.StaticSource(layers), nil),
		Optimizer:      optimizer.NewLocal(),
	}
	return harness{svc: svc, root: root, versions: versions}
}

func setTemplate(tmpl string) ports.Mutation {
	return func(rec *domain.PromptRecord) error {
		rec.Template = tmpl
		return nil
	}
}

func TestGreetingLifecycle(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "greeting", Template: "Hello {name}!"}, "")
	require.NoError(t, err)
	require.NotNil(t, created.Version)
	assert.Equal(t, 1, created.Version.Version)
	id := created.Record.ID

	out, err := h.svc.Render(ctx, id, map[string]interface{}{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana!", out)

	_, err = h.svc.Render(ctx, id, map[string]interface{}{})
	var missing *domain.MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "name", missing.Name)
	assert.True(t, errors.Is(err, domain.ErrMissingVariable))

	updated, err := h.svc.Update(ctx, id, setTemplate("Hi {name}, welcome to {place}!"), "add place")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version.Version)

	v1, err := h.svc.Version(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello {name}!", v1.Snapshot.Template)

	restored, err := h.svc.Restore(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Version.Version)
	assert.Equal(t, "Restored from version 1", restored.Version.Message)
	assert.Equal(t, 1.0, restored.Version.Metrics["restored_from"])

	current, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello {name}!", current.Template)

	report, err := h.svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, report.Versions, 3)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, "Hello {name}!", report.Versions[0].Snapshot.Template, "version 1 is never rewritten")
	assert.Equal(t, "Hi {name}, welcome to {place}!", report.Versions[1].Snapshot.Template)
	assert.Equal(t, "Hello {name}!", report.Versions[2].Snapshot.Template)
}

func TestRestoreYieldsSnapshotContent(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	created, err := h.svc.Create(ctx, domain.PromptDraft{
		Name:     "summary",
		Template: "Summarize {text}",
		Tags:     []string{"b", "a"},
		Metadata: map[string]interface{}{"tone": "neutral"},
	}, "")
	require.NoError(t, err)
	id := created.Record.ID

	_, err = h.svc.Update(ctx, id, func(rec *domain.PromptRecord) error {
		rec.Name = "brief"
		rec.Template = "Condense {text} into {n} bullets"
		rec.Tags = []string{"c"}
		rec.PreferredModel = "opus"
		rec.Metadata = map[string]interface{}{"tone": "terse", "n": 3}
		return nil
	}, "")
	require.NoError(t, err)
	_, err = h.svc.Update(ctx, id, setTemplate("third"), "")
	require.NoError(t, err)

	report, err := h.svc.History(ctx, id)
	require.NoError(t, err)
	for _, v := range report.Versions {
		_, err := h.svc.Restore(ctx, id, v.Version)
		require.NoError(t, err)

		got, err := h.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Truef(t, got.SameContent(v.Snapshot), "restore to %d", v.Version)
	}

	final, err := h.svc.History(ctx, id)
	require.NoError(t, err)
	for i, v := range final.Versions {
		assert.Equal(t, i+1, v.Version)
	}
	assert.Len(t, final.Versions, 6)
}

func TestRestoreUnknownVersion(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)

	_, err = h.svc.Restore(ctx, created.Record.ID, 7)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = h.svc.Restore(ctx, 99, 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	report, err := h.svc.History(ctx, created.Record.ID)
	require.NoError(t, err)
	assert.Len(t, report.Versions, 1)
}

func TestCreateRequiresName(t *testing.T) {
	h := newHarness(t, testConfig())
	_, err := h.svc.Create(context.Background(), domain.PromptDraft{Name: "  ", Template: "x"}, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestUpdateRejectedMutationWritesNothing(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)

	_, err = h.svc.Update(ctx, created.Record.ID, func(rec *domain.PromptRecord) error {
		rec.Name = ""
		return nil
	}, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	report, err := h.svc.History(ctx, created.Record.ID)
	require.NoError(t, err)
	assert.Len(t, report.Versions, 1)
	assert.Empty(t, report.Warnings)
}

func TestAutoVersionDisabled(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Preferences.AutoVersion = &off
	h := newHarness(t, cfg)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)
	assert.Nil(t, created.Version)

	report, err := h.svc.History(ctx, created.Record.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Versions)
	require.Len(t, report.Warnings, 1)
	assert.True(t, errors.Is(report.Warnings[0], domain.ErrHistoryGap))
}

func TestHistoryReportsGapAfterInterruptedMutation(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)
	id := created.Record.ID

	// record write landed, snapshot never happened
	_, err = h.svc.Records.Update(ctx, id, setTemplate("y"))
	require.NoError(t, err)

	report, err := h.svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	var gap *domain.HistoryGapWarning
	require.True(t, errors.As(report.Warnings[0], &gap))
	assert.Equal(t, 1, gap.LatestVersion)

	rec, warnings, err := h.svc.Inspect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "y", rec.Template)
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], domain.ErrHistoryGap))

	next, err := h.svc.Update(ctx, id, setTemplate("z"), "")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version.Version)
}

func TestInspectWithoutGap(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)

	rec, warnings, err := h.svc.Inspect(ctx, created.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", rec.Template)
	assert.Empty(t, warnings)

	_, _, err = h.svc.Inspect(ctx, 404)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDelete(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)
	id := created.Record.ID

	err = h.svc.Delete(ctx, id, DeleteOptions{})
	assert.True(t, errors.Is(err, domain.ErrNotConfirmed))
	_, err = h.svc.Get(ctx, id)
	require.NoError(t, err, "unconfirmed delete leaves the record")

	require.NoError(t, h.svc.Delete(ctx, id, DeleteOptions{Confirmed: true}))
	_, err = h.svc.Get(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	report, err := h.svc.History(ctx, id)
	require.NoError(t, err, "history survives a plain delete")
	assert.Len(t, report.Versions, 1)

	require.NoError(t, h.svc.Delete(ctx, id, DeleteOptions{Confirmed: true, PurgeHistory: true}))
	_, err = h.svc.History(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = h.svc.Delete(ctx, id, DeleteOptions{Confirmed: true, PurgeHistory: true})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	next, err := h.svc.Create(ctx, domain.PromptDraft{Name: "q", Template: "x"}, "")
	require.NoError(t, err)
	assert.Equal(t, id+1, next.Record.ID, "ids are never reused")
}

func TestConcurrentUpdatesKeepVersionsGapFree(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "0"}, "")
	require.NoError(t, err)
	id := created.Record.ID

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Update(ctx, id, func(rec *domain.PromptRecord) error {
				rec.Template += "+"
				return nil
			}, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	current, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0++++++++", current.Template, "no update is lost")

	report, err := h.svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, report.Versions, 9)
	for i, v := range report.Versions {
		assert.Equal(t, i+1, v.Version)
	}
	assert.Empty(t, report.Warnings)
}

func TestOptimizeRecordsStrategyVersion(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "greeting", Template: "Hello {name}!"}, "")
	require.NoError(t, err)

	dataset := filepath.Join(h.root, "dataset.jsonl")
	require.NoError(t, os.WriteFile(dataset, []byte(`{"name":"Ana","completion":"Hello Ana!"}`+"\n"), 0o644))

	res, err := h.svc.Optimize(ctx, created.Record.ID, OptimizeRequest{DatasetPath: dataset})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version.Version)
	assert.Equal(t, "few_shot", res.Version.Strategy)
	assert.Equal(t, 1.0, res.Version.Metrics["examples"])
	assert.Contains(t, res.Record.Template, "completion: Hello Ana!")
	assert.Equal(t, "few_shot", res.Record.Metadata["optimization_strategy"])
}

type racingOptimizer struct {
	svc *Service
	id  int
}

func (r racingOptimizer) Strategies() []string { return []string{"race"} }

func (r racingOptimizer) Optimize(ctx context.Context, _ string, in ports.OptimizeInput) (ports.OptimizeResult, error) {
	if _, err := r.svc.Update(ctx, r.id, setTemplate("edited meanwhile"), ""); err != nil {
		return ports.OptimizeResult{}, err
	}
	return ports.OptimizeResult{Template: in.Record.Template + " (optimized)"}, nil
}

func TestOptimizeConflict(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)
	id := created.Record.ID
	h.svc.Optimizer = racingOptimizer{svc: h.svc, id: id}

	_, err = h.svc.Optimize(ctx, id, OptimizeRequest{Strategy: "race"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	current, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "edited meanwhile", current.Template)

	report, err := h.svc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, report.Versions, 2)
}

func TestResolveModelParams(t *testing.T) {
	h := newHarness(t, testConfig(),
		domain.OverrideLayer{Scope: domain.ScopeGlobal, ModelID: "gpt-4o-mini", Fields: map[string]interface{}{"stop": "END"}},
		domain.OverrideLayer{Scope: domain.ScopeProject, ModelID: "gpt-4o-mini", Fields: map[string]interface{}{"temperature": 0.1}},
	)
	ctx := context.Background()

	model, res, err := h.svc.ResolveModelParams(ctx, ModelRequest{})
	require.NoError(t, err)
	assert.Equal(t, "mini", model.Name)
	assert.Equal(t, 0.1, res.Params["temperature"])
	assert.Equal(t, "END", res.Params["stop"])
	assert.Equal(t, 1024, res.Params["max_tokens"])
	assert.Equal(t, domain.ScopeProject, res.Sources["temperature"])

	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "x", PreferredModel: "opus"}, "")
	require.NoError(t, err)
	model, res, err = h.svc.ResolveModelParams(ctx, ModelRequest{PromptID: created.Record.ID})
	require.NoError(t, err)
	assert.Equal(t, "opus", model.Name)
	assert.Equal(t, 0.2, res.Params["temperature"])

	_, _, err = h.svc.ResolveModelParams(ctx, ModelRequest{Model: "ghost"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDiffVersions(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	created, err := h.svc.Create(ctx, domain.PromptDraft{Name: "p", Template: "a\nb\nc"}, "")
	require.NoError(t, err)
	_, err = h.svc.Update(ctx, created.Record.ID, setTemplate("a\nc\nd"), "")
	require.NoError(t, err)

	text, err := h.svc.UnifiedDiff(ctx, created.Record.ID, 1, 2)
	require.NoError(t, err)
	assert.Contains(t, text, "--- version 1\n+++ version 2\n")
	assert.Contains(t, text, "\n-b\n")
	assert.Contains(t, text, "\n+d\n")

	same, err := h.svc.UnifiedDiff(ctx, created.Record.ID, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestFindRanksBySimilarity(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	for _, d := range []domain.PromptDraft{
		{Name: "summarize article", Description: "short summary", Template: "Summarize {text}"},
		{Name: "translate", Template: "Translate {text} to {lang}"},
		{Name: "greeting", Template: "Hello {name}"},
	} {
		_, err := h.svc.Create(ctx, d, "")
		require.NoError(t, err)
	}

	matches, err := h.svc.Find(ctx, "Translate", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "translate", matches[0].Record.Name)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	_, err = h.svc.Find(ctx, "  ", 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
