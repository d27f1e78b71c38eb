package overrides

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/pkg/logger"
)

func writeLayer(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(
		LayerFile{Scope: domain.ScopeProject, Path: writeLayer(t, dir, "project.yaml", "gpt-4:\n  x: project\n")},
		LayerFile{Scope: domain.ScopeGlobal, Path: writeLayer(t, dir, "global.yaml", "gpt-4:\n  y: global\n")},
	)

	res := NewResolver(source, logger.NewNop()).Resolve(context.Background(), "gpt-4", nil)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "project", res.Params["x"])
	assert.Equal(t, "global", res.Params["y"])
	assert.Equal(t, domain.ScopeProject, res.Sources["x"])
	assert.Equal(t, domain.ScopeGlobal, res.Sources["y"])

	writeLayer(t, dir, "project.yaml", "gpt-4:\n  x: project\n  y: project\n")
	res = NewResolver(source, nil).Resolve(context.Background(), "gpt-4", nil)
	assert.Equal(t, "project", res.Params["y"], "project wins over global for the same field")
}

func TestResolveFullChain(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(
		LayerFile{Scope: domain.ScopeDefault, Data: []byte("m:\n  a: default\n  b: default\n  c: default\n  d: default\n")},
		LayerFile{Scope: domain.ScopeGlobal, Path: writeLayer(t, dir, "g.yaml", "m:\n  b: global\n  c: global\n  d: global\n")},
		LayerFile{Scope: domain.ScopeUser, Path: writeLayer(t, dir, "u.toml", "[m]\nc = \"user\"\nd = \"user\"\n")},
		LayerFile{Scope: domain.ScopeProject, Path: writeLayer(t, dir, "p.yaml", "m:\n  d: project\n")},
	)

	res := NewResolver(source, nil).Resolve(context.Background(), "m", map[string]interface{}{"base": 1, "a": "base"})
	assert.Empty(t, res.Warnings)
	assert.Equal(t, map[string]interface{}{
		"base": 1,
		"a":    "default",
		"b":    "global",
		"c":    "user",
		"d":    "project",
	}, res.Params)
	_, fromLayer := res.Sources["base"]
	assert.False(t, fromLayer)
}

func TestResolveReplacesNestedFieldsWhole(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(
		LayerFile{Scope: domain.ScopeGlobal, Path: writeLayer(t, dir, "g.yaml", "m:\n  format:\n    style: bullet\n    width: 80\n")},
		LayerFile{Scope: domain.ScopeProject, Path: writeLayer(t, dir, "p.yaml", "m:\n  format:\n    style: prose\n")},
	)

	res := NewResolver(source, nil).Resolve(context.Background(), "m", nil)
	assert.Equal(t, map[string]interface{}{"style": "prose"}, res.Params["format"], "nested mappings are replaced, not merged")
}

func TestResolveSkipsAbsentLayersAndOtherModels(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(
		LayerFile{Scope: domain.ScopeDefault, Data: []byte("m:\n  temperature: 0.5\n")},
		LayerFile{Scope: domain.ScopeUser, Path: filepath.Join(dir, "missing.yaml")},
		LayerFile{Scope: domain.ScopeProject, Path: writeLayer(t, dir, "p.yaml", "other:\n  temperature: 1.5\n")},
	)

	res := NewResolver(source, nil).Resolve(context.Background(), "m", nil)
	assert.Empty(t, res.Warnings, "missing files are absent layers, not errors")
	assert.Equal(t, map[string]interface{}{"temperature": 0.5}, res.Params, "default layer stands alone")
}

func TestResolveBrokenLayerIsWarning(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(
		LayerFile{Scope: domain.ScopeGlobal, Path: writeLayer(t, dir, "g.yaml", "m:\n  y: global\n")},
		LayerFile{Scope: domain.ScopeUser, Path: writeLayer(t, dir, "u.yaml", "m: [unclosed\n")},
		LayerFile{Scope: domain.ScopeProject, Path: writeLayer(t, dir, "p.toml", "[m\nbroken")},
	)

	res := NewResolver(source, logger.NewNop()).Resolve(context.Background(), "m", nil)
	require.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.True(t, errors.Is(w, domain.ErrConfig))
	}
	var cfgErr *domain.ConfigError
	require.True(t, errors.As(res.Warnings[0], &cfgErr))
	assert.Equal(t, domain.ScopeUser, cfgErr.Scope)
	assert.Equal(t, "global", res.Params["y"], "valid layers still apply")
}

func TestResolveRejectsNonMappingModelEntry(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(LayerFile{Scope: domain.ScopeProject, Path: writeLayer(t, dir, "p.yaml", "m: 3\n")})

	res := NewResolver(source, nil).Resolve(context.Background(), "m", map[string]interface{}{"temperature": 0.1})
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 0.1, res.Params["temperature"])
}

func TestStaticSource(t *testing.T) {
	source := StaticSource{
		{Scope: domain.ScopeProject, ModelID: "m", Fields: map[string]interface{}{"x": "p"}},
		{Scope: domain.ScopeDefault, ModelID: "m", Fields: map[string]interface{}{"x": "d", "y": "d"}},
		{Scope: domain.Scope("team"), ModelID: "m", Fields: map[string]interface{}{"x": "t"}},
		{Scope: domain.ScopeUser, ModelID: "n", Fields: map[string]interface{}{"x": "n"}},
	}

	res := NewResolver(source, nil).Resolve(context.Background(), "m", nil)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, map[string]interface{}{"x": "p", "y": "d"}, res.Params)
}
