package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/domain"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	t.Setenv(ConfigEnvVar, "")
	root := t.TempDir()
	loader := NewFileLoader(root, "")

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Preferences.DefaultModel)
	assert.True(t, cfg.IsAutoVersionEnabled())
	assert.Equal(t, 3, cfg.GetVersionWidth())

	_, err = os.Stat(filepath.Join(root, ".promptkeep", "config.yaml"))
	assert.NoError(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(ConfigEnvVar, "")
	loader := NewFileLoader(t.TempDir(), "")
	ctx := context.Background()

	cfg, err := loader.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, cfg.AddModel(domain.ModelDefinition{Name: "opus", Provider: "anthropic", Model: "claude-3-opus", Temperature: 0.3}))
	require.NoError(t, cfg.SetDefaultModel("opus"))
	require.NoError(t, loader.Save(ctx, cfg))

	reloaded, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opus", reloaded.Preferences.DefaultModel)
	model, ok := reloaded.FindModelByName("opus")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultMaxTokens, model.MaxTokens, "missing max_tokens is hydrated")
}

func TestSaveRejectsInconsistentConfig(t *testing.T) {
	loader := NewFileLoader(t.TempDir(), "")
	err := loader.Save(context.Background(), domain.Config{Preferences: domain.Preferences{DefaultModel: "ghost"}})
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [oops"), 0o644))

	_, err := NewFileLoader(t.TempDir(), path).Load(context.Background())
	assert.Error(t, err)
}

func TestOverridePaths(t *testing.T) {
	t.Setenv(GlobalOverridesEnvVar, "/opt/pk/global.yaml")
	root := t.TempDir()
	loader := NewFileLoader(root, "")

	global, user, project := loader.OverridePaths(domain.Config{})
	assert.Equal(t, "/opt/pk/global.yaml", global)
	assert.Equal(t, filepath.Join(".promptkeep", "overrides.yaml"), filepath.Join(filepath.Base(filepath.Dir(user)), filepath.Base(user)))
	assert.Equal(t, filepath.Join(root, ".promptkeep", "overrides.yaml"), project)

	_, _, project = loader.OverridePaths(domain.Config{Overrides: domain.OverrideSettings{Project: "conf/models.toml"}})
	assert.Equal(t, filepath.Join(root, "conf", "models.toml"), project)
}
