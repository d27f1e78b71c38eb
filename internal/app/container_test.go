package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/pkg/logger"
)

func TestInitAndBuildContainer(t *testing.T) {
	t.Setenv("PROMPTKEEP_CONFIG", "")
	t.Setenv("PROMPTKEEP_GLOBAL_OVERRIDES", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	ctx := context.Background()

	state, err := InitProject(ctx, root)
	require.NoError(t, err)
	for _, name := range []string{"prompts", "versions", "config.yaml"} {
		_, err := os.Stat(filepath.Join(state, name))
		assert.NoError(t, err, name)
	}

	c, err := BuildContainer(ctx, Options{Root: root, Logger: logger.NewNop()})
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.Index, "index is enabled by default")

	res, err := c.Prompts.Create(ctx, domain.PromptDraft{Name: "greeting", Template: "Hello {name}!"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version.Version)

	hits, err := c.Index.Search(ctx, "Hello", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, res.Record.ID, hits[0].EntityID)

	_, params, err := c.Prompts.ResolveModelParams(ctx, prompts.ModelRequest{PromptID: res.Record.ID})
	require.NoError(t, err)
	assert.Equal(t, 1024, params.Params["max_tokens"])
	assert.Equal(t, domain.ScopeDefault, params.Sources["max_tokens"], "embedded default layer applies")

	assert.Equal(t, filepath.Join(state, "dataset.jsonl"), c.DatasetPath())
}

func TestBuildContainerWithoutProject(t *testing.T) {
	t.Setenv("PROMPTKEEP_ROOT", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = BuildContainer(context.Background(), Options{Logger: logger.NewNop()})
	assert.ErrorIs(t, err, domain.ErrNoProject)
}
