package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/domain"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "1.json")

	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteFileAtomicCrashBeforeRenameKeepsOldContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.json")
	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte("committed"), 0o644))

	renameFile = func(string, string) error { return errors.New("power loss") }
	t.Cleanup(func() { renameFile = os.Rename })

	err := WriteFileAtomic(context.Background(), path, []byte("half-written"), 0o644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "committed", string(data))
	assertNoTempFiles(t, dir)
}

func TestWriteFileAtomicCancelledLeavesNoTrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteFileAtomic(ctx, path, []byte("never"), 0o644)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assertNoTempFiles(t, dir)
}

func TestCreateFileExclusiveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "001.json")

	require.NoError(t, CreateFileExclusive(context.Background(), path, []byte("v1"), 0o644))
	err := CreateFileExclusive(context.Background(), path, []byte("other"), 0o644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "leftover temp file %s", e.Name())
	}
}
