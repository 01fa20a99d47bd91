package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/ratlab/pkg/adapters/file"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements TranscriptStore
var _ ports.TranscriptStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunTranscriptStoreContract(t, file.New(t.TempDir()))
	ports.RunSealedRecordContract(t, file.New(t.TempDir()))
}

func TestFileStore_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	record := domain.NewRecord("s1", "calc")
	record.Transcript = domain.Transcript{domain.Input("2 + 2"), domain.Output("4")}
	require.NoError(t, store.Save(ctx, "s1", record))

	data, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "input"`)
	assert.Contains(t, string(data), `"value": "2 + 2"`)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_IgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-s1-123.json"), []byte("{}"), 0o644))
	require.NoError(t, store.Save(context.Background(), "s1", domain.NewRecord("s1", "")))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", "..", "tmp-x"} {
		assert.Error(t, store.Save(ctx, id, domain.NewRecord(id, "")), id)
	}
	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, domain.ErrEmptySessionID)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
