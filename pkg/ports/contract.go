package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTranscriptStoreContract runs a suite of tests to verify that a TranscriptStore
// implementation adheres to the defined interface contract.
func RunTranscriptStoreContract(t *testing.T, store TranscriptStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		record := domain.NewRecord(sessionID, "calc")
		record.Transcript = domain.Transcript{
			domain.Input("x = 5"), domain.Output("5"),
			domain.Input("y"), domain.Failure(domain.NewEvaluationError("NameError", "y is not defined")),
		}

		err := store.Save(ctx, sessionID, record)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, "calc", loaded.Engine)
		assert.Equal(t, record.Transcript, loaded.Transcript, "order and kinds must survive persistence")
		assert.WithinDuration(t, record.CreatedAt, loaded.CreatedAt, time.Second)
	})

	t.Run("Overwrite", func(t *testing.T) {
		record := domain.NewRecord(sessionID, "calc")
		record.Transcript = domain.Transcript{domain.Input("1 + 1"), domain.Output("2")}
		require.NoError(t, store.Save(ctx, sessionID, record))

		record.Transcript = append(record.Transcript, domain.Input("2 + 2"), domain.Output("4"))
		require.NoError(t, store.Save(ctx, sessionID, record))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, loaded.Transcript, 4)
		assert.Equal(t, "4", loaded.Transcript[3].Value)
	})

	t.Run("Isolation", func(t *testing.T) {
		record := domain.NewRecord(sessionID, "calc")
		record.Transcript = domain.Transcript{domain.Input("a"), domain.Output("b")}
		require.NoError(t, store.Save(ctx, sessionID, record))

		// Mutating the caller's copy after Save must not leak into the store.
		record.Transcript[1] = domain.Output("mutated")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "b", loaded.Transcript[1].Value)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewRecord(sessionID, "calc"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		// Deleting twice is not an error.
		assert.NoError(t, store.Delete(ctx, sessionID))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewRecord(id1, "calc"))
		_ = store.Save(ctx, id2, domain.NewRecord(id2, "js"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunSealedRecordContract verifies that a backend persists the encrypted
// envelope written by the encryption middleware. Run it against raw stores,
// not against the middleware itself.
func RunSealedRecordContract(t *testing.T, store TranscriptStore) {
	ctx := context.Background()
	id := "contract-sealed-" + time.Now().Format("20060102150405")

	record := domain.NewRecord(id, "calc")
	record.Sealed = "bm9uY2UtYW5kLWNpcGhlcnRleHQ="
	require.NoError(t, store.Save(ctx, id, record))
	defer func() { _ = store.Delete(ctx, id) }()

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, record.Sealed, loaded.Sealed, "sealed payload must survive persistence")
	assert.Empty(t, loaded.Transcript)
	assert.Equal(t, "calc", loaded.Engine)
}
