package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/ratlab/pkg/adapters/memory"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactionMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	mw, err := middleware.NewRedactionMiddleware([]string{`\d{3}-\d{2}-\d{4}`, `sk_[A-Za-z0-9]+`})
	require.NoError(t, err)
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	record := domain.NewRecord("pii-session", "js")
	record.Transcript = domain.Transcript{
		domain.Input(`ssn = "999-99-9999"`), domain.Output(`"999-99-9999"`),
		domain.Input(`key = "sk_live123"; 1 + 1`), domain.Output("2"),
	}

	require.NoError(t, secureStore.Save(ctx, "pii-session", record))

	// The caller's record is not modified.
	assert.Equal(t, `ssn = "999-99-9999"`, record.Transcript[0].Value)

	stored, err := underlyingStore.Load(ctx, "pii-session")
	require.NoError(t, err)
	assert.Equal(t, `ssn = "***"`, stored.Transcript[0].Value)
	assert.Equal(t, `"***"`, stored.Transcript[1].Value)
	assert.Equal(t, `key = "***"; 1 + 1`, stored.Transcript[2].Value)
	assert.Equal(t, "2", stored.Transcript[3].Value)
}

func TestRedactionMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactionMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	redact, err := middleware.NewRedactionMiddleware([]string{"secret"})
	require.NoError(t, err)
	encrypt := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	// Redact first, then encrypt what remains.
	inner := memory.NewStore()
	store := middleware.Chain(inner, redact, encrypt)
	ctx := context.Background()

	record := domain.NewRecord("s", "")
	record.Transcript = domain.Transcript{domain.Input("secret"), domain.Output("ok")}
	require.NoError(t, store.Save(ctx, "s", record))

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Transcript[0].Value)

	raw, err := inner.Load(ctx, "s")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)
}
