package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestHandle_OpensOnce(t *testing.T) {
	env := newTestEnv(t)
	opens := 0
	h := NewHandle(func(ctx context.Context) (*KnowledgeBase, error) {
		opens++
		return Open(ctx, env.deps(t))
	})
	assert.False(t, h.Opened())

	first, err := h.Get(context.Background())
	require.NoError(t, err)
	second, err := h.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, opens)
	assert.True(t, h.Opened())
	require.NoError(t, h.Close())
	assert.Equal(t, domain.StateClosed, first.State())
}

func TestHandle_RetriesFailedOpen(t *testing.T) {
	env := newTestEnv(t)
	attempts := 0
	h := NewHandle(func(ctx context.Context) (*KnowledgeBase, error) {
		attempts++
		if attempts == 1 {
			return nil, domain.ErrEmbeddingUnavailable
		}
		return Open(ctx, env.deps(t))
	})
	defer h.Close()

	_, err := h.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	kb, err := h.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, kb)
}

func TestHandle_GetAfterClose(t *testing.T) {
	h := NewHandle(func(context.Context) (*KnowledgeBase, error) {
		t.Fatal("must not open after close")
		return nil, nil
	})

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err := h.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrClosed)
}
