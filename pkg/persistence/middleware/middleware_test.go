package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleState(id string) *domain.FlowState {
	state := domain.NewFlowState(id, 3)
	state.Answers["mood"] = domain.MoodAnswer(domain.Mood{ID: "sad"})
	state.Answers["notes"] = domain.TextAnswer("I had a rough night")
	state.Answers["intensity"] = domain.NumberAnswer(6)
	return state
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore())
	ports.RunStateStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "flow", sampleState("flow")))

	stored, err := underlying.Load(ctx, "flow")
	require.NoError(t, err)
	assert.NotContains(t, stored.Answers, "notes", "answers must be hidden")
	assert.Contains(t, stored.Answers, middleware.EnvelopeKey)
	assert.Equal(t, 3, stored.StepIndex, "cursor stays readable")

	loaded, err := secure.Load(ctx, "flow")
	require.NoError(t, err)
	assert.Equal(t, "I had a rough night", loaded.Answers["notes"].Text)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Save(ctx, "flow", sampleState("flow")))

	newStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := newStore.Load(ctx, "flow")
	require.NoError(t, err, "fallback key should decrypt")

	loaded.Answers["notes"] = domain.TextAnswer("better today")
	require.NoError(t, newStore.Save(ctx, "flow", loaded))

	_, err = oldStore.Load(ctx, "flow")
	assert.Error(t, err, "old key alone cannot read new-key data")
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), "plain", sampleState("plain")))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(context.Background(), "plain")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestRedactMiddleware(t *testing.T) {
	ctx := context.Background()

	t.Run("Masks Matching Text", func(t *testing.T) {
		underlying := memory.NewStore()
		store := middleware.NewRedactMiddleware([]string{"^notes$", "thoughts"})(underlying)

		state := sampleState("flow")
		state.Answers["thoughts"] = domain.TextAnswer("private")
		state.Answers["medication"] = domain.TextAnswer("sertraline")
		draft := domain.TextAnswer("half typed")
		state.Staged = &draft

		require.NoError(t, store.Save(ctx, "flow", state))
		assert.Equal(t, "I had a rough night", state.Answers["notes"].Text, "in-memory state must not change")

		stored, err := underlying.Load(ctx, "flow")
		require.NoError(t, err)
		assert.Equal(t, middleware.Mask, stored.Answers["notes"].Text)
		assert.Equal(t, middleware.Mask, stored.Answers["thoughts"].Text)
		assert.Equal(t, "sertraline", stored.Answers["medication"].Text)
		assert.Equal(t, "sad", stored.Answers["mood"].Mood.ID)
		require.NotNil(t, stored.Staged)
		assert.Equal(t, middleware.Mask, stored.Staged.Text)
	})

	t.Run("No Patterns Masks All Text", func(t *testing.T) {
		underlying := memory.NewStore()
		store := middleware.NewRedactMiddleware(nil)(underlying)

		state := sampleState("flow")
		state.Answers["medication"] = domain.TextAnswer("sertraline")
		require.NoError(t, store.Save(ctx, "flow", state))

		stored, err := underlying.Load(ctx, "flow")
		require.NoError(t, err)
		assert.Equal(t, middleware.Mask, stored.Answers["medication"].Text)
		v, ok := stored.Answers["intensity"].Float()
		require.True(t, ok)
		assert.Equal(t, 6.0, v)
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	store := middleware.Chain(underlying,
		middleware.NewRedactMiddleware([]string{"notes"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	require.NoError(t, store.Save(ctx, "flow", sampleState("flow")))

	loaded, err := store.Load(ctx, "flow")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Answers["notes"].Text, "redaction runs before encryption")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"flow"}, ids)
}
