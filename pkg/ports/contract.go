package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		pending := "She go to school"
		session := domain.NewSession(sessionID)
		session.Transcript = session.Transcript.Append(
			domain.UserSaid(pending),
			domain.AssistantSaid("1. \"go\" → \"goes\" (third person singular)"),
		)
		session.Mode = domain.ModeAwaitingCorrectionAnswer
		session.PendingOriginalText = &pending

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, domain.ModeAwaitingCorrectionAnswer, loaded.Mode)
		assert.Equal(t, session.Transcript, loaded.Transcript)
		require.NotNil(t, loaded.PendingOriginalText)
		assert.Equal(t, pending, *loaded.PendingOriginalText)
	})

	t.Run("Saved Copy Is Isolated", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.Transcript = session.Transcript.Append(domain.UserSaid("original"), domain.AssistantSaid("reply"))
		require.NoError(t, store.Save(ctx, sessionID, session))

		session.Transcript[0] = domain.UserSaid("mutated after save")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "original", loaded.Transcript[0].Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

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
