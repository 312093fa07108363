package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stong1994/secret-book-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithTx_Commit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(events EventRepository, states FinalStateRepository) error {
		if err := states.Upsert(ctx, &models.FinalState{ID: "x", DataType: "login"}); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes
		_, err := states.GetByID(ctx, "x")
		require.NoError(t, err)
		return events.Append(ctx, &models.LogEntry{ID: "1", Date: "d1", EventType: "CREATE", DataID: "x"})
	})
	require.NoError(t, err)

	_, err = store.States().GetByID(ctx, "x")
	require.NoError(t, err)
	entries, err := store.Events().ListSince(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoryStore_WithTx_Rollback(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, store.States().Upsert(ctx, &models.FinalState{ID: "keep", DataType: "login"}))

	err := store.WithTx(ctx, func(events EventRepository, states FinalStateRepository) error {
		require.NoError(t, states.Delete(ctx, "keep"))
		require.NoError(t, states.Upsert(ctx, &models.FinalState{ID: "x", DataType: "login"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.States().GetByID(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.States().GetByID(ctx, "keep")
	assert.NoError(t, err)
}

func TestMemoryStore_WithTx_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithTx(ctx, func(events EventRepository, states FinalStateRepository) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryStore_Insert_Conflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.States().Insert(ctx, &models.FinalState{ID: "x"}))
	assert.ErrorIs(t, store.States().Insert(ctx, &models.FinalState{ID: "x"}), ErrStateExists)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := &models.FinalState{ID: "x", Content: "v1"}
	require.NoError(t, store.States().Upsert(ctx, state))
	state.Content = "mutated"

	got, err := store.States().GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Content)

	got.Content = "mutated again"
	again, err := store.States().GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "v1", again.Content)
}

func TestMemoryStore_ListSince_OrderAndCursor(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, d := range []string{"2024-03", "2024-01", "2024-02"} {
		require.NoError(t, store.Events().Append(ctx, &models.LogEntry{ID: d, Date: d}))
	}

	entries, err := store.Events().ListSince(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-01", entries[0].Date)
	assert.Equal(t, "2024-02", entries[1].Date)

	cursor := "2024-02"
	entries, err = store.Events().ListSince(ctx, &cursor, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03", entries[0].Date)
}
