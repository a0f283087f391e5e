package repositories

import (
	"context"
	"testing"
	"time"

	"geopickup/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobCheckInStore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewBlobCheckInStore(kv)
	base := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

	second := models.CheckIn{ID: "b", UserID: "u2", StudentID: "s2", SchoolID: "school-1", CheckedInAt: base.Add(time.Minute), Status: models.CheckInWaiting}
	first := models.CheckIn{ID: "a", UserID: "u1", StudentID: "s1", SchoolID: "school-1", CheckedInAt: base, Status: models.CheckInWaiting}
	require.NoError(t, store.Upsert(ctx, second))
	require.NoError(t, store.Upsert(ctx, first))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	first.Status = models.CheckInProcessing
	require.NoError(t, store.Upsert(ctx, first))
	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.CheckInProcessing, all[0].Status)

	require.NoError(t, store.Delete(ctx, "a"))
	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)

	require.NoError(t, store.DeleteAll(ctx))
	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDecodeBlob(t *testing.T) {
	var got []string
	require.NoError(t, DecodeBlob([]byte(`{"version":1,"data":["x"]}`), &got))
	assert.Equal(t, []string{"x"}, got)

	got = nil
	require.NoError(t, DecodeBlob([]byte(`["legacy"]`), &got))
	assert.Equal(t, []string{"legacy"}, got)

	assert.ErrorIs(t, DecodeBlob([]byte(`{"version":2,"data":[]}`), &got), ErrUnsupportedBlobVersion)
	assert.Error(t, DecodeBlob([]byte(`not json`), &got))
}

func TestMemoryConsumedTokens(t *testing.T) {
	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	reg := NewMemoryConsumedTokens(func() time.Time { return now })
	ctx := context.Background()

	ok, err := reg.Consume(ctx, "d", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = reg.Consume(ctx, "d", 15*time.Minute)
	assert.False(t, ok)

	now = now.Add(15 * time.Minute)
	ok, _ = reg.Consume(ctx, "d", 15*time.Minute)
	assert.True(t, ok)

	require.NoError(t, reg.Release(ctx, "d"))
	ok, _ = reg.Consume(ctx, "d", 15*time.Minute)
	assert.True(t, ok)
}
