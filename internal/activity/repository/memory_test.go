package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tenantly/authweb/internal/activity"
)

func TestMemoryRepo_InsertRecentCount(t *testing.T) {
	r := NewMemoryRepo(0)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Insert(ctx, &activity.Event{Kind: activity.KindLogin, Email: "a@b.com", At: now.Add(-48 * time.Hour)}))
	require.NoError(t, r.Insert(ctx, &activity.Event{Kind: activity.KindLogin, Email: "a@b.com", At: now.Add(-time.Hour)}))
	require.NoError(t, r.Insert(ctx, &activity.Event{Kind: activity.KindRegister, Email: "c@d.com", At: now}))

	list, err := r.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, activity.KindRegister, list[0].Kind)
	require.NotEmpty(t, list[0].ID)

	n, err := r.CountSince(ctx, activity.KindLogin, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = r.CountSince(ctx, activity.KindLogin, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestMemoryRepo_DropsOldest(t *testing.T) {
	r := NewMemoryRepo(3)
	ctx := context.Background()
	start := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Insert(ctx, &activity.Event{Kind: activity.KindLogin, Email: fmt.Sprintf("u%d@b.com", i), At: start.Add(time.Duration(i) * time.Second)}))
	}
	list, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "u4@b.com", list[0].Email)
	require.Equal(t, "u2@b.com", list[2].Email)
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepo(10)
	ctx := context.Background()
	e := &activity.Event{Kind: activity.KindLogout, Email: "a@b.com"}
	require.NoError(t, r.Insert(ctx, e))
	e.Email = "changed@b.com"

	list, err := r.Recent(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", list[0].Email)
	list[0].Email = "mutated"

	again, err := r.Recent(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", again[0].Email)
}
