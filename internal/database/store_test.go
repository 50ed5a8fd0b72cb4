package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgard/autoacceptbot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "recipients.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func collect(t *testing.T, s database.Store, pageSize int) []int64 {
	t.Helper()

	var ids []int64
	for r, err := range s.Recipients(context.Background(), pageSize) {
		require.NoError(t, err)
		ids = append(ids, r.UserID)
	}
	return ids
}

func TestStore_AddRecipientIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	added, err := s.AddRecipient(ctx, 42, database.SourceStart)
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.AddRecipient(ctx, 42, database.SourceJoinRequest)
	require.NoError(t, err)
	require.False(t, added)

	n, err := s.CountRecipients(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ok, err := s.HasRecipient(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_RejectsZeroUserID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.AddRecipient(context.Background(), 0, database.SourceStart)
	require.Error(t, err)

	_, err = s.HasRecipient(context.Background(), 0)
	require.Error(t, err)
}

func TestStore_DeleteRecipient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.AddRecipient(ctx, 7, database.SourceJoinRequest)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecipient(ctx, 7))
	require.NoError(t, s.DeleteRecipient(ctx, 7), "deleting an absent recipient is not an error")

	ok, err := s.HasRecipient(ctx, 7)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_RecipientsPagesInInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	want := []int64{900, 15, 301, 4, 77, 12, 8}
	for _, id := range want {
		_, err := s.AddRecipient(ctx, id, database.SourceStart)
		require.NoError(t, err)
	}

	for _, pageSize := range []int{1, 3, 7, 50, 0} {
		require.Equal(t, want, collect(t, s, pageSize), "page size %d", pageSize)
	}
}

func TestStore_RecipientsEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.Empty(t, collect(t, s, 10))
}

func TestStore_RecipientsToleratesMutationDuringIteration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for id := int64(1); id <= 6; id++ {
		_, err := s.AddRecipient(ctx, id, database.SourceStart)
		require.NoError(t, err)
	}

	var seen []int64
	for r, err := range s.Recipients(ctx, 2) {
		require.NoError(t, err)
		seen = append(seen, r.UserID)

		if r.UserID == 1 {
			// Rows deleted ahead of the cursor are skipped and rows added
			// after the first pull are outside the snapshot bound.
			require.NoError(t, s.DeleteRecipient(ctx, 4))
			_, err := s.AddRecipient(ctx, 100, database.SourceJoinRequest)
			require.NoError(t, err)
		}
		if r.UserID == 2 {
			require.NoError(t, s.DeleteRecipient(ctx, 2))
		}
	}

	require.Equal(t, []int64{1, 2, 3, 5, 6}, seen)
}

func TestStore_SnapshotBoundsIteration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	snap, err := s.SnapshotRecipients(ctx)
	require.NoError(t, err)
	require.Equal(t, database.RecipientSnapshot{}, snap)

	for id := int64(1); id <= 3; id++ {
		_, err := s.AddRecipient(ctx, id, database.SourceStart)
		require.NoError(t, err)
	}
	snap, err = s.SnapshotRecipients(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, snap.Count)

	// Joins after the snapshot fall outside the bound.
	_, err = s.AddRecipient(ctx, 50, database.SourceJoinRequest)
	require.NoError(t, err)

	var seen []int64
	for r, err := range s.RecipientsUpTo(ctx, snap.MaxID, 2) {
		require.NoError(t, err)
		seen = append(seen, r.UserID)
	}
	require.Equal(t, []int64{1, 2, 3}, seen)
	require.Len(t, seen, snap.Count)
}

func TestStore_RecipientsStopsEarly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for id := int64(1); id <= 5; id++ {
		_, err := s.AddRecipient(ctx, id, database.SourceStart)
		require.NoError(t, err)
	}

	var seen int
	for _, err := range s.Recipients(ctx, 2) {
		require.NoError(t, err)
		seen++
		if seen == 3 {
			break
		}
	}
	require.Equal(t, 3, seen)
}

func TestStore_RecipientsCancelled(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.AddRecipient(context.Background(), 1, database.SourceStart)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range s.Recipients(ctx, 10) {
		if err != nil {
			gotErr = err
			break
		}
	}
	require.Error(t, gotErr)
}

func TestStore_RunSQLMaintenance(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.RunSQLMaintenance(context.Background()))
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain path", input: "storage.db", want: "storage.db"},
		{name: "file scheme", input: "file:storage.db", want: "storage.db"},
		{name: "query parameters", input: "file:./data/bot.db?_pragma=busy_timeout(5000)", want: "./data/bot.db"},
		{name: "escaped", input: "file:my%20bot.db", want: "my bot.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, database.ExtractDBNameFromPath(tt.input))
		})
	}
}

func TestNewDB_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := database.NewDB("  ")
	require.Error(t, err)
}
