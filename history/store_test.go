/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, path
}

func TestOpenAppliesPragmas(t *testing.T) {
	s, _ := openTemp(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenIsIdempotent(t *testing.T) {
	s, path := openTemp(t)

	_, err := s.Record(context.Background(), Result{Match: "first", Players: []string{"Alice", "Bob"}, Turns: 4})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	got, err := again.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Match)
}

func TestRecordAssignsIDAndTime(t *testing.T) {
	s, _ := openTemp(t)

	r, err := s.Record(context.Background(), Result{Match: "abc", Winner: "Alice", Players: []string{"Alice", "Bob"}, Turns: 9})
	require.NoError(t, err)

	id, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.WithinDuration(t, time.Now(), r.FinishedAt, time.Minute)
}

func TestRecentIsNewestFirst(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for i, name := range []string{"one", "two", "three"} {
		_, err := s.Record(ctx, Result{
			Match:      name,
			Players:    []string{"Alice", "Bob"},
			Turns:      i + 1,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Match)
	assert.Equal(t, "two", got[1].Match)
	assert.Equal(t, 3, got[0].Turns)
	assert.Equal(t, []string{"Alice", "Bob"}, got[0].Players)
	assert.True(t, base.Add(2*time.Minute).Equal(got[0].FinishedAt))
}

func TestRecordWithoutWinner(t *testing.T) {
	s, _ := openTemp(t)

	_, err := s.Record(context.Background(), Result{Match: "draw"})
	require.NoError(t, err)

	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Winner)
	assert.Empty(t, got[0].Players)
}

func TestClosedStore(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Close())

	_, err := s.Record(context.Background(), Result{Match: "late"})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, s.Close())

	var nilStore *Store
	assert.NoError(t, nilStore.Close())
}
