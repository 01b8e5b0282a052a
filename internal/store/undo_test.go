package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

type settled struct {
	id  string
	err error
}

func newUndoStore(t *testing.T, tr *fakeTransport) (*Store, interface{ Advance(time.Duration) }, chan settled) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	done := make(chan settled, 4)
	s := newTestStore(t, tr,
		WithClock(clock),
		WithUndoGrace(5*time.Second),
		WithDeleteHook(func(id string, err error) { done <- settled{id: id, err: err} }),
	)
	require.NoError(t, s.Refresh(context.Background()))
	return s, clock, done
}

func waitSettled(t *testing.T, done chan settled) settled {
	t.Helper()
	select {
	case got := <-done:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("delete never settled")
	}
	return settled{}
}

func TestStore_RequestDeleteThenUndo(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, clock, _ := newUndoStore(t, tr)
	before := s.Records()
	visible := s.Transactions()

	require.NoError(t, s.RequestDelete("B"))
	assert.Equal(t, []string{"A", "C"}, ids(s.Transactions()))
	assert.Equal(t, []string{"B"}, s.PendingDeletes())
	recs := s.Records()
	assert.Equal(t, StatusPendingDelete, recs[1].Status)
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 5, 0, time.UTC), recs[1].Deadline)

	assert.True(t, s.Undo("B"))
	clock.Advance(10 * time.Second)

	assert.Equal(t, before, s.Records())
	assert.Equal(t, visible, s.Transactions())
	assert.Empty(t, s.PendingDeletes())
	assert.Never(t, func() bool { return tr.deletes.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.False(t, s.Undo("B"), "nothing left to undo")
}

func TestStore_GracePeriodExpiry(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, clock, done := newUndoStore(t, tr)

	require.NoError(t, s.RequestDelete("B"))
	clock.Advance(4 * time.Second)
	assert.Equal(t, int32(0), tr.deletes.Load())

	clock.Advance(time.Second)
	got := waitSettled(t, done)

	assert.Equal(t, settled{id: "B"}, got)
	assert.Equal(t, int32(1), tr.deletes.Load())
	assert.Equal(t, []string{"A", "C"}, recordIDs(s.Records()))
	assert.False(t, s.Undo("B"), "too late to undo")
	assert.Equal(t, StateReady, s.State())
}

func TestStore_RepeatedRequestResetsTimer(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, clock, done := newUndoStore(t, tr)

	require.NoError(t, s.RequestDelete("A"))
	clock.Advance(3 * time.Second)
	require.NoError(t, s.RequestDelete("A"))
	clock.Advance(3 * time.Second)
	assert.Never(t, func() bool { return tr.deletes.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(2 * time.Second)
	waitSettled(t, done)
	assert.Equal(t, int32(1), tr.deletes.Load())
}

func TestStore_IndependentUndoSlots(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, clock, done := newUndoStore(t, tr)

	require.NoError(t, s.RequestDelete("A"))
	require.NoError(t, s.RequestDelete("C"))
	assert.Equal(t, []string{"A", "C"}, s.PendingDeletes())
	assert.True(t, s.Undo("A"))

	clock.Advance(5 * time.Second)
	got := waitSettled(t, done)

	assert.Equal(t, "C", got.id)
	assert.Equal(t, []string{"A", "B"}, ids(s.Transactions()))
	assert.Equal(t, int32(1), tr.deletes.Load())
}

func TestStore_DeleteOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		deleteErr  error
		wantIDs    []string
		wantHookOK bool
		wantErrMsg bool
	}{
		{
			name:       "removed",
			wantIDs:    []string{"A", "C"},
			wantHookOK: true,
		},
		{
			name:       "already gone counts as removed",
			deleteErr:  fmt.Errorf("delete B: %w", models.ErrNotFound),
			wantIDs:    []string{"A", "C"},
			wantHookOK: true,
		},
		{
			name:       "failure restores with error",
			deleteErr:  errBackend,
			wantIDs:    []string{"A", "B", "C"},
			wantErrMsg: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport(firstPage())
			tr.deleteErr = tt.deleteErr
			s, clock, done := newUndoStore(t, tr)

			require.NoError(t, s.Delete(context.Background(), "B"))
			clock.Advance(5 * time.Second)
			got := waitSettled(t, done)

			assert.Equal(t, tt.wantHookOK, got.err == nil)
			assert.Equal(t, tt.wantIDs, ids(s.Transactions()))
			assert.Equal(t, tt.wantErrMsg, s.Err() != "")
			for _, r := range s.Records() {
				assert.True(t, r.Visible())
			}
		})
	}
}

func TestStore_RequestDeleteErrors(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, _, _ := newUndoStore(t, tr)

	err := s.RequestDelete("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NotEmpty(t, s.Err())
}

func TestStore_DeleteRequestAndUndoClearError(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, _, _ := newUndoStore(t, tr)

	require.Error(t, s.RequestDelete("missing"))
	require.NotEmpty(t, s.Err())
	require.NoError(t, s.RequestDelete("B"))
	assert.Empty(t, s.Err())

	require.Error(t, s.RequestDelete("missing"))
	require.NotEmpty(t, s.Err())
	assert.True(t, s.Undo("B"))
	assert.Empty(t, s.Err())

	require.Error(t, s.RequestDelete("missing"))
	assert.False(t, s.Undo("B"))
	assert.NotEmpty(t, s.Err(), "a no-op undo keeps the error")
}

func TestStore_PendingDeleteSurvivesRefresh(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, _, _ := newUndoStore(t, tr)

	require.NoError(t, s.RequestDelete("B"))
	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, []string{"A", "C"}, ids(s.Transactions()))
	assert.True(t, s.Undo("B"))
	assert.Equal(t, []string{"A", "B", "C"}, ids(s.Transactions()))
}

func TestStore_DisposeCancelsPendingDeletes(t *testing.T) {
	tr := newFakeTransport(firstPage())
	s, clock, _ := newUndoStore(t, tr)

	require.NoError(t, s.RequestDelete("A"))
	s.Dispose()
	clock.Advance(time.Minute)

	assert.Never(t, func() bool { return tr.deletes.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, s.PendingDeletes())
}
