package progress

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakfit/coursecast/internal/catalog"
)

type fakeWriter struct {
	err    error
	writes []catalog.CompletionWrite
}

func (w *fakeWriter) MarkCompleted(_ context.Context, write catalog.CompletionWrite) error {
	w.writes = append(w.writes, write)
	return w.err
}

func tempJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestTrackerMarkCompleted(t *testing.T) {
	w := &fakeWriter{}
	tr := NewTracker("p1", "c1", w, nil)

	ok := tr.MarkCompleted(context.Background(), "l1", 12)
	require.True(t, ok)
	require.Len(t, w.writes, 1)
	assert.Equal(t, catalog.PurchaseID("p1"), w.writes[0].PurchaseID)
	assert.Equal(t, catalog.LessonID("l1"), w.writes[0].LessonID)
	assert.Equal(t, catalog.CourseID("c1"), w.writes[0].CourseID)
	assert.Equal(t, 12, w.writes[0].DurationWatchedMinutes)
	assert.True(t, tr.Contains("l1"))
}

func TestTrackerMarkCompletedIdempotent(t *testing.T) {
	w := &fakeWriter{}
	tr := NewTracker("p1", "c1", w, nil)

	require.True(t, tr.MarkCompleted(context.Background(), "l1", 10))
	require.True(t, tr.MarkCompleted(context.Background(), "l1", 10))
	assert.Len(t, w.writes, 1, "duplicate completion must not write twice")
}

func TestTrackerOptimisticApplyOnWriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("store down")}
	tr := NewTracker("p1", "c1", w, nil)

	ok := tr.MarkCompleted(context.Background(), "l1", 10)
	assert.False(t, ok, "durable write failed")
	assert.True(t, tr.Contains("l1"), "local set must reflect completion immediately")
}

func TestTrackerCompletedSnapshotIsolated(t *testing.T) {
	w := &fakeWriter{}
	tr := NewTracker("p1", "c1", w, nil)
	tr.MarkCompleted(context.Background(), "l1", 5)

	snap := tr.Completed()
	tr.MarkCompleted(context.Background(), "l2", 5)

	_, ok := snap["l2"]
	assert.False(t, ok, "handed-out snapshots must not change")
}

func TestTrackerReplaceFromRemoteKeepsPending(t *testing.T) {
	j := tempJournal(t)
	w := &fakeWriter{err: errors.New("store down")}
	tr := NewTracker("p1", "c1", w, j)

	// Optimistic completion that could not be written durably.
	tr.MarkCompleted(context.Background(), "l3", 10)

	// The remote record does not know about l3 yet.
	tr.ReplaceFromRemote(context.Background(), []catalog.LessonID{"l1", "l2"})

	assert.True(t, tr.Contains("l1"))
	assert.True(t, tr.Contains("l2"))
	assert.True(t, tr.Contains("l3"), "journaled optimistic completion must survive remote replace")
}

func TestTrackerReplaceFromRemoteDropsStale(t *testing.T) {
	w := &fakeWriter{}
	tr := NewTracker("p1", "c1", w, nil)
	tr.Seed(context.Background(), []catalog.LessonID{"l1", "l9"})

	tr.ReplaceFromRemote(context.Background(), []catalog.LessonID{"l1"})

	assert.True(t, tr.Contains("l1"))
	assert.False(t, tr.Contains("l9"), "remote record is the source of truth")
}

func TestTrackerRetryPending(t *testing.T) {
	j := tempJournal(t)
	w := &fakeWriter{err: errors.New("store down")}
	tr := NewTracker("p1", "c1", w, j)

	tr.MarkCompleted(context.Background(), "l1", 10)
	tr.MarkCompleted(context.Background(), "l2", 15)

	pending, err := j.Pending(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// Store is back; retries drain the journal.
	w.err = nil
	tr.RetryPending(context.Background())

	pending, err = j.Pending(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTrackerRetryPendingKeepsFailedEntries(t *testing.T) {
	j := tempJournal(t)
	w := &fakeWriter{err: errors.New("store down")}
	tr := NewTracker("p1", "c1", w, j)

	tr.MarkCompleted(context.Background(), "l1", 10)
	tr.RetryPending(context.Background())

	pending, err := j.Pending(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, pending, 1, "failed retries stay journaled")
}

func TestJournalAppendIdempotent(t *testing.T) {
	j := tempJournal(t)
	write := catalog.CompletionWrite{
		PurchaseID:             "p1",
		LessonID:               "l1",
		CourseID:               "c1",
		DurationWatchedMinutes: 10,
	}

	require.NoError(t, j.Append(context.Background(), write))
	require.NoError(t, j.Append(context.Background(), write))

	pending, err := j.Pending(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, write, pending[0])
}

func TestJournalScopedByPurchase(t *testing.T) {
	j := tempJournal(t)
	require.NoError(t, j.Append(context.Background(), catalog.CompletionWrite{
		PurchaseID: "p1", LessonID: "l1", CourseID: "c1", DurationWatchedMinutes: 1,
	}))
	require.NoError(t, j.Append(context.Background(), catalog.CompletionWrite{
		PurchaseID: "p2", LessonID: "l1", CourseID: "c1", DurationWatchedMinutes: 1,
	}))

	pending, err := j.Pending(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, catalog.PurchaseID("p1"), pending[0].PurchaseID)
}
