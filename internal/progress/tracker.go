// Package progress records lesson completion: a durable remote write paired
// with an optimistic local set, a pending-write journal, and a background
// reconciler that keeps the local set convergent with the remote record.
package progress

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/drip"
	"github.com/oakfit/coursecast/internal/log"
)

// CompletionWriter performs the durable completion write.
// *catalog.Client satisfies this.
type CompletionWriter interface {
	MarkCompleted(ctx context.Context, write catalog.CompletionWrite) error
}

// Tracker owns the completed-lesson set for one purchase. It is the single
// writer; readers get atomic snapshots via Completed.
type Tracker struct {
	purchaseID catalog.PurchaseID
	courseID   catalog.CourseID
	writer     CompletionWriter
	journal    *Journal // optional; nil disables durable pending writes
	logger     zerolog.Logger

	mu        sync.RWMutex
	completed map[catalog.LessonID]struct{}
}

// NewTracker builds a Tracker. journal may be nil.
func NewTracker(purchaseID catalog.PurchaseID, courseID catalog.CourseID, writer CompletionWriter, journal *Journal) *Tracker {
	return &Tracker{
		purchaseID: purchaseID,
		courseID:   courseID,
		writer:     writer,
		journal:    journal,
		logger: log.Derive(func(c *zerolog.Context) {
			*c = (*c).Str(log.FieldComponent, "progress").Str(log.FieldPurchase, string(purchaseID))
		}),
		completed: make(map[catalog.LessonID]struct{}),
	}
}

// Seed loads the remote completed list plus any journaled optimistic entries.
// Called once when the purchase record is (re)loaded.
func (t *Tracker) Seed(ctx context.Context, remote []catalog.LessonID) {
	t.ReplaceFromRemote(ctx, remote)
}

// MarkCompleted records a lesson as completed. The remote write may fail; the
// optimistic local append is applied either way before this returns, so a
// status recomputation immediately after always sees the lesson completed.
// Duplicate calls for an already-completed lesson are no-ops. The return
// value reports durable success only; callers never block on it.
func (t *Tracker) MarkCompleted(ctx context.Context, lessonID catalog.LessonID, watchedMinutes int) bool {
	t.mu.RLock()
	_, done := t.completed[lessonID]
	t.mu.RUnlock()
	if done {
		return true
	}

	write := catalog.CompletionWrite{
		PurchaseID:             t.purchaseID,
		LessonID:               lessonID,
		CourseID:               t.courseID,
		DurationWatchedMinutes: watchedMinutes,
	}

	err := t.writer.MarkCompleted(ctx, write)

	t.mu.Lock()
	t.completed[lessonID] = struct{}{}
	t.mu.Unlock()

	if err != nil {
		completionWritesTotal.WithLabelValues("error").Inc()
		optimisticAppliesTotal.Inc()
		t.logger.Warn().
			Err(err).
			Str(log.FieldLessonID, string(lessonID)).
			Msg("completion write failed, applied optimistically")
		if t.journal != nil {
			if jerr := t.journal.Append(ctx, write); jerr != nil {
				t.logger.Error().Err(jerr).
					Str(log.FieldLessonID, string(lessonID)).
					Msg("failed to journal pending completion")
			}
		}
		return false
	}

	completionWritesTotal.WithLabelValues("ok").Inc()
	t.logger.Info().
		Str(log.FieldLessonID, string(lessonID)).
		Int("watched_minutes", watchedMinutes).
		Msg("lesson completed")
	return true
}

// Completed returns an atomic snapshot of the completed set. The snapshot is
// a copy; later tracker writes never mutate a handed-out set.
func (t *Tracker) Completed() drip.CompletedSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := make(drip.CompletedSet, len(t.completed))
	for id := range t.completed {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether the lesson is in the completed set.
func (t *Tracker) Contains(lessonID catalog.LessonID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.completed[lessonID]
	return ok
}

// ReplaceFromRemote swaps the local set for the remote source of truth, then
// re-applies journaled pending writes on top so optimistic completions never
// regress while their durable write is still outstanding.
func (t *Tracker) ReplaceFromRemote(ctx context.Context, remote []catalog.LessonID) {
	next := make(map[catalog.LessonID]struct{}, len(remote))
	for _, id := range remote {
		next[id] = struct{}{}
	}

	if t.journal != nil {
		pending, err := t.journal.Pending(ctx, t.purchaseID)
		if err != nil {
			t.logger.Warn().Err(err).Msg("failed to read pending completions")
		}
		for _, w := range pending {
			next[w.LessonID] = struct{}{}
		}
	}

	t.mu.Lock()
	t.completed = next
	t.mu.Unlock()
}

// RetryPending replays journaled completion writes. Entries that succeed are
// removed; a write that is already durable remotely is removed as well once
// the remote list reflects it (handled by ReplaceFromRemote on the next pass).
func (t *Tracker) RetryPending(ctx context.Context) {
	if t.journal == nil {
		return
	}
	pending, err := t.journal.Pending(ctx, t.purchaseID)
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to read pending completions")
		return
	}
	for _, w := range pending {
		if err := t.writer.MarkCompleted(ctx, w); err != nil {
			pendingRetriesTotal.WithLabelValues("error").Inc()
			t.logger.Debug().Err(err).
				Str(log.FieldLessonID, string(w.LessonID)).
				Msg("pending completion retry failed")
			continue
		}
		pendingRetriesTotal.WithLabelValues("ok").Inc()
		if err := t.journal.Remove(ctx, w.PurchaseID, w.LessonID); err != nil {
			t.logger.Warn().Err(err).
				Str(log.FieldLessonID, string(w.LessonID)).
				Msg("failed to clear journaled completion")
		}
	}
}
