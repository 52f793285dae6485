package drip

import "github.com/oakfit/coursecast/internal/catalog"

// Status is the derived, never-persisted lesson state. It is recomputed from
// the current clock on every evaluation.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusAvailable Status = "available"
	StatusCompleted Status = "completed"
)

// CompletedSet is a read snapshot of explicitly completed lesson ids.
type CompletedSet map[catalog.LessonID]struct{}

// NewCompletedSet builds a set from a lesson id list.
func NewCompletedSet(ids []catalog.LessonID) CompletedSet {
	set := make(CompletedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// StatusFor derives the status of the lesson at position i (0-indexed).
// Precedence: explicit completion wins, then elapsed-day implicit completion,
// then today's lesson is available, everything later is locked. daysDiff < 0
// means the course has not started and everything is locked.
func StatusFor(i, daysDiff int, id catalog.LessonID, completed CompletedSet) Status {
	if _, ok := completed[id]; ok {
		return StatusCompleted
	}
	if daysDiff < 0 {
		return StatusLocked
	}
	switch {
	case i < daysDiff:
		return StatusCompleted
	case i == daysDiff:
		return StatusAvailable
	default:
		return StatusLocked
	}
}

// Statuses derives the full status list for a course's lessons. The list is
// used for sidebar rendering and click-gating only; the initially selected
// lesson always comes from AvailableLessonIndex so the two derivations cannot
// diverge on entry.
func Statuses(lessons []catalog.Lesson, daysDiff int, completed CompletedSet) []Status {
	out := make([]Status, len(lessons))
	for i, l := range lessons {
		out[i] = StatusFor(i, daysDiff, l.ID, completed)
	}
	return out
}
