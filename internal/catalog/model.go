// Package catalog holds the course, lesson and purchase records the
// content-delivery engine consumes, plus the client for the hosted data store.
package catalog

import (
	"sort"
	"time"
)

type (
	UserID     string
	CourseID   string
	LessonID   string
	PurchaseID string
)

// Lesson is a single unit of course content. Immutable once fetched for a
// session; its position in Course.Lessons is authoritative for drip-day
// mapping (position 0 = day 0).
type Lesson struct {
	ID              LessonID `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"duration_minutes"`
	// VideoRef is an opaque playback reference: a bare identifier, a full
	// player URL, or a manifest-suffixed path. Normalization happens in the
	// playback package.
	VideoRef     string `json:"video_ref"`
	PreviewImage string `json:"preview_image"`
	Order        int    `json:"lesson_order"`
}

// Course is an ordered sequence of lessons.
type Course struct {
	ID         CourseID `json:"id"`
	Title      string   `json:"title"`
	CoverImage string   `json:"cover_image"`
	Lessons    []Lesson `json:"lessons"`
}

// SortLessons orders the lesson list ascending by Order. The ordering key is
// unique and gap-tolerant, so a plain sort is sufficient.
func (c *Course) SortLessons() {
	sort.SliceStable(c.Lessons, func(i, j int) bool {
		return c.Lessons[i].Order < c.Lessons[j].Order
	})
}

// LessonIndex returns the position of the lesson with the given id.
func (c *Course) LessonIndex(id LessonID) (int, bool) {
	for i, l := range c.Lessons {
		if l.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Purchase is a user's claim on a course. StartDate may be nil when the start
// is set later via a separate flow; EffectiveStart falls back to the purchase
// creation timestamp.
type Purchase struct {
	ID                 PurchaseID `json:"id"`
	UserID             UserID     `json:"user_id"`
	CourseID           CourseID   `json:"course_id"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedLessonIDs []LessonID `json:"completed_lesson_ids"`
	Active             bool       `json:"is_active"`
}

// EffectiveStart returns the anchor date for drip scheduling. The boolean is
// false when neither a start date nor a creation timestamp exists; callers
// treat that as "nothing unlockable".
func (p Purchase) EffectiveStart() (time.Time, bool) {
	if p.StartDate != nil && !p.StartDate.IsZero() {
		return *p.StartDate, true
	}
	if !p.CreatedAt.IsZero() {
		return p.CreatedAt, true
	}
	return time.Time{}, false
}

// EffectivePurchase picks the single purchase used for drip scheduling:
// the first active one.
func EffectivePurchase(purchases []Purchase) (Purchase, bool) {
	for _, p := range purchases {
		if p.Active {
			return p, true
		}
	}
	return Purchase{}, false
}
