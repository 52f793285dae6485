// Package drip converts a purchase's start date and today's date into which
// lesson is unlockable and the per-lesson status list.
//
// A lesson whose scheduled day has elapsed counts as completed even if the
// user never watched it. That is a deliberate product decision (missed days
// are not penalized), not a bug.
package drip

import "time"

const day = 24 * time.Hour

// calendarDate strips the time-of-day component and re-anchors the local
// calendar date in UTC, so differences between two calendar dates are exact
// multiples of 24h regardless of DST shifts in the source zone.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns the number of whole calendar days between start and
// today, using each value's own local calendar date. Negative when the start
// lies in the future. The same-calendar-day check runs before any division so
// partial-day arithmetic can never produce an off-by-one on day zero.
func DaysSince(start, today time.Time) int {
	s := calendarDate(start)
	n := calendarDate(today)
	if s.Equal(n) {
		return 0
	}
	return int(n.Sub(s) / day)
}

// AvailableLessonIndex returns the index of the lesson unlockable today.
// The boolean is false when the course has no lessons or has not started yet.
// The index never advances past the last lesson: a user who started long ago
// sees the last lesson as "today's".
func AvailableLessonIndex(start, today time.Time, lessonCount int) (int, bool) {
	if lessonCount <= 0 {
		return 0, false
	}
	diff := DaysSince(start, today)
	if diff < 0 {
		return 0, false
	}
	if diff > lessonCount-1 {
		diff = lessonCount - 1
	}
	return diff, true
}
