package drip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	loc, err := time.LoadLocation("Europe/Vienna")
	if err != nil {
		loc = time.UTC
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestDaysSince(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		today time.Time
		want  int
	}{
		{
			name:  "same instant",
			start: date(2025, time.March, 10, 9, 0),
			today: date(2025, time.March, 10, 9, 0),
			want:  0,
		},
		{
			name:  "same calendar day different times",
			start: date(2025, time.March, 10, 23, 59),
			today: date(2025, time.March, 10, 0, 1),
			want:  0,
		},
		{
			name:  "next day just after midnight",
			start: date(2025, time.March, 10, 23, 59),
			today: date(2025, time.March, 11, 0, 1),
			want:  1,
		},
		{
			name:  "one week",
			start: date(2025, time.March, 10, 12, 0),
			today: date(2025, time.March, 17, 12, 0),
			want:  7,
		},
		{
			name:  "across spring DST change",
			start: date(2025, time.March, 28, 8, 0),
			today: date(2025, time.March, 31, 8, 0), // DST started March 30
			want:  3,
		},
		{
			name:  "across autumn DST change",
			start: date(2025, time.October, 24, 8, 0),
			today: date(2025, time.October, 27, 8, 0), // DST ended October 26
			want:  3,
		},
		{
			name:  "start in the future",
			start: date(2025, time.March, 12, 9, 0),
			today: date(2025, time.March, 10, 9, 0),
			want:  -2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysSince(tt.start, tt.today))
		})
	}
}

func TestAvailableLessonIndex(t *testing.T) {
	start := date(2025, time.June, 1, 10, 0)

	tests := []struct {
		name        string
		today       time.Time
		lessonCount int
		wantIdx     int
		wantOK      bool
	}{
		{
			name:        "first day unlocks lesson zero",
			today:       date(2025, time.June, 1, 18, 0),
			lessonCount: 5,
			wantIdx:     0,
			wantOK:      true,
		},
		{
			name:        "third day unlocks third lesson",
			today:       date(2025, time.June, 3, 10, 0),
			lessonCount: 5,
			wantIdx:     2,
			wantOK:      true,
		},
		{
			name:        "clamped to last lesson after course length",
			today:       date(2025, time.June, 30, 10, 0),
			lessonCount: 5,
			wantIdx:     4,
			wantOK:      true,
		},
		{
			name:        "not yet started",
			today:       date(2025, time.May, 30, 10, 0),
			lessonCount: 5,
			wantOK:      false,
		},
		{
			name:        "empty course",
			today:       date(2025, time.June, 3, 10, 0),
			lessonCount: 0,
			wantOK:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := AvailableLessonIndex(start, tt.today, tt.lessonCount)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantIdx, idx)
			}
		})
	}
}

// The unlock index must never move backwards as time advances.
func TestAvailableLessonIndexMonotonic(t *testing.T) {
	start := date(2025, time.June, 1, 10, 0)
	const lessons = 10

	prev := -1
	for day := 0; day < 30; day++ {
		today := start.AddDate(0, 0, day)
		idx, ok := AvailableLessonIndex(start, today, lessons)
		require.True(t, ok, "day %d", day)
		require.GreaterOrEqual(t, idx, prev, "day %d", day)
		require.Less(t, idx, lessons, "day %d", day)
		prev = idx
	}
	assert.Equal(t, lessons-1, prev)
}
