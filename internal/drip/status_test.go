package drip

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/oakfit/coursecast/internal/catalog"
)

func lessons(n int) []catalog.Lesson {
	out := make([]catalog.Lesson, n)
	for i := range out {
		out[i] = catalog.Lesson{
			ID:    catalog.LessonID(fmt.Sprintf("l%d", i)),
			Title: fmt.Sprintf("Lesson %d", i+1),
			Order: i,
		}
	}
	return out
}

func TestStatuses(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		daysDiff  int
		completed []catalog.LessonID
		want      []Status
	}{
		{
			name:     "day zero only first lesson available",
			count:    4,
			daysDiff: 0,
			want:     []Status{StatusAvailable, StatusLocked, StatusLocked, StatusLocked},
		},
		{
			name:     "elapsed days count as completed",
			count:    4,
			daysDiff: 2,
			want:     []Status{StatusCompleted, StatusCompleted, StatusAvailable, StatusLocked},
		},
		{
			name:     "not started locks everything",
			count:    3,
			daysDiff: -1,
			want:     []Status{StatusLocked, StatusLocked, StatusLocked},
		},
		{
			name:     "past course end everything completed",
			count:    3,
			daysDiff: 10,
			want:     []Status{StatusCompleted, StatusCompleted, StatusCompleted},
		},
		{
			name:      "explicit completion wins over locked",
			count:     4,
			daysDiff:  0,
			completed: []catalog.LessonID{"l2"},
			want:      []Status{StatusAvailable, StatusLocked, StatusCompleted, StatusLocked},
		},
		{
			name:      "explicit completion on today's lesson",
			count:     3,
			daysDiff:  1,
			completed: []catalog.LessonID{"l1"},
			want:      []Status{StatusCompleted, StatusCompleted, StatusLocked},
		},
		{
			name:      "explicit completion even before start",
			count:     2,
			daysDiff:  -3,
			completed: []catalog.LessonID{"l0"},
			want:      []Status{StatusCompleted, StatusLocked},
		},
		{
			name:     "empty course",
			count:    0,
			daysDiff: 5,
			want:     []Status{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Statuses(lessons(tt.count), tt.daysDiff, NewCompletedSet(tt.completed))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("status list mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// At most one lesson is ever available, and it is always today's.
func TestStatusesSingleAvailable(t *testing.T) {
	ls := lessons(8)
	for diff := -2; diff < 12; diff++ {
		got := Statuses(ls, diff, nil)
		available := 0
		for i, st := range got {
			if st == StatusAvailable {
				available++
				assert.Equal(t, diff, i, "available lesson must be today's")
			}
		}
		assert.LessOrEqual(t, available, 1, "daysDiff=%d", diff)
	}
}
