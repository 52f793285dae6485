package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/drip"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

// fire runs the timer callback unless the timer was stopped first.
func (t *fakeTimer) fire() {
	if !t.stopped {
		t.fn()
	}
}

type timerRecorder struct {
	timers []*fakeTimer
}

func (r *timerRecorder) factory(_ time.Duration, fn func()) Timer {
	t := &fakeTimer{fn: fn}
	r.timers = append(r.timers, t)
	return t
}

func (r *timerRecorder) last(t *testing.T) *fakeTimer {
	t.Helper()
	require.NotEmpty(t, r.timers)
	return r.timers[len(r.timers)-1]
}

type hookRecorder struct {
	opened    []catalog.LessonID
	closed    int
	completed []catalog.LessonID
	watched   []int
}

func (r *hookRecorder) hooks() Hooks {
	return Hooks{
		OpenPlayback:  func(l catalog.Lesson) { r.opened = append(r.opened, l.ID) },
		ClosePlayback: func() { r.closed++ },
		MarkCompleted: func(id catalog.LessonID, min int) {
			r.completed = append(r.completed, id)
			r.watched = append(r.watched, min)
		},
	}
}

func lesson(id string) catalog.Lesson {
	return catalog.Lesson{ID: catalog.LessonID(id), Title: "Lesson", DurationMinutes: 20, VideoRef: id}
}

func newSequencer(t *testing.T) (*Sequencer, *hookRecorder, *timerRecorder) {
	t.Helper()
	hooks := &hookRecorder{}
	timers := &timerRecorder{}
	s := New(4*time.Second, hooks.hooks(), WithTimerFactory(timers.factory))
	return s, hooks, timers
}

func TestFullSequence(t *testing.T) {
	s, hooks, _ := newSequencer(t)

	s.Begin(lesson("l1"), false)
	require.Equal(t, StageTeaser, s.Stage())
	assert.Empty(t, hooks.opened, "metered content never autoplays")

	s.TeaserLoadingStarted()
	s.TeaserEnded()
	require.Equal(t, StagePreview, s.Stage())
	assert.Empty(t, hooks.opened)

	s.StartLesson()
	require.Equal(t, StageLessonVideo, s.Stage())
	require.Equal(t, []catalog.LessonID{"l1"}, hooks.opened)

	s.LessonEnded()
	require.Equal(t, StageProgress, s.Stage())
	require.Equal(t, []catalog.LessonID{"l1"}, hooks.completed)
	assert.Equal(t, []int{20}, hooks.watched)
}

func TestShortcutBypassesTeaserAndPreview(t *testing.T) {
	s, hooks, timers := newSequencer(t)

	s.Begin(lesson("l1"), true)

	require.Equal(t, StageLessonVideo, s.Stage())
	require.Equal(t, []catalog.LessonID{"l1"}, hooks.opened)
	assert.Empty(t, timers.timers, "no teaser fallback in shortcut mode")
}

func TestTeaserFallbackSkipsToPreview(t *testing.T) {
	s, _, timers := newSequencer(t)

	s.Begin(lesson("l1"), false)
	timers.last(t).fire()

	assert.Equal(t, StagePreview, s.Stage())
}

func TestTeaserLoadingCancelsFallback(t *testing.T) {
	s, _, timers := newSequencer(t)

	s.Begin(lesson("l1"), false)
	s.TeaserLoadingStarted()

	assert.True(t, timers.last(t).stopped, "loading teaser must disarm the fallback")
	timers.last(t).fire()
	assert.Equal(t, StageTeaser, s.Stage())
}

func TestFallbackAfterTeaserStartedIsIgnored(t *testing.T) {
	s, _, timers := newSequencer(t)

	s.Begin(lesson("l1"), false)
	timer := timers.last(t)
	s.TeaserLoadingStarted()

	// A raced callback that slipped past Stop must still be a no-op.
	timer.stopped = false
	timer.fire()
	assert.Equal(t, StageTeaser, s.Stage())
}

func TestStartLessonOnlyFromPreview(t *testing.T) {
	s, hooks, _ := newSequencer(t)

	s.Begin(lesson("l1"), false)
	s.StartLesson()
	assert.Equal(t, StageTeaser, s.Stage(), "start from teaser is ignored")
	assert.Empty(t, hooks.opened)

	s.TeaserEnded()
	s.StartLesson()
	s.StartLesson()
	assert.Equal(t, StageLessonVideo, s.Stage())
	assert.Len(t, hooks.opened, 1, "repeated start must not reopen playback")
}

func TestLessonEndedOutsideVideoIgnored(t *testing.T) {
	s, hooks, _ := newSequencer(t)

	s.Begin(lesson("l1"), false)
	s.LessonEnded()

	assert.Equal(t, StageTeaser, s.Stage())
	assert.Empty(t, hooks.completed)
}

func TestPlaybackFailedReturnsToPreview(t *testing.T) {
	s, hooks, _ := newSequencer(t)

	s.Begin(lesson("l1"), true)
	s.PlaybackFailed()

	assert.Equal(t, StagePreview, s.Stage())
	assert.Empty(t, hooks.completed, "failed playback is not a completion")
}

func TestSelectGatedToAvailable(t *testing.T) {
	s, hooks, _ := newSequencer(t)
	s.Begin(lesson("l1"), false)

	assert.False(t, s.Select(lesson("l2"), drip.StatusLocked))
	assert.False(t, s.Select(lesson("l2"), drip.StatusCompleted))
	assert.Equal(t, catalog.LessonID("l1"), s.Lesson().ID)

	require.True(t, s.Select(lesson("l2"), drip.StatusAvailable))
	assert.Equal(t, catalog.LessonID("l2"), s.Lesson().ID)
	assert.Equal(t, StageTeaser, s.Stage(), "selection restarts the sequence")
	assert.Empty(t, hooks.opened)
}

func TestSelectKeepsShortcutMode(t *testing.T) {
	s, hooks, _ := newSequencer(t)
	s.Begin(lesson("l1"), true)

	require.True(t, s.Select(lesson("l2"), drip.StatusAvailable))
	assert.Equal(t, StageLessonVideo, s.Stage())
	assert.Equal(t, []catalog.LessonID{"l1", "l2"}, hooks.opened)
}

func TestCloseStopsTimerAndPlayback(t *testing.T) {
	s, hooks, timers := newSequencer(t)
	s.Begin(lesson("l1"), false)

	s.Close()

	assert.True(t, timers.last(t).stopped)
	assert.Equal(t, 1, hooks.closed)
}
