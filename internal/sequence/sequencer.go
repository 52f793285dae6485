// Package sequence drives the per-lesson view sequence
// teaser -> preview -> lesson_video -> progress.
package sequence

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/drip"
	"github.com/oakfit/coursecast/internal/log"
)

// Stage is the current view of the lesson viewer.
type Stage string

const (
	StageTeaser      Stage = "teaser"
	StagePreview     Stage = "preview"
	StageLessonVideo Stage = "lesson_video"
	StageProgress    Stage = "progress"
)

// Timer is a cancellable one-shot timer handle.
type Timer interface {
	Stop() bool
}

// TimerFactory creates one-shot timers; injectable so tests stay
// deterministic.
type TimerFactory func(d time.Duration, fn func()) Timer

func defaultTimerFactory(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Hooks are the sequencer's side-effect surface. All hooks are optional.
type Hooks struct {
	// OpenPlayback is called when entering lesson_video.
	OpenPlayback func(lesson catalog.Lesson)
	// ClosePlayback is called on teardown.
	ClosePlayback func()
	// MarkCompleted runs synchronously inside the lesson-ended handler,
	// before the stage advances, so any status recomputation after the
	// transition already sees the lesson completed.
	MarkCompleted func(lessonID catalog.LessonID, watchedMinutes int)
}

// Sequencer owns the view sequence for the currently selected lesson.
type Sequencer struct {
	teaserFallback time.Duration
	timers         TimerFactory
	hooks          Hooks
	logger         zerolog.Logger

	mu            sync.Mutex
	stage         Stage
	lesson        catalog.Lesson
	shortcut      bool
	teaserStarted bool
	teaserTimer   Timer
}

// Option customizes a Sequencer.
type Option func(*Sequencer)

// WithTimerFactory replaces the timer implementation.
func WithTimerFactory(f TimerFactory) Option {
	return func(s *Sequencer) { s.timers = f }
}

// New builds a Sequencer. teaserFallback bounds how long the teaser may sit
// without beginning to load before it is skipped.
func New(teaserFallback time.Duration, hooks Hooks, opts ...Option) *Sequencer {
	s := &Sequencer{
		teaserFallback: teaserFallback,
		timers:         defaultTimerFactory,
		hooks:          hooks,
		logger:         log.WithComponent("sequence"),
		stage:          StageTeaser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts the sequence for a lesson. With shortcut the teaser and
// preview are bypassed and playback starts immediately.
func (s *Sequencer) Begin(lesson catalog.Lesson, shortcut bool) {
	s.mu.Lock()
	s.stopTeaserTimerLocked()
	s.lesson = lesson
	s.shortcut = shortcut
	s.teaserStarted = false
	if shortcut {
		s.setStageLocked(StageLessonVideo)
		s.mu.Unlock()
		s.openPlayback(lesson)
		return
	}
	s.setStageLocked(StageTeaser)
	s.armTeaserTimerLocked()
	s.mu.Unlock()
}

// TeaserLoadingStarted reports that the intro clip began loading, which
// cancels the skip-ahead fallback.
func (s *Sequencer) TeaserLoadingStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageTeaser {
		return
	}
	s.teaserStarted = true
	s.stopTeaserTimerLocked()
}

// TeaserEnded advances teaser -> preview on the intro's natural end.
func (s *Sequencer) TeaserEnded() {
	s.mu.Lock()
	if s.stage != StageTeaser {
		s.mu.Unlock()
		return
	}
	s.stopTeaserTimerLocked()
	s.setStageLocked(StagePreview)
	s.mu.Unlock()
}

// StartLesson advances preview -> lesson_video. This is the only way into
// lesson_video outside the shortcut: metered content never autoplays.
func (s *Sequencer) StartLesson() {
	s.mu.Lock()
	if s.stage != StagePreview {
		s.mu.Unlock()
		return
	}
	lesson := s.lesson
	s.setStageLocked(StageLessonVideo)
	s.mu.Unlock()
	s.openPlayback(lesson)
}

// LessonEnded handles the playback manager's ended event: record the
// completion, then advance to the progress view.
func (s *Sequencer) LessonEnded() {
	s.mu.Lock()
	if s.stage != StageLessonVideo {
		s.mu.Unlock()
		return
	}
	lesson := s.lesson
	s.mu.Unlock()

	// Completion is applied before the stage flips so the progress view
	// renders from an already-updated completed set.
	if s.hooks.MarkCompleted != nil {
		s.hooks.MarkCompleted(lesson.ID, lesson.DurationMinutes)
	}

	s.mu.Lock()
	s.setStageLocked(StageProgress)
	s.mu.Unlock()
}

// PlaybackFailed routes a terminal playback failure back to the preview as
// the default view. The learner is never left on a dead end.
func (s *Sequencer) PlaybackFailed() {
	s.mu.Lock()
	if s.stage != StageLessonVideo {
		s.mu.Unlock()
		return
	}
	s.setStageLocked(StagePreview)
	s.mu.Unlock()
}

// Select re-enters the sequence for a different lesson. Only available
// lessons may be selected; clicks on locked or completed lessons are
// swallowed. Returns whether the selection took effect.
func (s *Sequencer) Select(lesson catalog.Lesson, status drip.Status) bool {
	if status != drip.StatusAvailable {
		s.logger.Debug().
			Str(log.FieldLessonID, string(lesson.ID)).
			Str("status", string(status)).
			Msg("selection ignored")
		return false
	}
	s.mu.Lock()
	shortcut := s.shortcut
	s.mu.Unlock()
	s.Begin(lesson, shortcut)
	return true
}

// Stage returns the current stage.
func (s *Sequencer) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Lesson returns the currently sequenced lesson.
func (s *Sequencer) Lesson() catalog.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lesson
}

// Close stops timers and tears down playback.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.stopTeaserTimerLocked()
	s.mu.Unlock()
	if s.hooks.ClosePlayback != nil {
		s.hooks.ClosePlayback()
	}
}

func (s *Sequencer) armTeaserTimerLocked() {
	if s.teaserFallback <= 0 {
		return
	}
	s.teaserTimer = s.timers(s.teaserFallback, s.teaserTimeout)
}

// teaserTimeout fires when the intro never began loading: skip it.
func (s *Sequencer) teaserTimeout() {
	s.mu.Lock()
	if s.stage != StageTeaser || s.teaserStarted {
		s.mu.Unlock()
		return
	}
	s.logger.Info().
		Str(log.FieldLessonID, string(s.lesson.ID)).
		Msg("teaser never started, skipping to preview")
	s.setStageLocked(StagePreview)
	s.mu.Unlock()
}

func (s *Sequencer) stopTeaserTimerLocked() {
	if s.teaserTimer != nil {
		s.teaserTimer.Stop()
		s.teaserTimer = nil
	}
}

func (s *Sequencer) setStageLocked(next Stage) {
	if s.stage == next {
		return
	}
	s.logger.Debug().
		Str(log.FieldOldState, string(s.stage)).
		Str(log.FieldNewState, string(next)).
		Str(log.FieldLessonID, string(s.lesson.ID)).
		Msg("stage transition")
	s.stage = next
}

func (s *Sequencer) openPlayback(lesson catalog.Lesson) {
	if s.hooks.OpenPlayback != nil {
		s.hooks.OpenPlayback(lesson)
	}
}
