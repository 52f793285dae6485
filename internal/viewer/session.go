// Package viewer orchestrates the student content viewer: purchase
// resolution, drip scheduling, the presentation sequence and the playback
// session for one user and course.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/drip"
	"github.com/oakfit/coursecast/internal/log"
	"github.com/oakfit/coursecast/internal/playback"
	"github.com/oakfit/coursecast/internal/progress"
	"github.com/oakfit/coursecast/internal/sequence"
)

// teaserLessonID marks the playback session carrying the intro clip rather
// than lesson content.
const teaserLessonID catalog.LessonID = "__teaser__"

var (
	// ErrNoActivePurchase means the user holds no active purchase for the course.
	ErrNoActivePurchase = errors.New("no active purchase")
	// ErrLoadTimeout means purchase/course resolution exceeded the bounded
	// load timeout and the viewer force-exited instead of hanging.
	ErrLoadTimeout = errors.New("viewer load timed out")
)

// Store is the hosted data store surface the viewer needs.
// *catalog.Client satisfies this.
type Store interface {
	PurchasesByUser(ctx context.Context, userID catalog.UserID) ([]catalog.Purchase, error)
	Course(ctx context.Context, courseID catalog.CourseID) (catalog.Course, error)
	MarkCompleted(ctx context.Context, write catalog.CompletionWrite) error
}

// Config carries the per-session wiring.
type Config struct {
	Store       Store
	Journal     *progress.Journal // optional
	Clock       drip.Clock
	Engines     playback.Factory
	StreamHost  string
	TeaserRef   string
	TeaserWait  time.Duration
	LoadTimeout time.Duration
	// ReconcileInterval > 0 starts a background completion reconciler for
	// the session's lifetime.
	ReconcileInterval time.Duration
	// Timers overrides the sequencer's timer factory in tests.
	Timers sequence.TimerFactory
}

// Session is one user's viewer for one course.
type Session struct {
	ID       string
	UserID   catalog.UserID
	CourseID catalog.CourseID

	cfg      Config
	purchase catalog.Purchase
	course   catalog.Course
	tracker  *progress.Tracker
	pb       *playback.Manager
	seq      *sequence.Sequencer
	logger   zerolog.Logger

	// ctx scopes playback I/O to the session lifetime; cancelled on Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	lastAccess time.Time
	closed     bool
}

// Open resolves the purchase and course (bounded by LoadTimeout) and starts
// the presentation sequence. startNow skips teaser and preview.
func Open(ctx context.Context, cfg Config, userID catalog.UserID, courseID catalog.CourseID, startNow bool) (*Session, error) {
	if cfg.Clock == nil {
		cfg.Clock = drip.SystemClock{}
	}

	loadCtx := ctx
	if cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
	}

	purchases, err := cfg.Store.PurchasesByUser(loadCtx, userID)
	if err != nil {
		return nil, loadErr("resolve purchases", err)
	}
	purchase, ok := catalog.EffectivePurchase(purchases)
	if !ok || purchase.CourseID != courseID {
		return nil, ErrNoActivePurchase
	}

	course, err := cfg.Store.Course(loadCtx, courseID)
	if err != nil {
		return nil, loadErr("resolve course", err)
	}

	sctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		CourseID: courseID,
		cfg:      cfg,
		purchase: purchase,
		course:   course,
		ctx:      sctx,
		cancel:   cancel,
	}
	s.logger = log.Derive(func(c *zerolog.Context) {
		*c = (*c).
			Str(log.FieldComponent, "viewer").
			Str(log.FieldSessionID, s.ID).
			Str(log.FieldUserID, string(userID)).
			Str(log.FieldCourseID, string(courseID))
	})

	s.tracker = progress.NewTracker(purchase.ID, courseID, cfg.Store, cfg.Journal)
	s.tracker.Seed(sctx, purchase.CompletedLessonIDs)

	if cfg.ReconcileInterval > 0 {
		rec := &progress.Reconciler{
			Tracker:    s.tracker,
			Reader:     cfg.Store,
			UserID:     userID,
			PurchaseID: purchase.ID,
			Interval:   cfg.ReconcileInterval,
		}
		go rec.Run(sctx)
	}

	s.pb = playback.NewManager(cfg.StreamHost, cfg.Engines, playback.Listener{
		LoadingStarted: s.onPlaybackLoading,
		Ended:          s.onPlaybackEnded,
		Fatal:          s.onPlaybackFatal,
	})

	hooks := sequence.Hooks{
		OpenPlayback:  s.openLessonPlayback,
		ClosePlayback: func() { _ = s.pb.Close() },
		MarkCompleted: s.markCompleted,
	}
	opts := []sequence.Option{}
	if cfg.Timers != nil {
		opts = append(opts, sequence.WithTimerFactory(cfg.Timers))
	}
	s.seq = sequence.New(cfg.TeaserWait, hooks, opts...)

	s.touch()
	s.begin(startNow)
	return s, nil
}

func loadErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrLoadTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// begin selects today's lesson from the scheduler - never from the rendered
// status list - and enters the sequence.
func (s *Session) begin(startNow bool) {
	start, ok := s.purchase.EffectiveStart()
	if !ok {
		s.logger.Warn().Msg("purchase has no usable start date, nothing unlockable")
		return
	}
	idx, ok := drip.AvailableLessonIndex(start, s.cfg.Clock.Now(), len(s.course.Lessons))
	if !ok {
		s.logger.Info().Msg("course not started or empty, nothing unlockable")
		return
	}

	lesson := s.course.Lessons[idx]
	s.logger.Info().
		Int(log.FieldLessonIndex, idx).
		Str(log.FieldLessonID, string(lesson.ID)).
		Bool("start_now", startNow).
		Msg("viewer session started")

	s.seq.Begin(lesson, startNow)
	if s.seq.Stage() == sequence.StageTeaser && s.cfg.TeaserRef != "" {
		s.pb.Open(s.ctx, catalog.Lesson{ID: teaserLessonID, VideoRef: s.cfg.TeaserRef})
	}
}

func (s *Session) openLessonPlayback(lesson catalog.Lesson) {
	s.pb.Open(s.ctx, lesson)
}

func (s *Session) markCompleted(lessonID catalog.LessonID, watchedMinutes int) {
	s.tracker.MarkCompleted(s.ctx, lessonID, watchedMinutes)
}

func (s *Session) onPlaybackLoading(id catalog.LessonID) {
	if id == teaserLessonID {
		s.seq.TeaserLoadingStarted()
	}
}

func (s *Session) onPlaybackEnded(id catalog.LessonID) {
	if id == teaserLessonID {
		s.seq.TeaserEnded()
		return
	}
	s.seq.LessonEnded()
}

func (s *Session) onPlaybackFatal(id catalog.LessonID, kind playback.FatalKind, detail string) {
	if id == teaserLessonID {
		// A broken intro is never user-visible; skip straight to preview.
		s.seq.TeaserEnded()
		return
	}
	s.logger.Warn().
		Str(log.FieldLessonID, string(id)).
		Str("kind", string(kind)).
		Str("detail", detail).
		Msg("lesson playback unavailable")
	s.seq.PlaybackFailed()
}

// daysDiff recomputes the day offset from the current clock.
func (s *Session) daysDiff() (int, bool) {
	start, ok := s.purchase.EffectiveStart()
	if !ok {
		return 0, false
	}
	return drip.DaysSince(start, s.cfg.Clock.Now()), true
}

// Select re-enters the sequence for a different lesson. The click is
// swallowed unless the lesson's freshly derived status is available.
func (s *Session) Select(lessonID catalog.LessonID) bool {
	s.touch()

	idx, ok := s.course.LessonIndex(lessonID)
	if !ok {
		return false
	}
	diff, ok := s.daysDiff()
	if !ok {
		return false
	}

	status := drip.StatusFor(idx, diff, lessonID, s.tracker.Completed())
	if !s.seq.Select(s.course.Lessons[idx], status) {
		return false
	}
	if s.seq.Stage() == sequence.StageTeaser && s.cfg.TeaserRef != "" {
		s.pb.Open(s.ctx, catalog.Lesson{ID: teaserLessonID, VideoRef: s.cfg.TeaserRef})
	}
	return true
}

// StartLesson is the explicit user action advancing preview -> lesson_video.
func (s *Session) StartLesson() {
	s.touch()
	s.seq.StartLesson()
}

// NotifyEnded reports the playback target's end-of-stream signal.
func (s *Session) NotifyEnded() {
	s.touch()
	s.pb.NotifyEnded()
}

// HandleEngineEvent relays a player-side engine event into the session.
func (s *Session) HandleEngineEvent(ev playback.EngineEvent) {
	s.touch()
	s.pb.HandleEngineEvent(s.ctx, ev)
}

// LessonStatus is one sidebar entry.
type LessonStatus struct {
	LessonID catalog.LessonID `json:"lesson_id"`
	Title    string           `json:"title"`
	Status   drip.Status      `json:"status"`
}

// State is a point-in-time view of the session. Statuses are derived fresh
// from the clock on every call.
type State struct {
	SessionID      string             `json:"session_id"`
	UserID         catalog.UserID     `json:"user_id"`
	CourseID       catalog.CourseID   `json:"course_id"`
	Stage          sequence.Stage     `json:"stage"`
	SelectedLesson catalog.LessonID   `json:"selected_lesson,omitempty"`
	Lessons        []LessonStatus     `json:"lessons"`
	CompletedCount int                `json:"completed_count"`
	LessonCount    int                `json:"lesson_count"`
	Playback       *playback.Snapshot `json:"playback,omitempty"`
}

// State derives the current viewer state.
func (s *Session) State() State {
	completed := s.tracker.Completed()

	diff := -1
	if d, ok := s.daysDiff(); ok {
		diff = d
	}
	statuses := drip.Statuses(s.course.Lessons, diff, completed)

	lessons := make([]LessonStatus, len(s.course.Lessons))
	done := 0
	for i, l := range s.course.Lessons {
		lessons[i] = LessonStatus{LessonID: l.ID, Title: l.Title, Status: statuses[i]}
		if statuses[i] == drip.StatusCompleted {
			done++
		}
	}

	st := State{
		SessionID:      s.ID,
		UserID:         s.UserID,
		CourseID:       s.CourseID,
		Stage:          s.seq.Stage(),
		Lessons:        lessons,
		CompletedCount: done,
		LessonCount:    len(s.course.Lessons),
		Playback:       s.pb.Snapshot(),
	}
	if sel := s.seq.Lesson(); sel.ID != "" {
		st.SelectedLesson = sel.ID
	}
	return st
}

// Tracker exposes the completion tracker for reconciliation wiring.
func (s *Session) Tracker() *progress.Tracker {
	return s.tracker
}

// Purchase returns the effective purchase backing this session.
func (s *Session) Purchase() catalog.Purchase {
	return s.purchase
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = s.cfg.Clock.Now()
	s.mu.Unlock()
}

// LastAccess returns when the session was last driven by a request.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Close tears the session down: sequencer timers, playback engine, context.
// Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.seq.Close()
	_ = s.pb.Close()
	s.cancel()
	s.logger.Info().Msg("viewer session closed")
}
