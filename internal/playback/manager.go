package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/log"
)

// maxNetworkReloads bounds manifest reloads after a network-class fatal error.
const maxNetworkReloads = 1

// maxMediaRecoveries bounds one-shot media recovery attempts.
const maxMediaRecoveries = 1

// Listener receives the manager's event surface. Nil callbacks are skipped.
// The manager performs no persistence itself; Ended side effects belong to
// the caller.
type Listener struct {
	LoadingStarted func(catalog.LessonID)
	Ready          func(catalog.LessonID)
	Ended          func(catalog.LessonID)
	Fatal          func(catalog.LessonID, FatalKind, string)
}

// session is the ephemeral, in-memory playback state. Owned exclusively by
// the Manager and replaced whenever the selected lesson changes.
type session struct {
	lesson          catalog.Lesson
	manifestURL     string
	engine          Engine
	state           SessionState
	netReloads      int
	mediaRecoveries int
	endedFired      bool
}

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	LessonID    catalog.LessonID `json:"lesson_id"`
	State       SessionState     `json:"state"`
	ManifestURL string           `json:"manifest_url"`
	Engine      string           `json:"engine"`
}

// Manager owns at most one live playback session. Open implicitly closes the
// prior session; concurrent sessions pointed at the same rendering target are
// a correctness bug.
type Manager struct {
	streamHost string
	factory    Factory
	listener   Listener
	logger     zerolog.Logger

	mu  sync.Mutex
	cur *session
}

// NewManager builds a Manager for the given canonical stream host.
func NewManager(streamHost string, factory Factory, listener Listener) *Manager {
	return &Manager{
		streamHost: streamHost,
		factory:    factory,
		listener:   listener,
		logger:     log.WithComponent("playback"),
	}
}

// Open starts a playback session for the lesson. A prior session is closed
// first. Open never returns an error to the caller: unusable references and
// unsupported targets are logged and surfaced via the Fatal listener.
func (m *Manager) Open(ctx context.Context, lesson catalog.Lesson) {
	_ = m.Close()

	manifestURL, err := ResolveManifestURL(lesson.VideoRef, m.streamHost)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str(log.FieldLessonID, string(lesson.ID)).
			Str(log.FieldVideoRef, lesson.VideoRef).
			Msg("no usable playback reference")
		fatalTotal.WithLabelValues(string(KindNoReference)).Inc()
		m.fireFatal(lesson.ID, KindNoReference, err.Error())
		return
	}

	engine, ok := m.selectEngine()
	if !ok {
		m.logger.Error().
			Str(log.FieldLessonID, string(lesson.ID)).
			Msg("no supported streaming engine for playback target")
		fatalTotal.WithLabelValues(string(KindUnsupported)).Inc()
		m.fireFatal(lesson.ID, KindUnsupported, "adaptive streaming not supported")
		return
	}

	s := &session{
		lesson:      lesson,
		manifestURL: manifestURL,
		engine:      engine,
		state:       SessionNew,
	}

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()

	sessionsOpenedTotal.WithLabelValues(engine.Name()).Inc()
	m.logger.Info().
		Str(log.FieldLessonID, string(lesson.ID)).
		Str(log.FieldManifestURL, manifestURL).
		Str(log.FieldEngine, engine.Name()).
		Msg("playback session opened")

	m.load(ctx, s)
}

func (m *Manager) selectEngine() (Engine, bool) {
	if e, ok := m.factory.Native(); ok {
		return e, true
	}
	if e, ok := m.factory.Software(); ok {
		return e, true
	}
	return nil, false
}

func (m *Manager) load(ctx context.Context, s *session) {
	sink := func(ev EngineEvent) { m.handleEngineEvent(ctx, s, ev) }
	if err := s.engine.Load(ctx, s.manifestURL, sink); err != nil {
		m.logger.Error().Err(err).
			Str(log.FieldLessonID, string(s.lesson.ID)).
			Msg("engine load failed")
		m.fail(s, KindInternal, err.Error())
	}
}

// NotifyEnded reports the playback target's natural end-of-stream signal.
func (m *Manager) NotifyEnded() {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return
	}
	m.finishEnded(s)
}

// HandleEngineEvent feeds an externally observed engine event into the
// manager, e.g. from a player callback relayed over the API.
func (m *Manager) HandleEngineEvent(ctx context.Context, ev EngineEvent) {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return
	}
	m.handleEngineEvent(ctx, s, ev)
}

func (m *Manager) handleEngineEvent(ctx context.Context, s *session, ev EngineEvent) {
	switch ev.Kind {
	case EngineLoading:
		if m.transition(s, EvLoadingStarted) {
			m.fire(m.listener.LoadingStarted, s.lesson.ID)
		}
	case EngineReady:
		if m.transition(s, EvReady) {
			m.fire(m.listener.Ready, s.lesson.ID)
		}
	case EngineEnded:
		m.finishEnded(s)
	case EngineFailure:
		if ev.Err == nil {
			return
		}
		m.handleError(ctx, s, *ev.Err)
	}
}

func (m *Manager) handleError(ctx context.Context, s *session, e EngineError) {
	class := Classify(e)
	switch class {
	case ClassTransient:
		transientErrorsTotal.WithLabelValues(string(e.Code)).Inc()
		m.logger.Debug().
			Str(log.FieldLessonID, string(s.lesson.ID)).
			Str(log.FieldErrorClass, string(class)).
			Str("code", string(e.Code)).
			Msg("transient engine error ignored")

	case ClassNetwork:
		m.mu.Lock()
		retry := m.cur == s && s.netReloads < maxNetworkReloads
		if retry {
			s.netReloads++
			retry = m.transitionLocked(s, EvReload)
		}
		m.mu.Unlock()
		if retry {
			recoveriesTotal.WithLabelValues(string(ClassNetwork)).Inc()
			m.logger.Warn().
				Str(log.FieldLessonID, string(s.lesson.ID)).
				Str("code", string(e.Code)).
				Msg("network error, reloading manifest")
			m.load(ctx, s)
			return
		}
		m.fail(s, KindNetwork, e.Detail)

	case ClassMedia:
		m.mu.Lock()
		attempt := m.cur == s && s.mediaRecoveries < maxMediaRecoveries
		if attempt {
			s.mediaRecoveries++
		}
		m.mu.Unlock()
		if attempt {
			recoveriesTotal.WithLabelValues(string(ClassMedia)).Inc()
			m.logger.Warn().
				Str(log.FieldLessonID, string(s.lesson.ID)).
				Str("code", string(e.Code)).
				Msg("media error, attempting recovery")
			if err := s.engine.RecoverMedia(ctx); err == nil {
				return
			}
		}
		m.fail(s, KindMedia, e.Detail)

	default:
		m.fail(s, KindInternal, e.Detail)
	}
}

func (m *Manager) finishEnded(s *session) {
	m.mu.Lock()
	if m.cur != s || s.endedFired {
		m.mu.Unlock()
		return
	}
	if !m.transitionLocked(s, EvEnded) {
		m.mu.Unlock()
		return
	}
	s.endedFired = true
	m.mu.Unlock()

	sessionsEndedTotal.Inc()
	m.logger.Info().
		Str(log.FieldLessonID, string(s.lesson.ID)).
		Msg("playback ended")
	m.fire(m.listener.Ended, s.lesson.ID)
}

func (m *Manager) fail(s *session, kind FatalKind, detail string) {
	m.mu.Lock()
	if m.cur != s || s.state.IsTerminal() {
		m.mu.Unlock()
		return
	}
	m.transitionLocked(s, EvFatal)
	m.mu.Unlock()

	_ = s.engine.Close()
	fatalTotal.WithLabelValues(string(kind)).Inc()
	m.logger.Error().
		Str(log.FieldLessonID, string(s.lesson.ID)).
		Str("kind", string(kind)).
		Str("detail", detail).
		Msg("playback session failed")
	if m.listener.Fatal != nil {
		m.listener.Fatal(s.lesson.ID, kind, detail)
	}
}

// Close deterministically tears down the current session. Safe to call when
// no session is open, and safe to call repeatedly.
func (m *Manager) Close() error {
	m.mu.Lock()
	s := m.cur
	if s != nil {
		m.transitionLocked(s, EvClose)
	}
	m.cur = nil
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	err := s.engine.Close()
	m.logger.Debug().
		Str(log.FieldLessonID, string(s.lesson.ID)).
		Msg("playback session closed")
	return err
}

// Snapshot returns the current session view, or nil when none is open.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil
	}
	return &Snapshot{
		LessonID:    m.cur.lesson.ID,
		State:       m.cur.state,
		ManifestURL: m.cur.manifestURL,
		Engine:      m.cur.engine.Name(),
	}
}

// transition applies ev to s under the lock and reports whether it was legal.
func (m *Manager) transition(s *session, ev EventKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != s {
		return false
	}
	return m.transitionLocked(s, ev)
}

func (m *Manager) transitionLocked(s *session, ev EventKind) bool {
	tr, ok := TransitionFor(s.state, ev)
	if !ok {
		m.logger.Debug().
			Str(log.FieldOldState, string(s.state)).
			Str("event", string(ev)).
			Msg("illegal session transition ignored")
		return false
	}
	stateTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	s.state = tr.To
	return true
}

func (m *Manager) fire(fn func(catalog.LessonID), id catalog.LessonID) {
	if fn != nil {
		fn(id)
	}
}

func (m *Manager) fireFatal(id catalog.LessonID, kind FatalKind, detail string) {
	if m.listener.Fatal != nil {
		m.listener.Fatal(id, kind, detail)
	}
}
