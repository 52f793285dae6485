package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/log"
	"github.com/oakfit/coursecast/internal/playback"
	"github.com/oakfit/coursecast/internal/viewer"
)

type createSessionRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	StartNow bool   `json:"start_now"`
}

func (s *Server) defaultOpen(ctx context.Context, cfg viewer.Config, userID, courseID string, startNow bool) (*viewer.Session, error) {
	return viewer.Open(ctx, cfg, catalog.UserID(userID), catalog.CourseID(courseID), startNow)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "user_id and course_id are required")
		return
	}

	sess, err := s.openSession(r.Context(), s.viewerCfg, req.UserID, req.CourseID, req.StartNow)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		switch {
		case errors.Is(err, viewer.ErrNoActivePurchase):
			writeError(w, http.StatusForbidden, "no active purchase for course")
		case errors.Is(err, viewer.ErrLoadTimeout):
			logger.Warn().Err(err).Msg("viewer load timed out")
			writeError(w, http.StatusGatewayTimeout, "course load timed out")
		default:
			logger.Error().Err(err).Msg("viewer session open failed")
			writeError(w, http.StatusBadGateway, "course data unavailable")
		}
		return
	}

	s.registry.Add(sess)
	writeJSON(w, http.StatusCreated, sess.State())
}

// session resolves the path session or writes 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*viewer.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.registry.Get(id)
	if !ok {
		writeNotFound(w)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.registry.Remove(id) {
		writeNotFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	LessonID string `json:"lesson_id"`
}

type selectResponse struct {
	Accepted bool         `json:"accepted"`
	State    viewer.State `json:"state"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LessonID == "" {
		writeError(w, http.StatusBadRequest, "lesson_id is required")
		return
	}

	// A click on a locked or unknown lesson is swallowed, never an error.
	accepted := sess.Select(catalog.LessonID(req.LessonID))
	writeJSON(w, http.StatusOK, selectResponse{Accepted: accepted, State: sess.State()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.StartLesson()
	writeJSON(w, http.StatusOK, sess.State())
}

type eventRequest struct {
	// Type is one of teaser_ended, playback_ended, engine_error.
	Type   string `json:"type"`
	Code   string `json:"code,omitempty"`
	Fatal  bool   `json:"fatal,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Type {
	case "teaser_ended", "playback_ended":
		sess.NotifyEnded()
	case "engine_error":
		if req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required for engine_error")
			return
		}
		sess.HandleEngineEvent(playback.EngineEvent{
			Kind: playback.EngineFailure,
			Err: &playback.EngineError{
				Code:   playback.ErrorCode(req.Code),
				Fatal:  req.Fatal,
				Detail: req.Detail,
			},
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	writeJSON(w, http.StatusOK, sess.State())
}
