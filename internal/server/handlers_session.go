package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamchat-ai/streamchat/internal/eventlog"
	"github.com/streamchat-ai/streamchat/internal/summary"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status    string        `json:"status"`
	Sessions  int           `json:"sessions"`
	Summaries summary.Stats `json:"summaries"`
}

// CreateSessionRequest is the POST /session body. Both fields are optional:
// a missing session ID is generated, a missing user ID defaults to the
// session ID.
type CreateSessionRequest struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	active := 0
	for _, sess := range s.sessions.List() {
		if sess.Phase == types.PhaseActive {
			active++
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Sessions:  active,
		Summaries: s.summaries.Stats(),
	})
}

// createSession handles POST /session.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
			return
		}
	}

	sess, err := s.sessions.Open(r.Context(), req.SessionID, req.UserID)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateSession) {
			writeError(w, http.StatusConflict, ErrCodeDuplicateSession, "session already open")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// listSessions handles GET /session.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()
	if sessions == nil {
		sessions = []types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// getSession handles GET /session/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// closeSession handles DELETE /session/{sessionID}. The close is idempotent,
// so repeating the delete or deleting an unknown session both succeed.
func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sessions.Close(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// getSummary handles GET /session/{sessionID}/summary.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	stored, err := s.log.Summary(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, eventlog.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "no summary for session")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stored)
}
