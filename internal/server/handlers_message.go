package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// sendMessage handles POST /session/{sessionID}/message. The response is an
// SSE stream of the turn's frames: token fragments, tool activity, then a
// terminal done or error frame.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req types.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message is required")
		return
	}

	frames, err := s.sessions.Message(r.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, types.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	sse.prepare()

	for frame := range frames {
		if err := sse.writeEvent("message", frame); err != nil {
			// Client went away; the turn keeps draining so session state
			// stays consistent.
			for range frames {
			}
			return
		}
	}
}
