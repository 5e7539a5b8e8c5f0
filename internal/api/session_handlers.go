package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Clamepending/videomemory-sub000/internal/data"
)

// Sessions are opaque to the engine; these endpoints exist for the
// external chat collaborator to persist its conversation index.

// GET /api/v1/sessions
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Sessions.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*data.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// POST /api/v1/sessions
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	sess := &data.Session{SessionID: req.SessionID, Title: req.Title}
	if err := s.Sessions.Save(r.Context(), sess); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// DELETE /api/v1/sessions/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
