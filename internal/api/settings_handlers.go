package api

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/Clamepending/videomemory-sub000/internal/config"
)

// GET /api/v1/settings
//
// Reports every recognized key: the stored value when present, otherwise
// the environment fallback. Sensitive values are masked to their last
// four characters.
func (s *Server) listSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := s.Settings.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make(map[string]string, len(config.RecognizedKeys))
	for _, key := range config.RecognizedKeys {
		val, ok := stored[key]
		if !ok {
			val = os.Getenv(key)
		}
		out[key] = config.MaskValue(key, val)
	}
	respondJSON(w, http.StatusOK, out)
}

// PUT /api/v1/settings/{key}
func (s *Server) putSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !config.IsRecognizedKey(key) {
		respondError(w, http.StatusBadRequest, "unrecognized setting key")
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.Settings.Set(r.Context(), key, req.Value); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Keep the process environment in sync so provider construction sees
	// the new value immediately.
	os.Setenv(key, req.Value)
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DELETE /api/v1/settings/{key}
func (s *Server) deleteSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.Settings.Delete(r.Context(), key); err != nil {
		respondError(w, http.StatusNotFound, "setting not found")
		return
	}
	os.Unsetenv(key)
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
