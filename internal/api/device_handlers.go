package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GET /api/v1/devices?skip_refresh=true
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	skip := r.URL.Query().Get("skip_refresh") == "true"
	devs := s.Devices.List(r.Context(), skip)

	resp := map[string]any{"devices": devs}
	if lastErr := s.Devices.LastError(); lastErr != "" {
		resp["detection_error"] = lastErr
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/devices/network
func (s *Server) addNetworkCamera(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	dev, err := s.Devices.AddNetworkCamera(r.Context(), req.URL, req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, dev)
}

// DELETE /api/v1/devices/network/{ioID}
func (s *Server) removeNetworkCamera(w http.ResponseWriter, r *http.Request) {
	if !s.Devices.RemoveNetworkCamera(r.Context(), chi.URLParam(r, "ioID")) {
		respondError(w, http.StatusNotFound, "network camera not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// GET /api/v1/devices/{ioID}/preview
//
// Returns the latest captured frame as JPEG. 404 until the device's
// ingestor has read at least one frame.
func (s *Server) devicePreview(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.Tasks.GetLatestFrameForDevice(chi.URLParam(r, "ioID"))
	if !ok {
		respondError(w, http.StatusNotFound, "no frame available")
		return
	}

	jpg, err := frame.EncodeJPEG()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(jpg)
}
