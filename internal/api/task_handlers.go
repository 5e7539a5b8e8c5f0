package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clamepending/videomemory-sub000/internal/ingest"
)

// taskView flattens a runtime task for JSON.
type taskView struct {
	TaskID     string     `json:"task_id"`
	TaskNumber int        `json:"task_number"`
	TaskDesc   string     `json:"task_desc"`
	Done       bool       `json:"done"`
	IOID       string     `json:"io_id"`
	Status     string     `json:"status"`
	Notes      []noteView `json:"notes"`
}

type noteView struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func viewOf(t *ingest.Task) taskView {
	rec := t.Record()
	notes := make([]noteView, 0, len(rec.Notes))
	for _, n := range rec.Notes {
		notes = append(notes, noteView{Content: n.Content, Timestamp: n.Timestamp})
	}
	return taskView{
		TaskID:     rec.TaskID,
		TaskNumber: rec.TaskNumber,
		TaskDesc:   rec.TaskDesc,
		Done:       rec.Done,
		IOID:       rec.IOID,
		Status:     rec.Status,
		Notes:      notes,
	}
}

// POST /api/v1/tasks
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IOID     string `json:"io_id"`
		TaskDesc string `json:"task_desc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.TaskDesc) == "" {
		respondError(w, http.StatusBadRequest, "task_desc is required")
		return
	}

	id, err := s.Tasks.AddTask(r.Context(), req.IOID, req.TaskDesc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "success", "task_id": id})
}

// GET /api/v1/tasks?io_id=
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	list := s.Tasks.ListTasks(r.URL.Query().Get("io_id"))
	out := make([]taskView, 0, len(list))
	for _, t := range list {
		out = append(out, viewOf(t))
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /api/v1/tasks/{taskID}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.Tasks.GetTask(chi.URLParam(r, "taskID"))
	if !ok {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(t))
}

// PATCH /api/v1/tasks/{taskID}
func (s *Server) editTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskDesc string `json:"task_desc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.TaskDesc) == "" {
		respondError(w, http.StatusBadRequest, "task_desc is required")
		return
	}

	if err := s.Tasks.EditTask(r.Context(), chi.URLParam(r, "taskID"), req.TaskDesc); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// POST /api/v1/tasks/{taskID}/stop
func (s *Server) stopTask(w http.ResponseWriter, r *http.Request) {
	if err := s.Tasks.StopTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DELETE /api/v1/tasks/{taskID}
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.Tasks.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// POST /api/v1/model/reload
func (s *Server) reloadModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	// Body is optional; empty means reload from the environment.
	json.NewDecoder(r.Body).Decode(&req)

	res := s.Tasks.ReloadModelProvider(r.Context(), req.Model)
	respondJSON(w, http.StatusOK, res)
}
