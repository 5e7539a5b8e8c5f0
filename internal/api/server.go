// Package api exposes the engine over HTTP: task lifecycle, device
// management, settings, previews, and a websocket detection stream.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clamepending/videomemory-sub000/internal/data"
	"github.com/Clamepending/videomemory-sub000/internal/devices"
	"github.com/Clamepending/videomemory-sub000/internal/events"
	"github.com/Clamepending/videomemory-sub000/internal/ingest"
	"github.com/Clamepending/videomemory-sub000/internal/tasks"
)

// TaskService is the manager surface the API consumes.
type TaskService interface {
	AddTask(ctx context.Context, ioID, desc string) (string, error)
	GetTask(taskID string) (*ingest.Task, bool)
	ListTasks(ioID string) []*ingest.Task
	StopTask(ctx context.Context, taskID string) error
	DeleteTask(ctx context.Context, taskID string) error
	EditTask(ctx context.Context, taskID, newDesc string) error
	ReloadModelProvider(ctx context.Context, model string) tasks.ReloadResult
	GetLatestFrameForDevice(ioID string) (*ingest.Frame, bool)
}

// DeviceService is the IOManager surface the API consumes.
type DeviceService interface {
	List(ctx context.Context, skipRefresh bool) []devices.Device
	AddNetworkCamera(ctx context.Context, url, name string) (devices.Device, error)
	RemoveNetworkCamera(ctx context.Context, ioID string) bool
	LastError() string
}

// SettingsRepository persists key/value settings.
type SettingsRepository interface {
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
}

// SessionRepository stores the opaque chat-session index.
type SessionRepository interface {
	Save(ctx context.Context, s *data.Session) error
	List(ctx context.Context) ([]*data.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type Server struct {
	Tasks    TaskService
	Devices  DeviceService
	Settings SettingsRepository
	Sessions SessionRepository
	Bus      *events.Bus
}

func NewServer(tasks TaskService, devs DeviceService, settings SettingsRepository, sessions SessionRepository, bus *events.Bus) *Server {
	return &Server{Tasks: tasks, Devices: devs, Settings: settings, Sessions: sessions, Bus: bus}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tasks", s.createTask)
		r.Get("/tasks", s.listTasks)
		r.Get("/tasks/{taskID}", s.getTask)
		r.Patch("/tasks/{taskID}", s.editTask)
		r.Post("/tasks/{taskID}/stop", s.stopTask)
		r.Delete("/tasks/{taskID}", s.deleteTask)

		r.Get("/devices", s.listDevices)
		r.Post("/devices/network", s.addNetworkCamera)
		r.Delete("/devices/network/{ioID}", s.removeNetworkCamera)
		r.Get("/devices/{ioID}/preview", s.devicePreview)

		r.Get("/settings", s.listSettings)
		r.Put("/settings/{key}", s.putSetting)
		r.Delete("/settings/{key}", s.deleteSetting)
		r.Post("/model/reload", s.reloadModel)

		r.Get("/sessions", s.listSessions)
		r.Post("/sessions", s.saveSession)
		r.Delete("/sessions/{sessionID}", s.deleteSession)

		r.Get("/events/ws", s.eventsWS)
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
