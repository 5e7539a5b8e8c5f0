// Package tasks owns the task ledger and arbitrates ingestor lifetimes:
// one running engine per camera that has at least one active task.
package tasks

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Clamepending/videomemory-sub000/internal/data"
	"github.com/Clamepending/videomemory-sub000/internal/devices"
	"github.com/Clamepending/videomemory-sub000/internal/ingest"
	"github.com/Clamepending/videomemory-sub000/internal/provider"
)

// TaskRepository is the slice of the store the manager persists through.
type TaskRepository interface {
	Save(ctx context.Context, t *data.Task) error
	UpdateDone(ctx context.Context, taskID string, done bool, status string) error
	UpdateDesc(ctx context.Context, taskID, desc string) error
	Delete(ctx context.Context, taskID string) error
	SaveNote(ctx context.Context, taskID string, n data.NoteEntry) error
	LoadAll(ctx context.Context) ([]*data.Task, error)
	NextTaskID(ctx context.Context) (string, error)
	TerminateActive(ctx context.Context) (int, error)
}

// DeviceRegistry resolves io_ids to devices.
type DeviceRegistry interface {
	Get(ioID string) (devices.Device, bool)
	Refresh(ctx context.Context)
}

// ProviderFactory builds model providers by name or from the environment.
type ProviderFactory interface {
	New(ctx context.Context, model string) (provider.ModelProvider, error)
	FromEnv(ctx context.Context) (provider.ModelProvider, error)
}

// SourceFactory builds the capture source for a device. Injected so tests
// can substitute synthetic sources.
type SourceFactory func(dev devices.Device) (src ingest.FrameSource, isNetwork bool)

// DefaultSourceFactory captures network devices over their pull URL and
// local devices by index.
func DefaultSourceFactory(dev devices.Device) (ingest.FrameSource, bool) {
	if dev.Source == devices.SourceNetwork {
		url := dev.PullURL
		if url == "" {
			url = dev.URL
		}
		return ingest.NewNetworkSource(url), true
	}
	return ingest.NewLocalSource(dev.Index, dev.Name), false
}

// DetectionHook receives every new note an ingestor produces. Hook
// failures are isolated and logged, never propagated.
type DetectionHook func(t *ingest.Task, note data.NoteEntry)

// ReloadResult reports a provider reload. Reload never fails outward;
// problems land in Error and FailedIngestors.
type ReloadResult struct {
	ProviderClass    string   `json:"provider_class"`
	UpdatedIngestors int      `json:"updated_ingestors"`
	FailedIngestors  []string `json:"failed_ingestors"`
	Error            string   `json:"error,omitempty"`
}

type Manager struct {
	repo      TaskRepository
	devs      DeviceRegistry
	factory   ProviderFactory
	sink      ingest.ActionSink
	newSource SourceFactory

	mu        sync.RWMutex
	tasks     map[string]*ingest.Task
	ingestors map[string]*ingest.Ingestor
	prov      provider.ModelProvider
	hooks     []DetectionHook
}

func NewManager(repo TaskRepository, devs DeviceRegistry, factory ProviderFactory, sink ingest.ActionSink, newSource SourceFactory) *Manager {
	if newSource == nil {
		newSource = DefaultSourceFactory
	}
	return &Manager{
		repo:      repo,
		devs:      devs,
		factory:   factory,
		sink:      sink,
		newSource: newSource,
		tasks:     make(map[string]*ingest.Task),
		ingestors: make(map[string]*ingest.Ingestor),
	}
}

// Startup terminates rows left active by a previous run, loads the ledger
// into memory, and builds the configured provider. Terminated tasks stay
// visible but get no ingestor.
func (m *Manager) Startup(ctx context.Context) error {
	n, err := m.repo.TerminateActive(ctx)
	if err != nil {
		return fmt.Errorf("terminating stale tasks: %w", err)
	}
	if n > 0 {
		log.Printf("[taskmanager] marked %d interrupted tasks as terminated", n)
	}

	recs, err := m.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	m.mu.Lock()
	for _, rec := range recs {
		m.tasks[rec.TaskID] = ingest.FromRecord(rec)
	}
	m.mu.Unlock()
	log.Printf("[taskmanager] loaded %d tasks", len(recs))

	prov, err := m.factory.FromEnv(ctx)
	if err != nil {
		log.Printf("[taskmanager] model provider unavailable at startup: %v", err)
		return nil
	}
	m.mu.Lock()
	m.prov = prov
	m.mu.Unlock()
	log.Printf("[taskmanager] model provider: %s", prov.Name())
	return nil
}

// AddDetectionHook subscribes to new notes. Not safe to call after
// ingestors are producing output concurrently with other mutations of the
// hook list; register hooks during wiring.
func (m *Manager) AddDetectionHook(h DetectionHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, h)
	m.mu.Unlock()
}

// AddTask validates the device, persists a new active task, and hands it
// to the camera's ingestor, creating the engine on first use.
func (m *Manager) AddTask(ctx context.Context, ioID, desc string) (string, error) {
	dev, ok := m.devs.Get(ioID)
	if !ok {
		m.devs.Refresh(ctx)
		dev, ok = m.devs.Get(ioID)
	}
	if !ok {
		return "", fmt.Errorf("unknown device %q", ioID)
	}
	if dev.Category != "camera" {
		return "", fmt.Errorf("device %q is not a camera", ioID)
	}

	id, err := m.repo.NextTaskID(ctx)
	if err != nil {
		return "", err
	}

	rec := &data.Task{
		TaskID:   id,
		TaskDesc: desc,
		IOID:     ioID,
		Status:   data.TaskStatusActive,
	}
	if err := m.repo.Save(ctx, rec); err != nil {
		return "", err
	}

	task := ingest.NewTask(id, ioID, desc, data.TaskStatusActive)

	m.mu.Lock()
	m.tasks[id] = task
	ing, exists := m.ingestors[dev.IOID]
	if !exists {
		src, isNetwork := m.newSource(dev)
		ing = ingest.New(dev.IOID, src, isNetwork, m.prov, m.sink, m.onTaskUpdated)
		m.ingestors[dev.IOID] = ing
	}
	m.mu.Unlock()

	ing.AddTask(task)
	return id, nil
}

func (m *Manager) GetTask(taskID string) (*ingest.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[taskID]
	return t, ok
}

// ListTasks returns tasks, optionally filtered by io_id, ordered by
// numeric task id.
func (m *Manager) ListTasks(ioID string) []*ingest.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ingest.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if ioID == "" || t.IOID == ioID {
			out = append(out, t)
		}
	}
	sortTasksByID(out)
	return out
}

// StopTask removes the task from its ingestor and marks it done, keeping
// the row and its notes visible. Stopping an already-stopped task errors.
func (m *Manager) StopTask(ctx context.Context, taskID string) error {
	m.mu.RLock()
	task, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}
	if task.Done() {
		return fmt.Errorf("task %q already stopped", taskID)
	}

	m.detachFromIngestor(task)
	task.SetDone(true, data.TaskStatusDone)
	return m.repo.UpdateDone(ctx, taskID, true, data.TaskStatusDone)
}

// DeleteTask removes the task entirely, notes included.
func (m *Manager) DeleteTask(ctx context.Context, taskID string) error {
	m.mu.RLock()
	task, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}

	m.detachFromIngestor(task)

	if err := m.repo.Delete(ctx, taskID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.tasks, taskID)
	m.mu.Unlock()
	return nil
}

// detachFromIngestor pulls the task out of its engine and tears the
// engine down when no tasks remain. The map entry is removed under the
// lock so a concurrent AddTask gets a fresh engine instead of a dying
// one; Stop itself runs unlocked because it can block for seconds.
func (m *Manager) detachFromIngestor(task *ingest.Task) {
	m.mu.Lock()
	ing, ok := m.ingestors[task.IOID]
	if !ok {
		m.mu.Unlock()
		return
	}

	ing.RemoveTask(task.Desc())
	if ing.TaskCount() > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.ingestors, task.IOID)
	m.mu.Unlock()

	ing.Stop()
}

// UpdateTaskStatus flips the done flag directly. Rarely used; StopTask is
// the normal path.
func (m *Manager) UpdateTaskStatus(ctx context.Context, taskID string, done bool) error {
	m.mu.RLock()
	task, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}

	status := data.TaskStatusActive
	if done {
		status = data.TaskStatusDone
	}
	task.SetDone(done, status)
	return m.repo.UpdateDone(ctx, taskID, done, status)
}

// EditTask rewrites the description in the store and in the live object;
// the ingestor sees the change through the shared reference.
func (m *Manager) EditTask(ctx context.Context, taskID, newDesc string) error {
	m.mu.RLock()
	task, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}

	if err := m.repo.UpdateDesc(ctx, taskID, newDesc); err != nil {
		return err
	}
	task.SetDesc(newDesc)
	return nil
}

// ReloadModelProvider builds a new provider (from the environment when
// model is empty) and hot-swaps it into every running ingestor.
func (m *Manager) ReloadModelProvider(ctx context.Context, model string) ReloadResult {
	var (
		prov provider.ModelProvider
		err  error
	)
	if model == "" {
		prov, err = m.factory.FromEnv(ctx)
	} else {
		prov, err = m.factory.New(ctx, model)
	}

	if err != nil {
		m.mu.RLock()
		failed := make([]string, 0, len(m.ingestors))
		for ioID := range m.ingestors {
			failed = append(failed, ioID)
		}
		m.mu.RUnlock()
		log.Printf("[taskmanager] provider reload failed: %v", err)
		return ReloadResult{FailedIngestors: failed, Error: err.Error()}
	}

	m.mu.Lock()
	m.prov = prov
	ings := make([]*ingest.Ingestor, 0, len(m.ingestors))
	for _, ing := range m.ingestors {
		ings = append(ings, ing)
	}
	m.mu.Unlock()

	for _, ing := range ings {
		ing.SetModelProvider(prov)
	}
	log.Printf("[taskmanager] provider reloaded: %s (%d ingestors updated)", prov.Name(), len(ings))
	return ReloadResult{ProviderClass: prov.Name(), UpdatedIngestors: len(ings)}
}

// GetLatestFrameForDevice passes through to the device's ingestor.
func (m *Manager) GetLatestFrameForDevice(ioID string) (*ingest.Frame, bool) {
	m.mu.RLock()
	ing, ok := m.ingestors[ioID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	f := ing.LatestFrame()
	return f, f != nil
}

// Ingestor exposes the running engine for an io_id, if any.
func (m *Manager) Ingestor(ioID string) (*ingest.Ingestor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ing, ok := m.ingestors[ioID]
	return ing, ok
}

// Shutdown stops every running ingestor.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ings := make([]*ingest.Ingestor, 0, len(m.ingestors))
	for _, ing := range m.ingestors {
		ings = append(ings, ing)
	}
	m.ingestors = make(map[string]*ingest.Ingestor)
	m.mu.Unlock()

	for _, ing := range ings {
		ing.Stop()
	}
}

// onTaskUpdated persists what the ingestor applied in memory, then fans
// the note out to detection hooks. Runs on the capture worker.
func (m *Manager) onTaskUpdated(task *ingest.Task, note *data.NoteEntry) {
	ctx := context.Background()

	if note != nil {
		if err := m.repo.SaveNote(ctx, task.ID, *note); err != nil {
			log.Printf("[taskmanager] persisting note for task %s failed: %v", task.ID, err)
		}
	}
	if task.Done() {
		if err := m.repo.UpdateDone(ctx, task.ID, true, data.TaskStatusDone); err != nil {
			log.Printf("[taskmanager] persisting done flag for task %s failed: %v", task.ID, err)
		}
		// The engine must not outlive its last active task. Teardown
		// cannot run on the capture worker itself: Stop waits for it.
		go m.detachFromIngestor(task)
	}

	if note == nil {
		return
	}
	m.mu.RLock()
	hooks := make([]DetectionHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[taskmanager] detection hook panicked: %v", r)
				}
			}()
			h(task, *note)
		}()
	}
}
