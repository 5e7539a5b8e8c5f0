// Package ingest implements the per-camera observation engine: a capture
// loop that dedupes frames, runs VLM inference over the active tasks, and
// applies the structured results.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Clamepending/videomemory-sub000/internal/data"
	"github.com/Clamepending/videomemory-sub000/internal/metrics"
	"github.com/Clamepending/videomemory-sub000/internal/provider"
)

const (
	dedupeThreshold           = 3.0
	warmupReads               = 5
	localReconnectThreshold   = 10
	networkReconnectThreshold = 30
	reconnectBackoff          = 2 * time.Second
	readRetrySleep            = 100 * time.Millisecond
	dedupeSleep               = 100 * time.Millisecond
	actionPollTimeout         = 500 * time.Millisecond
	shutdownWait              = 5 * time.Second
	inferTimeout              = 20 * time.Second
	actionQueueSize           = 64
)

// ActionSink consumes action strings produced by inference. Dispatch may
// block; the action worker calls it off the capture path.
type ActionSink interface {
	Dispatch(ctx context.Context, ioID, action string)
}

// TaskUpdateFunc is invoked after a task update is applied in memory so
// the caller can persist the note and done flag. A nil note means only
// the done flag changed.
type TaskUpdateFunc func(t *Task, note *data.NoteEntry)

// Ingestor runs the capture-and-reason loop for one camera. It owns the
// capture handle exclusively for its lifetime.
type Ingestor struct {
	ioID      string
	source    FrameSource
	isNetwork bool
	sink      ActionSink
	onUpdate  TaskUpdateFunc

	mu            sync.RWMutex
	tasks         []*Task
	prov          provider.ModelProvider
	latestFrame   *Frame
	lastProcessed *Frame
	framesRead    uint64
	framesSkipped uint64
	running       bool
	quit          chan struct{}
	wg            sync.WaitGroup

	history *historyRing
	actions chan string
}

// New builds an idle ingestor. Start (or the first AddTask) brings the
// capture loop up.
func New(ioID string, source FrameSource, isNetwork bool, prov provider.ModelProvider, sink ActionSink, onUpdate TaskUpdateFunc) *Ingestor {
	return &Ingestor{
		ioID:      ioID,
		source:    source,
		isNetwork: isNetwork,
		sink:      sink,
		onUpdate:  onUpdate,
		prov:      prov,
		history:   newHistoryRing(),
		actions:   make(chan string, actionQueueSize),
	}
}

func (ing *Ingestor) IOID() string { return ing.ioID }

// AddTask appends the task to the shared list, numbering it after the
// existing tasks, and starts the engine if it is idle.
func (ing *Ingestor) AddTask(t *Task) {
	ing.mu.Lock()
	t.setNumber(len(ing.tasks))
	ing.tasks = append(ing.tasks, t)
	ing.mu.Unlock()

	ing.Start()
}

// RemoveTask drops the task matching the description and renumbers the
// remainder contiguously from zero. Unknown descriptions log and no-op.
func (ing *Ingestor) RemoveTask(desc string) {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	idx := -1
	for i, t := range ing.tasks {
		if t.Desc() == desc {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Printf("[ingestor %s] remove_task: no task with desc %q", ing.ioID, desc)
		return
	}

	ing.tasks = append(ing.tasks[:idx], ing.tasks[idx+1:]...)
	for i, t := range ing.tasks {
		t.setNumber(i)
	}
}

// pruneDoneTasks drops completed tasks from the shared list so they stop
// appearing in prompts, renumbering the rest contiguously. The manager
// tears the engine down when none remain.
func (ing *Ingestor) pruneDoneTasks() {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	kept := make([]*Task, 0, len(ing.tasks))
	for _, t := range ing.tasks {
		if !t.Done() {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(ing.tasks) {
		return
	}
	ing.tasks = kept
	for i, t := range ing.tasks {
		t.setNumber(i)
	}
}

// EditTask rewrites a task description in place, preserving its notes.
func (ing *Ingestor) EditTask(oldDesc, newDesc string) bool {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	for _, t := range ing.tasks {
		if t.Desc() == oldDesc {
			t.SetDesc(newDesc)
			return true
		}
	}
	return false
}

// SetModelProvider hot-swaps the provider. The next inference uses it; an
// in-flight call finishes on the old one.
func (ing *Ingestor) SetModelProvider(p provider.ModelProvider) {
	ing.mu.Lock()
	ing.prov = p
	ing.mu.Unlock()
}

func (ing *Ingestor) currentProvider() provider.ModelProvider {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	return ing.prov
}

// Tasks returns a snapshot of the shared task list.
func (ing *Ingestor) Tasks() []*Task {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	out := make([]*Task, len(ing.tasks))
	copy(out, ing.tasks)
	return out
}

func (ing *Ingestor) TaskCount() int {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	return len(ing.tasks)
}

func (ing *Ingestor) LatestOutput() (*Output, bool) { return ing.history.latest() }
func (ing *Ingestor) OutputHistory() []*Output      { return ing.history.all() }
func (ing *Ingestor) TotalOutputCount() uint64      { return ing.history.count() }

// LatestFrame returns a copy of the most recently captured frame,
// including black frames, for preview consumers.
func (ing *Ingestor) LatestFrame() *Frame {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	return ing.latestFrame.Clone()
}

func (ing *Ingestor) FramesSkipped() uint64 {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	return ing.framesSkipped
}

// Start brings up the capture and action workers. Idempotent.
func (ing *Ingestor) Start() {
	ing.mu.Lock()
	if ing.running {
		ing.mu.Unlock()
		return
	}
	ing.running = true
	ing.quit = make(chan struct{})
	quit := ing.quit
	ing.mu.Unlock()

	metrics.ActiveIngestors.Inc()
	ing.wg.Add(2)
	go ing.captureLoop(quit)
	go ing.actionLoop(quit)
	log.Printf("[ingestor %s] started", ing.ioID)
}

// Stop shuts the workers down cooperatively, waiting up to shutdownWait
// before discarding them, then drains the action queue. Idempotent.
func (ing *Ingestor) Stop() {
	ing.mu.Lock()
	if !ing.running {
		ing.mu.Unlock()
		return
	}
	ing.running = false
	close(ing.quit)
	ing.mu.Unlock()

	// Closing the source unblocks a capture worker stuck in Read.
	ing.source.Close()

	done := make(chan struct{})
	go func() {
		ing.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownWait):
		log.Printf("[ingestor %s] workers did not stop within %s, discarding", ing.ioID, shutdownWait)
	}

	discarded := 0
	for {
		select {
		case <-ing.actions:
			discarded++
		default:
			if discarded > 0 {
				log.Printf("[ingestor %s] discarded %d queued actions on shutdown", ing.ioID, discarded)
			}
			metrics.ActiveIngestors.Dec()
			log.Printf("[ingestor %s] stopped", ing.ioID)
			return
		}
	}
}

func (ing *Ingestor) stopped(quit chan struct{}) bool {
	select {
	case <-quit:
		return true
	default:
		return false
	}
}

// sleep waits for d or until shutdown, whichever comes first.
func (ing *Ingestor) sleep(quit chan struct{}, d time.Duration) {
	select {
	case <-quit:
	case <-time.After(d):
	}
}

func (ing *Ingestor) reconnectThreshold() int {
	if ing.isNetwork {
		return networkReconnectThreshold
	}
	return localReconnectThreshold
}

// openAndWarm opens the capture handle and discards the first few frames
// so auto-exposure settles. A connection failure is surfaced as a note on
// every task before returning.
func (ing *Ingestor) openAndWarm(quit chan struct{}) bool {
	ctx := context.Background()
	if err := ing.source.Open(ctx); err != nil {
		log.Printf("[ingestor %s] capture open failed: %v", ing.ioID, err)
		ing.noteConnectionError(err)
		return false
	}
	for i := 0; i < warmupReads; i++ {
		if ing.stopped(quit) {
			return false
		}
		ing.source.Read()
	}
	return true
}

func (ing *Ingestor) noteConnectionError(err error) {
	msg := fmt.Sprintf("camera connection error: %v", err)
	for _, t := range ing.Tasks() {
		note := t.AppendNote(msg)
		if ing.onUpdate != nil {
			ing.onUpdate(t, &note)
		}
	}
}

func (ing *Ingestor) captureLoop(quit chan struct{}) {
	defer ing.wg.Done()

	for !ing.openAndWarm(quit) {
		if ing.stopped(quit) {
			return
		}
		ing.sleep(quit, reconnectBackoff)
	}

	failures := 0
	for {
		if ing.stopped(quit) {
			return
		}

		frame, err := ing.source.Read()
		if err != nil {
			failures++
			if failures >= ing.reconnectThreshold() {
				log.Printf("[ingestor %s] %d consecutive read failures, reconnecting", ing.ioID, failures)
				metrics.ReconnectsTotal.Inc()
				ing.source.Close()
				ing.sleep(quit, reconnectBackoff)
				for !ing.stopped(quit) && !ing.openAndWarm(quit) {
					ing.sleep(quit, reconnectBackoff)
				}
				failures = 0
				continue
			}
			ing.sleep(quit, readRetrySleep)
			continue
		}
		failures = 0
		metrics.FramesReadTotal.Inc()

		ing.mu.Lock()
		ing.framesRead++
		ing.latestFrame = frame
		last := ing.lastProcessed
		ing.mu.Unlock()

		if diff, ok := MeanAbsDiff(frame, last); ok && diff < dedupeThreshold {
			ing.mu.Lock()
			ing.framesSkipped++
			ing.mu.Unlock()
			metrics.FramesDedupedTotal.Inc()
			ing.sleep(quit, dedupeSleep)
			continue
		}

		tasks := ing.Tasks()
		if len(tasks) == 0 {
			ing.sleep(quit, dedupeSleep)
			continue
		}

		prompt := BuildPrompt(tasks)
		jpeg, err := frame.EncodeJPEG()
		if err != nil {
			log.Printf("[ingestor %s] jpeg encode failed: %v", ing.ioID, err)
			continue
		}

		out, err := ing.infer(quit, jpeg, prompt)
		if err != nil {
			// A failed call skips the frame; the loop state is untouched
			// so the next frame is still compared against the last frame
			// that actually produced output.
			continue
		}

		ing.apply(out, frame, prompt)
	}
}

// infer runs one VLM call with a deadline, canceling early on shutdown.
func (ing *Ingestor) infer(quit chan struct{}, jpeg []byte, prompt string) (*provider.IngestorOutput, error) {
	prov := ing.currentProvider()
	if prov == nil {
		return nil, fmt.Errorf("no model provider configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), inferTimeout)
	defer cancel()
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	out, err := prov.Generate(ctx, provider.Request{ImageJPEG: jpeg, Prompt: prompt})
	elapsed := time.Since(start)
	metrics.RecordInferenceLatency(prov.Name(), float64(elapsed.Milliseconds()))

	if err != nil {
		kind := provider.KindOf(err)
		metrics.RecordInference(prov.Name(), string(kind))
		log.Printf("[ingestor %s] inference failed (%s) after %s: %v", ing.ioID, kind, elapsed.Round(time.Millisecond), err)
		return nil, err
	}
	metrics.RecordInference(prov.Name(), "ok")
	return out, nil
}

// apply commits one inference result: notes first, then actions, then the
// history entry, so an action never fires before the note motivating it
// is visible.
func (ing *Ingestor) apply(out *provider.IngestorOutput, frame *Frame, prompt string) {
	tasks := ing.Tasks()
	byNumber := make(map[int]*Task, len(tasks))
	for _, t := range tasks {
		byNumber[t.Number()] = t
	}

	completed := false
	for _, upd := range out.TaskUpdates {
		t, ok := byNumber[upd.TaskNumber]
		if !ok {
			// The task may have been removed while inference was in
			// flight.
			continue
		}
		var note *data.NoteEntry
		if upd.TaskNote != "" {
			entry := t.AppendNote(upd.TaskNote)
			note = &entry
		}
		if upd.TaskDone {
			t.SetDone(true, data.TaskStatusDone)
			completed = true
		}
		if ing.onUpdate != nil && (note != nil || upd.TaskDone) {
			ing.onUpdate(t, note)
		}
	}
	if completed {
		ing.pruneDoneTasks()
	}

	for _, act := range out.SystemActions {
		select {
		case ing.actions <- act.TakeAction:
		default:
			log.Printf("[ingestor %s] action queue full, dropping %q", ing.ioID, act.TakeAction)
		}
	}

	ing.history.push(&Output{
		TaskUpdates:   out.TaskUpdates,
		SystemActions: out.SystemActions,
		Frame:         frame.Clone(),
		Prompt:        prompt,
		Timestamp:     time.Now(),
	})

	ing.mu.Lock()
	ing.lastProcessed = frame
	ing.mu.Unlock()
}

// actionLoop hands queued actions to the sink. The poll timeout exists
// only to re-check the shutdown flag.
func (ing *Ingestor) actionLoop(quit chan struct{}) {
	defer ing.wg.Done()
	for {
		select {
		case <-quit:
			return
		case action := <-ing.actions:
			if ing.sink != nil {
				ing.sink.Dispatch(context.Background(), ing.ioID, action)
			}
		case <-time.After(actionPollTimeout):
		}
	}
}
