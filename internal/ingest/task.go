package ingest

import (
	"sync"
	"time"

	"github.com/Clamepending/videomemory-sub000/internal/data"
)

// Task is the in-memory runtime form of an observation task, shared
// between the manager and one ingestor. All mutable fields are guarded;
// notes are append-only so readers always see a consistent prefix.
type Task struct {
	ID   string
	IOID string

	mu     sync.RWMutex
	number int
	desc   string
	done   bool
	status string
	notes  []data.NoteEntry
}

func NewTask(id, ioID, desc, status string) *Task {
	return &Task{ID: id, IOID: ioID, desc: desc, status: status}
}

// FromRecord rebuilds a runtime task from its persisted row.
func FromRecord(rec *data.Task) *Task {
	t := NewTask(rec.TaskID, rec.IOID, rec.TaskDesc, rec.Status)
	t.number = rec.TaskNumber
	t.done = rec.Done
	t.notes = append(t.notes, rec.Notes...)
	return t
}

func (t *Task) Number() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.number
}

func (t *Task) setNumber(n int) {
	t.mu.Lock()
	t.number = n
	t.mu.Unlock()
}

func (t *Task) Desc() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.desc
}

func (t *Task) SetDesc(desc string) {
	t.mu.Lock()
	t.desc = desc
	t.mu.Unlock()
}

func (t *Task) Done() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}

func (t *Task) SetDone(done bool, status string) {
	t.mu.Lock()
	t.done = done
	t.status = status
	t.mu.Unlock()
}

func (t *Task) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// AppendNote records a new observation and returns the entry written.
func (t *Task) AppendNote(content string) data.NoteEntry {
	entry := data.NoteEntry{Content: content, Timestamp: time.Now().Unix()}
	t.mu.Lock()
	t.notes = append(t.notes, entry)
	t.mu.Unlock()
	return entry
}

// Notes returns a copy of the note list in insertion order.
func (t *Task) Notes() []data.NoteEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]data.NoteEntry, len(t.notes))
	copy(out, t.notes)
	return out
}

// LatestNote returns the most recent entry, if any.
func (t *Task) LatestNote() (data.NoteEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.notes) == 0 {
		return data.NoteEntry{}, false
	}
	return t.notes[len(t.notes)-1], true
}

// Record snapshots the task into its persisted form.
func (t *Task) Record() *data.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	notes := make([]data.NoteEntry, len(t.notes))
	copy(notes, t.notes)
	return &data.Task{
		TaskID:     t.ID,
		TaskNumber: t.number,
		TaskDesc:   t.desc,
		Done:       t.done,
		IOID:       t.IOID,
		Status:     t.status,
		Notes:      notes,
	}
}
