package ingest

import (
	"sync"
	"time"

	"github.com/Clamepending/videomemory-sub000/internal/provider"
)

const historyCapacity = 20

// Output is one committed inference result: what the model said, the
// frame that prompted it, and the prompt that framed it.
type Output struct {
	TaskUpdates   []provider.TaskUpdate
	SystemActions []provider.SystemAction
	Frame         *Frame
	Prompt        string
	Timestamp     time.Time
}

// historyRing keeps the last historyCapacity outputs plus a lifetime
// count. Old entries are overwritten in place.
type historyRing struct {
	mu    sync.RWMutex
	buf   []*Output
	next  int
	total uint64
}

func newHistoryRing() *historyRing {
	return &historyRing{buf: make([]*Output, 0, historyCapacity)}
}

func (r *historyRing) push(o *Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) < historyCapacity {
		r.buf = append(r.buf, o)
	} else {
		r.buf[r.next] = o
	}
	r.next = (r.next + 1) % historyCapacity
	r.total++
}

// latest returns the most recently pushed output.
func (r *historyRing) latest() (*Output, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.buf) == 0 {
		return nil, false
	}
	idx := (r.next - 1 + historyCapacity) % historyCapacity
	if idx >= len(r.buf) {
		idx = len(r.buf) - 1
	}
	return r.buf[idx], true
}

// all returns outputs oldest-first.
func (r *historyRing) all() []*Output {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Output, 0, len(r.buf))
	if len(r.buf) < historyCapacity {
		out = append(out, r.buf...)
		return out
	}
	for i := 0; i < historyCapacity; i++ {
		out = append(out, r.buf[(r.next+i)%historyCapacity])
	}
	return out
}

func (r *historyRing) count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
