package devices

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Clamepending/videomemory-sub000/internal/data"
)

// CameraRepository is the slice of the store the IOManager needs for
// network cameras.
type CameraRepository interface {
	Save(ctx context.Context, c *data.NetworkCamera) error
	Delete(ctx context.Context, ioID string) error
	LoadAll(ctx context.Context) ([]*data.NetworkCamera, error)
	NextIOID(ctx context.Context) (string, error)
}

// IOManager merges detected local cameras with persisted network cameras
// under one stable io_id namespace. Local io_ids are the decimal capture
// index; network io_ids are netN and survive restarts.
type IOManager struct {
	detector Detector
	repo     CameraRepository

	mu        sync.RWMutex
	local     map[string]Device
	network   map[string]Device
	lastError string
}

func NewIOManager(detector Detector, repo CameraRepository) *IOManager {
	return &IOManager{
		detector: detector,
		repo:     repo,
		local:    make(map[string]Device),
		network:  make(map[string]Device),
	}
}

// Load pulls persisted network cameras into the map. Called once at startup.
func (m *IOManager) Load(ctx context.Context) error {
	cams, err := m.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cams {
		m.network[c.IOID] = Device{
			IOID:     c.IOID,
			Category: "camera",
			Name:     c.Name,
			Source:   SourceNetwork,
			URL:      c.URL,
			PullURL:  c.PullURL,
		}
	}
	return nil
}

// Refresh re-enumerates local cameras. Removed devices drop from the map;
// a camera that reappears at the same capture index keeps its io_id.
// Network entries are untouched. Detection failure empties the local set
// and records the error without failing the call.
func (m *IOManager) Refresh(ctx context.Context) {
	cams, err := m.detector.Detect(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.local = make(map[string]Device)
	if err != nil {
		m.lastError = err.Error()
		log.Printf("[iomanager] local camera detection failed: %v", err)
		return
	}
	m.lastError = ""

	for _, c := range cams {
		ioID := strconv.Itoa(c.Index)
		m.local[ioID] = Device{
			IOID:     ioID,
			Category: "camera",
			Name:     c.Name,
			Source:   SourceLocal,
			Index:    c.Index,
		}
	}
}

// AddNetworkCamera persists a new stream source under the lowest unused
// netN id and derives its pull URL.
func (m *IOManager) AddNetworkCamera(ctx context.Context, rawURL, name string) (Device, error) {
	ioID, err := m.repo.NextIOID(ctx)
	if err != nil {
		return Device{}, err
	}
	if name == "" {
		name = fmt.Sprintf("Network Camera %s", ioID)
	}

	cam := &data.NetworkCamera{
		IOID:    ioID,
		Name:    name,
		URL:     rawURL,
		PullURL: DerivePullURL(rawURL),
	}
	if err := m.repo.Save(ctx, cam); err != nil {
		return Device{}, err
	}

	dev := Device{
		IOID:     ioID,
		Category: "camera",
		Name:     name,
		Source:   SourceNetwork,
		URL:      rawURL,
		PullURL:  cam.PullURL,
	}

	m.mu.Lock()
	m.network[ioID] = dev
	m.mu.Unlock()
	return dev, nil
}

// RemoveNetworkCamera deletes the row and drops the map entry. Returns
// false when the io_id is unknown.
func (m *IOManager) RemoveNetworkCamera(ctx context.Context, ioID string) bool {
	if err := m.repo.Delete(ctx, ioID); err != nil {
		return false
	}
	m.mu.Lock()
	delete(m.network, ioID)
	m.mu.Unlock()
	return true
}

// Get looks up a device by io_id without refreshing.
func (m *IOManager) Get(ioID string) (Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.local[ioID]; ok {
		return d, true
	}
	d, ok := m.network[ioID]
	return d, ok
}

// List returns all devices, local cameras first by capture index, then
// network cameras by io_id. Refreshes local enumeration unless skipped.
func (m *IOManager) List(ctx context.Context, skipRefresh bool) []Device {
	if !skipRefresh {
		m.Refresh(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Device, 0, len(m.local)+len(m.network))
	for _, d := range m.local {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	nets := make([]Device, 0, len(m.network))
	for _, d := range m.network {
		nets = append(nets, d)
	}
	sort.Slice(nets, func(i, j int) bool { return netOrdinal(nets[i].IOID) < netOrdinal(nets[j].IOID) })

	return append(out, nets...)
}

// netOrdinal extracts N from a netN id so net2 sorts before net10.
func netOrdinal(ioID string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(ioID, "net"))
	if err != nil {
		return math.MaxInt
	}
	return n
}

// LastError reports the most recent local detection failure, empty when
// the last refresh succeeded.
func (m *IOManager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}
