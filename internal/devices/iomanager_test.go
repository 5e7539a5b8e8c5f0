package devices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Clamepending/videomemory-sub000/internal/data"
)

type fakeDetector struct {
	cams []LocalCamera
	err  error
}

func (d *fakeDetector) Detect(ctx context.Context) ([]LocalCamera, error) {
	return d.cams, d.err
}

type fakeCameraRepo struct {
	cams map[string]*data.NetworkCamera
}

func newFakeCameraRepo() *fakeCameraRepo {
	return &fakeCameraRepo{cams: make(map[string]*data.NetworkCamera)}
}

func (r *fakeCameraRepo) Save(ctx context.Context, c *data.NetworkCamera) error {
	r.cams[c.IOID] = c
	return nil
}

func (r *fakeCameraRepo) Delete(ctx context.Context, ioID string) error {
	if _, ok := r.cams[ioID]; !ok {
		return data.ErrRecordNotFound
	}
	delete(r.cams, ioID)
	return nil
}

func (r *fakeCameraRepo) LoadAll(ctx context.Context) ([]*data.NetworkCamera, error) {
	var out []*data.NetworkCamera
	for _, c := range r.cams {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCameraRepo) NextIOID(ctx context.Context) (string, error) {
	for n := 0; ; n++ {
		id := fmt.Sprintf("net%d", n)
		if _, ok := r.cams[id]; !ok {
			return id, nil
		}
	}
}

func TestRefreshAssignsIndexIOIDs(t *testing.T) {
	det := &fakeDetector{cams: []LocalCamera{{0, "Integrated Webcam"}, {1, "USB Camera"}}}
	m := NewIOManager(det, newFakeCameraRepo())

	m.Refresh(context.Background())

	d, ok := m.Get("0")
	assert.True(t, ok)
	assert.Equal(t, "Integrated Webcam", d.Name)
	assert.Equal(t, SourceLocal, d.Source)
	assert.Equal(t, "camera", d.Category)

	d, ok = m.Get("1")
	assert.True(t, ok)
	assert.Equal(t, "USB Camera", d.Name)
}

func TestRefreshDropsRemovedLocalDevices(t *testing.T) {
	det := &fakeDetector{cams: []LocalCamera{{0, "Cam A"}, {1, "Cam B"}}}
	m := NewIOManager(det, newFakeCameraRepo())
	m.Refresh(context.Background())

	det.cams = []LocalCamera{{0, "Cam A"}}
	m.Refresh(context.Background())

	_, ok := m.Get("1")
	assert.False(t, ok)
	d, ok := m.Get("0")
	assert.True(t, ok)
	assert.Equal(t, "Cam A", d.Name)
}

func TestRefreshDetectionFailureRecordsLastError(t *testing.T) {
	det := &fakeDetector{err: errors.New("ffmpeg not found")}
	m := NewIOManager(det, newFakeCameraRepo())

	m.Refresh(context.Background())

	assert.Equal(t, "ffmpeg not found", m.LastError())
	assert.Empty(t, m.List(context.Background(), true))
}

func TestAddNetworkCameraDerivesPullURL(t *testing.T) {
	m := NewIOManager(&fakeDetector{}, newFakeCameraRepo())

	dev, err := m.AddNetworkCamera(context.Background(), "srt://cam.local:8890?streamid=publish:live/front", "Front Door")
	assert.NoError(t, err)
	assert.Equal(t, "net0", dev.IOID)
	assert.Equal(t, SourceNetwork, dev.Source)
	assert.Equal(t, "rtsp://cam.local:8554/live/front", dev.PullURL)

	got, ok := m.Get("net0")
	assert.True(t, ok)
	assert.Equal(t, "Front Door", got.Name)
}

func TestAddNetworkCameraDefaultName(t *testing.T) {
	m := NewIOManager(&fakeDetector{}, newFakeCameraRepo())

	dev, err := m.AddNetworkCamera(context.Background(), "rtsp://cam.local:554/s", "")
	assert.NoError(t, err)
	assert.Equal(t, "Network Camera net0", dev.Name)
}

func TestRemoveNetworkCamera(t *testing.T) {
	m := NewIOManager(&fakeDetector{}, newFakeCameraRepo())
	_, err := m.AddNetworkCamera(context.Background(), "rtsp://cam.local:554/s", "Cam")
	assert.NoError(t, err)

	assert.True(t, m.RemoveNetworkCamera(context.Background(), "net0"))
	_, ok := m.Get("net0")
	assert.False(t, ok)

	assert.False(t, m.RemoveNetworkCamera(context.Background(), "net0"))
}

func TestListOrdersLocalThenNetwork(t *testing.T) {
	det := &fakeDetector{cams: []LocalCamera{{1, "Cam B"}, {0, "Cam A"}}}
	m := NewIOManager(det, newFakeCameraRepo())
	_, err := m.AddNetworkCamera(context.Background(), "rtsp://a/s", "Net A")
	assert.NoError(t, err)

	devs := m.List(context.Background(), false)
	assert.Len(t, devs, 3)
	assert.Equal(t, "0", devs[0].IOID)
	assert.Equal(t, "1", devs[1].IOID)
	assert.Equal(t, "net0", devs[2].IOID)
}

func TestListOrdersNetworkCamerasNumerically(t *testing.T) {
	repo := newFakeCameraRepo()
	for _, id := range []string{"net10", "net2", "net1"} {
		repo.cams[id] = &data.NetworkCamera{IOID: id, Name: id, URL: "rtsp://cam/" + id}
	}

	m := NewIOManager(&fakeDetector{}, repo)
	assert.NoError(t, m.Load(context.Background()))

	devs := m.List(context.Background(), true)
	assert.Len(t, devs, 3)
	assert.Equal(t, "net1", devs[0].IOID)
	assert.Equal(t, "net2", devs[1].IOID)
	assert.Equal(t, "net10", devs[2].IOID)
}

func TestIOIDStableAcrossRefreshes(t *testing.T) {
	det := &fakeDetector{cams: []LocalCamera{{0, "Cam A"}}}
	m := NewIOManager(det, newFakeCameraRepo())

	for i := 0; i < 3; i++ {
		m.Refresh(context.Background())
		d, ok := m.Get("0")
		assert.True(t, ok, "refresh %d", i)
		assert.Equal(t, strconv.Itoa(0), d.IOID)
	}
}

func TestLoadRestoresPersistedNetworkCameras(t *testing.T) {
	repo := newFakeCameraRepo()
	repo.cams["net2"] = &data.NetworkCamera{
		IOID:    "net2",
		Name:    "Garage",
		URL:     "rtmp://cam.local:1935/garage",
		PullURL: "rtsp://cam.local:8554/garage",
	}

	m := NewIOManager(&fakeDetector{}, repo)
	assert.NoError(t, m.Load(context.Background()))

	d, ok := m.Get("net2")
	assert.True(t, ok)
	assert.Equal(t, "Garage", d.Name)
	assert.True(t, strings.HasPrefix(d.PullURL, "rtsp://"))
}
