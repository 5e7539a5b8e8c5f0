package devices

import (
	"context"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	maxVideoNodes       = 64
	v4l2CapVideoCapture = 0x00000001
	v4l2CapDeviceCaps   = 0x80000000

	// _IOR('V', 0, struct v4l2_capability); x/sys/unix does not define
	// the V4L2 ioctl numbers.
	vidiocQuerycap = 0x80685600
)

// v4l2Capability mirrors struct v4l2_capability from <linux/videodev2.h>.
type v4l2Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

// V4L2Detector enumerates /dev/video* nodes via VIDIOC_QUERYCAP. Cameras
// usually expose several nodes (capture plus metadata); only the first
// capture-capable node per physical device is reported.
type V4L2Detector struct{}

func NewDetector() Detector { return &V4L2Detector{} }

func (d *V4L2Detector) Detect(ctx context.Context) ([]LocalCamera, error) {
	var cams []LocalCamera
	seenBus := make(map[string]bool)

	for n := 0; n < maxVideoNodes; n++ {
		if err := ctx.Err(); err != nil {
			return cams, err
		}

		caps, err := queryCap(fmt.Sprintf("/dev/video%d", n))
		if err != nil {
			continue
		}
		cams = appendCameraNode(cams, seenBus, n, caps)
	}
	return cams, nil
}

// appendCameraNode keeps a probed node when it is capture-capable and its
// bus has not been seen yet. Index is the device node number: capture
// opens /dev/video{Index}, so it must never be a position in the filtered
// list.
func appendCameraNode(cams []LocalCamera, seenBus map[string]bool, node int, caps *v4l2Capability) []LocalCamera {
	effective := caps.Capabilities
	if caps.Capabilities&v4l2CapDeviceCaps != 0 {
		effective = caps.DeviceCaps
	}
	if effective&v4l2CapVideoCapture == 0 {
		return cams
	}

	bus := cString(caps.BusInfo[:])
	if bus != "" && seenBus[bus] {
		return cams
	}
	seenBus[bus] = true

	name := cString(caps.Card[:])
	if name == "" {
		name = fmt.Sprintf("/dev/video%d", node)
	}
	return append(cams, LocalCamera{Index: node, Name: name})
}

func queryCap(path string) (*v4l2Capability, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	var caps v4l2Capability
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(vidiocQuerycap), uintptr(unsafe.Pointer(&caps)))
	if errno != 0 {
		return nil, errno
	}
	return &caps, nil
}

func cString(b []byte) string {
	if idx := strings.IndexByte(string(b), 0); idx >= 0 {
		return string(b[:idx])
	}
	return string(b)
}
