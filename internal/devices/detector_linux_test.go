package devices

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// vidiocQuerycap must encode _IOR('V', 0, struct v4l2_capability):
// dir in bits 30-31, size in 16-29, type in 8-15, nr in 0-7.
func TestQuerycapIoctlEncoding(t *testing.T) {
	const iocRead = 2
	want := uintptr(iocRead)<<30 |
		unsafe.Sizeof(v4l2Capability{})<<16 |
		uintptr('V')<<8
	assert.Equal(t, want, uintptr(vidiocQuerycap))
}

func capNode(card, bus string, deviceCaps uint32) *v4l2Capability {
	caps := &v4l2Capability{Capabilities: v4l2CapDeviceCaps}
	caps.DeviceCaps = deviceCaps
	copy(caps.Card[:], card)
	copy(caps.BusInfo[:], bus)
	return caps
}

// A camera typically exposes a capture node followed by a metadata node
// on the same bus; a second camera then lands on a higher node number.
// The reported Index must be the node number, because capture opens
// /dev/video{Index}.
func TestAppendCameraNodeIndexesFollowDeviceNodes(t *testing.T) {
	seenBus := make(map[string]bool)
	var cams []LocalCamera

	cams = appendCameraNode(cams, seenBus, 0, capNode("Cam A", "usb-0000:00:14.0-1", v4l2CapVideoCapture))
	cams = appendCameraNode(cams, seenBus, 1, capNode("Cam A", "usb-0000:00:14.0-1", v4l2CapVideoCapture))
	cams = appendCameraNode(cams, seenBus, 2, capNode("Cam B", "usb-0000:00:14.0-2", v4l2CapVideoCapture))

	assert.Equal(t, []LocalCamera{{Index: 0, Name: "Cam A"}, {Index: 2, Name: "Cam B"}}, cams)
}

func TestAppendCameraNodeSkipsNonCaptureNodes(t *testing.T) {
	seenBus := make(map[string]bool)
	var cams []LocalCamera

	// Metadata node: device caps without VIDEO_CAPTURE.
	cams = appendCameraNode(cams, seenBus, 0, capNode("Cam A Metadata", "usb-0000:00:14.0-1", 0))
	assert.Empty(t, cams)

	cams = appendCameraNode(cams, seenBus, 1, capNode("Cam A", "usb-0000:00:14.0-1", v4l2CapVideoCapture))
	assert.Equal(t, []LocalCamera{{Index: 1, Name: "Cam A"}}, cams)
}
