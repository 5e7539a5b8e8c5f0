package devices

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// avfLine matches entries like:
//
//	[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera
var avfLine = regexp.MustCompile(`\[AVFoundation[^\]]*\]\s+\[(\d+)\]\s+(.+)$`)

// AVFoundationDetector lists cameras through ffmpeg's avfoundation input.
// The video section of the listing runs until the audio section header.
type AVFoundationDetector struct{}

func NewDetector() Detector { return &AVFoundationDetector{} }

func (d *AVFoundationDetector) Detect(ctx context.Context) ([]LocalCamera, error) {
	out, err := runDeviceListing(ctx, "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	if err != nil {
		return nil, err
	}

	var cams []LocalCamera
	inVideo := false
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "video devices") {
			inVideo = true
			continue
		}
		if strings.Contains(line, "audio devices") {
			break
		}
		if !inVideo {
			continue
		}
		m := avfLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		name := strings.TrimSpace(m[2])
		// Screen capture pseudo-devices are not cameras.
		if strings.HasPrefix(name, "Capture screen") {
			continue
		}
		cams = append(cams, LocalCamera{Index: idx, Name: name})
	}
	return cams, nil
}
