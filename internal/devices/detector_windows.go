package devices

import (
	"context"
	"regexp"
	"strings"
)

// dshowLine matches entries like:
//
//	[dshow @ 0000021] "Integrated Webcam" (video)
var dshowLine = regexp.MustCompile(`\[dshow[^\]]*\]\s+"([^"]+)"\s+\(video\)`)

// DShowDetector lists cameras through ffmpeg's DirectShow input. DirectShow
// has no numeric addressing, so the capture index is the listing order.
type DShowDetector struct{}

func NewDetector() Detector { return &DShowDetector{} }

func (d *DShowDetector) Detect(ctx context.Context) ([]LocalCamera, error) {
	out, err := runDeviceListing(ctx, "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy")
	if err != nil {
		return nil, err
	}

	var cams []LocalCamera
	for _, line := range strings.Split(string(out), "\n") {
		m := dshowLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		cams = append(cams, LocalCamera{Index: len(cams), Name: strings.TrimSpace(m[1])})
	}
	return cams, nil
}
