package ingest

import (
	"bytes"
	"image"
	"image/jpeg"
)

// Target capture resolution. Frames are scaled down before any VLM call;
// the capture pipeline delivers them already at this size.
const (
	TargetWidth  = 640
	TargetHeight = 480
)

// Frame is one raw RGB24 video frame. Pix holds Width*Height*3 bytes in
// row-major R,G,B order.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// MeanAbsDiff is the mean absolute per-byte delta between two frames.
// Frames of different shape are never duplicates, reported as ok=false.
func MeanAbsDiff(a, b *Frame) (diff float64, ok bool) {
	if a == nil || b == nil || a.Width != b.Width || a.Height != b.Height || len(a.Pix) != len(b.Pix) {
		return 0, false
	}
	if len(a.Pix) == 0 {
		return 0, true
	}

	var sum uint64
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		sum += uint64(d)
	}
	return float64(sum) / float64(len(a.Pix)), true
}

// EncodeJPEG serializes the frame for transport to a VLM.
func (f *Frame) EncodeJPEG() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
