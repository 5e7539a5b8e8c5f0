package ingest

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
)

// FrameSource is a capture handle owned exclusively by one ingestor.
// Read blocks until a frame arrives or the stream fails.
type FrameSource interface {
	Open(ctx context.Context) error
	Read() (*Frame, error)
	Close() error
}

// FFmpegSource decodes any input ffmpeg can open into raw RGB24 frames at
// the target resolution, read frame-by-frame off the pipe.
type FFmpegSource struct {
	inputArgs []string
	width     int
	height    int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
}

// NewLocalSource captures from a local camera by index. The device
// addressing is per-OS: v4l2 device nodes on Linux, avfoundation indexes
// on macOS, dshow names on Windows.
func NewLocalSource(index int, name string) *FFmpegSource {
	var args []string
	switch runtime.GOOS {
	case "darwin":
		args = []string{"-f", "avfoundation", "-framerate", "30", "-i", strconv.Itoa(index)}
	case "windows":
		args = []string{"-f", "dshow", "-i", "video=" + name}
	default:
		args = []string{"-f", "v4l2", "-i", fmt.Sprintf("/dev/video%d", index)}
	}
	return &FFmpegSource{inputArgs: args, width: TargetWidth, height: TargetHeight}
}

// NewNetworkSource captures from an RTSP pull URL. TCP transport avoids
// UDP packet loss artifacts that defeat frame dedupe.
func NewNetworkSource(pullURL string) *FFmpegSource {
	return &FFmpegSource{
		inputArgs: []string{"-rtsp_transport", "tcp", "-i", pullURL},
		width:     TargetWidth,
		height:    TargetHeight,
	}
}

func (s *FFmpegSource) Open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, s.inputArgs...)
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", s.width, s.height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.cancel = cancel
	return nil
}

func (s *FFmpegSource) Read() (*Frame, error) {
	if s.stdout == nil {
		return nil, fmt.Errorf("source not open")
	}
	pix := make([]byte, s.width*s.height*3)
	if _, err := io.ReadFull(s.stdout, pix); err != nil {
		return nil, err
	}
	return &Frame{Width: s.width, Height: s.height, Pix: pix}, nil
}

func (s *FFmpegSource) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cmd != nil {
		s.cmd.Wait()
		s.cmd = nil
	}
	s.stdout = nil
	return nil
}
