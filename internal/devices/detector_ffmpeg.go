package devices

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

const listBudget = 2 * time.Second

// runDeviceListing shells out to ffmpeg's device-listing mode and returns
// its stderr, where ffmpeg prints the device table. The listing invocation
// always exits non-zero (there is no real input), so the exit code is
// ignored as long as output was produced.
func runDeviceListing(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, listBudget)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		return stderr.Bytes(), nil
	}
	return nil, err
}
