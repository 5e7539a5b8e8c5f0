// Package devices enumerates capture hardware and assigns stable io_ids.
// Local cameras come from OS-specific detection and carry their capture
// index as the id; network cameras are persisted rows named net0, net1, ...
package devices

import "context"

type Source string

const (
	SourceLocal   Source = "local"
	SourceNetwork Source = "network"
)

// Device is one addressable video input. URL and PullURL are set only for
// network sources; Index is meaningful only for local sources.
type Device struct {
	IOID     string `json:"io_id"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Source   Source `json:"source"`
	URL      string `json:"url,omitempty"`
	PullURL  string `json:"pull_url,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// LocalCamera is one detected capture device, ordered by capture index.
type LocalCamera struct {
	Index int
	Name  string
}

// Detector enumerates local cameras. Implementations are per-OS, have no
// side effects, and must return within the passed context's deadline; on
// failure they return an empty list and the error.
type Detector interface {
	Detect(ctx context.Context) ([]LocalCamera, error)
}
