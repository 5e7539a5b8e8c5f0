// Command devices enumerates the cameras the engine can see: locally
// attached capture devices plus any network cameras persisted in the
// store. Useful for picking an io_id before creating tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Clamepending/videomemory-sub000/internal/data"
	"github.com/Clamepending/videomemory-sub000/internal/devices"
	"github.com/Clamepending/videomemory-sub000/internal/platform/paths"
)

func main() {
	localOnly := flag.Bool("local-only", false, "skip the store, list detected local cameras only")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo devices.CameraRepository = noopRepo{}
	if !*localOnly {
		db, err := data.Open(paths.ResolveDBPath())
		if err != nil {
			log.Printf("store unavailable (%v), listing local cameras only", err)
		} else {
			defer db.Close()
			repo = data.NetworkCameraModel{DB: db}
		}
	}

	iom := devices.NewIOManager(devices.NewDetector(), repo)
	if err := iom.Load(ctx); err != nil {
		log.Fatalf("loading network cameras: %v", err)
	}

	devs := iom.List(ctx, false)
	if lastErr := iom.LastError(); lastErr != "" {
		fmt.Fprintf(os.Stderr, "local camera detection failed: %s\n", lastErr)
	}
	if len(devs) == 0 {
		fmt.Println("no devices found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IO_ID\tSOURCE\tNAME\tURL")
	for _, d := range devs {
		url := d.URL
		if d.Source == devices.SourceNetwork && d.PullURL != "" {
			url = d.PullURL
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.IOID, d.Source, d.Name, url)
	}
	w.Flush()
}

type noopRepo struct{}

func (noopRepo) Save(ctx context.Context, c *data.NetworkCamera) error { return nil }
func (noopRepo) Delete(ctx context.Context, ioID string) error        { return nil }
func (noopRepo) LoadAll(ctx context.Context) ([]*data.NetworkCamera, error) {
	return nil, nil
}
func (noopRepo) NextIOID(ctx context.Context) (string, error) { return "net0", nil }
