package tasks

import (
	"sort"
	"strconv"

	"github.com/Clamepending/videomemory-sub000/internal/ingest"
)

// sortTasksByID orders by numeric task id; ids are monotone decimal
// strings so this matches creation order.
func sortTasksByID(ts []*ingest.Task) {
	sort.Slice(ts, func(i, j int) bool {
		a, _ := strconv.Atoi(ts[i].ID)
		b, _ := strconv.Atoi(ts[j].ID)
		return a < b
	})
}
