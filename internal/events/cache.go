package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const latestDetectionTTL = 10 * time.Second

// DetectionCache keeps the most recent detection per camera in Redis so
// dashboards can poll without touching the store.
type DetectionCache struct {
	client *redis.Client
}

func NewDetectionCache(client *redis.Client) *DetectionCache {
	return &DetectionCache{client: client}
}

func detectionKey(ioID string) string {
	return fmt.Sprintf("det:latest:%s", ioID)
}

func (c *DetectionCache) Save(ctx context.Context, evt DetectionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, detectionKey(evt.IOID), payload, latestDetectionTTL).Err()
}

// Latest returns the cached detection for a camera; found=false when the
// entry expired or never existed.
func (c *DetectionCache) Latest(ctx context.Context, ioID string) (DetectionEvent, bool, error) {
	raw, err := c.client.Get(ctx, detectionKey(ioID)).Bytes()
	if err == redis.Nil {
		return DetectionEvent{}, false, nil
	}
	if err != nil {
		return DetectionEvent{}, false, err
	}

	var evt DetectionEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return DetectionEvent{}, false, err
	}
	return evt, true, nil
}
