package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	evt := DetectionEvent{TaskID: "0", IOID: "0", Note: "person entered", Timestamp: 100}
	b.Publish(evt)

	assert.Equal(t, evt, <-ch1)
	assert.Equal(t, evt, <-ch2)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	cancel()
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double cancel is safe.
	cancel()
}

func TestBusSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(DetectionEvent{TaskID: "0", Timestamp: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestDedupWindow(t *testing.T) {
	d := NewDedup(16, time.Minute)
	evt := DetectionEvent{TaskID: "0", IOID: "0", Note: "door opened", Timestamp: 100}
	key := DedupKey(evt)

	assert.False(t, d.IsDuplicate(key))
	assert.True(t, d.IsDuplicate(key))

	other := evt
	other.Timestamp = 101
	assert.False(t, d.IsDuplicate(DedupKey(other)))
}

func TestDedupExpiry(t *testing.T) {
	d := NewDedup(16, 10*time.Millisecond)
	assert.False(t, d.IsDuplicate("k"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, d.IsDuplicate("k"))
}

func TestDetectionCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewDetectionCache(client)
	ctx := context.Background()

	evt := DetectionEvent{TaskID: "2", IOID: "net0", TaskDesc: "watch", Note: "truck parked", Timestamp: 500}
	assert.NoError(t, cache.Save(ctx, evt))

	got, found, err := cache.Latest(ctx, "net0")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, evt, got)
}

func TestDetectionCacheExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewDetectionCache(client)
	ctx := context.Background()

	assert.NoError(t, cache.Save(ctx, DetectionEvent{IOID: "0", Note: "x"}))
	srv.FastForward(latestDetectionTTL + time.Second)

	_, found, err := cache.Latest(ctx, "0")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestDetectionCacheMiss(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewDetectionCache(client)

	_, found, err := cache.Latest(context.Background(), "nope")
	assert.NoError(t, err)
	assert.False(t, found)
}
