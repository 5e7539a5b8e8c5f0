package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "videomemory.detections"

// NATSNotifier publishes detection events to a NATS subject, suppressing
// duplicates through the shared dedup window.
type NATSNotifier struct {
	conn       *nats.Conn
	subject    string
	dedup      *Dedup
	maxRetries int
}

func NewNATSNotifier(conn *nats.Conn, subject string, dedup *Dedup) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject, dedup: dedup, maxRetries: 3}
}

func (n *NATSNotifier) Publish(evt DetectionEvent) error {
	if n.dedup != nil && n.dedup.IsDuplicate(DedupKey(evt)) {
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= n.maxRetries; i++ {
		err = n.conn.Publish(n.subject, payload)
		if err == nil {
			return nil
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	log.Printf("[events] nats publish failed after %d retries: %v", n.maxRetries, err)
	return fmt.Errorf("publish failed after %d retries: %w", n.maxRetries, err)
}
