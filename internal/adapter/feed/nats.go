// internal/adapter/feed/nats.go

package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"incidentmap/internal/domain/incident"
	"incidentmap/internal/logger"
)

// NATSFeed buffers log entries pushed on a subject and hands them out on
// Fetch. Messages may carry a single entry or a {"logs":[...]} batch.
type NATSFeed struct {
	sub *nats.Subscription
	max int
	log *logger.Logger

	mu      sync.Mutex
	pending []incident.LogEntry
	dropped int
}

// NewNATSFeed subscribes to subject. At most max entries are buffered
// between fetches; older ones are dropped first.
func NewNATSFeed(conn *nats.Conn, subject string, max int, log *logger.Logger) (*NATSFeed, error) {
	f := newNATSFeed(max, log)

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		f.handle(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	f.sub = sub

	return f, nil
}

func newNATSFeed(max int, log *logger.Logger) *NATSFeed {
	if log == nil {
		log = logger.Default()
	}
	return &NATSFeed{
		max: max,
		log: log.WithComponent("nats-feed"),
	}
}

func (f *NATSFeed) handle(data []byte) {
	entries, err := decodeMessage(data)
	if err != nil {
		f.log.WithError(err).Warn("dropping undecodable log message")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = append(f.pending, entries...)
	if f.max > 0 && len(f.pending) > f.max {
		over := len(f.pending) - f.max
		f.dropped += over
		f.pending = append(f.pending[:0:0], f.pending[over:]...)
	}
}

func decodeMessage(data []byte) ([]incident.LogEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Contains(trimmed, []byte(`"logs"`)) {
		var b batch
		if err := json.Unmarshal(trimmed, &b); err == nil && b.Logs != nil {
			return b.Logs, nil
		}
	}

	var e incident.LogEntry
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, err
	}
	return []incident.LogEntry{e}, nil
}

// Fetch drains the buffered entries in arrival order
func (f *NATSFeed) Fetch(ctx context.Context) ([]incident.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.pending
	f.pending = nil
	if f.dropped > 0 {
		f.log.Warn("log buffer overflowed since last fetch", "dropped", f.dropped)
		f.dropped = 0
	}
	return out, nil
}

// Close unsubscribes from the subject
func (f *NATSFeed) Close() error {
	if f.sub == nil {
		return nil
	}
	return f.sub.Unsubscribe()
}
