package feed

import (
	"context"
	"testing"

	"incidentmap/internal/logger"
)

func TestNATSFeedBuffersMessages(t *testing.T) {
	f := newNATSFeed(0, logger.Discard())

	f.handle([]byte(`{"timestamp":1,"coordinates":"1,2","text":"single"}`))
	f.handle([]byte(`{"logs":[{"timestamp":2,"text":"a"},{"timestamp":3,"text":"b"}]}`))
	f.handle([]byte(`not json`))

	entries, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries=%d want 3", len(entries))
	}
	for i, ts := range []int64{1, 2, 3} {
		if entries[i].Timestamp != ts {
			t.Fatalf("entries[%d].Timestamp=%d want %d", i, entries[i].Timestamp, ts)
		}
	}

	again, _ := f.Fetch(context.Background())
	if len(again) != 0 {
		t.Fatalf("buffer not drained: %d", len(again))
	}
}

func TestNATSFeedDropsOldestPastCapacity(t *testing.T) {
	f := newNATSFeed(2, logger.Discard())

	f.handle([]byte(`{"timestamp":1}`))
	f.handle([]byte(`{"timestamp":2}`))
	f.handle([]byte(`{"timestamp":3}`))

	entries, _ := f.Fetch(context.Background())
	if len(entries) != 2 || entries[0].Timestamp != 2 || entries[1].Timestamp != 3 {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestNATSFeedCanceledContext(t *testing.T) {
	f := newNATSFeed(0, logger.Discard())
	f.handle([]byte(`{"timestamp":1}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Fetch(ctx); err == nil {
		t.Fatal("expected context error")
	}

	entries, _ := f.Fetch(context.Background())
	if len(entries) != 1 {
		t.Fatal("canceled fetch should not drain the buffer")
	}
}

func TestNATSFeedCloseWithoutSubscription(t *testing.T) {
	if err := newNATSFeed(0, logger.Discard()).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
