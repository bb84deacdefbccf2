// internal/service/reconcile/watermark.go

package reconcile

import "incidentmap/internal/domain/incident"

// FilterNew returns the entries strictly newer than watermark, in their
// original order, and the watermark to use once the batch is processed.
// The next watermark is the maximum of watermark and every timestamp in
// the batch, so it never decreases.
func FilterNew(watermark int64, entries []incident.LogEntry) ([]incident.LogEntry, int64) {
	next := watermark
	admitted := make([]incident.LogEntry, 0, len(entries))

	for _, e := range entries {
		if e.Timestamp <= watermark {
			continue
		}
		admitted = append(admitted, e)
		if e.Timestamp > next {
			next = e.Timestamp
		}
	}

	return admitted, next
}
