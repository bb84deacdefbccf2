package reconcile

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"incidentmap/internal/domain/incident"
)

func TestFilterNew(t *testing.T) {
	cases := []struct {
		name      string
		watermark int64
		in        []int64
		want      []int64
		next      int64
	}{
		{name: "empty batch", watermark: 10, in: nil, want: nil, next: 10},
		{name: "all new", watermark: 0, in: []int64{1, 2, 3}, want: []int64{1, 2, 3}, next: 3},
		{name: "equal is not new", watermark: 5, in: []int64{5}, want: nil, next: 5},
		{name: "older ignored", watermark: 100, in: []int64{50, 99}, want: nil, next: 100},
		{name: "unsorted keeps feed order", watermark: 10, in: []int64{30, 5, 20, 10, 40}, want: []int64{30, 20, 40}, next: 40},
		{name: "duplicates within batch both admitted", watermark: 0, in: []int64{7, 7}, want: []int64{7, 7}, next: 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batch := make([]incident.LogEntry, len(tc.in))
			for i, ts := range tc.in {
				batch[i] = incident.LogEntry{Timestamp: ts}
			}

			got, next := FilterNew(tc.watermark, batch)
			if next != tc.next {
				t.Fatalf("next=%d want %d", next, tc.next)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("admitted %d entries want %d", len(got), len(tc.want))
			}
			for i, e := range got {
				if e.Timestamp != tc.want[i] {
					t.Fatalf("admitted[%d]=%d want %d", i, e.Timestamp, tc.want[i])
				}
			}
		})
	}
}

func TestFilterNewProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("watermark never decreases and admits only newer entries", prop.ForAll(
		func(watermark int64, stamps []int64) bool {
			batch := make([]incident.LogEntry, len(stamps))
			for i, ts := range stamps {
				batch[i] = incident.LogEntry{Timestamp: ts}
			}

			admitted, next := FilterNew(watermark, batch)
			if next < watermark {
				return false
			}
			for _, e := range admitted {
				if e.Timestamp <= watermark || e.Timestamp > next {
					return false
				}
			}
			for _, e := range batch {
				if e.Timestamp > next {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1000),
		gen.SliceOf(gen.Int64Range(0, 2000)),
	))

	properties.Property("admitted entries keep their relative order", prop.ForAll(
		func(stamps []int64) bool {
			batch := make([]incident.LogEntry, len(stamps))
			for i, ts := range stamps {
				batch[i] = incident.LogEntry{Timestamp: ts, Text: string(rune('a' + i%26))}
			}

			admitted, _ := FilterNew(500, batch)
			j := 0
			for _, e := range batch {
				if e.Timestamp > 500 {
					if j >= len(admitted) || admitted[j] != e {
						return false
					}
					j++
				}
			}
			return j == len(admitted)
		},
		gen.SliceOf(gen.Int64Range(0, 1000)),
	))

	properties.TestingRun(t)
}
