package forensics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"typedcode/internal/event"
)

// BuildReport computes a Report from a chain's event stream. The returned
// error is ErrInsufficientData when there are too few positioned events;
// callers of `-level forensic` should treat that as "nothing to show",
// never as a verification failure.
func BuildReport(events []*event.Event) (*Report, error) {
	metrics, err := ComputeMetrics(events)
	if err != nil {
		return nil, err
	}

	sorted := make([]*event.Event, len(events))
	copy(sorted, events)
	first, last := sorted[0], sorted[0]
	for _, e := range sorted {
		if e.Timestamp < first.Timestamp {
			first = e
		}
		if e.Timestamp > last.Timestamp {
			last = e
		}
	}

	firstTime := time.UnixMilli(int64(first.Timestamp))
	lastTime := time.UnixMilli(int64(last.Timestamp))

	return &Report{
		EventCount: len(events),
		TimeSpan:   lastTime.Sub(firstTime),
		FirstEvent: firstTime,
		LastEvent:  lastTime,
		Metrics:    *metrics,
	}, nil
}

// Print writes a plain-text rendering of r to w, used by the CLI's
// `-level forensic` output. It states numbers, not verdicts: this package
// never decides whether an event stream looks human.
func Print(w io.Writer, r *Report) {
	if r == nil {
		fmt.Fprintln(w, "forensic metrics: insufficient data")
		return
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, "forensic metrics (informational, does not affect validity)")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "events:                  %d\n", r.EventCount)
	fmt.Fprintf(w, "time span:               %s\n", r.TimeSpan.Round(time.Second))
	fmt.Fprintf(w, "first event:             %s\n", r.FirstEvent.Format(time.RFC3339))
	fmt.Fprintf(w, "last event:              %s\n", r.LastEvent.Format(time.RFC3339))
	fmt.Fprintf(w, "monotonic append ratio:  %.3f\n", r.Metrics.MonotonicAppendRatio)
	fmt.Fprintf(w, "edit entropy (bits):     %.3f\n", r.Metrics.EditEntropy)
	fmt.Fprintf(w, "median interval (ms):    %.1f\n", r.Metrics.MedianIntervalMs)
}
