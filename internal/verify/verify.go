// Package verify implements full and sampled verification of a hash chain:
// per-event sequence/timestamp/linkage/PoSW/hash checks, diagnostic
// reporting on first failure, and checkpoint-bounded sampling for large
// chains.
package verify

import (
	"fmt"

	"typedcode/internal/checkpoint"
	"typedcode/internal/event"
	"typedcode/internal/hashutil"
	"typedcode/internal/logging"
	"typedcode/internal/posw"
)

var log = logging.Default().WithComponent("verify")

// Reason identifies which per-event check failed first.
type Reason string

const (
	ReasonSequenceMismatch    Reason = "SequenceMismatch"
	ReasonTimestampViolation  Reason = "TimestampViolation"
	ReasonPreviousHashMismatch Reason = "PreviousHashMismatch"
	ReasonPoswVerifyFailed    Reason = "PoswVerifyFailed"
	ReasonHashMismatch        Reason = "HashMismatch"
	ReasonSegmentEndMismatch  Reason = "SegmentEndMismatch"
)

// Report is the diagnostic result of a verification run.
type Report struct {
	Valid             bool    `json:"valid"`
	ErrorAt           int     `json:"errorAt,omitempty"`
	Reason            Reason  `json:"reason,omitempty"`
	ExpectedHash      string  `json:"expectedHash,omitempty"`
	ComputedHash      string  `json:"computedHash,omitempty"`
	PreviousTimestamp uint64  `json:"previousTimestamp,omitempty"`
	CurrentTimestamp  uint64  `json:"currentTimestamp,omitempty"`

	// Aggregates. SampledVerify sets SampledSegments and EventsVerified;
	// FullVerify sets TotalEvents. Neither function sets TotalSegments.
	SampledSegments int `json:"sampledSegments,omitempty"`
	TotalSegments   int `json:"totalSegments,omitempty"`
	EventsVerified  int `json:"eventsVerified,omitempty"`
	TotalEvents     int `json:"totalEvents,omitempty"`
}

func fail(index int, reason Reason) *Report {
	return &Report{Valid: false, ErrorAt: index, Reason: reason}
}

// FullVerify checks every event in order against §4.5's six-step
// invariant: sequence, non-decreasing timestamp, previous-hash linkage,
// PoSW, recomputed hash, and running-hash/timestamp update. genesisHash is
// events[0].previousHash (the chain's initialHash).
func FullVerify(events []*event.Event, genesisHash string) (*Report, error) {
	runningHash := genesisHash
	var lastTimestamp uint64

	for i, e := range events {
		report, err := checkEvent(e, i, runningHash, lastTimestamp, true)
		if err != nil {
			log.Error("full verify aborted", "index", i, "error", err)
			return nil, err
		}
		if report != nil {
			log.Warn("full verify failed", "index", i, "reason", report.Reason)
			return report, nil
		}
		runningHash = e.Hash
		lastTimestamp = e.Timestamp
	}

	log.Debug("full verify passed", "total_events", len(events))
	return &Report{Valid: true, TotalEvents: len(events)}, nil
}

// SampledVerify verifies only the given segments (as constructed by
// checkpoint.BuildSegments / checkpoint.SelectSample). Step 3 (previous-hash
// linkage) is skipped on each segment's first event, since runningHash is
// seeded from the segment's StartHash rather than the true predecessor's
// hash. After the segment's last event, runningHash must equal the
// segment's ExpectedEndHash.
func SampledVerify(events []*event.Event, segments []checkpoint.Segment) (*Report, error) {
	eventsVerified := 0

	for _, seg := range segments {
		runningHash := seg.StartHash
		var lastTimestamp uint64
		if seg.StartIndex > 0 {
			lastTimestamp = events[seg.StartIndex-1].Timestamp
		}

		for i := seg.StartIndex; i <= seg.EndIndex; i++ {
			if i < 0 || i >= len(events) {
				return nil, fmt.Errorf("verify: segment index %d out of range", i)
			}
			e := events[i]
			checkLinkage := i != seg.StartIndex

			report, err := checkEvent(e, i, runningHash, lastTimestamp, checkLinkage)
			if err != nil {
				return nil, err
			}
			if report != nil {
				report.SampledSegments = 0
				report.TotalSegments = 0
				return report, nil
			}

			runningHash = e.Hash
			lastTimestamp = e.Timestamp
			eventsVerified++
		}

		if runningHash != seg.ExpectedEndHash {
			r := fail(seg.EndIndex, ReasonSegmentEndMismatch)
			r.ExpectedHash = seg.ExpectedEndHash
			r.ComputedHash = runningHash
			log.Warn("sampled verify failed", "segment_end", seg.EndIndex, "reason", r.Reason)
			return r, nil
		}
	}

	log.Debug("sampled verify passed", "segments", len(segments), "events_verified", eventsVerified)
	return &Report{
		Valid:           true,
		SampledSegments: len(segments),
		EventsVerified:  eventsVerified,
	}, nil
}

// checkEvent runs the six per-event steps of §4.5 against a single event.
// It returns a non-nil *Report only on failure; a nil report with nil error
// means the event passed and the caller should advance runningHash/lastTimestamp.
func checkEvent(e *event.Event, index int, runningHash string, lastTimestamp uint64, checkLinkage bool) (*Report, error) {
	// Step 1: sequence.
	if e.Sequence != uint64(index) {
		return fail(index, ReasonSequenceMismatch), nil
	}

	// Step 2: non-decreasing timestamp.
	if e.Timestamp < lastTimestamp {
		r := fail(index, ReasonTimestampViolation)
		r.PreviousTimestamp = lastTimestamp
		r.CurrentTimestamp = e.Timestamp
		return r, nil
	}

	// Step 3: previous-hash linkage (full mode only, or non-first event of a segment).
	if checkLinkage && e.PreviousHash != runningHash {
		return fail(index, ReasonPreviousHashMismatch), nil
	}

	// Step 4: PoSW.
	coreJSON, err := e.CoreJSON()
	if err != nil {
		return nil, fmt.Errorf("verify: encode event %d core: %w", index, err)
	}
	if err := posw.Verify(runningHash, coreJSON, e.Posw); err != nil {
		return fail(index, ReasonPoswVerifyFailed), nil
	}

	// Step 5: recomputed hash.
	withPoswJSON, err := e.WithPoswJSON()
	if err != nil {
		return nil, fmt.Errorf("verify: encode event %d with posw: %w", index, err)
	}
	computed := hashutil.Concat([]byte(runningHash), withPoswJSON)
	if computed != e.Hash {
		r := fail(index, ReasonHashMismatch)
		r.ExpectedHash = e.Hash
		r.ComputedHash = computed
		return r, nil
	}

	return nil, nil
}
