// Package checkpoint implements the periodic chain checkpoints that let a
// verifier sample a hash chain instead of replaying it end to end: the
// checkpoint record itself, segment construction from a checkpoint list,
// and uniform-without-replacement segment selection for sampled verify.
package checkpoint

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
)

// Checkpoint is emitted every K events by the chain manager (see
// internal/chain). contentHash is supplied by the external editor and
// cross-checked against the tab's text buffer at that index; it is omitted
// when the editor does not supply one.
type Checkpoint struct {
	EventIndex  uint64 `json:"eventIndex"`
	Hash        string `json:"hash"`
	Timestamp   uint64 `json:"timestamp"`
	ContentHash string `json:"contentHash,omitempty"`

	// InclusionProof is the hex-encoded MMR inclusion proof binding this
	// checkpoint to the envelope's mmr_root, set by AttachInclusionProofs.
	// Absent unless a host opted into accumulator-backed export.
	InclusionProof string `json:"inclusion_proof,omitempty"`
}

// Segment is a contiguous run of events bounded by two checkpoints (or the
// chain's start/end), used as the unit of sampled verification.
type Segment struct {
	StartIndex      int    // inclusive, first event in segment
	EndIndex        int    // inclusive, last event in segment
	StartHash       string // runningHash seed for this segment
	ExpectedEndHash string // hash the segment must end on to pass
}

// BuildSegments derives the head/between/tail segments from a sorted
// checkpoint list and the total event count, per §4.4:
//   - head:    [0 … cp0.eventIndex],       start = events[0].previousHash
//   - between: [cpi+1 … cpi+1.eventIndex],  start = cpi.hash
//   - tail:    [cpN+1 … last],              start = cpN.hash
//
// genesisHash is events[0].previousHash (the chain's initialHash), and
// lastEventHash/totalEvents describe the final event in the chain.
func BuildSegments(checkpoints []Checkpoint, genesisHash string, totalEvents int, lastEventHash string) ([]Segment, error) {
	if totalEvents == 0 {
		return nil, nil
	}

	sorted := make([]Checkpoint, len(checkpoints))
	copy(sorted, checkpoints)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EventIndex < sorted[j].EventIndex })

	var segments []Segment
	startIdx := 0
	startHash := genesisHash

	for _, cp := range sorted {
		if int(cp.EventIndex) < startIdx || int(cp.EventIndex) >= totalEvents {
			return nil, fmt.Errorf("checkpoint: eventIndex %d out of range for segment starting at %d", cp.EventIndex, startIdx)
		}
		segments = append(segments, Segment{
			StartIndex:      startIdx,
			EndIndex:        int(cp.EventIndex),
			StartHash:       startHash,
			ExpectedEndHash: cp.Hash,
		})
		startIdx = int(cp.EventIndex) + 1
		startHash = cp.Hash
	}

	if startIdx <= totalEvents-1 {
		segments = append(segments, Segment{
			StartIndex:      startIdx,
			EndIndex:        totalEvents - 1,
			StartHash:       startHash,
			ExpectedEndHash: lastEventHash,
		})
	}

	return segments, nil
}

// SelectSample picks segments for sampled verification: the first and last
// segments are always included, and the remainder is sampled uniformly
// without replacement until sampleCount segments are chosen (or all
// segments, if there are fewer than sampleCount). The result is sorted by
// start index.
func SelectSample(segments []Segment, sampleCount int) ([]Segment, error) {
	n := len(segments)
	if n == 0 {
		return nil, nil
	}
	if sampleCount <= 0 {
		sampleCount = 3
	}
	if sampleCount >= n {
		return segments, nil
	}

	chosen := map[int]bool{0: true, n - 1: true}
	remaining := make([]int, 0, n-2)
	for i := 1; i < n-1; i++ {
		remaining = append(remaining, i)
	}

	for len(chosen) < sampleCount && len(remaining) > 0 {
		idx, err := randomIndex(len(remaining))
		if err != nil {
			return nil, err
		}
		picked := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		chosen[picked] = true
	}

	indices := make([]int, 0, len(chosen))
	for idx := range chosen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	result := make([]Segment, len(indices))
	for i, idx := range indices {
		result[i] = segments[idx]
	}
	return result, nil
}

func randomIndex(n int) (int, error) {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, fmt.Errorf("checkpoint: sample random index: %w", err)
	}
	return int(v.Int64()), nil
}
