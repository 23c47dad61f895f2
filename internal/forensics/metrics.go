package forensics

import (
	"errors"
	"math"
	"sort"

	"typedcode/internal/event"
)

// ErrInsufficientData is returned when there are not enough positioned
// events to produce stable metrics.
var ErrInsufficientData = errors.New("forensics: insufficient data for analysis")

// DefaultAppendThreshold is the position above which an edit counts as an
// append rather than a mid-document revision.
const DefaultAppendThreshold = 0.95

// DefaultHistogramBins is the bucket count used for the position histogram
// entropy calculation.
const DefaultHistogramBins = 20

// MinEventsForAnalysis is the minimum number of positioned events required
// before ComputeMetrics will produce an estimate.
const MinEventsForAnalysis = 5

// ComputeMetrics derives PrimaryMetrics from a chain's event stream. Only
// events carrying a RangeOffset contribute to the position-based metrics;
// MedianIntervalMs uses every event's timestamp regardless.
func ComputeMetrics(events []*event.Event) (*PrimaryMetrics, error) {
	positions := editPositions(events)
	if len(positions) < MinEventsForAnalysis {
		return nil, ErrInsufficientData
	}

	return &PrimaryMetrics{
		MonotonicAppendRatio: monotonicAppendRatio(positions, DefaultAppendThreshold),
		EditEntropy:          editEntropy(positions, DefaultHistogramBins),
		MedianIntervalMs:     medianInterval(events),
	}, nil
}

// editPositions normalizes each positioned event's RangeOffset into [0,1]
// relative to the largest offset+length extent observed in the stream,
// which stands in for "how far through the document this edit landed".
func editPositions(events []*event.Event) []float64 {
	var maxExtent float64
	type offset struct {
		seq uint64
		pos float64
	}
	var raw []offset
	for _, e := range events {
		if e.RangeOffset == nil {
			continue
		}
		extent := float64(*e.RangeOffset)
		if e.RangeLength != nil {
			extent += float64(*e.RangeLength)
		}
		if extent > maxExtent {
			maxExtent = extent
		}
		raw = append(raw, offset{seq: e.Sequence, pos: float64(*e.RangeOffset)})
	}
	if maxExtent == 0 {
		return nil
	}

	positions := make([]float64, len(raw))
	for i, o := range raw {
		p := o.pos / maxExtent
		if p > 1 {
			p = 1
		}
		positions[i] = p
	}
	return positions
}

// monotonicAppendRatio is the fraction of positions at or beyond threshold.
func monotonicAppendRatio(positions []float64, threshold float64) float64 {
	if len(positions) == 0 {
		return 0
	}
	appended := 0
	for _, p := range positions {
		if p >= threshold {
			appended++
		}
	}
	return float64(appended) / float64(len(positions))
}

// editEntropy is the Shannon entropy, in bits, of the position histogram.
func editEntropy(positions []float64, bins int) float64 {
	if len(positions) == 0 || bins <= 0 {
		return 0
	}

	histogram := make([]int, bins)
	for _, p := range positions {
		if p < 0 {
			p = 0
		}
		if p >= 1 {
			p = 0.9999
		}
		idx := int(p * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		histogram[idx]++
	}
	return shannonEntropy(histogram)
}

func shannonEntropy(histogram []int) float64 {
	n := 0
	for _, c := range histogram {
		n += c
	}
	if n == 0 {
		return 0
	}

	entropy := 0.0
	total := float64(n)
	for _, c := range histogram {
		if c > 0 {
			p := float64(c) / total
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

// medianInterval is the median inter-event gap in milliseconds, computed
// across the full event stream (unlike the position metrics, it does not
// require a RangeOffset).
func medianInterval(events []*event.Event) float64 {
	if len(events) < 2 {
		return 0
	}

	sorted := make([]*event.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, float64(sorted[i].Timestamp-sorted[i-1].Timestamp))
	}
	return median(intervals)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
