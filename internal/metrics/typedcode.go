package metrics

import "time"

// ChainMetrics holds the counters, gauges, and histograms a chain manager,
// verifier, and exporter record against as they run. Trimmed from the
// teacher's daemon-wide metric set down to the operations this engine
// actually performs: recording events, building checkpoints, verifying
// chains, and exporting envelopes. There is no daemon uptime or database
// size to report since the engine has no long-running process of its own.
type ChainMetrics struct {
	registry *Registry

	EventsTotal        *Counter
	CheckpointsTotal   *Counter
	VerificationsTotal *Counter
	ExportsTotal       *Counter
	AnchorsTotal       *Counter
	ErrorsTotal        *Counter

	ActiveChains     *Gauge
	LastCheckpointTs *Gauge

	PoswDuration         *Histogram
	CheckpointDuration   *Histogram
	VerificationDuration *Histogram
	AnchorDuration       *Histogram
}

// NewChainMetrics creates and registers a ChainMetrics set against registry.
// A nil registry registers against the package default.
func NewChainMetrics(registry *Registry) *ChainMetrics {
	if registry == nil {
		registry = Default()
	}

	return &ChainMetrics{
		registry: registry,

		EventsTotal: registry.RegisterCounter(
			"events_total", "Total number of events recorded", nil),
		CheckpointsTotal: registry.RegisterCounter(
			"checkpoints_total", "Total number of checkpoints created", nil),
		VerificationsTotal: registry.RegisterCounter(
			"verifications_total", "Total number of verifications performed", nil),
		ExportsTotal: registry.RegisterCounter(
			"exports_total", "Total number of envelope exports", nil),
		AnchorsTotal: registry.RegisterCounter(
			"anchors_total", "Total number of external anchoring operations", nil),
		ErrorsTotal: registry.RegisterCounter(
			"errors_total", "Total number of operation errors", nil),

		ActiveChains: registry.RegisterGauge(
			"active_chains", "Number of currently initialized chains", nil),
		LastCheckpointTs: registry.RegisterGauge(
			"last_checkpoint_timestamp", "Unix timestamp of the last checkpoint", nil),

		PoswDuration: registry.RegisterHistogram(
			"posw_duration_seconds", "Duration of proof-of-sequential-work computation", nil,
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}),
		CheckpointDuration: registry.RegisterHistogram(
			"checkpoint_duration_seconds", "Duration of checkpoint construction", nil, DurationBuckets),
		VerificationDuration: registry.RegisterHistogram(
			"verification_duration_seconds", "Duration of verification operations", nil, DurationBuckets),
		AnchorDuration: registry.RegisterHistogram(
			"anchor_duration_seconds", "Duration of anchoring operations", nil,
			[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}),
	}
}

// RecordEvent records a single event append and its PoSW duration.
func (m *ChainMetrics) RecordEvent(poswDuration time.Duration) {
	m.EventsTotal.Inc()
	m.PoswDuration.ObserveDuration(poswDuration)
}

// RecordCheckpoint records a checkpoint construction.
func (m *ChainMetrics) RecordCheckpoint(duration time.Duration) {
	m.CheckpointsTotal.Inc()
	m.CheckpointDuration.ObserveDuration(duration)
	m.LastCheckpointTs.Set(time.Now().Unix())
}

// RecordVerification records a full or sampled verification run.
func (m *ChainMetrics) RecordVerification(duration time.Duration, valid bool) {
	m.VerificationsTotal.Inc()
	m.VerificationDuration.ObserveDuration(duration)
	if !valid {
		m.ErrorsTotal.Inc()
	}
}

// RecordExport records an envelope export.
func (m *ChainMetrics) RecordExport() {
	m.ExportsTotal.Inc()
}

// RecordAnchor records an external anchoring attempt.
func (m *ChainMetrics) RecordAnchor(duration time.Duration, success bool) {
	m.AnchorsTotal.Inc()
	m.AnchorDuration.ObserveDuration(duration)
	if !success {
		m.ErrorsTotal.Inc()
	}
}

// RecordError increments the generic error counter.
func (m *ChainMetrics) RecordError() {
	m.ErrorsTotal.Inc()
}

// ChainStarted records a chain initialization.
func (m *ChainMetrics) ChainStarted() {
	m.ActiveChains.Inc()
}

// ChainEnded records a chain going idle (exported or reset).
func (m *ChainMetrics) ChainEnded() {
	m.ActiveChains.Dec()
}

// Snapshot returns a flattened view of the key counters and gauges,
// suitable for embedding in a status response without exposing the full
// Prometheus text format.
func (m *ChainMetrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"events_total":           m.EventsTotal.Value(),
		"checkpoints_total":      m.CheckpointsTotal.Value(),
		"verifications_total":    m.VerificationsTotal.Value(),
		"exports_total":          m.ExportsTotal.Value(),
		"anchors_total":          m.AnchorsTotal.Value(),
		"errors_total":           m.ErrorsTotal.Value(),
		"active_chains":          m.ActiveChains.Value(),
		"posw_avg_seconds":       m.PoswDuration.Mean(),
		"checkpoint_avg_seconds": m.CheckpointDuration.Mean(),
	}
}

// defaultChainMetrics is the package-level instance GetChainMetrics lazily
// creates against the package default registry.
var defaultChainMetrics *ChainMetrics

// GetChainMetrics returns the global ChainMetrics instance, creating it
// against the default registry on first use.
func GetChainMetrics() *ChainMetrics {
	if defaultChainMetrics == nil {
		defaultChainMetrics = NewChainMetrics(Default())
	}
	return defaultChainMetrics
}

// InitChainMetrics replaces the global ChainMetrics instance with one
// registered against a caller-supplied registry.
func InitChainMetrics(registry *Registry) *ChainMetrics {
	defaultChainMetrics = NewChainMetrics(registry)
	return defaultChainMetrics
}
