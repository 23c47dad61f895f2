// Package chain implements the hash-chain manager: a single-writer,
// serialized queue that turns raw editor input into finalized, PoSW-bound
// events, maintains the running chain head, and emits checkpoints every K
// events. Its single-mutex append-with-chain-link design is the direct
// generalization of the teacher's write-ahead-log append path, from a
// fixed binary WAL entry to an async PoSW-computed, canonically-hashed
// Event.
package chain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"typedcode/internal/checkpoint"
	"typedcode/internal/event"
	"typedcode/internal/hashutil"
	"typedcode/internal/logging"
	"typedcode/internal/metrics"
	"typedcode/internal/posw"
)

// State is the chain's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// PoswBackend is the dispatch boundary for PoSW computation: in-process,
// background worker pool, or a remote adapter all implement the same two
// methods. A chain is constructed with exactly one backend.
type PoswBackend interface {
	Compute(previousHash string, eventData []byte) (*posw.Proof, error)
	Verify(previousHash string, eventData []byte, proof *posw.Proof) error
}

// InProcessBackend runs PoSW synchronously on the calling goroutine. This
// is sufficient for a single process; C5's single-writer contract does not
// require per-chain parallelism (§5).
type InProcessBackend struct{}

func (InProcessBackend) Compute(previousHash string, eventData []byte) (*posw.Proof, error) {
	return posw.ComputeWithFreshNonce(previousHash, eventData)
}

func (InProcessBackend) Verify(previousHash string, eventData []byte, proof *posw.Proof) error {
	return posw.Verify(previousHash, eventData, proof)
}

// RecordInput is the event input API surface the editor/tracker submits to
// record_event. The engine is ignorant of the editor's DOM/Monaco types; it
// expects already-normalized records.
type RecordInput struct {
	Type        event.Type
	InputType   event.InputType
	Data        json.RawMessage
	RangeOffset *int
	RangeLength *int
	Range       *event.Range
	ContentHash string // optional, supplied by the editor for checkpoint cross-check
}

// RecordResult is returned once an event's PoSW and hash are fixed.
type RecordResult struct {
	Index uint64
	Hash  string
}

// AppendEventHook is invoked after an event is finalized and pushed, so the
// host may append it to durable storage incrementally (C10).
type AppendEventHook func(e *event.Event)

// Stats summarizes the chain's current state.
type Stats struct {
	TotalEvents  int
	QueuedEvents int
	CurrentHash  string
	ElapsedMs    uint64
	TypeCounts   map[event.Type]int
}

// SerializedState is the persistence-agnostic snapshot C10 exposes.
type SerializedState struct {
	Events      []*event.Event           `json:"events"`
	CurrentHash string                   `json:"currentHash"`
	StartTime   int64                    `json:"startTime"`
	Checkpoints []checkpoint.Checkpoint  `json:"checkpoints,omitempty"`
}

// Chain is a single hash-chain instance: one per tab. It is safe for
// concurrent use; record* calls are internally serialized on writerMu so
// that "snapshot prev, dispatch PoSW, finalize" never interleaves across
// goroutines (§5).
type Chain struct {
	backend           PoswBackend
	checkpointInterval uint64
	poswTimeout       time.Duration
	appendHook        AppendEventHook
	metrics           *metrics.ChainMetrics
	log               *logging.Logger

	mu    sync.RWMutex // guards state below; held briefly for reads/writes
	state State

	fingerprintHash string
	initialHash     string
	startTime       time.Time

	events      []*event.Event
	checkpoints []checkpoint.Checkpoint
	currentHash string
	lastTs      uint64
	queued      int

	writerMu sync.Mutex // serializes record_event's critical section end-to-end
}

// Option configures a Chain at construction time.
type Option func(*Chain)

// WithBackend overrides the default in-process PoSW backend.
func WithBackend(b PoswBackend) Option {
	return func(c *Chain) { c.backend = b }
}

// WithCheckpointInterval overrides the default checkpoint cadence K. The
// protocol requires K ∈ [33, 100]; values outside that range are accepted
// but a host should prefer config.DefaultConfig().CheckpointInterval.
func WithCheckpointInterval(k uint64) Option {
	return func(c *Chain) { c.checkpointInterval = k }
}

// WithAppendEventHook installs a callback invoked after every finalized
// event (C10).
func WithAppendEventHook(hook AppendEventHook) Option {
	return func(c *Chain) { c.appendHook = hook }
}

// WithMetrics attaches a ChainMetrics instance that RecordEvent and
// checkpoint construction report against. Without this option the chain
// runs with no instrumentation at all.
func WithMetrics(m *metrics.ChainMetrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// WithPoswTimeout overrides the default 30s reference timeout dispatchPosw
// allows a single PoSW computation before failing with PoswTimeoutError.
func WithPoswTimeout(d time.Duration) Option {
	return func(c *Chain) { c.poswTimeout = d }
}

// WithLogger attaches a structured logger the chain reports its lifecycle
// and per-event activity against. Without this option the chain logs
// through logging.Default().
func WithLogger(l *logging.Logger) Option {
	return func(c *Chain) { c.log = l }
}

// New constructs an uninitialized chain. Call Initialize before recording.
func New(opts ...Option) *Chain {
	c := &Chain{
		backend:            InProcessBackend{},
		checkpointInterval: 50,
		poswTimeout:        30 * time.Second,
		state:              StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Default().WithComponent("chain")
	}
	return c
}

// Initialize seeds initialHash = SHA256(fingerprintHash || random_16_bytes)
// and records startTime. Fails with ErrAlreadyInitialized if called on an
// already-active chain.
func (c *Chain) Initialize(fingerprintHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive {
		return ErrAlreadyInitialized
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("chain: generate init salt: %w", err)
	}

	c.fingerprintHash = fingerprintHash
	c.initialHash = hashutil.Concat([]byte(fingerprintHash), salt)
	c.startTime = time.Now()
	c.events = nil
	c.checkpoints = nil
	c.currentHash = c.initialHash
	c.lastTs = 0
	c.queued = 0
	c.state = StateActive

	if c.metrics != nil {
		c.metrics.ChainStarted()
	}

	c.log.Info("chain initialized", "initial_hash", c.initialHash)
	logging.AuditSessionStart(context.Background(), c.initialHash, map[string]interface{}{
		"checkpoint_interval": c.checkpointInterval,
	})

	return nil
}

// State returns the chain's current lifecycle state.
func (c *Chain) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentHash returns the chain head.
func (c *Chain) CurrentHash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentHash
}

// InitialHash returns the chain's seeded genesis hash (events[0].previousHash).
func (c *Chain) InitialHash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialHash
}

// RecordEvent implements the record_event algorithm of §4.3: snapshot
// (seq, prev, ts), dispatch PoSW, finalize, push, maybe checkpoint. The
// writerMu mutex plays the role of the per-chain writer task/FIFO queue
// described in §5 — only one record* call executes its critical section at
// a time, so `prev` is never stale when PoSW is dispatched.
func (c *Chain) RecordEvent(ctx context.Context, input RecordInput) (*RecordResult, error) {
	return c.record(ctx, input, false)
}

// RecordHumanAttestation records the mandatory first event. Fails with
// ErrAttestationMustBeFirst if the chain already has events.
func (c *Chain) RecordHumanAttestation(ctx context.Context, blob json.RawMessage) (*RecordResult, error) {
	input := RecordInput{Type: event.TypeHumanAttestation, Data: blob}
	return c.record(ctx, input, true)
}

// RecordPreExportAttestation records a pre-export attestation event. Unlike
// RecordHumanAttestation it carries no positional constraint and may be
// called at any point in the chain's lifetime.
func (c *Chain) RecordPreExportAttestation(ctx context.Context, blob json.RawMessage) (*RecordResult, error) {
	input := RecordInput{Type: event.TypePreExportAttestation, Data: blob}
	return c.record(ctx, input, false)
}

func (c *Chain) record(ctx context.Context, input RecordInput, mustBeFirst bool) (*RecordResult, error) {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()

	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if mustBeFirst && len(c.events) != 0 {
		c.mu.Unlock()
		return nil, ErrAttestationMustBeFirst
	}

	seq := uint64(len(c.events))
	prev := c.currentHash
	nowMs := uint64(time.Since(c.startTime).Milliseconds())
	ts := nowMs
	if ts < c.lastTs {
		ts = c.lastTs // clamp against wall-clock skew moving backward
	}
	c.queued++
	c.mu.Unlock()

	e := &event.Event{
		Sequence:     seq,
		Timestamp:    ts,
		Type:         input.Type,
		InputType:    input.InputType,
		Data:         input.Data,
		RangeOffset:  input.RangeOffset,
		RangeLength:  input.RangeLength,
		Range:        input.Range,
		PreviousHash: prev,
	}

	coreJSON, err := e.CoreJSON()
	if err != nil {
		c.mu.Lock()
		c.queued--
		c.mu.Unlock()
		wrapped := fmt.Errorf("chain: encode event core: %w", err)
		c.log.Error("failed to encode event core", "sequence", seq, "error", err)
		logging.AuditError(ctx, "record_event", wrapped, map[string]interface{}{"sequence": seq})
		return nil, wrapped
	}

	poswStart := time.Now()
	proof, err := c.dispatchPosw(ctx, prev, coreJSON, seq)
	poswDuration := time.Since(poswStart)
	c.mu.Lock()
	c.queued--
	c.mu.Unlock()
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError()
		}
		c.log.Warn("posw dispatch failed", "sequence", seq, "error", err)
		logging.AuditError(ctx, "record_event", err, map[string]interface{}{"sequence": seq})
		return nil, err
	}

	e.Posw = proof
	if err := e.Finalize(); err != nil {
		wrapped := fmt.Errorf("chain: finalize event %d: %w", seq, err)
		c.log.Error("failed to finalize event", "sequence", seq, "error", err)
		logging.AuditError(ctx, "record_event", wrapped, map[string]interface{}{"sequence": seq})
		return nil, wrapped
	}

	c.mu.Lock()
	c.events = append(c.events, e)
	c.currentHash = e.Hash
	c.lastTs = ts

	checkpointed := c.checkpointInterval > 0 && (seq+1)%c.checkpointInterval == 0
	var checkpointDuration time.Duration
	if checkpointed {
		checkpointStart := time.Now()
		c.checkpoints = append(c.checkpoints, checkpoint.Checkpoint{
			EventIndex:  seq,
			Hash:        e.Hash,
			Timestamp:   ts,
			ContentHash: input.ContentHash,
		})
		checkpointDuration = time.Since(checkpointStart)
	}
	hook := c.appendHook
	c.mu.Unlock()

	c.log.Debug("event recorded", "sequence", seq, "type", input.Type, "posw_ms", poswDuration.Milliseconds())

	if c.metrics != nil {
		c.metrics.RecordEvent(poswDuration)
		if checkpointed {
			c.metrics.RecordCheckpoint(checkpointDuration)
		}
	}

	if checkpointed {
		c.log.Info("checkpoint created", "event_index", seq, "hash", e.Hash)
		logging.AuditCheckpoint(ctx, c.initialHash, e.Hash, map[string]interface{}{
			"event_index": seq,
		})
	}

	if hook != nil {
		hook(e)
	}

	return &RecordResult{Index: seq, Hash: e.Hash}, nil
}

// dispatchPosw runs the backend's Compute with a reference timeout (§4.2,
// default 30s, overridable via WithPoswTimeout). A computation that does
// not finish in time fails with PoswTimeoutError and the event is dropped:
// the caller sees the error and the running hash is left untouched,
// matching the error-handling policy of §7.
func (c *Chain) dispatchPosw(ctx context.Context, prev string, coreJSON []byte, seq uint64) (*posw.Proof, error) {
	type result struct {
		proof *posw.Proof
		err   error
	}
	done := make(chan result, 1)

	go func() {
		proof, err := c.backend.Compute(prev, coreJSON)
		done <- result{proof: proof, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("chain: posw compute: %w", r.err)
		}
		if err := c.backend.Verify(prev, coreJSON, r.proof); err != nil {
			c.log.Warn("posw verification failed", "sequence", seq, "error", err)
			return nil, &PoswVerifyFailedError{Sequence: seq, Cause: err}
		}
		return r.proof, nil
	case <-time.After(c.poswTimeout):
		c.log.Warn("posw dispatch timed out", "sequence", seq, "timeout", c.poswTimeout)
		return nil, &PoswTimeoutError{Sequence: seq}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats reports the chain's current summary (total events, queued count,
// current hash, elapsed time, per-type counts).
func (c *Chain) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[event.Type]int)
	for _, e := range c.events {
		counts[e.Type]++
	}

	return Stats{
		TotalEvents:  len(c.events),
		QueuedEvents: c.queued,
		CurrentHash:  c.currentHash,
		ElapsedMs:    uint64(time.Since(c.startTime).Milliseconds()),
		TypeCounts:   counts,
	}
}

// Events returns a snapshot copy of the recorded events.
func (c *Chain) Events() []*event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*event.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Checkpoints returns a snapshot copy of the emitted checkpoints.
func (c *Chain) Checkpoints() []checkpoint.Checkpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]checkpoint.Checkpoint, len(c.checkpoints))
	copy(out, c.checkpoints)
	return out
}

// SerializeState snapshots the chain for external persistence.
func (c *Chain) SerializeState() SerializedState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	events := make([]*event.Event, len(c.events))
	copy(events, c.events)
	cps := make([]checkpoint.Checkpoint, len(c.checkpoints))
	copy(cps, c.checkpoints)

	return SerializedState{
		Events:      events,
		CurrentHash: c.currentHash,
		StartTime:   c.startTime.UnixMilli(),
		Checkpoints: cps,
	}
}

// RestoreState replaces the chain's in-memory state with a prior snapshot.
// After restore the chain is Active and accepts new events seamlessly: the
// next RecordEvent's seq/prev continue from where the snapshot left off.
func (c *Chain) RestoreState(state SerializedState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make([]*event.Event, len(state.Events))
	copy(c.events, state.Events)
	c.checkpoints = make([]checkpoint.Checkpoint, len(state.Checkpoints))
	copy(c.checkpoints, state.Checkpoints)
	c.currentHash = state.CurrentHash
	c.startTime = time.UnixMilli(state.StartTime)
	if len(c.events) > 0 {
		c.lastTs = c.events[len(c.events)-1].Timestamp
		c.initialHash = c.events[0].PreviousHash
	}
	c.state = StateActive
	c.queued = 0

	return nil
}

// Reset destroys the chain and immediately re-initializes from the stored
// fingerprint. Internally this passes through Uninitialized; there is no
// direct Terminated -> Active transition.
func (c *Chain) Reset() error {
	c.mu.Lock()
	fp := c.fingerprintHash
	c.state = StateUninitialized
	c.mu.Unlock()

	return c.Initialize(fp)
}

// Terminate transitions the chain to Terminated. No further record* calls
// are accepted; the events/checkpoints already recorded remain readable
// through Events/Checkpoints/SerializeState for export.
func (c *Chain) Terminate() {
	c.mu.Lock()
	wasActive := c.state == StateActive
	c.state = StateTerminated
	totalEvents := len(c.events)
	c.mu.Unlock()

	if wasActive && c.metrics != nil {
		c.metrics.ChainEnded()
	}

	if wasActive {
		c.log.Info("chain terminated", "total_events", totalEvents)
		logging.AuditSessionEnd(context.Background(), map[string]interface{}{
			"total_events": totalEvents,
		})
	}
}

// NewHexSalt is exposed for tests that need to construct a deterministic
// initialHash without going through Initialize's crypto/rand call.
func NewHexSalt(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
