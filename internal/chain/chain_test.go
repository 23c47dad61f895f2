package chain

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/event"
)

func newTestChain(t *testing.T, checkpointInterval uint64) *Chain {
	t.Helper()
	c := New(WithCheckpointInterval(checkpointInterval))
	require.NoError(t, c.Initialize("fp-abc"))
	return c
}

func recordContentChange(t *testing.T, c *Chain, data string) *RecordResult {
	t.Helper()
	res, err := c.RecordEvent(context.Background(), RecordInput{
		Type: event.TypeContentChange,
		Data: json.RawMessage(`"` + data + `"`),
	})
	require.NoError(t, err)
	return res
}

// S1: three contentChange events after initialize.
func TestRecordEvent_S1(t *testing.T) {
	c := newTestChain(t, 50)

	recordContentChange(t, c, "a")
	recordContentChange(t, c, "b")
	recordContentChange(t, c, "c")

	events := c.Events()
	require.Len(t, events, 3)
	assert.Equal(t, events[0].Hash, events[1].PreviousHash)
	assert.Equal(t, events[1].Hash, events[2].PreviousHash)
	assert.Equal(t, uint64(0), events[0].Sequence)
	assert.Equal(t, uint64(1), events[1].Sequence)
	assert.Equal(t, uint64(2), events[2].Sequence)
}

func TestInitialize_AlreadyInitialized(t *testing.T) {
	c := New()
	require.NoError(t, c.Initialize("fp-abc"))
	err := c.Initialize("fp-abc")
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestRecordEvent_NotInitialized(t *testing.T) {
	c := New()
	_, err := c.RecordEvent(context.Background(), RecordInput{Type: event.TypeContentChange, Data: json.RawMessage(`"a"`)})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// S3: human attestation must be event 0, and only once.
func TestRecordHumanAttestation_MustBeFirst(t *testing.T) {
	c := newTestChain(t, 50)

	blob := json.RawMessage(`{"verified":true,"score":0.9,"action":"create_tab","timestamp":"2025-01-15T00:00:00Z","hostname":"h","signature":"sig","success":true}`)
	res, err := c.RecordHumanAttestation(context.Background(), blob)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Index)

	recordContentChange(t, c, "a")

	_, err = c.RecordHumanAttestation(context.Background(), blob)
	assert.ErrorIs(t, err, ErrAttestationMustBeFirst)
}

func TestRecordPreExportAttestation_NoPositionalConstraint(t *testing.T) {
	c := newTestChain(t, 50)
	recordContentChange(t, c, "a")

	blob := json.RawMessage(`{"verified":true}`)
	_, err := c.RecordPreExportAttestation(context.Background(), blob)
	assert.NoError(t, err)
}

func TestCheckpointEmission(t *testing.T) {
	c := newTestChain(t, 3)
	for i := 0; i < 9; i++ {
		recordContentChange(t, c, "x")
	}

	cps := c.Checkpoints()
	require.Len(t, cps, 3)
	assert.Equal(t, uint64(2), cps[0].EventIndex)
	assert.Equal(t, uint64(5), cps[1].EventIndex)
	assert.Equal(t, uint64(8), cps[2].EventIndex)
}

func TestSerializeRestoreState_PreservesChainHead(t *testing.T) {
	c := newTestChain(t, 50)
	recordContentChange(t, c, "a")
	recordContentChange(t, c, "b")

	snapshot := c.SerializeState()

	restored := New(WithCheckpointInterval(50))
	require.NoError(t, restored.RestoreState(snapshot))

	assert.Equal(t, c.CurrentHash(), restored.CurrentHash())
	assert.Equal(t, StateActive, restored.State())

	res, err := restored.RecordEvent(context.Background(), RecordInput{
		Type: event.TypeContentChange,
		Data: json.RawMessage(`"c"`),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Index)
}

func TestReset_ReinitializesFromSameFingerprint(t *testing.T) {
	c := newTestChain(t, 50)
	recordContentChange(t, c, "a")

	require.NoError(t, c.Reset())
	assert.Equal(t, StateActive, c.State())
	assert.Empty(t, c.Events())
}

func TestAppendEventHook_InvokedPerEvent(t *testing.T) {
	var hooked []uint64
	c := New(WithCheckpointInterval(50), WithAppendEventHook(func(e *event.Event) {
		hooked = append(hooked, e.Sequence)
	}))
	require.NoError(t, c.Initialize("fp-abc"))

	recordContentChange(t, c, "a")
	recordContentChange(t, c, "b")

	assert.Equal(t, []uint64{0, 1}, hooked)
}

func TestWithPoswTimeout_FailsFastWhenExceeded(t *testing.T) {
	c := New(WithCheckpointInterval(50), WithPoswTimeout(1*time.Nanosecond))
	require.NoError(t, c.Initialize("fp-abc"))

	_, err := c.RecordEvent(context.Background(), RecordInput{
		Type: event.TypeContentChange,
		Data: json.RawMessage(`"a"`),
	})
	require.Error(t, err)
	var timeoutErr *PoswTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestWithPoswTimeout_DefaultsTo30Seconds(t *testing.T) {
	c := New()
	assert.Equal(t, 30*time.Second, c.poswTimeout)
}

func TestTimestamp_ClampsAgainstBackwardSkew(t *testing.T) {
	c := newTestChain(t, 50)
	recordContentChange(t, c, "a")

	c.mu.Lock()
	c.lastTs = 999999999
	c.mu.Unlock()

	res := recordContentChange(t, c, "b")
	events := c.Events()
	require.Len(t, events, 2)
	assert.GreaterOrEqual(t, events[1].Timestamp, events[0].Timestamp)
	_ = res
}
