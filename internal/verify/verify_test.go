package verify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/chain"
	"typedcode/internal/checkpoint"
	"typedcode/internal/event"
)

func buildS1Chain(t *testing.T) *chain.Chain {
	t.Helper()
	c := chain.New(chain.WithCheckpointInterval(50))
	require.NoError(t, c.Initialize("fp-abc"))

	for _, data := range []string{"a", "b", "c"} {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: json.RawMessage(`"` + data + `"`),
		})
		require.NoError(t, err)
	}
	return c
}

// S1: three contentChange events, full verify succeeds.
func TestFullVerify_S1(t *testing.T) {
	c := buildS1Chain(t)
	events := c.Events()

	report, err := FullVerify(events, c.InitialHash())
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

// S2: flip one byte of events[1].hash; verify reports HashMismatch at index 1.
func TestFullVerify_S2_TamperedHash(t *testing.T) {
	c := buildS1Chain(t)
	events := c.Events()

	tampered := *events[1]
	if tampered.Hash[0] == 'a' {
		tampered.Hash = "b" + tampered.Hash[1:]
	} else {
		tampered.Hash = "a" + tampered.Hash[1:]
	}
	events[1] = &tampered

	report, err := FullVerify(events, c.InitialHash())
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, report.ErrorAt)
	assert.Equal(t, ReasonHashMismatch, report.Reason)
}

func TestFullVerify_EmptyChain(t *testing.T) {
	report, err := FullVerify(nil, "genesis")
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestFullVerify_SingleEvent(t *testing.T) {
	c := chain.New(chain.WithCheckpointInterval(50))
	require.NoError(t, c.Initialize("fp-abc"))
	_, err := c.RecordEvent(context.Background(), chain.RecordInput{
		Type: event.TypeContentChange,
		Data: json.RawMessage(`"a"`),
	})
	require.NoError(t, err)

	events := c.Events()
	report, err := FullVerify(events, c.InitialHash())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, events[0].Hash, c.CurrentHash())
}

// S4: 300 events, checkpoint interval 33 (9 checkpoints); corrupt
// events[150].timestamp below events[149].timestamp; sampled verify over
// the segment containing 150 (taken directly from BuildSegments; it is
// neither first nor last) reports TimestampViolation at errorAt==150.
func TestSampledVerify_S4_TimestampViolation(t *testing.T) {
	c := chain.New(chain.WithCheckpointInterval(33))
	require.NoError(t, c.Initialize("fp-abc"))
	for i := 0; i < 300; i++ {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: json.RawMessage(`"x"`),
		})
		require.NoError(t, err)
	}

	events := c.Events()
	cps := c.Checkpoints()
	require.Len(t, cps, 9)

	segments, err := checkpoint.BuildSegments(cps, c.InitialHash(), len(events), c.CurrentHash())
	require.NoError(t, err)

	var targetSegment *checkpoint.Segment
	for i := range segments {
		if segments[i].StartIndex <= 150 && 150 <= segments[i].EndIndex {
			targetSegment = &segments[i]
			break
		}
	}
	require.NotNil(t, targetSegment)

	tampered := *events[150]
	tampered.Timestamp = events[149].Timestamp - 1
	events[150] = &tampered

	report, err := SampledVerify(events, []checkpoint.Segment{*targetSegment})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, 150, report.ErrorAt)
	assert.Equal(t, ReasonTimestampViolation, report.Reason)
}

func TestSampledVerify_AllSegmentsPass(t *testing.T) {
	c := chain.New(chain.WithCheckpointInterval(10))
	require.NoError(t, c.Initialize("fp-abc"))
	for i := 0; i < 30; i++ {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: json.RawMessage(`"x"`),
		})
		require.NoError(t, err)
	}

	events := c.Events()
	cps := c.Checkpoints()
	segments, err := checkpoint.BuildSegments(cps, c.InitialHash(), len(events), c.CurrentHash())
	require.NoError(t, err)

	report, err := SampledVerify(events, segments)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, len(events), report.EventsVerified)
}
