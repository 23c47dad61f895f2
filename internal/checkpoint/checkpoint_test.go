package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCheckpoints() []Checkpoint {
	return []Checkpoint{
		{EventIndex: 32, Hash: "h32", Timestamp: 32},
		{EventIndex: 65, Hash: "h65", Timestamp: 65},
		{EventIndex: 98, Hash: "h98", Timestamp: 98},
	}
}

func TestBuildSegments_HeadBetweenTail(t *testing.T) {
	segs, err := BuildSegments(sampleCheckpoints(), "genesis", 100, "hLast")
	require.NoError(t, err)
	require.Len(t, segs, 4)

	assert.Equal(t, Segment{StartIndex: 0, EndIndex: 32, StartHash: "genesis", ExpectedEndHash: "h32"}, segs[0])
	assert.Equal(t, Segment{StartIndex: 33, EndIndex: 65, StartHash: "h32", ExpectedEndHash: "h65"}, segs[1])
	assert.Equal(t, Segment{StartIndex: 66, EndIndex: 98, StartHash: "h65", ExpectedEndHash: "h98"}, segs[2])
	assert.Equal(t, Segment{StartIndex: 99, EndIndex: 99, StartHash: "h98", ExpectedEndHash: "hLast"}, segs[3])
}

func TestBuildSegments_NoCheckpoints(t *testing.T) {
	segs, err := BuildSegments(nil, "genesis", 5, "hLast")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, Segment{StartIndex: 0, EndIndex: 4, StartHash: "genesis", ExpectedEndHash: "hLast"}, segs[0])
}

func TestBuildSegments_Empty(t *testing.T) {
	segs, err := BuildSegments(nil, "genesis", 0, "")
	require.NoError(t, err)
	assert.Nil(t, segs)
}

func TestSelectSample_AlwaysIncludesFirstAndLast(t *testing.T) {
	segs, _ := BuildSegments(sampleCheckpoints(), "genesis", 100, "hLast")
	sample, err := SelectSample(segs, 2)
	require.NoError(t, err)
	require.Len(t, sample, 2)
	assert.Equal(t, segs[0], sample[0])
	assert.Equal(t, segs[len(segs)-1], sample[len(sample)-1])
}

func TestSelectSample_FewerSegmentsThanRequested(t *testing.T) {
	segs, _ := BuildSegments(sampleCheckpoints(), "genesis", 100, "hLast")
	sample, err := SelectSample(segs, 10)
	require.NoError(t, err)
	assert.Len(t, sample, len(segs))
}

func TestSelectSample_SortedByStartIndex(t *testing.T) {
	segs, _ := BuildSegments(sampleCheckpoints(), "genesis", 100, "hLast")
	sample, err := SelectSample(segs, 3)
	require.NoError(t, err)
	for i := 1; i < len(sample); i++ {
		assert.Less(t, sample[i-1].StartIndex, sample[i].StartIndex)
	}
}
