package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/posw"
)

func buildEvent(t *testing.T, seq uint64, ts uint64, prevHash string, data string) *Event {
	t.Helper()
	e := &Event{
		Sequence:     seq,
		Timestamp:    ts,
		Type:         TypeContentChange,
		InputType:    InputInsertText,
		Data:         json.RawMessage(`"` + data + `"`),
		PreviousHash: prevHash,
	}
	coreJSON, err := e.CoreJSON()
	require.NoError(t, err)

	proof, err := posw.ComputeWithFreshNonce(prevHash, coreJSON)
	require.NoError(t, err)
	e.Posw = proof

	require.NoError(t, e.Finalize())
	return e
}

func TestEventChain_HashLinkage(t *testing.T) {
	e0 := buildEvent(t, 0, 0, "genesis", "a")
	e1 := buildEvent(t, 1, 1, e0.Hash, "b")
	e2 := buildEvent(t, 2, 2, e1.Hash, "c")

	assert.Equal(t, e0.Hash, e1.PreviousHash)
	assert.Equal(t, e1.Hash, e2.PreviousHash)
	assert.NotEqual(t, e0.Hash, e1.Hash)
}

func TestEvent_PoswVerifiesUnderCore(t *testing.T) {
	e := buildEvent(t, 0, 0, "genesis", "x")
	coreJSON, err := e.CoreJSON()
	require.NoError(t, err)

	err = posw.Verify(e.PreviousHash, coreJSON, e.Posw)
	assert.NoError(t, err)
}

func TestEvent_HashChangesIfDataTampered(t *testing.T) {
	e := buildEvent(t, 0, 0, "genesis", "x")
	original := e.Hash

	e.Data = json.RawMessage(`"y"`)
	recomputed, err := e.ComputeHash()
	require.NoError(t, err)

	assert.NotEqual(t, original, recomputed)
}

func TestIsAttestation(t *testing.T) {
	assert.True(t, TypeHumanAttestation.IsAttestation())
	assert.True(t, TypePreExportAttestation.IsAttestation())
	assert.False(t, TypeContentChange.IsAttestation())
}
