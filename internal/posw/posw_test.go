package posw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAndVerify(t *testing.T) {
	nonce, err := NewNonce()
	require.NoError(t, err)

	proof, err := Compute("genesis", []byte(`{"seq":0}`), nonce)
	require.NoError(t, err)
	assert.Equal(t, uint32(Iterations), proof.Iterations)
	assert.Len(t, proof.Nonce, NonceSize*2)
	assert.Len(t, proof.IntermediateHash, 64)

	err = Verify("genesis", []byte(`{"seq":0}`), proof)
	assert.NoError(t, err)
}

func TestVerify_WrongEventData(t *testing.T) {
	proof, err := ComputeWithFreshNonce("h1", []byte(`{"seq":1}`))
	require.NoError(t, err)

	err = Verify("h1", []byte(`{"seq":2}`), proof)
	assert.Error(t, err)
}

func TestVerify_WrongPreviousHash(t *testing.T) {
	proof, err := ComputeWithFreshNonce("h1", []byte(`{"seq":1}`))
	require.NoError(t, err)

	err = Verify("h-different", []byte(`{"seq":1}`), proof)
	assert.Error(t, err)
}

func TestVerify_RejectsAlteredIterations(t *testing.T) {
	proof, err := ComputeWithFreshNonce("h1", []byte(`{"seq":1}`))
	require.NoError(t, err)

	tampered := *proof
	tampered.Iterations = 1
	err = Verify("h1", []byte(`{"seq":1}`), &tampered)
	assert.Error(t, err)
}

func TestVerify_RejectsBadNonceHex(t *testing.T) {
	proof := &Proof{Iterations: Iterations, Nonce: "not-hex", IntermediateHash: "00"}
	err := Verify("h1", []byte(`{}`), proof)
	assert.Error(t, err)
}

func TestDeterministic(t *testing.T) {
	proof1, err := Compute("h1", []byte(`{"seq":1}`), "00112233445566778899aabbccddeeff")
	require.NoError(t, err)
	proof2, err := Compute("h1", []byte(`{"seq":1}`), "00112233445566778899aabbccddeeff")
	require.NoError(t, err)
	assert.Equal(t, proof1.IntermediateHash, proof2.IntermediateHash)
}
