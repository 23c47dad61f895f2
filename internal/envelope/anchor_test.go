package envelope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/anchor"
	"typedcode/internal/chain"
	"typedcode/internal/event"
	"typedcode/internal/fingerprint"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Commit(hash []byte) ([]byte, error) {
	return append([]byte("stub-proof:"), hash...), nil
}
func (s *stubProvider) Verify(hash, proof []byte) error { return nil }

func buildTestEnvelope(t *testing.T) *Envelope {
	t.Helper()
	c := chain.New()
	require.NoError(t, c.Initialize(fingerprint.Fingerprint{}.Hash))
	_, err := c.RecordEvent(context.Background(), chain.RecordInput{
		Type: event.TypeContentChange,
		Data: []byte(`"x"`),
	})
	require.NoError(t, err)

	env, err := Export(ExportInput{Chain: c, Fingerprint: fingerprint.Fingerprint{}})
	require.NoError(t, err)
	return env
}

func TestWithExternalAnchor_NoRegistryIsNoOp(t *testing.T) {
	env := buildTestEnvelope(t)
	require.NoError(t, WithExternalAnchor(env, nil))
	assert.Empty(t, env.ExternalAnchors)
}

func TestWithExternalAnchor_CommitsToEveryProvider(t *testing.T) {
	env := buildTestEnvelope(t)

	reg := anchor.NewRegistry()
	reg.Register(&stubProvider{name: "rfc3161"})
	reg.Register(&stubProvider{name: "drand"})

	require.NoError(t, WithExternalAnchor(env, reg))
	assert.Len(t, env.ExternalAnchors, 2)
	for _, r := range env.ExternalAnchors {
		assert.Empty(t, r.Err)
		assert.NotEmpty(t, r.Proof)
	}
}
