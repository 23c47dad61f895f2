package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"typedcode/internal/chain"
	"typedcode/internal/checkpoint"
	"typedcode/internal/envelope"
	"typedcode/internal/event"
	"typedcode/internal/fingerprint"
)

func writeTestEnvelope(t *testing.T, dir, name string) string {
	t.Helper()
	c := chain.New()
	require.NoError(t, c.Initialize(fingerprint.Fingerprint{}.Hash))
	for i := 0; i < 5; i++ {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: []byte(`"x"`),
		})
		require.NoError(t, err)
	}

	env, err := envelope.Export(envelope.ExportInput{Chain: c, Fingerprint: fingerprint.Fingerprint{}})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunValidEnvelopeExitsZero(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEnvelope(t, dir, "evidence.json")

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "PASS")
	require.Empty(t, stderr.String())
}

func TestRunTamperedEnvelopeExitsOne(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEnvelope(t, dir, "evidence.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := bytes.Replace(data, []byte(`"sequence":2`), []byte(`"sequence":99`), 1)
	require.NotEqual(t, data, tampered, "expected sequence field to be present in the envelope JSON")
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "verification failed")
}

func TestRunMissingFileExitsOne(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{filepath.Join(t.TempDir(), "missing.json")}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "error:")
}

func TestRunNoArgsExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{}, &stdout, &stderr)
	require.Equal(t, 2, code)
}

func TestRunUnknownFormatExitsTwo(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEnvelope(t, dir, "evidence.json")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-format", "bogus", path}, &stdout, &stderr)
	require.Equal(t, 2, code)
}

func TestRunJSONFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEnvelope(t, dir, "evidence.json")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-format", "json", path}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), `"valid": true`)
}

func writeTestEnvelopeWithInclusionProofs(t *testing.T, dir, name string) string {
	t.Helper()
	c := chain.New()
	require.NoError(t, c.Initialize(fingerprint.Fingerprint{}.Hash))
	for i := 0; i < 5; i++ {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: []byte(`"x"`),
		})
		require.NoError(t, err)
	}

	env, err := envelope.Export(envelope.ExportInput{Chain: c, Fingerprint: fingerprint.Fingerprint{}})
	require.NoError(t, err)

	env.Checkpoints = []checkpoint.Checkpoint{
		{EventIndex: 4, Hash: env.Proof.Events[4].Hash, Timestamp: 1000},
	}
	require.NoError(t, envelope.WithInclusionProofs(env))

	data, err := json.Marshal(env)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVerifyOnce_PrintsInclusionProofStatusOK(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEnvelopeWithInclusionProofs(t, dir, "evidence.json")

	var stdout, stderr bytes.Buffer
	code := verifyOnce(path, verifyOptions{format: "text"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "inclusion proofs: OK")
}

func TestVerifyOnce_PrintsInclusionProofStatusFail(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEnvelopeWithInclusionProofs(t, dir, "evidence.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := bytes.Replace(data, []byte(`"mmr_root":"`), []byte(`"mmr_root":"ff`), 1)
	require.NotEqual(t, data, tampered, "expected mmr_root field to be present in the envelope JSON")
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	var stdout, stderr bytes.Buffer
	code := verifyOnce(path, verifyOptions{format: "text"}, &stdout, &stderr)
	require.Equal(t, 0, code, "a tampered mmr_root must not affect the core verification verdict")
	require.Contains(t, stdout.String(), "inclusion proofs: FAIL")
}
