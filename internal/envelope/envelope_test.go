package envelope

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/chain"
	"typedcode/internal/event"
	"typedcode/internal/fingerprint"
)

// corruptEntry rewrites a single named entry's content inside a zip archive,
// used to simulate transit corruption of an archived screenshot.
func corruptEntry(t *testing.T, archive []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)

		if f.Name == name {
			content = append(content, byte('!'))
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildChain(t *testing.T, inputTypes []event.InputType) *chain.Chain {
	t.Helper()
	c := chain.New(chain.WithCheckpointInterval(50))
	require.NoError(t, c.Initialize("fp-abc"))
	for _, it := range inputTypes {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type:      event.TypeContentChange,
			InputType: it,
			Data:      json.RawMessage(`"x"`),
		})
		require.NoError(t, err)
	}
	return c
}

func testFingerprint(t *testing.T) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.Derive(fingerprint.Components{UserAgent: "ua", Platform: "p"})
	require.NoError(t, err)
	return *fp
}

func TestExport_PureTyping(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertText, event.InputInsertText})
	env, err := Export(ExportInput{
		Chain:        c,
		FinalContent: []byte("hello"),
		DeviceID:     "dev-1",
		Fingerprint:  testFingerprint(t),
		UserAgent:    "ua",
	})
	require.NoError(t, err)

	assert.True(t, env.Metadata.IsPureTyping)
	assert.Equal(t, 2, env.TypingProofData.Metadata.TotalEvents)
	assert.Equal(t, 2, env.TypingProofData.Metadata.InsertEvents)
	assert.Equal(t, c.CurrentHash(), env.TypingProofData.FinalEventChainHash)
	assert.Equal(t, c.CurrentHash(), env.Proof.FinalHash)
	assert.NotEmpty(t, env.TypingProofHash)
	assert.NotEmpty(t, env.Proof.Signature)
}

func TestExport_PasteMarksNotPureTyping(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertFromPaste})
	env, err := Export(ExportInput{
		Chain:        c,
		FinalContent: []byte("pasted"),
		DeviceID:     "dev-1",
		Fingerprint:  testFingerprint(t),
		UserAgent:    "ua",
	})
	require.NoError(t, err)
	assert.False(t, env.Metadata.IsPureTyping)
	assert.Equal(t, 1, env.TypingProofData.Metadata.PasteEvents)
}

func TestExportImport_RoundTrip(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertText})
	env, err := Export(ExportInput{
		Chain:        c,
		FinalContent: []byte("x"),
		DeviceID:     "dev-1",
		Fingerprint:  testFingerprint(t),
		UserAgent:    "ua",
	})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	imported, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, env.Proof.FinalHash, imported.Proof.FinalHash)
	assert.Equal(t, env.TypingProofHash, imported.TypingProofHash)
	assert.Len(t, imported.Proof.Events, 1)
}

func TestImport_UnsupportedMajorVersion(t *testing.T) {
	doc := map[string]interface{}{
		"version":         "2.0.0",
		"typingProofHash": "h",
		"typingProofData": map[string]interface{}{},
		"proof":           map[string]interface{}{},
		"fingerprint":     map[string]interface{}{},
		"metadata":        map[string]interface{}{},
	}
	data, _ := json.Marshal(doc)

	_, err := Import(data)
	require.Error(t, err)
	var verr *UnsupportedVersionError
	assert.ErrorAs(t, err, &verr)
}

func TestImport_MissingRequiredField(t *testing.T) {
	doc := map[string]interface{}{"version": "1.0.0"}
	data, _ := json.Marshal(doc)

	_, err := Import(data)
	require.Error(t, err)
	var merr *MissingFieldError
	assert.ErrorAs(t, err, &merr)
}

func TestImport_PreservesUnknownOptionalField(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertText})
	env, err := Export(ExportInput{
		Chain:        c,
		FinalContent: []byte("x"),
		DeviceID:     "dev-1",
		Fingerprint:  testFingerprint(t),
		UserAgent:    "ua",
	})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &generic))
	generic["futureField"] = "from a later minor version"
	data, err = json.Marshal(generic)
	require.NoError(t, err)

	imported, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, "from a later minor version", imported.Extra["futureField"])
}

func TestDeduplicateFilenames(t *testing.T) {
	out := DeduplicateFilenames([]string{"main.c", "main.c", "util.go", "main.c"})
	assert.Equal(t, []string{"main.c", "main_1.c", "util.go", "main_2.c"}, out)
}

// S6: two tabs named main.c, both pure typing; bundle overallPureTyping is true.
func TestExportMultiFile_DeterministicDedup(t *testing.T) {
	c1 := buildChain(t, []event.InputType{event.InputInsertText})
	c2 := buildChain(t, []event.InputType{event.InputInsertText})

	bundle, err := ExportMultiFile([]TabExportInput{
		{
			Filename: "main.c",
			Language: "c",
			Content:  []byte("a"),
			ExportInput: ExportInput{
				Chain: c1, FinalContent: []byte("a"), DeviceID: "dev-1",
				Fingerprint: testFingerprint(t), UserAgent: "ua",
			},
		},
		{
			Filename: "main.c",
			Language: "c",
			Content:  []byte("b"),
			ExportInput: ExportInput{
				Chain: c2, FinalContent: []byte("b"), DeviceID: "dev-1",
				Fingerprint: testFingerprint(t), UserAgent: "ua",
			},
		},
	}, nil, "ua", 123)
	require.NoError(t, err)

	_, hasOriginal := bundle.Files["main.c"]
	_, hasDeduped := bundle.Files["main_1.c"]
	assert.True(t, hasOriginal)
	assert.True(t, hasDeduped)
	assert.True(t, bundle.Metadata.OverallPureTyping)
	assert.Equal(t, 2, bundle.Metadata.TotalFiles)
}

func TestCosignVerifyCosignature(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertText})
	env, err := Export(ExportInput{
		Chain: c, FinalContent: []byte("x"), DeviceID: "d",
		Fingerprint: testFingerprint(t), UserAgent: "ua",
	})
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	Cosign(env, priv)
	require.NoError(t, VerifyCosignature(env, pub))

	other, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	assert.Error(t, VerifyCosignature(env, other))
}

func TestBuildOpenArchive_RoundTrip(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertText})
	env, err := Export(ExportInput{
		Chain: c, FinalContent: []byte("x"), DeviceID: "d",
		Fingerprint: testFingerprint(t), UserAgent: "ua",
	})
	require.NoError(t, err)
	envJSON, err := json.Marshal(env)
	require.NoError(t, err)

	screenshots := map[string][]byte{"shot1.png": []byte("fake-png-bytes")}
	archive, err := BuildArchive(envJSON, screenshots)
	require.NoError(t, err)

	gotEnv, gotShots, err := OpenArchive(archive)
	require.NoError(t, err)
	assert.Equal(t, envJSON, gotEnv)
	assert.Equal(t, screenshots["shot1.png"], gotShots["shot1.png"])
}

func TestOpenArchive_DetectsTamperedScreenshot(t *testing.T) {
	c := buildChain(t, []event.InputType{event.InputInsertText})
	env, err := Export(ExportInput{
		Chain: c, FinalContent: []byte("x"), DeviceID: "d",
		Fingerprint: testFingerprint(t), UserAgent: "ua",
	})
	require.NoError(t, err)
	envJSON, err := json.Marshal(env)
	require.NoError(t, err)

	archive, err := BuildArchive(envJSON, map[string][]byte{"shot1.png": []byte("original")})
	require.NoError(t, err)

	tampered := corruptEntry(t, archive, "screenshots/shot1.png")
	_, _, err = OpenArchive(tampered)
	require.Error(t, err)
	var herr *ScreenshotHashMismatchError
	assert.ErrorAs(t, err, &herr)
}
