package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeMarshalJSONPreservesExtra(t *testing.T) {
	env := buildTestEnvelope(t)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	reimported, err := Import(data)
	require.NoError(t, err)
	reimported.Extra = map[string]interface{}{"futureField": "futureValue"}

	reencoded, err := json.Marshal(reimported)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(reencoded, &raw))
	assert.Equal(t, "futureValue", raw["futureField"])

	roundTripped, err := Import(reencoded)
	require.NoError(t, err)
	assert.Equal(t, "futureValue", roundTripped.Extra["futureField"])
}

func TestEnvelopeMarshalJSONKnownFieldsWin(t *testing.T) {
	env := buildTestEnvelope(t)
	env.Extra = map[string]interface{}{"version": "9.9.9"}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, env.Version, raw["version"])
}

func TestMultiFileEnvelopeMarshalJSONPreservesExtra(t *testing.T) {
	env := MultiFileEnvelope{
		Type:    "multi-file",
		Version: CurrentVersion,
		Files:   map[string]FileEntry{},
		Extra:   map[string]interface{}{"legacyFlag": true},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["legacyFlag"])
}
