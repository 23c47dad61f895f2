package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256HexKnownVector(t *testing.T) {
	got := SHA256Hex([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestDetJSON_KeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2, "c": 3}
	b := map[string]interface{}{"c": 3, "a": 2, "b": 1}

	encodedA, err := DetJSON(a)
	require.NoError(t, err)
	encodedB, err := DetJSON(b)
	require.NoError(t, err)

	assert.Equal(t, string(encodedA), string(encodedB))
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(encodedA))
}

func TestDetJSON_Nested(t *testing.T) {
	v := map[string]interface{}{
		"z": []interface{}{1, 2, 3},
		"a": map[string]interface{}{"y": true, "x": nil},
	}
	encoded, err := DetJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":null,"y":true},"z":[1,2,3]}`, string(encoded))
}

func TestDetJSON_StructFieldOrderIgnored(t *testing.T) {
	type s1 struct {
		Beta  int `json:"beta"`
		Alpha int `json:"alpha"`
	}
	encoded, err := DetJSON(s1{Beta: 1, Alpha: 2})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":1}`, string(encoded))
}

func TestConcat(t *testing.T) {
	got := Concat([]byte("a"), []byte("b"), []byte("c"))
	want := SHA256Hex([]byte("abc"))
	assert.Equal(t, want, got)
}
