// Package hashutil provides the canonical hashing primitives shared by the
// chain, checkpoint, and envelope packages: SHA-256 hex digests and a
// deterministic JSON encoding used wherever a value must hash the same way
// on every machine.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// SHA256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256HexString is a convenience wrapper over SHA256Hex for string input.
func SHA256HexString(s string) string {
	return SHA256Hex([]byte(s))
}

// Concat hashes the concatenation of the given byte slices in order,
// matching the chain's `SHA256(previousHash || eventData || nonce)` shape.
func Concat(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DetJSON renders v as deterministic JSON: object keys sorted
// lexicographically at every nesting level, no extra whitespace. Two calls
// with semantically equal values always produce byte-identical output,
// which is what lets independent verifiers recompute the same hash.
//
// v must first round-trip through encoding/json (directly marshalable, or
// already a json.RawMessage/map[string]any/[]any/primitive). Struct values
// are marshaled with their json tags and then re-canonicalized, so field
// order in the struct definition does not matter.
func DetJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("det_json: marshal: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("det_json: unmarshal: %w", err)
	}

	var buf []byte
	buf, err = appendCanonical(buf, decoded)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// MustDetJSON is DetJSON for call sites where the input is known to be
// JSON-marshalable (e.g. internal event structs); it panics otherwise.
func MustDetJSON(v interface{}) []byte {
	b, err := DetJSON(v)
	if err != nil {
		panic(err)
	}
	return b
}

func appendCanonical(buf []byte, v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		if val {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case string:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return append(buf, encoded...), nil
	case float64:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return append(buf, encoded...), nil
	case json.Number:
		return append(buf, val.String()...), nil
	case []interface{}:
		buf = append(buf, '[')
		for i, elem := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendCanonical(buf, elem)
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, ']')
		return buf, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyEncoded, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyEncoded...)
			buf = append(buf, ':')
			buf, err = appendCanonical(buf, val[k])
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return nil, fmt.Errorf("det_json: unsupported type %T", v)
	}
}
