package envelope

import "encoding/json"

// MarshalJSON re-merges Extra's unrecognized keys alongside the known
// fields so a document that round-trips through Import survives a
// subsequent Export/re-encode without losing the forward-compatible
// fields Import preserved into memory.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	return marshalWithExtra(alias(e), e.Extra)
}

// MarshalJSON mirrors Envelope.MarshalJSON for the multi-file bundle shape.
func (e MultiFileEnvelope) MarshalJSON() ([]byte, error) {
	type alias MultiFileEnvelope
	return marshalWithExtra(alias(e), e.Extra)
}

// marshalWithExtra encodes v (a type alias with no MarshalJSON of its own,
// avoiding infinite recursion) and merges in any keys from extra that the
// known fields didn't already produce.
func marshalWithExtra(v interface{}, extra map[string]interface{}) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, exists := merged[k]; exists {
			continue
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}
