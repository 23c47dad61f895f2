package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// majorVersion extracts the leading dot-separated component of a semver
// string ("1.2.3" -> "1"), tolerating a missing patch/minor.
func majorVersion(version string) string {
	if i := strings.IndexByte(version, '.'); i >= 0 {
		return version[:i]
	}
	return version
}

// CheckVersion rejects any version whose major component is not
// SupportedMajor, per §4.6's import policy.
func CheckVersion(version string) error {
	if majorVersion(version) != SupportedMajor {
		return &UnsupportedVersionError{Found: version}
	}
	return nil
}

var singleFileRequiredFields = []string{
	"version", "typingProofHash", "typingProofData", "proof", "fingerprint", "metadata",
}

// Import decodes and validates a single-file envelope: version gating,
// required-field presence, and preservation of unrecognized optional keys
// in Extra. It does not re-verify the hash chain; callers compose this
// with internal/verify for that.
func Import(data []byte) (*Envelope, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedError{Reason: err.Error()}
	}

	version, _ := raw["version"].(string)
	if version == "" {
		return nil, &MissingFieldError{Field: "version"}
	}
	if err := CheckVersion(version); err != nil {
		return nil, err
	}

	for _, f := range singleFileRequiredFields {
		if _, ok := raw[f]; !ok {
			return nil, &MissingFieldError{Field: f}
		}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedError{Reason: err.Error()}
	}

	if env.Proof.Events == nil && env.Proof.TotalEvents > 0 {
		return nil, &UnknownRequiredFieldError{Path: "proof.events"}
	}
	if env.TypingProofData.Metadata == (ProofMetadata{}) && env.TypingProofData.FinalContentHash == "" {
		return nil, &UnknownRequiredFieldError{Path: "typingProofData.metadata"}
	}

	known := make(map[string]struct{}, len(singleFileRequiredFields)+4)
	for _, f := range singleFileRequiredFields {
		known[f] = struct{}{}
	}
	known["checkpoints"] = struct{}{}
	known["mmr_root"] = struct{}{}
	known["coSignature"] = struct{}{}
	known["externalAnchors"] = struct{}{}
	known["hardware"] = struct{}{}

	extra := make(map[string]interface{})
	for k, v := range raw {
		if _, ok := known[k]; !ok {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		env.Extra = extra
	}

	log.Debug("envelope imported", "version", version, "total_events", env.Proof.TotalEvents)
	return &env, nil
}

var multiFileRequiredFields = []string{"type", "version", "files", "metadata"}

// ImportMultiFile decodes and validates a multi-file bundle envelope.
func ImportMultiFile(data []byte) (*MultiFileEnvelope, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedError{Reason: err.Error()}
	}

	typ, _ := raw["type"].(string)
	if typ != "multi-file" {
		return nil, &MalformedError{Reason: fmt.Sprintf("expected type \"multi-file\", got %q", typ)}
	}

	version, _ := raw["version"].(string)
	if version == "" {
		return nil, &MissingFieldError{Field: "version"}
	}
	if err := CheckVersion(version); err != nil {
		return nil, err
	}

	for _, f := range multiFileRequiredFields {
		if _, ok := raw[f]; !ok {
			return nil, &MissingFieldError{Field: f}
		}
	}

	var env MultiFileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedError{Reason: err.Error()}
	}

	for name, entry := range env.Files {
		if entry.Proof.Events == nil && entry.Proof.TotalEvents > 0 {
			return nil, &UnknownRequiredFieldError{Path: fmt.Sprintf("files[%s].proof.events", name)}
		}
	}

	known := map[string]struct{}{
		"type": {}, "version": {}, "files": {}, "tabSwitches": {}, "metadata": {},
	}
	extra := make(map[string]interface{})
	for k, v := range raw {
		if _, ok := known[k]; !ok {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		env.Extra = extra
	}

	log.Debug("multi-file envelope imported", "version", version, "files", len(env.Files))
	return &env, nil
}
