// Package event defines the immutable event record that forms each link of
// a typing provenance hash chain: its type tags, its tagged-union payload,
// and the canonicalization rules used to compute its hash.
package event

import (
	"encoding/json"
	"fmt"

	"typedcode/internal/hashutil"
	"typedcode/internal/posw"
)

// Type enumerates the kinds of events the chain can record.
type Type string

const (
	TypeContentChange        Type = "contentChange"
	TypeCursorMove           Type = "cursorMove"
	TypeKeyDown              Type = "keyDown"
	TypeKeyUp                Type = "keyUp"
	TypeVisibility           Type = "visibility"
	TypeFocus                Type = "focus"
	TypeWindowResize         Type = "windowResize"
	TypeNetworkStatus        Type = "networkStatus"
	TypeHumanAttestation     Type = "humanAttestation"
	TypePreExportAttestation Type = "preExportAttestation"
	TypeTemplateInjection    Type = "templateInjection"
	TypeScreenshotCapture    Type = "screenshotCapture"
	TypeScreenShareStart     Type = "screenShareStart"
	TypeScreenShareStop      Type = "screenShareStop"
	TypeScreenShareOptOut    Type = "screenShareOptOut"
	TypeCodeExecution        Type = "codeExecution"
	TypeTerminalInput        Type = "terminalInput"
	TypeSessionResumed       Type = "sessionResumed"
	TypeTermsAccepted        Type = "termsAccepted"
)

// InputType is the optional sub-tag on contentChange events, matching the
// DOM `InputEvent.inputType` vocabulary.
type InputType string

const (
	InputInsertText           InputType = "insertText"
	InputDeleteContentBackward InputType = "deleteContentBackward"
	InputHistoryUndo          InputType = "historyUndo"
	InputHistoryRedo          InputType = "historyRedo"
	InputInsertFromPaste      InputType = "insertFromPaste"
	InputInsertFromDrop       InputType = "insertFromDrop"
	InputDeleteByCut          InputType = "deleteByCut"
)

// Range is a start/end line+column position pair, used for selections and
// replacement spans.
type Range struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// Event is one immutable link of the chain. Fields are tagged in the order
// they participate in the canonical encoding; json.Marshal's field order is
// irrelevant since hashutil.DetJSON re-sorts keys, but keeping the struct
// order close to the wire order helps readers compare the two.
type Event struct {
	Sequence     uint64          `json:"sequence"`
	Timestamp    uint64          `json:"timestamp"` // ms since chain start
	Type         Type            `json:"type"`
	InputType    InputType       `json:"inputType,omitempty"`
	Data         json.RawMessage `json:"data"`
	RangeOffset  *int            `json:"rangeOffset,omitempty"`
	RangeLength  *int            `json:"rangeLength,omitempty"`
	Range        *Range          `json:"range,omitempty"`
	PreviousHash string          `json:"previousHash"`
	Posw         *posw.Proof     `json:"posw"`
	Hash         string          `json:"hash"`
}

// core is the subset of Event fields hashed as `event_without_hash` and, for
// PoSW, `event_without_posw_and_hash`. It mirrors Event's JSON shape exactly
// (same field names) so det_json output matches across implementations.
type core struct {
	Sequence     uint64          `json:"sequence"`
	Timestamp    uint64          `json:"timestamp"`
	Type         Type            `json:"type"`
	InputType    InputType       `json:"inputType,omitempty"`
	Data         json.RawMessage `json:"data"`
	RangeOffset  *int            `json:"rangeOffset,omitempty"`
	RangeLength  *int            `json:"rangeLength,omitempty"`
	Range        *Range          `json:"range,omitempty"`
	PreviousHash string          `json:"previousHash"`
}

type coreWithPosw struct {
	core
	Posw *posw.Proof `json:"posw"`
}

func (e *Event) core() core {
	return core{
		Sequence:     e.Sequence,
		Timestamp:    e.Timestamp,
		Type:         e.Type,
		InputType:    e.InputType,
		Data:         e.Data,
		RangeOffset:  e.RangeOffset,
		RangeLength:  e.RangeLength,
		Range:        e.Range,
		PreviousHash: e.PreviousHash,
	}
}

// CoreJSON returns det_json(event_without_posw_and_hash), the byte string
// that the PoSW proof for this event is computed and verified against.
func (e *Event) CoreJSON() ([]byte, error) {
	return hashutil.DetJSON(e.core())
}

// WithPoswJSON returns det_json(event_without_hash), the byte string whose
// SHA-256 (prefixed by previousHash) becomes this event's hash.
func (e *Event) WithPoswJSON() ([]byte, error) {
	return hashutil.DetJSON(coreWithPosw{core: e.core(), Posw: e.Posw})
}

// ComputeHash derives this event's hash field from its current
// previousHash, core fields, and posw: SHA256(previousHash || det_json(event_without_hash)).
func (e *Event) ComputeHash() (string, error) {
	body, err := e.WithPoswJSON()
	if err != nil {
		return "", fmt.Errorf("event: encode for hashing: %w", err)
	}
	return hashutil.Concat([]byte(e.PreviousHash), body), nil
}

// Finalize computes and sets e.Hash from its current fields.
func (e *Event) Finalize() error {
	h, err := e.ComputeHash()
	if err != nil {
		return err
	}
	e.Hash = h
	return nil
}

// IsAttestation reports whether t is one of the attestation event types,
// used to enforce invariant (v): event 0, when present, must be a human
// attestation and cannot be inserted later.
func (t Type) IsAttestation() bool {
	return t == TypeHumanAttestation || t == TypePreExportAttestation
}
