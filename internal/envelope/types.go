// Package envelope implements the export/import codec of §4.6: the
// passive, signed snapshot a chain is reduced to when a tab (or a whole
// session) is exported, and the reverse decode with version gating and
// schema validation. Grounded on the teacher's evidence.Packet tiered
// envelope, generalized from "layers of increasing evidence strength" to
// this protocol's fixed single-file/multi-file shape.
package envelope

import (
	"typedcode/internal/anchor"
	"typedcode/internal/checkpoint"
	"typedcode/internal/event"
	"typedcode/internal/fingerprint"
	"typedcode/internal/hwattest"
)

// CurrentVersion is the envelope version this codec writes.
const CurrentVersion = "1.0.0"

// SupportedMajor is the only major version this codec accepts on import.
const SupportedMajor = "1"

// ProofMetadata summarizes the event stream a proof covers.
type ProofMetadata struct {
	TotalEvents        int     `json:"totalEvents"`
	PasteEvents        int     `json:"pasteEvents"`
	DropEvents         int     `json:"dropEvents"`
	InsertEvents       int     `json:"insertEvents"`
	DeleteEvents       int     `json:"deleteEvents"`
	TotalTypingTime    uint64  `json:"totalTypingTime"`
	AverageTypingSpeed float64 `json:"averageTypingSpeed"`
}

// TypingProofData is the hashed payload typingProofHash commits to.
type TypingProofData struct {
	FinalContentHash    string        `json:"finalContentHash"`
	FinalEventChainHash string        `json:"finalEventChainHash"`
	DeviceID            string        `json:"deviceId"`
	Metadata            ProofMetadata `json:"metadata"`
}

// Proof carries the full event stream plus its outer commitment.
type Proof struct {
	TotalEvents int            `json:"totalEvents"`
	FinalHash   string         `json:"finalHash"`
	StartTime   int64          `json:"startTime"`
	EndTime     int64          `json:"endTime"`
	Signature   string         `json:"signature"`
	Events      []*event.Event `json:"events"`
}

// Metadata is the envelope's top-level descriptive block.
type Metadata struct {
	UserAgent    string `json:"userAgent"`
	Timestamp    int64  `json:"timestamp"`
	IsPureTyping bool   `json:"isPureTyping"`

	// Multi-file only.
	TotalFiles         int  `json:"totalFiles,omitempty"`
	OverallPureTyping  bool `json:"overallPureTyping,omitempty"`
}

// Envelope is the single-file export shape of §4.6.
type Envelope struct {
	Version         string                   `json:"version"`
	TypingProofHash string                   `json:"typingProofHash"`
	TypingProofData TypingProofData          `json:"typingProofData"`
	Proof           Proof                    `json:"proof"`
	Fingerprint     fingerprint.Fingerprint  `json:"fingerprint"`
	Metadata        Metadata                 `json:"metadata"`
	Checkpoints     []checkpoint.Checkpoint  `json:"checkpoints,omitempty"`

	// MMRRoot is the root of the Merkle Mountain Range accumulated over
	// Checkpoints, set by WithInclusionProofs. Absent unless the host
	// opted in; never consulted by verify to decide Report.Valid.
	MMRRoot string `json:"mmr_root,omitempty"`

	// CoSignature is an optional additive Ed25519 signature over
	// Proof.Signature, never a substitute for it.
	CoSignature string `json:"coSignature,omitempty"`

	// ExternalAnchors holds any timestamping receipts a host attached
	// with WithExternalAnchor. Absent unless the host opted in; never
	// consulted by verify to decide Report.Valid.
	ExternalAnchors []anchor.Receipt `json:"externalAnchors,omitempty"`

	// Hardware holds a TPM binding of this envelope's proof signature, if
	// the host called WithHardwareBinding after export. Never consulted by
	// verify to decide Report.Valid.
	Hardware *hwattest.Binding `json:"hardware,omitempty"`

	// Extra preserves unrecognized top-level keys verbatim so a
	// forward-compatible minor-version document round-trips without loss.
	Extra map[string]interface{} `json:"-"`
}

// FileEntry is one tab's contribution to a multi-file bundle.
type FileEntry struct {
	Content     string          `json:"content"`
	Language    string          `json:"language"`
	ContentHash string          `json:"contentHash"`
	Proof       Proof           `json:"proof"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

// TabSwitchEvent records a coordinator-level switch between tabs, time-
// stamped relative to the owning session rather than any single chain.
type TabSwitchEvent struct {
	FromFilename string `json:"fromFilename,omitempty"`
	ToFilename   string `json:"toFilename"`
	Timestamp    int64  `json:"timestamp"`
}

// MultiFileEnvelope is the bundle export shape of §4.6: a deterministic
// filename -> entry map plus the switches between them.
type MultiFileEnvelope struct {
	Type        string                 `json:"type"`
	Version     string                 `json:"version"`
	Files       map[string]FileEntry   `json:"files"`
	TabSwitches []TabSwitchEvent       `json:"tabSwitches"`
	Metadata    Metadata               `json:"metadata"`

	Extra map[string]interface{} `json:"-"`
}
