package envelope

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"typedcode/internal/chain"
	"typedcode/internal/event"
	"typedcode/internal/fingerprint"
	"typedcode/internal/hashutil"
	"typedcode/internal/logging"
	"typedcode/internal/metrics"
)

var log = logging.Default().WithComponent("envelope")

// ExportInput is the host-supplied material that only the caller knows:
// the chain has no notion of file content, device identity, or user agent.
type ExportInput struct {
	Chain        *chain.Chain
	FinalContent []byte
	DeviceID     string
	Fingerprint  fingerprint.Fingerprint
	UserAgent    string
}

// computeProofMetadata scans events for the counters and timing §4.6
// derives from the event stream.
func computeProofMetadata(events []*event.Event) ProofMetadata {
	m := ProofMetadata{TotalEvents: len(events)}
	if len(events) == 0 {
		return m
	}

	for _, e := range events {
		if e.Type != event.TypeContentChange {
			continue
		}
		switch e.InputType {
		case event.InputInsertFromPaste:
			m.PasteEvents++
		case event.InputInsertFromDrop:
			m.DropEvents++
		case event.InputInsertText:
			m.InsertEvents++
		case event.InputDeleteContentBackward, event.InputDeleteByCut:
			m.DeleteEvents++
		}
	}

	m.TotalTypingTime = events[len(events)-1].Timestamp - events[0].Timestamp
	minutes := float64(m.TotalTypingTime) / 60000.0
	if minutes > 0 {
		m.AverageTypingSpeed = float64(m.TotalEvents) / minutes
	}
	return m
}

// isPureTyping reports whether the scanned metadata shows no paste or drop
// activity, the protocol's definition of "pure typing".
func isPureTyping(m ProofMetadata) bool {
	return m.PasteEvents == 0 && m.DropEvents == 0
}

// buildProof assembles the proof block and its signature per §4.6's
// derivation: signature = sha256_hex(det_json({totalEvents, finalHash,
// startTime, endTime, events})).
func buildProof(events []*event.Event, finalHash string, startTime, endTime int64) (Proof, error) {
	p := Proof{
		TotalEvents: len(events),
		FinalHash:   finalHash,
		StartTime:   startTime,
		EndTime:     endTime,
		Events:      events,
	}

	signed := struct {
		TotalEvents int            `json:"totalEvents"`
		FinalHash   string         `json:"finalHash"`
		StartTime   int64          `json:"startTime"`
		EndTime     int64          `json:"endTime"`
		Events      []*event.Event `json:"events"`
	}{p.TotalEvents, p.FinalHash, p.StartTime, p.EndTime, p.Events}

	encoded, err := hashutil.DetJSON(signed)
	if err != nil {
		return Proof{}, fmt.Errorf("envelope: encode signature payload: %w", err)
	}
	p.Signature = hashutil.SHA256Hex(encoded)
	return p, nil
}

// Export produces a single-file envelope from a terminated or still-active
// chain. The caller is responsible for having recorded any required
// pre-export attestation beforehand (§4.3).
func Export(in ExportInput) (*Envelope, error) {
	events := in.Chain.Events()
	state := in.Chain.SerializeState()

	var endTime int64
	if len(events) > 0 {
		endTime = state.StartTime + int64(events[len(events)-1].Timestamp)
	} else {
		endTime = state.StartTime
	}

	proof, err := buildProof(events, state.CurrentHash, state.StartTime, endTime)
	if err != nil {
		return nil, err
	}

	metadata := computeProofMetadata(events)
	typingData := TypingProofData{
		FinalContentHash:    hashutil.SHA256Hex(in.FinalContent),
		FinalEventChainHash: state.CurrentHash,
		DeviceID:            in.DeviceID,
		Metadata:            metadata,
	}

	encoded, err := hashutil.DetJSON(typingData)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode typingProofData: %w", err)
	}

	env := &Envelope{
		Version:         CurrentVersion,
		TypingProofHash: hashutil.SHA256Hex(encoded),
		TypingProofData: typingData,
		Proof:           proof,
		Fingerprint:     in.Fingerprint,
		Metadata: Metadata{
			UserAgent:    in.UserAgent,
			Timestamp:    time.Now().UnixMilli(),
			IsPureTyping: isPureTyping(metadata),
		},
		Checkpoints: state.Checkpoints,
	}

	metrics.GetChainMetrics().RecordExport()
	log.Info("envelope exported", "total_events", proof.TotalEvents, "checkpoints", len(env.Checkpoints))
	logging.DefaultAuditLogger().LogExport(context.Background(), in.DeviceID, env.TypingProofHash)
	return env, nil
}

// TabExportInput names a single tab's contribution to a multi-file bundle.
type TabExportInput struct {
	Filename string
	Language string
	Content  []byte
	ExportInput
}

// ExportMultiFile builds a bundle envelope from one or more tabs, applying
// §4.6's deterministic filename de-duplication before assembling the
// files map.
func ExportMultiFile(tabs []TabExportInput, switches []TabSwitchEvent, userAgent string, timestamp int64) (*MultiFileEnvelope, error) {
	names := make([]string, len(tabs))
	for i, t := range tabs {
		names[i] = t.Filename
	}
	deduped := DeduplicateFilenames(names)

	files := make(map[string]FileEntry, len(tabs))
	allPure := true

	for i, t := range tabs {
		single, err := Export(t.ExportInput)
		if err != nil {
			return nil, fmt.Errorf("envelope: export tab %q: %w", t.Filename, err)
		}
		entry := FileEntry{
			Content:     string(t.Content),
			Language:    t.Language,
			ContentHash: single.TypingProofData.FinalContentHash,
			Proof:       single.Proof,
			Fingerprint: single.Fingerprint,
		}
		files[deduped[i]] = entry
		allPure = allPure && single.Metadata.IsPureTyping
	}

	log.Info("multi-file envelope exported", "files", len(tabs), "pure_typing", allPure)

	return &MultiFileEnvelope{
		Type:        "multi-file",
		Version:     CurrentVersion,
		Files:       files,
		TabSwitches: switches,
		Metadata: Metadata{
			UserAgent:         userAgent,
			Timestamp:         timestamp,
			IsPureTyping:      allPure,
			TotalFiles:        len(tabs),
			OverallPureTyping: allPure,
		},
	}, nil
}

// DeduplicateFilenames resolves collisions by suffixing `_1`, `_2`, ...
// before the extension, in input order, deterministically.
func DeduplicateFilenames(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))

	for i, name := range names {
		n := seen[name]
		seen[name] = n + 1
		if n == 0 {
			out[i] = name
			continue
		}
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		out[i] = fmt.Sprintf("%s_%d%s", base, n, ext)
	}

	return out
}
