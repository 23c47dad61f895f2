package envelope

import (
	"encoding/hex"
	"fmt"
	"time"

	"typedcode/internal/anchor"
	"typedcode/internal/metrics"
)

// WithExternalAnchor submits env's proof signature to every provider in reg
// and records the resulting receipts on env.ExternalAnchors. It is the only
// place external anchoring touches an envelope: a host calls it after
// Export, before persisting or transmitting the envelope, and a verifier
// that ignores ExternalAnchors entirely still verifies correctly.
func WithExternalAnchor(env *Envelope, reg *anchor.Registry) error {
	if reg == nil || len(reg.List()) == 0 {
		return nil
	}

	hash, err := hex.DecodeString(env.Proof.Signature)
	if err != nil {
		return fmt.Errorf("envelope: decode proof signature for anchoring: %w", err)
	}

	start := time.Now()
	receipts := reg.CommitAll(hash)
	env.ExternalAnchors = receipts

	succeeded := false
	for _, r := range receipts {
		if r.Err == "" {
			succeeded = true
			break
		}
	}
	metrics.GetChainMetrics().RecordAnchor(time.Since(start), succeeded)

	return nil
}
