package envelope

import (
	"encoding/hex"
	"fmt"

	"typedcode/internal/hwattest"
)

// WithHardwareBinding quotes env's proof signature through binder and
// records the resulting TPM binding on env.Hardware. Like
// WithExternalAnchor, this is the only place hardware attestation touches
// an envelope: a host calls it after Export, and a verifier that ignores
// env.Hardware entirely still verifies correctly.
func WithHardwareBinding(env *Envelope, binder *hwattest.Binder) error {
	if binder == nil || !binder.Available() {
		return nil
	}

	signature, err := hex.DecodeString(env.Proof.Signature)
	if err != nil {
		return fmt.Errorf("envelope: decode proof signature for hardware binding: %w", err)
	}

	var hash [32]byte
	copy(hash[:], signature)

	binding, err := binder.Bind(hash)
	if err != nil {
		return fmt.Errorf("envelope: bind hardware attestation: %w", err)
	}
	env.Hardware = binding
	return nil
}
