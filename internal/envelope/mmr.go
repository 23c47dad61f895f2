package envelope

import (
	"fmt"

	"typedcode/internal/checkpoint"
)

// WithInclusionProofs builds a Merkle Mountain Range accumulator over
// env.Checkpoints, attaches a per-checkpoint inclusion proof, and records
// the resulting root as env.MMRRoot. Like WithExternalAnchor and
// WithHardwareBinding, this is the only place the accumulator touches an
// envelope: a host calls it after Export, and a verifier that ignores
// MMRRoot/InclusionProof entirely still verifies the hash chain correctly.
// A no-op on an envelope with no checkpoints.
func WithInclusionProofs(env *Envelope) error {
	if len(env.Checkpoints) == 0 {
		return nil
	}

	root, withProofs, err := checkpoint.AttachInclusionProofs(env.Checkpoints)
	if err != nil {
		return fmt.Errorf("envelope: attach inclusion proofs: %w", err)
	}

	env.Checkpoints = withProofs
	env.MMRRoot = root
	log.Debug("inclusion proofs attached", "checkpoints", len(withProofs), "mmr_root", root)
	return nil
}

// VerifyInclusionProofs checks every checkpoint in env against env.MMRRoot.
// A no-op when env.MMRRoot is empty, since inclusion proofs are additive and
// never required for Report.Valid.
func VerifyInclusionProofs(env *Envelope) error {
	if env.MMRRoot == "" {
		return nil
	}
	return checkpoint.VerifyCheckpoints(env.Checkpoints, env.MMRRoot)
}
