package envelope

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"typedcode/internal/signer"
)

// Cosign attaches an additive Ed25519 signature over the envelope's
// protocol-mandated proof.signature field. It never replaces that field;
// a verifier that does not understand CoSignature still verifies the
// chain exactly as before.
func Cosign(env *Envelope, priv ed25519.PrivateKey) {
	sig := signer.SignCommitment(priv, []byte(env.Proof.Signature))
	env.CoSignature = base64.StdEncoding.EncodeToString(sig)
}

// VerifyCosignature checks an envelope's optional co-signature against a
// public key. Returns an error if CoSignature is absent.
func VerifyCosignature(env *Envelope, pub ed25519.PublicKey) error {
	if env.CoSignature == "" {
		return fmt.Errorf("envelope: no co-signature present")
	}
	sig, err := base64.StdEncoding.DecodeString(env.CoSignature)
	if err != nil {
		return fmt.Errorf("envelope: decode co-signature: %w", err)
	}
	if !signer.VerifyCommitment(pub, []byte(env.Proof.Signature), sig) {
		return fmt.Errorf("envelope: co-signature verification failed")
	}
	return nil
}
