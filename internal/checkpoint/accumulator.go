package checkpoint

import (
	"encoding/hex"
	"fmt"

	"typedcode/internal/mmr"
)

// Accumulator publishes a compact Merkle Mountain Range root over a
// chain's checkpoint hashes, so a third party can verify "checkpoint K is
// included in this chain's history" without holding every event between
// checkpoints. It is a thin adapter over internal/mmr's in-memory
// accumulator: one leaf per checkpoint, appended in EventIndex order.
type Accumulator struct {
	tree *mmr.MMR
}

// NewAccumulator creates an empty accumulator backed by an in-memory MMR
// store.
func NewAccumulator() (*Accumulator, error) {
	tree, err := mmr.New(mmr.NewMemoryStore())
	if err != nil {
		return nil, fmt.Errorf("checkpoint: new accumulator: %w", err)
	}
	return &Accumulator{tree: tree}, nil
}

// BuildAccumulator appends every checkpoint's hash, in order, to a fresh
// accumulator and returns it alongside the resulting root.
func BuildAccumulator(checkpoints []Checkpoint) (*Accumulator, string, error) {
	acc, err := NewAccumulator()
	if err != nil {
		return nil, "", err
	}
	for _, cp := range checkpoints {
		if err := acc.Append(cp); err != nil {
			return nil, "", err
		}
	}
	root, err := acc.Root()
	if err != nil {
		return nil, "", err
	}
	return acc, root, nil
}

// Append adds one checkpoint's hash as the next MMR leaf. Checkpoints must
// be appended in the same order the chain emitted them; the accumulator
// does not re-sort.
func (a *Accumulator) Append(cp Checkpoint) error {
	hash, err := hex.DecodeString(cp.Hash)
	if err != nil {
		return fmt.Errorf("checkpoint: decode checkpoint hash for accumulator: %w", err)
	}
	if _, err := a.tree.Append(hash); err != nil {
		return fmt.Errorf("checkpoint: append to accumulator: %w", err)
	}
	return nil
}

// Root returns the accumulator's current MMR root as a hex string.
func (a *Accumulator) Root() (string, error) {
	root, err := a.tree.GetRoot()
	if err != nil {
		return "", fmt.Errorf("checkpoint: accumulator root: %w", err)
	}
	return hex.EncodeToString(root[:]), nil
}

// InclusionProof is a portable inclusion proof for one checkpoint within
// an accumulator's leaf set, carrying the leaf's ordinal alongside the
// underlying MMR proof so a verifier need not recompute it.
type InclusionProof struct {
	CheckpointOrdinal uint64
	proof             *mmr.InclusionProof
}

// Prove returns an inclusion proof for the checkpoint at the given
// ordinal (its position among appended checkpoints, not its EventIndex).
func (a *Accumulator) Prove(ordinal uint64) (*InclusionProof, error) {
	leafIndex, err := a.tree.GetLeafIndex(ordinal)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: resolve checkpoint ordinal %d: %w", ordinal, err)
	}
	proof, err := a.tree.GenerateProof(leafIndex)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: prove checkpoint ordinal %d: %w", ordinal, err)
	}
	return &InclusionProof{CheckpointOrdinal: ordinal, proof: proof}, nil
}

// VerifyInclusion checks that cp is included in the accumulator that
// produced proof, against the given root.
func VerifyInclusion(proof *InclusionProof, cp Checkpoint, root string) error {
	hash, err := hex.DecodeString(cp.Hash)
	if err != nil {
		return fmt.Errorf("checkpoint: decode checkpoint hash: %w", err)
	}
	if err := proof.proof.Verify(hash); err != nil {
		return fmt.Errorf("checkpoint: inclusion proof failed: %w", err)
	}
	gotRoot := hex.EncodeToString(proof.proof.Root[:])
	if gotRoot != root {
		return fmt.Errorf("checkpoint: inclusion proof root mismatch: expected %s, got %s", root, gotRoot)
	}
	return nil
}

// Hex returns proof's compact binary serialization as a hex string, the
// form a Checkpoint.InclusionProof field (and thus the exported envelope)
// carries it in.
func (p *InclusionProof) Hex() string {
	return hex.EncodeToString(p.proof.Serialize())
}

// ParseInclusionProofHex reconstructs an InclusionProof for the given
// checkpoint ordinal from its hex-encoded serialization.
func ParseInclusionProofHex(ordinal uint64, s string) (*InclusionProof, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decode inclusion proof hex: %w", err)
	}
	proof, err := mmr.DeserializeInclusionProof(data)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: deserialize inclusion proof: %w", err)
	}
	return &InclusionProof{CheckpointOrdinal: ordinal, proof: proof}, nil
}

// AttachInclusionProofs builds an accumulator over checkpoints, proves
// inclusion for each one, and returns the root alongside a copy of
// checkpoints with InclusionProof populated. It leaves the input slice
// untouched.
func AttachInclusionProofs(checkpoints []Checkpoint) (string, []Checkpoint, error) {
	if len(checkpoints) == 0 {
		return "", nil, nil
	}

	acc, root, err := BuildAccumulator(checkpoints)
	if err != nil {
		return "", nil, fmt.Errorf("checkpoint: build accumulator: %w", err)
	}

	out := make([]Checkpoint, len(checkpoints))
	for i, cp := range checkpoints {
		proof, err := acc.Prove(uint64(i))
		if err != nil {
			return "", nil, fmt.Errorf("checkpoint: prove checkpoint %d: %w", i, err)
		}
		cp.InclusionProof = proof.Hex()
		out[i] = cp
	}
	return root, out, nil
}

// VerifyCheckpoints checks every checkpoint's InclusionProof against root.
// It is a no-op when root is empty, the state a checkpoint list is in
// before AttachInclusionProofs has ever been applied to it.
func VerifyCheckpoints(checkpoints []Checkpoint, root string) error {
	if root == "" {
		return nil
	}
	for i, cp := range checkpoints {
		if cp.InclusionProof == "" {
			return fmt.Errorf("checkpoint: checkpoint %d missing inclusion proof", i)
		}
		proof, err := ParseInclusionProofHex(uint64(i), cp.InclusionProof)
		if err != nil {
			return fmt.Errorf("checkpoint: checkpoint %d: %w", i, err)
		}
		if err := VerifyInclusion(proof, cp, root); err != nil {
			return fmt.Errorf("checkpoint: checkpoint %d: %w", i, err)
		}
	}
	return nil
}
