// Package anchor provides optional external timestamping of an exported
// envelope's proof signature, adapted from the teacher's pkg/anchors registry.
// An anchor never participates in chain verification: it is additive
// metadata a host can attach after export, never something verify depends
// on to return valid.
package anchor

import "fmt"

// Provider is an external timestamping service bound to a single hash.
type Provider interface {
	// Name identifies the provider (e.g. "rfc3161", "drand").
	Name() string

	// Commit submits a hash for timestamping and returns the opaque proof.
	Commit(hash []byte) ([]byte, error)

	// Verify checks a proof against the hash it was issued for.
	Verify(hash, proof []byte) error
}

// Receipt is one provider's response to a commit request.
type Receipt struct {
	Provider string `json:"provider"`
	Proof    []byte `json:"proof"`
	Err      string `json:"error,omitempty"`
}

// Registry holds the set of providers a host has configured.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, keyed by its Name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// List returns the names of every registered provider.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// CommitAll submits hash to every registered provider, collecting one
// receipt per provider regardless of individual failures.
func (r *Registry) CommitAll(hash []byte) []Receipt {
	receipts := make([]Receipt, 0, len(r.providers))
	for name, p := range r.providers {
		proof, err := p.Commit(hash)
		receipt := Receipt{Provider: name, Proof: proof}
		if err != nil {
			receipt.Err = err.Error()
		}
		receipts = append(receipts, receipt)
	}
	return receipts
}

// VerifyReceipt checks a single named receipt against hash.
func (r *Registry) VerifyReceipt(hash []byte, receipt Receipt) error {
	p, ok := r.Get(receipt.Provider)
	if !ok {
		return fmt.Errorf("anchor: unknown provider %q", receipt.Provider)
	}
	return p.Verify(hash, receipt.Proof)
}
