// Package fingerprint collects the stable device attributes a chain seeds
// its initial hash from, and reduces them to a single opaque digest. The
// engine never interprets these attributes beyond hashing them: they arrive
// from the host environment (browser, editor shell) as already-collected
// values.
package fingerprint

import (
	"fmt"

	"typedcode/internal/hashutil"
)

// Screen describes the host's display geometry.
type Screen struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// WebGL carries the reported WebGL vendor/renderer strings, one of the
// canvas/WebGL probes used to stabilize the fingerprint across sessions on
// the same device.
type WebGL struct {
	Vendor   string `json:"vendor"`
	Renderer string `json:"renderer"`
}

// Components is the raw attribute bag a fingerprint is derived from. It is
// preserved verbatim alongside the derived hash so a verifier can recompute
// and cross-check it.
type Components struct {
	UserAgent           string   `json:"ua"`
	Platform            string   `json:"platform"`
	Language            string   `json:"language"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        int      `json:"deviceMemory"`
	Screen              Screen   `json:"screen"`
	Timezone            string   `json:"timezone"`
	Canvas              string   `json:"canvas"`
	WebGL               WebGL    `json:"webgl"`
	Fonts               []string `json:"fonts"`
	CookieEnabled       bool     `json:"cookieEnabled"`
	DoNotTrack          string   `json:"doNotTrack"`
	MaxTouchPoints      int      `json:"maxTouchPoints"`
}

// Fingerprint is the reduced device identity: a 64-hex SHA-256 digest of the
// component bag plus the bag itself.
type Fingerprint struct {
	Hash       string     `json:"hash"`
	Components Components `json:"components"`
}

// Derive computes the fingerprint hash for a component bag. The hash is
// over the canonical JSON encoding of Components so that re-deriving it
// from an imported envelope reproduces the same digest regardless of
// collection order.
func Derive(components Components) (*Fingerprint, error) {
	encoded, err := hashutil.DetJSON(components)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: encode components: %w", err)
	}
	return &Fingerprint{
		Hash:       hashutil.SHA256Hex(encoded),
		Components: components,
	}, nil
}

// FromHash builds a Fingerprint from a pre-computed hash without its
// component bag, used when importing an envelope that carries only the
// hash (the host chose not to disclose raw components).
func FromHash(hash string) *Fingerprint {
	return &Fingerprint{Hash: hash}
}
