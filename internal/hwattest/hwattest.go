// Package hwattest provides optional hardware co-attestation of a
// checkpoint hash: when a TPM is available, the exporter can bind the
// envelope's proof signature to a TPM quote carrying a strictly-increasing
// monotonic counter and a signed clock reading. Grounded on the teacher's
// internal/tpm Provider/Binder design, trimmed to the quote-and-bind path
// this protocol needs and dropped of key-sealing and PCR-policy machinery
// that attestation does not use here.
package hwattest

import (
	"crypto"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrTPMNotAvailable = errors.New("hwattest: TPM not available")
	ErrTPMNotOpen      = errors.New("hwattest: TPM not open")
	ErrTPMAlreadyOpen  = errors.New("hwattest: TPM already open")
)

// ClockInfo is a TPM clock attestation, copied verbatim from the quote.
type ClockInfo struct {
	Clock        uint64 `json:"clock"`
	ResetCount   uint32 `json:"resetCount"`
	RestartCount uint32 `json:"restartCount"`
	Safe         bool   `json:"safe"`
}

// Attestation is one TPM quote over a piece of data.
type Attestation struct {
	DeviceID         []byte    `json:"deviceId"`
	MonotonicCounter uint64    `json:"monotonicCounter"`
	ClockInfo        ClockInfo `json:"clockInfo"`
	Data             []byte    `json:"data"`
	Signature        []byte    `json:"signature"`
	Quote            []byte    `json:"quote"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Binding binds a checkpoint hash to a TPM attestation.
type Binding struct {
	CheckpointHash  [32]byte    `json:"checkpointHash"`
	Attestation     Attestation `json:"attestation"`
	PreviousCounter uint64      `json:"previousCounter,omitempty"`
}

// Provider abstracts the narrow slice of TPM 2.0 operations hwattest uses.
type Provider interface {
	Available() bool
	DeviceID() ([]byte, error)
	PublicKey() (crypto.PublicKey, error)
	Quote(data []byte) (*Attestation, error)
	Close() error
}

// Binder issues TPM bindings for successive checkpoints, tracking the
// previous counter so VerifyBinding can enforce strict monotonicity.
type Binder struct {
	provider    Provider
	lastCounter uint64
}

// NewBinder wraps a Provider. provider may be nil, in which case Available
// reports false and Bind always fails.
func NewBinder(provider Provider) *Binder {
	return &Binder{provider: provider}
}

// Available reports whether a usable TPM is behind this binder.
func (b *Binder) Available() bool {
	return b.provider != nil && b.provider.Available()
}

// Bind produces a TPM quote over checkpointHash.
func (b *Binder) Bind(checkpointHash [32]byte) (*Binding, error) {
	if !b.Available() {
		return nil, ErrTPMNotAvailable
	}

	attestation, err := b.provider.Quote(checkpointHash[:])
	if err != nil {
		return nil, err
	}

	binding := &Binding{
		CheckpointHash:  checkpointHash,
		Attestation:     *attestation,
		PreviousCounter: b.lastCounter,
	}
	b.lastCounter = attestation.MonotonicCounter
	return binding, nil
}

// VerifyBinding checks a TPM binding's internal consistency: the counter
// advanced, the clock was in a safe state, a signature is present, and the
// attested data is exactly the claimed checkpoint hash.
func VerifyBinding(binding *Binding) error {
	if binding.Attestation.MonotonicCounter <= binding.PreviousCounter {
		return errors.New("hwattest: monotonic counter not strictly increasing")
	}
	if !binding.Attestation.ClockInfo.Safe {
		return errors.New("hwattest: TPM clock is not in safe state")
	}
	if len(binding.Attestation.Signature) == 0 {
		return errors.New("hwattest: missing TPM signature")
	}
	if len(binding.Attestation.Data) < 32 {
		return errors.New("hwattest: attestation data too short")
	}

	var attested [32]byte
	copy(attested[:], binding.Attestation.Data[:32])
	if attested != binding.CheckpointHash {
		return errors.New("hwattest: attestation does not match checkpoint")
	}
	return nil
}

// Encode serializes a binding to JSON for inclusion in an envelope.
func (b *Binding) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBinding deserializes a binding previously produced by Encode.
func DecodeBinding(data []byte) (*Binding, error) {
	var b Binding
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// NoOpProvider reports no TPM present; the zero value is ready to use.
type NoOpProvider struct{}

func (NoOpProvider) Available() bool                     { return false }
func (NoOpProvider) DeviceID() ([]byte, error)            { return nil, ErrTPMNotAvailable }
func (NoOpProvider) PublicKey() (crypto.PublicKey, error) { return nil, ErrTPMNotAvailable }
func (NoOpProvider) Quote([]byte) (*Attestation, error)   { return nil, ErrTPMNotAvailable }
func (NoOpProvider) Close() error                         { return nil }

// SoftwareProvider simulates a TPM quote with an HMAC-like hash in place of
// a real signature. It provides no hardware security guarantee and exists
// so hosts without a TPM can still exercise the Binder/Binding pipeline in
// development and tests.
type SoftwareProvider struct {
	deviceID  []byte
	counter   uint64
	startTime time.Time
}

// NewSoftwareProvider constructs a simulated TPM seeded from seed (use a
// stable per-host value; a fresh random seed each run defeats the purpose
// of a device identifier).
func NewSoftwareProvider(seed []byte) *SoftwareProvider {
	id := sha256.Sum256(seed)
	return &SoftwareProvider{
		deviceID:  id[:16],
		startTime: time.Now(),
	}
}

func (s *SoftwareProvider) Available() bool { return true }

func (s *SoftwareProvider) DeviceID() ([]byte, error) { return s.deviceID, nil }

func (s *SoftwareProvider) PublicKey() (crypto.PublicKey, error) { return nil, nil }

func (s *SoftwareProvider) Quote(data []byte) (*Attestation, error) {
	s.counter++

	h := sha256.New()
	h.Write(data)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.counter)
	h.Write(buf[:])

	return &Attestation{
		DeviceID:         s.deviceID,
		MonotonicCounter: s.counter,
		ClockInfo: ClockInfo{
			Clock: uint64(time.Since(s.startTime).Milliseconds()),
			Safe:  true,
		},
		Data:      data,
		Signature: h.Sum(nil),
		CreatedAt: time.Now(),
	}, nil
}

func (s *SoftwareProvider) Close() error { return nil }

// Detect returns the best available provider on this host: a hardware TPM
// if detectHardware finds and can open one, else nil (callers should fall
// back to SoftwareProvider themselves if they want one).
func Detect() Provider {
	if p := detectHardware(); p != nil {
		return p
	}
	return nil
}
