package hwattest

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestSoftwareProviderDeviceID(t *testing.T) {
	provider := NewSoftwareProvider([]byte("host-seed"))

	id, err := provider.DeviceID()
	if err != nil {
		t.Fatalf("DeviceID failed: %v", err)
	}
	if len(id) != 16 {
		t.Errorf("expected 16-byte device ID, got %d bytes", len(id))
	}

	id2, _ := provider.DeviceID()
	if !bytes.Equal(id, id2) {
		t.Error("DeviceID should be stable across calls")
	}
}

func TestSoftwareProviderQuoteIncrementsCounter(t *testing.T) {
	provider := NewSoftwareProvider([]byte("host-seed"))

	hash := sha256.Sum256([]byte("checkpoint"))
	a1, err := provider.Quote(hash[:])
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if a1.MonotonicCounter != 1 {
		t.Errorf("expected counter 1, got %d", a1.MonotonicCounter)
	}
	if !a1.ClockInfo.Safe {
		t.Error("expected safe clock")
	}

	a2, err := provider.Quote(hash[:])
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if a2.MonotonicCounter <= a1.MonotonicCounter {
		t.Errorf("counter not strictly increasing: %d -> %d", a1.MonotonicCounter, a2.MonotonicCounter)
	}
}

func TestBinderBindAndVerify(t *testing.T) {
	binder := NewBinder(NewSoftwareProvider([]byte("host-seed")))
	if !binder.Available() {
		t.Fatal("binder should be available with a software provider")
	}

	hash := sha256.Sum256([]byte("checkpoint-1"))
	binding, err := binder.Bind(hash)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := VerifyBinding(binding); err != nil {
		t.Errorf("VerifyBinding failed: %v", err)
	}

	hash2 := sha256.Sum256([]byte("checkpoint-2"))
	binding2, err := binder.Bind(hash2)
	if err != nil {
		t.Fatalf("second Bind failed: %v", err)
	}
	if err := VerifyBinding(binding2); err != nil {
		t.Errorf("second VerifyBinding failed: %v", err)
	}
	if binding2.PreviousCounter != binding.Attestation.MonotonicCounter {
		t.Errorf("expected previous counter %d, got %d", binding.Attestation.MonotonicCounter, binding2.PreviousCounter)
	}
}

func TestVerifyBindingRejectsMismatchedHash(t *testing.T) {
	binder := NewBinder(NewSoftwareProvider([]byte("host-seed")))

	hash := sha256.Sum256([]byte("checkpoint"))
	binding, err := binder.Bind(hash)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	binding.CheckpointHash = sha256.Sum256([]byte("tampered"))
	if err := VerifyBinding(binding); err == nil {
		t.Error("expected VerifyBinding to reject a tampered checkpoint hash")
	}
}

func TestNoOpProviderUnavailable(t *testing.T) {
	binder := NewBinder(NoOpProvider{})
	if binder.Available() {
		t.Error("NoOpProvider backed binder should report unavailable")
	}

	hash := sha256.Sum256([]byte("x"))
	if _, err := binder.Bind(hash); err != ErrTPMNotAvailable {
		t.Errorf("expected ErrTPMNotAvailable, got %v", err)
	}
}

func TestBindingEncodeDecode(t *testing.T) {
	binder := NewBinder(NewSoftwareProvider([]byte("host-seed")))
	hash := sha256.Sum256([]byte("checkpoint"))
	binding, err := binder.Bind(hash)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	encoded, err := binding.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeBinding(encoded)
	if err != nil {
		t.Fatalf("DecodeBinding failed: %v", err)
	}
	if decoded.CheckpointHash != binding.CheckpointHash {
		t.Error("decoded checkpoint hash mismatch")
	}
	if decoded.Attestation.MonotonicCounter != binding.Attestation.MonotonicCounter {
		t.Error("decoded counter mismatch")
	}
}
