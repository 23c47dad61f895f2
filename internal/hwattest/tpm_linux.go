//go:build linux

// Hardware TPM 2.0 provider for Linux, adapted from the teacher's
// internal/tpm HardwareProvider. Trimmed of PCR policy sessions and key
// sealing: hwattest only needs a quote binding a counter, a clock reading,
// and a signature to the checkpoint hash, not a sealed-storage story.
package hwattest

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

var tpmDevicePaths = []string{
	"/dev/tpmrm0",
	"/dev/tpm0",
}

// NV index for the hwattest monotonic counter, in the user-defined NV
// space (0x01500000-0x01FFFFFF).
const (
	nvCounterIndex = 0x01500001
	nvCounterSize  = 8
)

// HardwareProvider implements Provider using a real TPM 2.0 device.
type HardwareProvider struct {
	mu          sync.Mutex
	devicePath  string
	transport   transport.TPM
	isOpen      bool
	akHandle    tpm2.TPMHandle
	akPublic    *rsa.PublicKey
	counterInit bool
}

func detectHardware() Provider {
	for _, path := range tpmDevicePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			continue
		}
		f.Close()

		h := &HardwareProvider{devicePath: path}
		if err := h.open(); err != nil {
			continue
		}
		return h
	}
	return nil
}

func (h *HardwareProvider) Available() bool {
	if h.devicePath == "" {
		return false
	}
	_, err := os.Stat(h.devicePath)
	return err == nil
}

func (h *HardwareProvider) open() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isOpen {
		return ErrTPMAlreadyOpen
	}

	t, err := transport.OpenTPM(h.devicePath)
	if err != nil {
		return fmt.Errorf("hwattest: open %s: %w", h.devicePath, err)
	}
	h.transport = t
	h.isOpen = true

	if err := h.initializeKey(); err != nil {
		h.transport.Close()
		h.isOpen = false
		return fmt.Errorf("hwattest: initialize attestation key: %w", err)
	}
	return nil
}

func (h *HardwareProvider) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isOpen {
		return nil
	}
	if h.akHandle != 0 {
		tpm2.FlushContext{FlushHandle: h.akHandle}.Execute(h.transport)
	}
	if h.transport != nil {
		h.transport.Close()
	}
	h.isOpen = false
	h.akHandle = 0
	return nil
}

func (h *HardwareProvider) DeviceID() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isOpen {
		return nil, ErrTPMNotOpen
	}
	return h.deviceIDLocked()
}

func (h *HardwareProvider) deviceIDLocked() ([]byte, error) {
	ekPub, err := tpmGetEKPublic(h.transport)
	if err != nil {
		return nil, fmt.Errorf("hwattest: get EK public: %w", err)
	}
	pubBytes, err := ekPub.Marshal()
	if err != nil {
		return nil, fmt.Errorf("hwattest: marshal EK public: %w", err)
	}
	hash := sha256.Sum256(pubBytes)
	return hash[:], nil
}

func (h *HardwareProvider) PublicKey() (crypto.PublicKey, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isOpen {
		return nil, ErrTPMNotOpen
	}
	return h.akPublic, nil
}

func (h *HardwareProvider) Quote(data []byte) (*Attestation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isOpen {
		return nil, ErrTPMNotOpen
	}

	qualifyingData := data
	if len(qualifyingData) > 64 {
		hash := sha256.Sum256(data)
		qualifyingData = hash[:]
	}

	quoteCmd := tpm2.Quote{
		SignHandle: tpm2.AuthHandle{
			Handle: h.akHandle,
			Auth:   tpm2.PasswordAuth(nil),
		},
		QualifyingData: tpm2.TPM2BData{Buffer: qualifyingData},
		InScheme: tpm2.TPMTSigScheme{
			Scheme: tpm2.TPMAlgRSASSA,
			Details: tpm2.NewTPMUSigScheme(
				tpm2.TPMAlgRSASSA,
				&tpm2.TPMSSchemeHash{HashAlg: tpm2.TPMAlgSHA256},
			),
		},
		PCRSelect: tpm2.TPMLPCRSelection{},
	}

	rsp, err := quoteCmd.Execute(h.transport)
	if err != nil {
		return nil, fmt.Errorf("hwattest: quote: %w", err)
	}

	clock, err := tpmReadClock(h.transport)
	if err != nil {
		return nil, fmt.Errorf("hwattest: read clock: %w", err)
	}

	counter, err := h.incrementCounterLocked()
	if err != nil {
		counter = 0
	}

	deviceID, _ := h.deviceIDLocked()

	quoteData, err := rsp.Quoted.Contents()
	if err != nil {
		return nil, fmt.Errorf("hwattest: quote contents: %w", err)
	}
	attestData, err := quoteData.Marshal()
	if err != nil {
		return nil, fmt.Errorf("hwattest: marshal quote: %w", err)
	}
	sigData, err := rsp.Signature.Marshal()
	if err != nil {
		return nil, fmt.Errorf("hwattest: marshal signature: %w", err)
	}

	return &Attestation{
		DeviceID:         deviceID,
		MonotonicCounter: counter,
		ClockInfo:        *clock,
		Data:             data,
		Signature:        sigData,
		Quote:            attestData,
		CreatedAt:        time.Now(),
	}, nil
}

func (h *HardwareProvider) initializeKey() error {
	createAKCmd := tpm2.CreatePrimary{
		PrimaryHandle: tpm2.TPMRHEndorsement,
		InPublic: tpm2.New2B(tpm2.TPMTPublic{
			Type:    tpm2.TPMAlgRSA,
			NameAlg: tpm2.TPMAlgSHA256,
			ObjectAttributes: tpm2.TPMAObject{
				FixedTPM:            true,
				FixedParent:         true,
				SensitiveDataOrigin: true,
				UserWithAuth:        true,
				Restricted:          true,
				SignEncrypt:         true,
			},
			Parameters: tpm2.NewTPMUPublicParms(
				tpm2.TPMAlgRSA,
				&tpm2.TPMSRSAParms{
					Scheme: tpm2.TPMTRSAScheme{
						Scheme: tpm2.TPMAlgRSASSA,
						Details: tpm2.NewTPMUAsymScheme(
							tpm2.TPMAlgRSASSA,
							&tpm2.TPMSSigSchemeRSASSA{HashAlg: tpm2.TPMAlgSHA256},
						),
					},
					KeyBits: 2048,
				},
			),
		}),
	}

	akRsp, err := createAKCmd.Execute(h.transport)
	if err != nil {
		return fmt.Errorf("create attestation key: %w", err)
	}
	h.akHandle = akRsp.ObjectHandle

	akPub, err := akRsp.OutPublic.Contents()
	if err != nil {
		return fmt.Errorf("attestation key public contents: %w", err)
	}
	rsaParms, err := akPub.Parameters.RSADetail()
	if err != nil {
		return fmt.Errorf("RSA parameters: %w", err)
	}
	rsaUnique, err := akPub.Unique.RSA()
	if err != nil {
		return fmt.Errorf("RSA unique: %w", err)
	}

	exponent := int(rsaParms.Exponent)
	if exponent == 0 {
		exponent = 65537
	}
	h.akPublic = &rsa.PublicKey{
		N: new(big.Int).SetBytes(rsaUnique.Buffer),
		E: exponent,
	}
	return nil
}

func (h *HardwareProvider) incrementCounterLocked() (uint64, error) {
	if !h.counterInit {
		if err := h.initializeCounter(); err != nil {
			return 0, err
		}
	}

	incrementCmd := tpm2.NVIncrement{
		AuthHandle: tpm2.AuthHandle{
			Handle: tpm2.TPMHandle(nvCounterIndex),
			Auth:   tpm2.PasswordAuth(nil),
		},
		NVIndex: tpm2.TPMHandle(nvCounterIndex),
	}
	if _, err := incrementCmd.Execute(h.transport); err != nil {
		return 0, err
	}
	return h.readCounter()
}

func (h *HardwareProvider) initializeCounter() error {
	readPubCmd := tpm2.NVReadPublic{NVIndex: tpm2.TPMHandle(nvCounterIndex)}
	if _, err := readPubCmd.Execute(h.transport); err == nil {
		h.counterInit = true
		return nil
	}

	defineCmd := tpm2.NVDefineSpace{
		AuthHandle: tpm2.TPMRHOwner,
		Auth:       tpm2.TPM2BAuth{Buffer: nil},
		PublicInfo: tpm2.New2B(tpm2.TPMSNVPublic{
			NVIndex:    tpm2.TPMHandle(nvCounterIndex),
			NameAlg:    tpm2.TPMAlgSHA256,
			Attributes: tpm2.TPMANV{NT: tpm2.TPMNTCounter},
			DataSize:   nvCounterSize,
		}),
	}
	if _, err := defineCmd.Execute(h.transport); err != nil {
		return fmt.Errorf("NVDefineSpace: %w", err)
	}
	h.counterInit = true
	return nil
}

func (h *HardwareProvider) readCounter() (uint64, error) {
	readCmd := tpm2.NVRead{
		AuthHandle: tpm2.AuthHandle{
			Handle: tpm2.TPMHandle(nvCounterIndex),
			Auth:   tpm2.PasswordAuth(nil),
		},
		NVIndex: tpm2.TPMHandle(nvCounterIndex),
		Size:    nvCounterSize,
		Offset:  0,
	}
	rsp, err := readCmd.Execute(h.transport)
	if err != nil {
		return 0, fmt.Errorf("NVRead: %w", err)
	}
	if len(rsp.Data.Buffer) < 8 {
		return 0, errors.New("hwattest: counter data too short")
	}
	return binary.BigEndian.Uint64(rsp.Data.Buffer), nil
}

func tpmGetEKPublic(t transport.TPM) (*tpm2.TPM2BPublic, error) {
	createEKCmd := tpm2.CreatePrimary{
		PrimaryHandle: tpm2.TPMRHEndorsement,
		InPublic:      tpm2.New2B(tpm2.RSAEKTemplate),
	}
	rsp, err := createEKCmd.Execute(t)
	if err != nil {
		return nil, err
	}
	defer tpm2.FlushContext{FlushHandle: rsp.ObjectHandle}.Execute(t)
	return &rsp.OutPublic, nil
}

func tpmReadClock(t transport.TPM) (*ClockInfo, error) {
	rsp, err := (tpm2.ReadClock{}).Execute(t)
	if err != nil {
		return nil, err
	}
	return &ClockInfo{
		Clock:        rsp.CurrentTime.ClockInfo.Clock,
		ResetCount:   rsp.CurrentTime.ClockInfo.ResetCount,
		RestartCount: rsp.CurrentTime.ClockInfo.RestartCount,
		Safe:         rsp.CurrentTime.ClockInfo.Safe == tpm2.TPMYes,
	}, nil
}

var _ Provider = (*HardwareProvider)(nil)
