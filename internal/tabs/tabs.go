// Package tabs implements the coordinator of §4.7: one independent C5 hash
// chain per editor tab, a shared fingerprint, a tab-switch log, and bulk
// export. Grounded on the teacher's internal/session.MultiDeviceSession — a
// mutex-guarded map of independent per-identity state plus an ordered
// insertion index and cross-entity timeline — generalized from devices
// linked to one author to tabs belonging to one editing session.
package tabs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"typedcode/internal/chain"
	"typedcode/internal/config"
	"typedcode/internal/envelope"
	"typedcode/internal/event"
	"typedcode/internal/fingerprint"
	"typedcode/internal/security"
	"typedcode/internal/verify"
)

// VerificationState is the last-known outcome of verifying a tab's chain.
type VerificationState string

const (
	VerificationUnverified VerificationState = "unverified"
	VerificationVerified   VerificationState = "verified"
	VerificationFailed     VerificationState = "failed"
)

// TabState is one editor tab's full identity: its filename/language, its
// own independent hash chain, and the last verification outcome recorded
// against it.
type TabState struct {
	ID                uuid.UUID
	Filename          string
	Language          string
	CreatedAt         time.Time
	SkipAttestation   bool
	VerificationState VerificationState
	VerificationDetails *verify.Report
	Engine            *chain.Chain
}

// Coordinator owns every tab in one editing session. All tabs share one
// device fingerprint; each owns an independent chain.Chain.
type Coordinator struct {
	mu sync.RWMutex

	fingerprint fingerprint.Fingerprint
	createdAt   time.Time

	tabs     map[uuid.UUID]*TabState
	order    []uuid.UUID // stable creation order, used for deterministic export enumeration
	activeID uuid.UUID

	switches []envelope.TabSwitchEvent

	chainOpts []chain.Option
}

// New constructs an empty coordinator bound to a single device fingerprint.
// Every tab's chain runs with chain.New's built-in defaults; use
// NewWithConfig to drive checkpoint cadence and PoSW timeout from a loaded
// config.Config instead.
func New(fp fingerprint.Fingerprint) *Coordinator {
	return &Coordinator{
		fingerprint: fp,
		createdAt:   time.Now(),
		tabs:        make(map[uuid.UUID]*TabState),
	}
}

// NewWithConfig is New, but every tab's chain.Chain is constructed with
// cfg.ChainOptions() instead of chain.New's built-in defaults. A nil cfg
// behaves exactly like New.
func NewWithConfig(fp fingerprint.Fingerprint, cfg *config.Config) *Coordinator {
	c := New(fp)
	if cfg != nil {
		c.chainOpts = cfg.ChainOptions()
	}
	return c
}

// CreateTab opens a new tab with its own hash chain, seeded from the shared
// fingerprint. skipAttestation marks a tab created for bulk template
// import, which is not required to open with a human attestation event.
func (c *Coordinator) CreateTab(filename, language string, skipAttestation bool) (*TabState, error) {
	if err := security.ValidateFilename(filename); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	engine := chain.New(c.chainOpts...)
	if err := engine.Initialize(c.fingerprint.Hash); err != nil {
		return nil, err
	}

	tab := &TabState{
		ID:                uuid.New(),
		Filename:          filename,
		Language:          language,
		CreatedAt:         time.Now(),
		SkipAttestation:   skipAttestation,
		VerificationState: VerificationUnverified,
		Engine:            engine,
	}

	c.tabs[tab.ID] = tab
	c.order = append(c.order, tab.ID)
	if len(c.order) == 1 {
		c.activeID = tab.ID
	}
	return tab, nil
}

// Close removes a tab. Closing the last remaining tab is forbidden.
func (c *Coordinator) Close(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tabs[id]; !ok {
		return ErrTabNotFound
	}
	if len(c.tabs) == 1 {
		return ErrLastTab
	}

	delete(c.tabs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.activeID == id {
		c.activeID = c.order[0]
	}
	return nil
}

// Switch makes id the active tab and appends a chain-relative
// TabSwitchEvent to the session's switch log.
func (c *Coordinator) Switch(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, ok := c.tabs[id]
	if !ok {
		return ErrTabNotFound
	}

	var fromFilename string
	if from, ok := c.tabs[c.activeID]; ok {
		fromFilename = from.Filename
	}

	c.switches = append(c.switches, envelope.TabSwitchEvent{
		FromFilename: fromFilename,
		ToFilename:   target.Filename,
		Timestamp:    time.Since(c.createdAt).Milliseconds(),
	})
	c.activeID = id
	return nil
}

// Rename changes a tab's display filename.
func (c *Coordinator) Rename(id uuid.UUID, filename string) error {
	if err := security.ValidateFilename(filename); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[id]
	if !ok {
		return ErrTabNotFound
	}
	tab.Filename = filename
	return nil
}

// SetLanguage changes a tab's declared language.
func (c *Coordinator) SetLanguage(id uuid.UUID, language string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[id]
	if !ok {
		return ErrTabNotFound
	}
	tab.Language = language
	return nil
}

// MarkVerified records the outcome of verifying a tab's chain.
func (c *Coordinator) MarkVerified(id uuid.UUID, report *verify.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[id]
	if !ok {
		return ErrTabNotFound
	}
	tab.VerificationDetails = report
	if report.Valid {
		tab.VerificationState = VerificationVerified
	} else {
		tab.VerificationState = VerificationFailed
	}
	return nil
}

// Get returns a tab by id.
func (c *Coordinator) Get(id uuid.UUID) (*TabState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tab, ok := c.tabs[id]
	if !ok {
		return nil, ErrTabNotFound
	}
	return tab, nil
}

// ActiveID returns the currently active tab's id.
func (c *Coordinator) ActiveID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID
}

// Tabs returns all tabs in creation order.
func (c *Coordinator) Tabs() []*TabState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TabState, len(c.order))
	for i, id := range c.order {
		out[i] = c.tabs[id]
	}
	return out
}

// RecordTemplateInjection appends a templateInjection event to a tab's
// chain, used when bulk-creating tabs from a template (skipAttestation tabs).
func (c *Coordinator) RecordTemplateInjection(ctx context.Context, id uuid.UUID, data []byte) error {
	tab, err := c.Get(id)
	if err != nil {
		return err
	}
	_, err = tab.Engine.RecordEvent(ctx, chain.RecordInput{
		Type: event.TypeTemplateInjection,
		Data: data,
	})
	return err
}

// ExportOne exports a single tab's chain as a single-file envelope.
func (c *Coordinator) ExportOne(id uuid.UUID, finalContent []byte, deviceID, userAgent string) (*envelope.Envelope, error) {
	tab, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return envelope.Export(envelope.ExportInput{
		Chain:        tab.Engine,
		FinalContent: finalContent,
		DeviceID:     deviceID,
		Fingerprint:  c.fingerprint,
		UserAgent:    userAgent,
	})
}

// ExportAll exports every tab as a deterministic multi-file bundle.
// contents supplies each tab's current buffer, keyed by tab id.
func (c *Coordinator) ExportAll(contents map[uuid.UUID][]byte, deviceID, userAgent string) (*envelope.MultiFileEnvelope, error) {
	c.mu.RLock()
	order := make([]uuid.UUID, len(c.order))
	copy(order, c.order)
	switches := make([]envelope.TabSwitchEvent, len(c.switches))
	copy(switches, c.switches)
	c.mu.RUnlock()

	inputs := make([]envelope.TabExportInput, len(order))
	for i, id := range order {
		tab, err := c.Get(id)
		if err != nil {
			return nil, err
		}
		content := contents[id]
		inputs[i] = envelope.TabExportInput{
			Filename: tab.Filename,
			Language: tab.Language,
			Content:  content,
			ExportInput: envelope.ExportInput{
				Chain:        tab.Engine,
				FinalContent: content,
				DeviceID:     deviceID,
				Fingerprint:  c.fingerprint,
				UserAgent:    userAgent,
			},
		}
	}

	return envelope.ExportMultiFile(inputs, switches, userAgent, time.Now().UnixMilli())
}
