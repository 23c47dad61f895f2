// Package persist defines the storage-agnostic contract §4.8 requires of
// the engine's host: serialize_state/restore_state plus an append hook so
// a host can durably mirror a chain incrementally instead of re-writing
// the whole state on every event. internal/persist/sqlitestore is the one
// concrete backend this repo ships; any other implementation of Store
// plugs in unchanged.
package persist

import (
	"fmt"

	"typedcode/internal/chain"
	"typedcode/internal/checkpoint"
	"typedcode/internal/event"
)

// Store is the durable backend contract a host wires a chain against.
type Store interface {
	// SaveMeta persists (or re-persists) a tab's identity: its fingerprint
	// hash and chain start time. Called once, at tab creation.
	SaveMeta(tabID, fingerprintHash string, startTimeMs int64) error

	// SaveEvent appends one finalized event. Called once per event, in
	// sequence order, from the chain's AppendEventHook.
	SaveEvent(tabID string, e *event.Event) error

	// SaveCheckpoint appends one emitted checkpoint.
	SaveCheckpoint(tabID string, cp checkpoint.Checkpoint) error

	// Load reconstructs a chain.SerializedState plus the stored fingerprint
	// hash, in the order events/checkpoints were saved.
	Load(tabID string) (chain.SerializedState, string, error)

	// ListTabs returns every tab id with persisted state, for session
	// resumption across process restarts.
	ListTabs() ([]string, error)

	Close() error
}

// AppendHook adapts a Store into a chain.AppendEventHook bound to one tab.
// Persistence errors cannot propagate through the hook's signature; they
// are reported through onError so the caller decides whether a failed
// write should be fatal, logged, or retried.
func AppendHook(store Store, tabID string, onError func(error)) chain.AppendEventHook {
	return func(e *event.Event) {
		if err := store.SaveEvent(tabID, e); err != nil && onError != nil {
			onError(fmt.Errorf("persist: save event %d for tab %s: %w", e.Sequence, tabID, err))
		}
	}
}
