// Package sqlitestore is the persist.Store backend this repo ships:
// append-only event/checkpoint tables keyed by tab id, grounded on
// internal/store's schema-per-table layout and migration-free CREATE TABLE
// IF NOT EXISTS approach, generalized from its MMR-indexed file-event rows
// to tab-scoped typing-chain events.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"typedcode/internal/chain"
	"typedcode/internal/checkpoint"
	"typedcode/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS chain_meta (
    tab_id            TEXT PRIMARY KEY,
    fingerprint_hash  TEXT NOT NULL,
    start_time_ms     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_events (
    tab_id      TEXT NOT NULL REFERENCES chain_meta(tab_id),
    sequence    INTEGER NOT NULL,
    event_json  TEXT NOT NULL,
    PRIMARY KEY (tab_id, sequence)
);

CREATE TABLE IF NOT EXISTS chain_checkpoints (
    tab_id           TEXT NOT NULL REFERENCES chain_meta(tab_id),
    event_index      INTEGER NOT NULL,
    checkpoint_json  TEXT NOT NULL,
    PRIMARY KEY (tab_id, event_index)
);
`

// Store is a SQLite-backed persist.Store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveMeta(tabID, fingerprintHash string, startTimeMs int64) error {
	_, err := s.db.Exec(`
		INSERT INTO chain_meta (tab_id, fingerprint_hash, start_time_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET fingerprint_hash=excluded.fingerprint_hash, start_time_ms=excluded.start_time_ms`,
		tabID, fingerprintHash, startTimeMs,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: save meta: %w", err)
	}
	return nil
}

func (s *Store) SaveEvent(tabID string, e *event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode event: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO chain_events (tab_id, sequence, event_json) VALUES (?, ?, ?)
		ON CONFLICT(tab_id, sequence) DO UPDATE SET event_json=excluded.event_json`,
		tabID, e.Sequence, string(data),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: save event: %w", err)
	}
	return nil
}

func (s *Store) SaveCheckpoint(tabID string, cp checkpoint.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode checkpoint: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO chain_checkpoints (tab_id, event_index, checkpoint_json) VALUES (?, ?, ?)
		ON CONFLICT(tab_id, event_index) DO UPDATE SET checkpoint_json=excluded.checkpoint_json`,
		tabID, cp.EventIndex, string(data),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Load(tabID string) (chain.SerializedState, string, error) {
	var fingerprintHash string
	var startTimeMs int64
	err := s.db.QueryRow(`SELECT fingerprint_hash, start_time_ms FROM chain_meta WHERE tab_id = ?`, tabID).
		Scan(&fingerprintHash, &startTimeMs)
	if err != nil {
		return chain.SerializedState{}, "", fmt.Errorf("sqlitestore: load meta: %w", err)
	}

	events, err := s.loadEvents(tabID)
	if err != nil {
		return chain.SerializedState{}, "", err
	}
	checkpoints, err := s.loadCheckpoints(tabID)
	if err != nil {
		return chain.SerializedState{}, "", err
	}

	currentHash := ""
	if len(events) > 0 {
		currentHash = events[len(events)-1].Hash
	}

	return chain.SerializedState{
		Events:      events,
		CurrentHash: currentHash,
		StartTime:   startTimeMs,
		Checkpoints: checkpoints,
	}, fingerprintHash, nil
}

func (s *Store) loadEvents(tabID string) ([]*event.Event, error) {
	rows, err := s.db.Query(`SELECT event_json FROM chain_events WHERE tab_id = ? ORDER BY sequence ASC`, tabID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan event: %w", err)
		}
		var e event.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *Store) loadCheckpoints(tabID string) ([]checkpoint.Checkpoint, error) {
	rows, err := s.db.Query(`SELECT checkpoint_json FROM chain_checkpoints WHERE tab_id = ? ORDER BY event_index ASC`, tabID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []checkpoint.Checkpoint
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan checkpoint: %w", err)
		}
		var cp checkpoint.Checkpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

func (s *Store) ListTabs() ([]string, error) {
	rows, err := s.db.Query(`SELECT tab_id FROM chain_meta`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query tabs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan tab id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
