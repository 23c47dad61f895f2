package sqlitestore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/chain"
	"typedcode/internal/event"
	"typedcode/internal/persist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chains.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	store := openTestStore(t)

	var persistErr error
	hook := persist.AppendHook(store, "tab-1", func(err error) { persistErr = err })

	c := chain.New(chain.WithCheckpointInterval(3), chain.WithAppendEventHook(hook))
	require.NoError(t, c.Initialize("fp-abc"))
	require.NoError(t, store.SaveMeta("tab-1", "fp-abc", c.SerializeState().StartTime))

	for i := 0; i < 5; i++ {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: json.RawMessage(`"x"`),
		})
		require.NoError(t, err)
	}
	require.NoError(t, persistErr)

	for _, cp := range c.Checkpoints() {
		require.NoError(t, store.SaveCheckpoint("tab-1", cp))
	}

	state, fingerprintHash, err := store.Load("tab-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-abc", fingerprintHash)
	assert.Len(t, state.Events, 5)
	assert.Equal(t, c.CurrentHash(), state.CurrentHash)
	assert.Len(t, state.Checkpoints, 1)
}

func TestListTabs(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveMeta("tab-a", "fp", 0))
	require.NoError(t, store.SaveMeta("tab-b", "fp", 0))

	ids, err := store.ListTabs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tab-a", "tab-b"}, ids)
}

func TestLoad_UnknownTabFails(t *testing.T) {
	store := openTestStore(t)
	_, _, err := store.Load("missing")
	assert.Error(t, err)
}
