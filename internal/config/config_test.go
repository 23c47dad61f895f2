package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typedcode/internal/chain"
	"typedcode/internal/event"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, uint64(50), cfg.CheckpointInterval)
	assert.Contains(t, cfg.DatabasePath, "typedcode")
	assert.Contains(t, cfg.LogPath, "typedcode")
	assert.Equal(t, AnchorProviderNone, cfg.AnchorProvider)
	assert.NoError(t, cfg.Validate())
}

func TestValidateConfig_RejectsOutOfRangeInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckpointInterval = 200

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint_interval")
}

func TestValidateConfig_AccumulatesMultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckpointInterval = 5
	cfg.LogLevel = "verbose"
	cfg.LogFormat = "xml"

	err := ValidateConfig(cfg)
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, verrs, 3)
}

func TestValidateConfig_RejectsNegativePoswTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoswTimeoutMs = -1

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "posw_timeout_ms")
}

func TestValidateConfig_RejectsNegativeSampleCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = -1

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_count")
}

func TestConfig_Validate_RejectsNonPositivePoswTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoswTimeoutMs = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsNonPositiveSampleCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_PoswTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoswTimeoutMs = 5000
	assert.Equal(t, 5*time.Second, cfg.PoswTimeout())
}

func TestConfig_ChainOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckpointInterval = 3
	cfg.PoswTimeoutMs = 10000

	opts := cfg.ChainOptions()
	require.Len(t, opts, 2)

	c := chain.New(opts...)
	require.NoError(t, c.Initialize("genesis"))
	for i := 0; i < 3; i++ {
		_, err := c.RecordEvent(context.Background(), chain.RecordInput{
			Type: event.TypeContentChange,
			Data: json.RawMessage(`"x"`),
		})
		require.NoError(t, err)
	}
	assert.Len(t, c.Checkpoints(), 1, "expected a checkpoint emitted at the configured interval")
}

func TestConfig_Logger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	cfg.LogPath = filepath.Join(t.TempDir(), "test.log")

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestConfig_Logger_RejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "not-a-level"

	_, err := cfg.Logger()
	assert.Error(t, err)
}

func TestLoadConfigFromFile_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := loadConfigFromFile(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().CheckpointInterval, cfg.CheckpointInterval)
}

func TestLoadConfigFromFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "checkpoint_interval = 40\nlog_level = \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := loadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), cfg.CheckpointInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "checkpoint_interval: 60\nlog_format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := loadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), cfg.CheckpointInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadOrCreate_WritesDefaultOnFirstCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, DefaultConfig().CheckpointInterval, cfg.CheckpointInterval)
	assert.FileExists(t, path)

	cfg2, created2, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, cfg.CheckpointInterval, cfg2.CheckpointInterval)
}

func TestLoader_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("checkpoint_interval = 50\n"), 0o600))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) { changed <- c })

	require.NoError(t, os.WriteFile(path, []byte("checkpoint_interval = 70\n"), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, uint64(70), c.CheckpointInterval)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(dir, "nested", "chains.db")
	cfg.LogPath = filepath.Join(dir, "logs", "typedcode.log")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, filepath.Join(dir, "nested"))
	assert.DirExists(t, filepath.Join(dir, "logs"))
}
