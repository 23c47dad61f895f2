// Package config handles configuration loading, validation, and hot-reload
// for the typedcode engine and its CLI tools.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"typedcode/internal/chain"
	"typedcode/internal/logging"
)

// AnchorProvider names an external timestamp anchoring service.
type AnchorProvider string

const (
	AnchorProviderNone     AnchorProvider = "none"
	AnchorProviderRFC3161  AnchorProvider = "rfc3161"
	AnchorProviderDrand    AnchorProvider = "drand"
)

// Config holds the engine's host-level configuration: where state
// persists, how checkpoints are paced, and which optional additive
// features (co-signing, external anchoring, hardware attestation, JSON
// Schema validation on import) are turned on.
type Config struct {
	// CheckpointInterval is K, the number of events between emitted
	// checkpoints. The protocol requires K in [33, 100].
	CheckpointInterval uint64 `toml:"checkpoint_interval"`

	// DatabasePath is the SQLite file the persist.sqlitestore backend
	// opens for durable chain/event/checkpoint mirroring.
	DatabasePath string `toml:"database_path"`

	// LogPath is the structured log file path.
	LogPath string `toml:"log_path"`
	// LogLevel is one of debug/info/warn/error.
	LogLevel string `toml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`

	// SigningKeyPath, if set, enables an additive Ed25519 co-signature on
	// exported envelopes (internal/envelope.Cosign).
	SigningKeyPath string `toml:"signing_key_path"`

	// SchemaValidationEnabled records whether a host wants imported
	// envelopes checked with envelope.ValidateSchema. It is a host-side
	// flag only: envelope.Import itself never runs schema validation.
	SchemaValidationEnabled bool `toml:"schema_validation_enabled"`

	// AnchorProvider selects an optional external timestamp anchor for
	// exported envelopes' proof signature. "none" disables anchoring.
	AnchorProvider AnchorProvider `toml:"anchor_provider"`

	// HardwareAttestationEnabled gates binding an exported envelope's
	// proof signature to a TPM quote, when a TPM is available.
	HardwareAttestationEnabled bool `toml:"hardware_attestation_enabled"`

	// PoswTimeoutMs bounds a single event's PoSW computation (chain.dispatchPosw).
	PoswTimeoutMs int64 `toml:"posw_timeout_ms"`

	// SampleCount is the default sampled-verify segment count a CLI or
	// periodic auditor uses when it is not told one explicitly.
	SampleCount int `toml:"sample_count"`

	// EnvelopeVersion is the envelope schema version new exports are
	// stamped with.
	EnvelopeVersion string `toml:"envelope_version"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir := PlatformDataDir()

	return &Config{
		CheckpointInterval:         50,
		DatabasePath:               filepath.Join(dataDir, "chains.db"),
		LogPath:                    filepath.Join(dataDir, "typedcode.log"),
		LogLevel:                   "info",
		LogFormat:                  "text",
		SigningKeyPath:             "",
		SchemaValidationEnabled:    true,
		AnchorProvider:             AnchorProviderNone,
		HardwareAttestationEnabled: false,
		PoswTimeoutMs:              30000,
		SampleCount:                3,
		EnvelopeVersion:            "1.0.0",
	}
}

// PoswTimeout returns PoswTimeoutMs as a time.Duration.
func (c *Config) PoswTimeout() time.Duration {
	return time.Duration(c.PoswTimeoutMs) * time.Millisecond
}

// ChainOptions translates this configuration into the chain.Option set a
// host should construct every chain.Chain with, so checkpoint cadence and
// the PoSW timeout are driven by config rather than chain.New's built-in
// defaults.
func (c *Config) ChainOptions() []chain.Option {
	return []chain.Option{
		chain.WithCheckpointInterval(c.CheckpointInterval),
		chain.WithPoswTimeout(c.PoswTimeout()),
	}
}

// Logger builds a logging.Logger from this configuration's log_path,
// log_level, and log_format fields.
func (c *Config) Logger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format := logging.FormatText
	if c.LogFormat == "json" {
		format = logging.FormatJSON
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	if c.LogPath != "" {
		cfg.Output = "both"
		cfg.FilePath = c.LogPath
	}
	return logging.New(cfg)
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads configuration from the specified path, falling back to
// defaults if the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's own invariants (kept as a method for
// callers that already hold a *Config and don't want the full
// ValidationErrors accumulation of ValidateConfig).
func (c *Config) Validate() error {
	if c.CheckpointInterval < 33 || c.CheckpointInterval > 100 {
		return errors.New("config: checkpoint_interval must be between 33 and 100")
	}
	if c.DatabasePath == "" {
		return errors.New("config: database_path is required")
	}
	if c.PoswTimeoutMs <= 0 {
		return errors.New("config: posw_timeout_ms must be positive")
	}
	if c.SampleCount <= 0 {
		return errors.New("config: sample_count must be positive")
	}
	return nil
}

// EnsureDirectories creates all directories this configuration will write
// into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.DatabasePath), filepath.Dir(c.LogPath)}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}
