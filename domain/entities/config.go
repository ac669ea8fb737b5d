package entities

import (
	"os"
	"path/filepath"
)

// Config represents permission store settings.
// It is read from YAML and validated before use.
type Config struct {
	// StorePath is the file holding the persisted permission table.
	StorePath string `json:"store_path" yaml:"store_path" validate:"required" jsonschema:"description=File holding the persisted permission table"`

	// KeyPath is the file holding the 32-byte key that authenticates minted tokens.
	KeyPath string `json:"key_path" yaml:"key_path" validate:"required" jsonschema:"description=File holding the token authentication key"`

	// SealIdentityPath, when set, names an age X25519 identity used to encrypt
	// the store at rest.
	SealIdentityPath string `json:"seal_identity_path,omitempty" yaml:"seal_identity_path,omitempty" jsonschema:"description=Optional age identity used to encrypt the store"`

	// WorkingDirectory resolves relative resource paths. Empty means the
	// process working directory.
	WorkingDirectory string `json:"working_directory,omitempty" yaml:"working_directory,omitempty" validate:"omitempty,dirpath"`

	// LogLevel is the logging verbosity level.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// LogFormat selects the slog handler.
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=text json" jsonschema:"enum=text,enum=json"`

	// PruneAfterFailures drops records after this many consecutive failed
	// startup activations. Zero keeps them forever.
	PruneAfterFailures int `json:"prune_after_failures,omitempty" yaml:"prune_after_failures,omitempty" validate:"gte=0"`

	// ResolveSymlinks resolves symbolic links before canonicalizing paths.
	ResolveSymlinks bool `json:"resolve_symlinks" yaml:"resolve_symlinks"`
}

// DefaultConfig returns the default configuration rooted at $HOME/.permstore.
func DefaultConfig() Config {
	dir := filepath.Join(os.Getenv("HOME"), ".permstore")
	return Config{
		StorePath:       filepath.Join(dir, "grants.cbor"),
		KeyPath:         filepath.Join(dir, "issuer.key"),
		LogLevel:        "info",
		LogFormat:       "text",
		ResolveSymlinks: true, // Secure default
	}
}

// ConfigOption is a functional option for configuring store settings.
type ConfigOption func(*Config)

// WithStorePath sets the store file location.
func WithStorePath(path string) ConfigOption {
	return func(c *Config) {
		c.StorePath = path
	}
}

// WithPruneAfterFailures sets the pruning threshold.
func WithPruneAfterFailures(n int) ConfigOption {
	return func(c *Config) {
		if n >= 0 {
			c.PruneAfterFailures = n
		}
	}
}

// WithLogLevel sets the logging verbosity level.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
