package permission

import (
	"log/slog"
	"time"

	"github.com/reglet-dev/permstore/domain/policy"
	"github.com/reglet-dev/permstore/domain/ports"
	"github.com/reglet-dev/permstore/infrastructure/codec"
)

// storeConfig holds configuration for the Store.
type storeConfig struct {
	logger          *slog.Logger
	codec           ports.TableCodec
	coverage        ports.CoverageChecker
	now             func() time.Time
	cwd             string // Working directory for relative path resolution
	resolveSymlinks bool
	pruneAfter      int // Consecutive failed replays before a record is dropped; 0 never
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		logger:          slog.Default(),
		codec:           codec.New(),
		now:             time.Now,
		resolveSymlinks: true, // Secure default
	}
}

// Option configures a Store.
type Option func(*storeConfig)

// WithLogger sets the logger for contained failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodec replaces the table codec.
func WithCodec(tc ports.TableCodec) Option {
	return func(c *storeConfig) {
		c.codec = tc
	}
}

// WithCoverage replaces the checker used by Covering.
func WithCoverage(cc ports.CoverageChecker) Option {
	return func(c *storeConfig) {
		c.coverage = cc
	}
}

// WithClock sets the time source used to stamp grants.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) {
		c.now = now
	}
}

// WithWorkingDirectory sets the base for relative resource paths.
// Default is the process working directory at Open.
func WithWorkingDirectory(cwd string) Option {
	return func(c *storeConfig) {
		c.cwd = cwd
	}
}

// WithSymlinkResolution enables/disables symlink resolution when deriving
// resource identities. Default is true.
func WithSymlinkResolution(enabled bool) Option {
	return func(c *storeConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithPruneAfter drops a record once it has failed n consecutive startup
// activations. Zero (the default) keeps records forever.
func WithPruneAfter(n int) Option {
	return func(c *storeConfig) {
		if n >= 0 {
			c.pruneAfter = n
		}
	}
}

func (c *storeConfig) defaultCoverage() ports.CoverageChecker {
	return policy.NewCoverage(
		policy.WithWorkingDirectory(c.cwd),
		policy.WithSymlinkResolution(c.resolveSymlinks),
		policy.WithDenialHandler(&policy.LogDenialHandler{Logger: c.logger}),
	)
}
