package policy

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
)

// coverageConfig holds configuration for Coverage.
type coverageConfig struct {
	cwd             string              // Working directory for relative path resolution
	resolveSymlinks bool                // Whether to resolve symlinks (security feature)
	denialHandler   ports.DenialHandler // Handler invoked when nothing covers a path
}

func defaultCoverageConfig() coverageConfig {
	return coverageConfig{
		cwd:             "",
		resolveSymlinks: true, // Secure default
		denialHandler:   &NopDenialHandler{},
	}
}

// CoverageOption configures Coverage.
type CoverageOption func(*coverageConfig)

// WithWorkingDirectory sets the working directory for relative path resolution.
func WithWorkingDirectory(cwd string) CoverageOption {
	return func(c *coverageConfig) {
		c.cwd = cwd
	}
}

// WithSymlinkResolution enables/disables symlink resolution.
// Default is true (secure). Disable only for testing.
func WithSymlinkResolution(enabled bool) CoverageOption {
	return func(c *coverageConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) CoverageOption {
	return func(c *coverageConfig) {
		c.denialHandler = h
	}
}

// Coverage decides whether a granted resource gives access to a path.
// A grant on a directory covers every path beneath it.
type Coverage struct {
	config coverageConfig
	cache  sync.Map // key: entities.ResourceID, value: string (descendant pattern)
}

// NewCoverage creates a new Coverage.
func NewCoverage(opts ...CoverageOption) ports.CoverageChecker {
	cfg := defaultCoverageConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Coverage{config: cfg}
}

// Covering returns the most specific resource in granted that covers path.
func (c *Coverage) Covering(path string, granted []entities.ResourceID) (entities.ResourceID, bool) {
	if path == "" {
		c.config.denialHandler.OnDenial(path, "empty path")
		return "", false
	}
	if !filepath.IsAbs(path) && c.config.cwd == "" {
		c.config.denialHandler.OnDenial(path, "relative path without working directory")
		return "", false
	}
	target := entities.CanonicalPath(c.config.cwd, path)

	// Resolve symlinks to prevent traversal out of a granted directory
	if c.config.resolveSymlinks {
		if resolved, err := filepath.EvalSymlinks(target); err == nil {
			target = resolved
		}
	}

	var best entities.ResourceID
	for _, root := range granted {
		if !c.covers(root, target) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		c.config.denialHandler.OnDenial(target, "no grant covers path")
		return "", false
	}
	return best, true
}

func (c *Coverage) covers(root entities.ResourceID, target string) bool {
	if string(root) == target {
		return true
	}
	if string(root) == string(filepath.Separator) {
		return filepath.IsAbs(target)
	}
	matched, err := doublestar.Match(c.pattern(root), filepath.ToSlash(target))
	return err == nil && matched
}

func (c *Coverage) pattern(root entities.ResourceID) string {
	if v, ok := c.cache.Load(root); ok {
		return v.(string)
	}
	p := escapeMeta(filepath.ToSlash(string(root))) + "/**"
	c.cache.Store(root, p)
	return p
}

// escapeMeta quotes the glob metacharacters doublestar recognizes so a
// literal path can be used as a pattern prefix.
func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
