package entities

import (
	"path/filepath"
	"strings"
)

// ResourceID identifies a filesystem resource by its canonical absolute path.
// Two ResourceIDs are equal iff their canonical paths are equal, so a
// ResourceID is safe to use as a map key.
type ResourceID string

// CanonicalPath lexically normalizes p into an absolute, clean path.
// Relative paths are joined onto base; an empty base is treated as the root.
// Trailing separators, "." and ".." components and repeated separators are
// removed. The function is pure and total: it never touches the filesystem
// and every input yields an absolute path.
func CanonicalPath(base, p string) string {
	if base == "" || !filepath.IsAbs(base) {
		base = string(filepath.Separator) + base
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}

// NewResourceID returns the ResourceID for p resolved against base.
func NewResourceID(base, p string) ResourceID {
	return ResourceID(CanonicalPath(base, p))
}

// Path returns the canonical path of the resource.
func (r ResourceID) Path() string {
	return string(r)
}

// String implements fmt.Stringer.
func (r ResourceID) String() string {
	return string(r)
}

// IsCanonical reports whether r is already in canonical form.
// Decoded identities must satisfy this before they are admitted to a table.
func (r ResourceID) IsCanonical() bool {
	s := string(r)
	return s != "" && filepath.IsAbs(s) && filepath.Clean(s) == s
}

// Contains reports whether other is r itself or lies beneath r.
func (r ResourceID) Contains(other ResourceID) bool {
	if r == other {
		return true
	}
	prefix := string(r)
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(string(other), prefix)
}
