// Package entities provides the core domain types of the permission store.
// Resource identities, opaque tokens and the permission table that maps one to
// the other live here; nothing in this package touches the filesystem.
package entities
