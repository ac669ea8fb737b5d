// Package ports defines the interfaces the permission store depends on.
// Domain logic depends on these abstractions; platform primitives and
// storage adapters implement them.
package ports
