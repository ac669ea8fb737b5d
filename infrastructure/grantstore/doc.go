// Package grantstore provides ports.DurableStore implementations: an atomic
// single-file store, an age-encrypted wrapper around any store, and an
// in-memory store for tests and ephemeral sessions.
package grantstore
