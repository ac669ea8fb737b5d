// Package permission implements the permission store: it turns a transient
// grant into a durable token, persists the resource-to-token table across
// restarts, and re-activates every known resource when the store is opened.
//
// Callers own the Store. Open it once from the composition root and defer
// Close, which performs the final flush on every exit path:
//
//	s := permission.Open(issuer, grantstore.NewFileStore())
//	defer s.Close()
//
// Resources move through three states per process: no-grant, granted (token
// stored) and active (token redeemed, access started). Failures that concern
// a single resource are returned to the caller; failures while loading,
// replaying or saving are logged and contained.
package permission
