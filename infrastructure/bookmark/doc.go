// Package bookmark implements ports.GrantIssuer for unix hosts.
//
// A bookmark token records the canonical path of a resource together with
// the file identity (device and inode) it had when the token was minted.
// Tokens are authenticated with a blake3 keyed MAC so a tampered store cannot
// forge access to resources the user never picked. Redeeming a token whose
// path now names a different file yields a stale result.
package bookmark
