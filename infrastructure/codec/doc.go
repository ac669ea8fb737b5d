// Package codec implements ports.TableCodec with CBOR.
//
// The encoding is an envelope holding a format version, the deterministic
// CBOR encoding of the table entries, and a blake3-256 digest of those
// entry bytes. The decoder only admits the declared schema: unknown fields,
// duplicate map keys, indefinite-length items, CBOR tags, trailing bytes and
// type mismatches are all rejected as corrupt data, and a table is returned
// only when every entry validated.
package codec
