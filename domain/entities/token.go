package entities

import (
	"bytes"
	"log/slog"
)

// Token is an opaque, platform-minted credential granting durable access to
// one resource. The store never constructs or inspects token contents.
type Token []byte

// Equal reports whether two tokens carry the same bytes.
func (t Token) Equal(other Token) bool {
	return bytes.Equal(t, other)
}

// Clone returns a copy that does not alias t.
func (t Token) Clone() Token {
	if t == nil {
		return nil
	}
	return append(Token(nil), t...)
}

// String hides the token contents so tokens never leak into logs.
func (t Token) String() string {
	return "Token(redacted)"
}

// LogValue implements slog.LogValuer so handlers never see the raw bytes.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(t.String())
}
