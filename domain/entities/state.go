package entities

import "log/slog"

// ResourceState is the lifecycle position of a resource within one process.
type ResourceState int

const (
	// StateNoGrant means no token is stored for the resource.
	StateNoGrant ResourceState = iota
	// StateGranted means a token is stored but access has not been started
	// in this process.
	StateGranted
	// StateActive means the token was redeemed and access started.
	StateActive
)

// String returns the lowercase state name.
func (s ResourceState) String() string {
	switch s {
	case StateGranted:
		return "granted"
	case StateActive:
		return "active"
	default:
		return "no-grant"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ResourceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FailureKind records why the most recent activation attempt did not succeed.
type FailureKind string

const (
	FailureNone   FailureKind = ""
	FailureStale  FailureKind = "stale"
	FailureRedeem FailureKind = "redeem-failed"
)

// Entry is a point-in-time view of one resource known to the store.
type Entry struct {
	GrantRecord `yaml:",inline"`

	State       ResourceState `json:"state" yaml:"state"`
	LastFailure FailureKind   `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
}

// LogValue implements slog.LogValuer, extending the record's group with the
// in-process state.
func (e Entry) LogValue() slog.Value {
	attrs := e.GrantRecord.LogValue().Group()
	attrs = append(attrs, slog.String("state", e.State.String()))
	if e.LastFailure != FailureNone {
		attrs = append(attrs, slog.String("last_failure", string(e.LastFailure)))
	}
	return slog.GroupValue(attrs...)
}
