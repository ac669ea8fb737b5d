package entities

import (
	"log/slog"
	"sort"
	"time"
)

// GrantRecord is one row of the permission table: the token minted for a
// resource plus the bookkeeping needed to decide whether it is still worth
// replaying.
type GrantRecord struct {
	// GrantedAt is when the token was minted.
	GrantedAt time.Time `json:"granted_at" yaml:"granted_at"`

	// ID identifies the mint event that produced Token.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Resource ResourceID `json:"resource" yaml:"resource"`
	Token    Token      `json:"-" yaml:"-"`

	// Failures counts consecutive startup replays that did not activate the
	// resource. It resets on a successful activation or a fresh mint.
	Failures int `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Clone returns a deep copy of the record.
func (r GrantRecord) Clone() GrantRecord {
	r.Token = r.Token.Clone()
	return r
}

// LogValue implements slog.LogValuer. The token is left out.
func (r GrantRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("resource", r.Resource.String()),
		slog.Time("granted_at", r.GrantedAt),
		slog.Int("failures", r.Failures),
	)
}

// PermissionTable maps resource identities to their grant records.
// It holds at most one record per ResourceID; Put overwrites.
// A PermissionTable is not safe for concurrent use.
type PermissionTable struct {
	entries map[ResourceID]GrantRecord
}

// NewPermissionTable creates an empty table.
func NewPermissionTable() *PermissionTable {
	return &PermissionTable{entries: make(map[ResourceID]GrantRecord)}
}

// Len returns the number of records.
func (t *PermissionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// IsEmpty returns true if the table holds no records.
func (t *PermissionTable) IsEmpty() bool {
	return t.Len() == 0
}

// Get returns the record for id.
func (t *PermissionTable) Get(id ResourceID) (GrantRecord, bool) {
	if t == nil {
		return GrantRecord{}, false
	}
	rec, ok := t.entries[id]
	return rec, ok
}

// Put stores rec under rec.Resource, replacing any earlier record.
func (t *PermissionTable) Put(rec GrantRecord) {
	if t.entries == nil {
		t.entries = make(map[ResourceID]GrantRecord)
	}
	t.entries[rec.Resource] = rec
}

// Delete removes the record for id and reports whether one existed.
func (t *PermissionTable) Delete(id ResourceID) bool {
	if t == nil {
		return false
	}
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	return true
}

// RecordFailure increments the failure counter for id and returns the new
// count. It returns 0 when id has no record.
func (t *PermissionTable) RecordFailure(id ResourceID) int {
	rec, ok := t.Get(id)
	if !ok {
		return 0
	}
	rec.Failures++
	t.entries[id] = rec
	return rec.Failures
}

// ResetFailures clears the failure counter for id and reports whether the
// record changed.
func (t *PermissionTable) ResetFailures(id ResourceID) bool {
	rec, ok := t.Get(id)
	if !ok || rec.Failures == 0 {
		return false
	}
	rec.Failures = 0
	t.entries[id] = rec
	return true
}

// Resources returns the identities in the table in lexical order.
func (t *PermissionTable) Resources() []ResourceID {
	if t == nil {
		return nil
	}
	ids := make([]ResourceID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Records returns copies of all records ordered by resource.
func (t *PermissionTable) Records() []GrantRecord {
	ids := t.Resources()
	recs := make([]GrantRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, t.entries[id].Clone())
	}
	return recs
}

// Clone returns a deep copy of the table.
func (t *PermissionTable) Clone() *PermissionTable {
	if t == nil {
		return nil
	}
	clone := &PermissionTable{entries: make(map[ResourceID]GrantRecord, len(t.entries))}
	for id, rec := range t.entries {
		clone.entries[id] = rec.Clone()
	}
	return clone
}

// Equal reports whether both tables hold the same identities with the same
// token bytes. Bookkeeping fields are not compared.
func (t *PermissionTable) Equal(other *PermissionTable) bool {
	if t.Len() != other.Len() {
		return false
	}
	for id, rec := range t.entriesOrNil() {
		o, ok := other.Get(id)
		if !ok || !rec.Token.Equal(o.Token) {
			return false
		}
	}
	return true
}

func (t *PermissionTable) entriesOrNil() map[ResourceID]GrantRecord {
	if t == nil {
		return nil
	}
	return t.entries
}

// LogValue implements slog.LogValuer. Only resource names are logged.
func (t *PermissionTable) LogValue() slog.Value {
	ids := t.Resources()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return slog.GroupValue(
		slog.Int("len", len(ids)),
		slog.Any("resources", names),
	)
}
