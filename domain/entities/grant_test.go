package entities_test

import (
	"testing"
	"time"

	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id entities.ResourceID, token string) entities.GrantRecord {
	return entities.GrantRecord{
		Resource:  id,
		Token:     entities.Token(token),
		GrantedAt: time.Unix(1700000000, 0),
	}
}

func TestPermissionTable_IsEmpty(t *testing.T) {
	var nilTable *entities.PermissionTable
	assert.True(t, nilTable.IsEmpty())
	assert.Equal(t, 0, nilTable.Len())

	table := entities.NewPermissionTable()
	assert.True(t, table.IsEmpty())

	table.Put(record("/a", "ta"))
	assert.False(t, table.IsEmpty())
}

func TestPermissionTable_PutOverwrites(t *testing.T) {
	table := entities.NewPermissionTable()
	table.Put(record("/a", "first"))
	table.Put(record("/a", "second"))

	assert.Equal(t, 1, table.Len())
	rec, ok := table.Get("/a")
	require.True(t, ok)
	assert.Equal(t, entities.Token("second"), rec.Token)
}

func TestPermissionTable_Isolation(t *testing.T) {
	table := entities.NewPermissionTable()
	table.Put(record("/b", "tb"))
	table.Put(record("/a", "ta"))
	table.Put(record("/a", "ta2"))

	rec, ok := table.Get("/b")
	require.True(t, ok)
	assert.Equal(t, entities.Token("tb"), rec.Token)
	assert.Equal(t, []entities.ResourceID{"/a", "/b"}, table.Resources())
}

func TestPermissionTable_Delete(t *testing.T) {
	table := entities.NewPermissionTable()
	table.Put(record("/a", "ta"))

	assert.True(t, table.Delete("/a"))
	assert.False(t, table.Delete("/a"))
	_, ok := table.Get("/a")
	assert.False(t, ok)
}

func TestPermissionTable_Failures(t *testing.T) {
	table := entities.NewPermissionTable()
	table.Put(record("/a", "ta"))

	assert.Equal(t, 1, table.RecordFailure("/a"))
	assert.Equal(t, 2, table.RecordFailure("/a"))
	assert.Equal(t, 0, table.RecordFailure("/missing"))

	assert.True(t, table.ResetFailures("/a"))
	assert.False(t, table.ResetFailures("/a"))
	rec, _ := table.Get("/a")
	assert.Zero(t, rec.Failures)
}

func TestPermissionTable_CloneIsDeep(t *testing.T) {
	table := entities.NewPermissionTable()
	table.Put(record("/a", "ta"))

	clone := table.Clone()
	require.True(t, clone.Equal(table))

	rec, _ := clone.Get("/a")
	rec.Token[0] = 'X'
	original, _ := table.Get("/a")
	assert.Equal(t, entities.Token("ta"), original.Token)

	clone.Put(record("/b", "tb"))
	assert.Equal(t, 1, table.Len())
	assert.False(t, clone.Equal(table))
}

func TestPermissionTable_Equal(t *testing.T) {
	a := entities.NewPermissionTable()
	b := entities.NewPermissionTable()
	assert.True(t, a.Equal(b))

	a.Put(record("/a", "ta"))
	b.Put(entities.GrantRecord{Resource: "/a", Token: entities.Token("ta"), Failures: 3})
	assert.True(t, a.Equal(b), "bookkeeping fields are not part of content equality")

	b.Put(record("/a", "other"))
	assert.False(t, a.Equal(b))
}

func TestToken_StringIsRedacted(t *testing.T) {
	tok := entities.Token("super-secret")
	assert.NotContains(t, tok.String(), "super-secret")
}
