package ports

import "github.com/reglet-dev/permstore/domain/entities"

// TableCodec serializes a PermissionTable to bytes and back.
type TableCodec interface {
	Encode(table *entities.PermissionTable) ([]byte, error)

	// Decode fails with *errors.CorruptDataError when data is not a valid
	// encoding. It never returns a partially populated table.
	Decode(data []byte) (*entities.PermissionTable, error)
}
