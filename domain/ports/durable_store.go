package ports

// DurableStore persists one opaque blob at a fixed location.
type DurableStore interface {
	// Read returns the stored blob. found is false, with a nil error, when
	// nothing has been written yet.
	Read() (data []byte, found bool, err error)

	// Write atomically replaces the stored blob. A concurrent reader sees
	// either the previous blob or the new one, never a partial write.
	Write(data []byte) error

	// Path returns the location of the backing store (for user messaging).
	Path() string
}
