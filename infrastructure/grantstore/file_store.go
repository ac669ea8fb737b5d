package grantstore

import (
	"fmt"
	"os"
	"path/filepath"

	domainerrors "github.com/reglet-dev/permstore/domain/errors"
	"github.com/reglet-dev/permstore/domain/ports"
)

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path     string      // Path to the store file
	dirPerm  os.FileMode // Permission for created directories
	filePerm os.FileMode // Permission for the store file
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     filepath.Join(os.Getenv("HOME"), ".permstore", "grants.cbor"),
		dirPerm:  0o700, // Application-private directory
		filePerm: 0o600, // User-only read/write (secure default)
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the store file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.path = path
	}
}

// WithFilePermissions sets the file permissions for the store file.
// Default is 0o600 (user-only). Use with caution.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions for a created store directory.
// Default is 0o700.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore keeps the blob in a single file that is replaced atomically.
type FileStore struct {
	config fileStoreConfig
}

var _ ports.DurableStore = (*FileStore)(nil)

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Read returns the stored blob. A missing file is a first run, not an error.
func (s *FileStore) Read() ([]byte, bool, error) {
	data, err := os.ReadFile(s.config.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.unavailable("read", err)
	}
	return data, true, nil
}

// Write replaces the stored blob. The data goes to a temporary file in the
// same directory which is synced and renamed over the target, so readers
// never observe a partially written file.
func (s *FileStore) Write(data []byte) error {
	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return s.unavailable("write", fmt.Errorf("create store directory: %w", err))
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(s.config.path)+".*.tmp")
	if err != nil {
		return s.unavailable("write", fmt.Errorf("create temporary file: %w", err))
	}
	temporaryPath := file.Name()

	// Write, sync, close, in that order. If any step fails, remove the
	// temporary file and report the first error.
	if err := file.Chmod(s.config.filePerm); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return s.unavailable("write", fmt.Errorf("set temporary file permissions: %w", err))
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return s.unavailable("write", fmt.Errorf("write temporary file: %w", err))
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return s.unavailable("write", fmt.Errorf("sync temporary file: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return s.unavailable("write", fmt.Errorf("close temporary file: %w", err))
	}

	if err := os.Rename(temporaryPath, s.config.path); err != nil {
		os.Remove(temporaryPath)
		return s.unavailable("write", fmt.Errorf("replace store file: %w", err))
	}

	// Persist the rename itself. Not every platform can sync a directory,
	// and the data is already safe in the file, so failure is ignored.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Path returns the path to the backing store.
func (s *FileStore) Path() string {
	return s.config.path
}

func (s *FileStore) unavailable(op string, err error) error {
	return &domainerrors.StoreUnavailableError{Operation: op, Path: s.config.path, Err: err}
}
