package grantstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	domainerrors "github.com/reglet-dev/permstore/domain/errors"
	"github.com/reglet-dev/permstore/domain/ports"
)

// SealedStore encrypts the blob with age before handing it to an inner
// store, and decrypts on read. A blob that fails to decrypt is reported as
// corrupt data: it was either tampered with or sealed to another identity.
type SealedStore struct {
	inner    ports.DurableStore
	identity *age.X25519Identity
}

var _ ports.DurableStore = (*SealedStore)(nil)

// NewSealedStore wraps inner so that everything it stores is sealed to identity.
func NewSealedStore(inner ports.DurableStore, identity *age.X25519Identity) *SealedStore {
	return &SealedStore{inner: inner, identity: identity}
}

func (s *SealedStore) Read() ([]byte, bool, error) {
	sealed, found, err := s.inner.Read()
	if err != nil || !found {
		return nil, found, err
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), s.identity)
	if err != nil {
		return nil, false, &domainerrors.CorruptDataError{Reason: "open sealed store", Err: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, &domainerrors.CorruptDataError{Reason: "read sealed store", Err: err}
	}
	return data, true, nil
}

func (s *SealedStore) Write(data []byte) error {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.identity.Recipient())
	if err != nil {
		return s.unavailable(fmt.Errorf("seal: %w", err))
	}
	if _, err := w.Write(data); err != nil {
		return s.unavailable(fmt.Errorf("seal: %w", err))
	}
	if err := w.Close(); err != nil {
		return s.unavailable(fmt.Errorf("seal: %w", err))
	}
	if err := s.inner.Write(buf.Bytes()); err != nil {
		var unavailable *domainerrors.StoreUnavailableError
		if errors.As(err, &unavailable) {
			return err
		}
		return s.unavailable(err)
	}
	return nil
}

func (s *SealedStore) Path() string {
	return s.inner.Path()
}

func (s *SealedStore) unavailable(err error) error {
	return &domainerrors.StoreUnavailableError{Operation: "write", Path: s.inner.Path(), Err: err}
}

// LoadIdentity reads the first X25519 identity from an age identity file.
func LoadIdentity(path string) (*age.X25519Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open age identity: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse age identity %s: %w", path, err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("age identity %s holds no X25519 key", path)
}

// LoadOrCreateIdentity loads the identity at path, generating and saving a
// new one (mode 0600) when the file does not exist.
func LoadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	id, err := LoadIdentity(path)
	if err == nil {
		return id, nil
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		return nil, err
	}

	id, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate age identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create identity directory: %w", err)
	}
	content := fmt.Sprintf("# public key: %s\n%s\n", id.Recipient(), id)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("write age identity: %w", err)
	}
	return id, nil
}
