package codec

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/reglet-dev/permstore/domain/entities"
	domainerrors "github.com/reglet-dev/permstore/domain/errors"
	"github.com/reglet-dev/permstore/domain/ports"
)

// FormatVersion is the envelope version written by this package.
const FormatVersion = 1

const (
	digestSize  = 32
	maxFailures = 1 << 31

	// digestContext separates the digest key from other uses of the same
	// key material, such as the bookmark MAC.
	digestContext = "permstore 2026-10 table digest v1"
)

type envelope struct {
	Version uint64 `cbor:"1,keyasint"`
	Entries []byte `cbor:"2,keyasint"`
	Digest  []byte `cbor:"3,keyasint"`
}

type entryWire struct {
	Resource  string `cbor:"1,keyasint"`
	Token     []byte `cbor:"2,keyasint"`
	GrantedAt int64  `cbor:"3,keyasint,omitempty"`
	Failures  uint64 `cbor:"4,keyasint,omitempty"`
	ID        string `cbor:"5,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core Deterministic Encoding: the same table always produces the same
	// bytes, so the digest is stable across rewrites.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		TagsMd:            cbor.TagsForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec encodes permission tables as versioned, digested CBOR.
// Without a key the digest only detects accidental damage. With a key it is
// a MAC, so an edited table fails to decode unless the editor holds the key.
type CBORCodec struct {
	key []byte // nil: unkeyed blake3-256
}

var _ ports.TableCodec = (*CBORCodec)(nil)

// Option configures a CBORCodec.
type Option func(*CBORCodec)

// WithKey authenticates the entries with a key derived from material.
// Tables written under one key do not decode under another or under none.
func WithKey(material []byte) Option {
	return func(c *CBORCodec) {
		c.key = make([]byte, digestSize)
		blake3.DeriveKey(digestContext, material, c.key)
	}
}

// New returns the table codec.
func New(opts ...Option) ports.TableCodec {
	c := &CBORCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode serializes table. It refuses tables holding records that Decode
// would reject, so a successful Encode always round-trips.
func (c *CBORCodec) Encode(table *entities.PermissionTable) ([]byte, error) {
	records := table.Records()
	wire := make([]entryWire, 0, len(records))
	for _, rec := range records {
		if err := validateRecord(rec.Resource, rec.Token, rec.ID); err != nil {
			return nil, fmt.Errorf("encode permission table: %w", err)
		}
		e := entryWire{
			Resource: string(rec.Resource),
			Token:    rec.Token,
			ID:       rec.ID,
			Failures: uint64(rec.Failures),
		}
		if !rec.GrantedAt.IsZero() {
			e.GrantedAt = rec.GrantedAt.UnixNano()
		}
		wire = append(wire, e)
	}

	entries, err := encMode.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode permission entries: %w", err)
	}
	data, err := encMode.Marshal(envelope{
		Version: FormatVersion,
		Entries: entries,
		Digest:  c.digest(entries),
	})
	if err != nil {
		return nil, fmt.Errorf("encode permission envelope: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
func (c *CBORCodec) Decode(data []byte) (*entities.PermissionTable, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, corrupt("decode envelope", err)
	}
	if env.Version == 0 || env.Version > FormatVersion {
		return nil, corrupt(fmt.Sprintf("unsupported format version %d", env.Version), nil)
	}
	if len(env.Digest) != digestSize {
		return nil, corrupt("missing or malformed digest", nil)
	}
	if subtle.ConstantTimeCompare(c.digest(env.Entries), env.Digest) != 1 {
		return nil, corrupt("digest mismatch", nil)
	}

	var wire []entryWire
	if err := decMode.Unmarshal(env.Entries, &wire); err != nil {
		return nil, corrupt("decode entries", err)
	}

	table := entities.NewPermissionTable()
	for i, e := range wire {
		id := entities.ResourceID(e.Resource)
		if err := validateRecord(id, e.Token, e.ID); err != nil {
			return nil, corrupt(fmt.Sprintf("entry %d", i), err)
		}
		if e.Failures > maxFailures {
			return nil, corrupt(fmt.Sprintf("entry %d: failure count %d out of range", i, e.Failures), nil)
		}
		if _, dup := table.Get(id); dup {
			return nil, corrupt(fmt.Sprintf("entry %d: duplicate resource %s", i, id), nil)
		}
		rec := entities.GrantRecord{
			Resource: id,
			Token:    entities.Token(e.Token).Clone(),
			ID:       e.ID,
			Failures: int(e.Failures),
		}
		if e.GrantedAt != 0 {
			rec.GrantedAt = time.Unix(0, e.GrantedAt).UTC()
		}
		table.Put(rec)
	}
	return table, nil
}

func (c *CBORCodec) digest(entries []byte) []byte {
	if c.key == nil {
		sum := blake3.Sum256(entries)
		return sum[:]
	}
	h, err := blake3.NewKeyed(c.key)
	if err != nil {
		// WithKey always derives a key of the right size.
		panic("codec: " + err.Error())
	}
	_, _ = h.Write(entries)
	return h.Sum(nil)
}

func validateRecord(id entities.ResourceID, token []byte, grantID string) error {
	if !id.IsCanonical() {
		return fmt.Errorf("resource %q is not a canonical absolute path", id)
	}
	if len(token) == 0 {
		return fmt.Errorf("resource %s has an empty token", id)
	}
	if grantID != "" {
		if _, err := uuid.Parse(grantID); err != nil {
			return fmt.Errorf("resource %s has a malformed grant id: %w", id, err)
		}
	}
	return nil
}

func corrupt(reason string, err error) error {
	return &domainerrors.CorruptDataError{Reason: reason, Err: err}
}
