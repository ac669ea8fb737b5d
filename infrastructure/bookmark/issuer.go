package bookmark

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
)

// KeySize is the length of the MAC key in bytes.
const KeySize = 32

const tokenVersion = 1

// ErrForgedToken means a token's MAC does not verify under the issuer key.
var ErrForgedToken = errors.New("bookmark token failed authentication")

type tokenWire struct {
	Version uint64 `cbor:"1,keyasint"`
	Payload []byte `cbor:"2,keyasint"`
	MAC     []byte `cbor:"3,keyasint"`
}

type payloadWire struct {
	Path     string `cbor:"1,keyasint"`
	Device   uint64 `cbor:"2,keyasint"`
	Inode    uint64 `cbor:"3,keyasint"`
	Dir      bool   `cbor:"4,keyasint,omitempty"`
	MintedAt int64  `cbor:"5,keyasint"`
}

var decMode cbor.DecMode

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		TagsMd:            cbor.TagsForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("bookmark: CBOR decoder initialization failed: " + err.Error())
	}
}

// issuerConfig holds configuration for the Issuer.
type issuerConfig struct {
	now func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*issuerConfig)

// WithClock sets the time source used to stamp minted tokens.
func WithClock(now func() time.Time) IssuerOption {
	return func(c *issuerConfig) {
		c.now = now
	}
}

// Issuer mints and redeems bookmark tokens.
type Issuer struct {
	key    []byte
	config issuerConfig
}

var _ ports.GrantIssuer = (*Issuer)(nil)

// NewIssuer creates an Issuer authenticating tokens with key.
func NewIssuer(key []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("bookmark key must be %d bytes, got %d", KeySize, len(key))
	}
	cfg := issuerConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Issuer{key: append([]byte(nil), key...), config: cfg}, nil
}

// Mint issues a token for resource. The resource must be openable right now:
// minting proves the caller holds access at this moment.
func (i *Issuer) Mint(resource entities.ResourceID) (entities.Token, error) {
	f, err := os.Open(resource.Path())
	if err != nil {
		return nil, fmt.Errorf("no transient access to %s: %w", resource, err)
	}
	f.Close()

	id, err := statIdentity(resource.Path())
	if err != nil {
		return nil, err
	}

	payload, err := cbor.Marshal(payloadWire{
		Path:     resource.Path(),
		Device:   id.device,
		Inode:    id.inode,
		Dir:      id.dir,
		MintedAt: i.config.now().UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode bookmark payload: %w", err)
	}
	token, err := cbor.Marshal(tokenWire{Version: tokenVersion, Payload: payload, MAC: i.mac(payload)})
	if err != nil {
		return nil, fmt.Errorf("encode bookmark token: %w", err)
	}
	return token, nil
}

// Redeem verifies token and resolves it to a handle. stale is true when the
// path now names a different file than the one the token was minted for, or
// nothing at all.
func (i *Issuer) Redeem(token entities.Token) (ports.ResourceHandle, bool, error) {
	var wire tokenWire
	if err := decMode.Unmarshal(token, &wire); err != nil {
		return nil, false, fmt.Errorf("decode bookmark token: %w", err)
	}
	if wire.Version != tokenVersion {
		return nil, false, fmt.Errorf("unsupported bookmark token version %d", wire.Version)
	}
	if subtle.ConstantTimeCompare(wire.MAC, i.mac(wire.Payload)) != 1 {
		return nil, false, ErrForgedToken
	}

	var p payloadWire
	if err := decMode.Unmarshal(wire.Payload, &p); err != nil {
		return nil, false, fmt.Errorf("decode bookmark payload: %w", err)
	}

	resource := entities.ResourceID(p.Path)
	current, err := statIdentity(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return newHandle(resource), true, nil
	}
	if err != nil {
		return nil, false, err
	}

	minted := fileIdentity{device: p.Device, inode: p.Inode, dir: p.Dir}
	stale := !current.sameFile(minted)
	return newHandle(resource), stale, nil
}

func (i *Issuer) mac(payload []byte) []byte {
	h, err := blake3.NewKeyed(i.key)
	if err != nil {
		// NewIssuer guarantees a key of the right size.
		panic("bookmark: " + err.Error())
	}
	_, _ = h.Write(payload)
	return h.Sum(nil)
}
