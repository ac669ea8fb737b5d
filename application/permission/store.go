package permission

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/reglet-dev/permstore/domain/entities"
	domainerrors "github.com/reglet-dev/permstore/domain/errors"
	"github.com/reglet-dev/permstore/domain/ports"
)

// Store owns the permission table. All methods are safe for concurrent use;
// a single mutex serializes every read-modify-write of the table.
type Store struct {
	issuer  ports.GrantIssuer
	durable ports.DurableStore
	config  storeConfig

	mu         sync.Mutex
	table      *entities.PermissionTable
	active     map[entities.ResourceID]ports.ResourceHandle
	failures   map[entities.ResourceID]entities.FailureKind
	persistent bool
	closed     bool

	closeOnce sync.Once
	closeErr  error
}

// Open loads the table from durable, then tries once to activate every
// recorded resource. It never fails: an unreadable or corrupt store is logged
// and replaced by an empty table, and resources that cannot be activated stay
// recorded for a later retry.
func Open(issuer ports.GrantIssuer, durable ports.DurableStore, opts ...Option) *Store {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.cwd = wd
		}
	}
	if cfg.coverage == nil {
		cfg.coverage = cfg.defaultCoverage()
	}

	s := &Store{
		issuer:     issuer,
		durable:    durable,
		config:     cfg,
		table:      entities.NewPermissionTable(),
		active:     make(map[entities.ResourceID]ports.ResourceHandle),
		failures:   make(map[entities.ResourceID]entities.FailureKind),
		persistent: true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	s.replay()
	return s
}

// Identity returns the canonical ResourceID for path.
func (s *Store) Identity(path string) entities.ResourceID {
	canonical := entities.CanonicalPath(s.config.cwd, path)
	if s.config.resolveSymlinks {
		if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
			canonical = entities.CanonicalPath(s.config.cwd, resolved)
		}
	}
	return entities.ResourceID(canonical)
}

// Mint asks the issuer for a fresh token for path and records it, replacing
// any earlier token for the same resource, then flushes the table. Call it
// while the caller still holds transient access, e.g. right after the user
// picked the resource. On failure the table is left unchanged.
func (s *Store) Mint(path string) (entities.ResourceID, error) {
	id := s.Identity(path)
	if s.isClosed() {
		return id, domainerrors.ErrClosed
	}

	token, err := s.issuer.Mint(id)
	if err == nil && len(token) == 0 {
		err = fmt.Errorf("issuer returned an empty token")
	}
	if err != nil {
		return id, &domainerrors.MintError{Resource: id, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return id, domainerrors.ErrClosed
	}

	s.table.Put(entities.GrantRecord{
		ID:        uuid.NewString(),
		Resource:  id,
		Token:     token.Clone(),
		GrantedAt: s.config.now().UTC(),
	})
	delete(s.failures, id)
	s.config.logger.Info("granted persistent access", "resource", id)

	// A failed flush leaves the grant usable for this process.
	_ = s.flushLocked()
	return id, nil
}

// Activate redeems the stored token for path and starts access.
//
// It returns nil when the resource is active (including when it already
// was), an error matching domainerrors.ErrNoGrant when no token was ever
// recorded, *domainerrors.StaleError when the token no longer refers to the
// resource, and *domainerrors.RedeemError for any other failure, including a
// token that redeems to a different resource. Failed resources stay in the
// table.
func (s *Store) Activate(path string) error {
	id := s.Identity(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domainerrors.ErrClosed
	}
	return s.activateLocked(id)
}

// Deactivate stops access to an active resource. The grant stays recorded.
// Deactivating a granted but inactive resource is a no-op.
func (s *Store) Deactivate(path string) error {
	id := s.Identity(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domainerrors.ErrClosed
	}
	if h, ok := s.active[id]; ok {
		h.StopAccess()
		delete(s.active, id)
		return nil
	}
	if _, ok := s.table.Get(id); !ok {
		return fmt.Errorf("deactivate %s: %w", id, domainerrors.ErrNoGrant)
	}
	return nil
}

// Revoke forgets the grant for path, stopping access first if it is active,
// and flushes the table.
func (s *Store) Revoke(path string) error {
	id := s.Identity(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domainerrors.ErrClosed
	}
	if !s.table.Delete(id) {
		return fmt.Errorf("revoke %s: %w", id, domainerrors.ErrNoGrant)
	}
	if h, ok := s.active[id]; ok {
		h.StopAccess()
		delete(s.active, id)
	}
	delete(s.failures, id)
	s.config.logger.Info("revoked persistent access", "resource", id)

	_ = s.flushLocked()
	return nil
}

// State reports where path stands in the grant lifecycle.
func (s *Store) State(path string) entities.ResourceState {
	id := s.Identity(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(id)
}

// Entries returns a snapshot of every recorded resource ordered by path.
func (s *Store) Entries() []entities.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.table.Records()
	entries := make([]entities.Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entities.Entry{
			GrantRecord: rec,
			State:       s.stateLocked(rec.Resource),
			LastFailure: s.failures[rec.Resource],
		})
	}
	return entries
}

// Active returns the resources whose access is currently started.
func (s *Store) Active() []entities.ResourceID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]entities.ResourceID, 0, len(s.active))
	for _, id := range s.table.Resources() {
		if _, ok := s.active[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Snapshot returns a deep copy of the permission table.
func (s *Store) Snapshot() *entities.PermissionTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone()
}

// Covering returns the active resource that gives access to path: the path
// itself or the closest active directory above it.
func (s *Store) Covering(path string) (entities.ResourceID, bool) {
	s.mu.Lock()
	active := make([]entities.ResourceID, 0, len(s.active))
	for id := range s.active {
		active = append(active, id)
	}
	s.mu.Unlock()

	return s.config.coverage.Covering(path, active)
}

// Persistent reports whether the last attempt to save the table succeeded.
// While false the store works from memory only.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistent
}

// Path returns the location of the durable store.
func (s *Store) Path() string {
	return s.durable.Path()
}

// Close flushes the table one last time and stops access to every active
// resource. It runs once; later calls return the first result and every
// other method reports ErrClosed.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		s.closeErr = s.flushLocked()
		for id, h := range s.active {
			h.StopAccess()
			delete(s.active, id)
		}
	})
	return s.closeErr
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) stateLocked(id entities.ResourceID) entities.ResourceState {
	if _, ok := s.active[id]; ok {
		return entities.StateActive
	}
	if _, ok := s.table.Get(id); ok {
		return entities.StateGranted
	}
	return entities.StateNoGrant
}

func (s *Store) activateLocked(id entities.ResourceID) error {
	if _, ok := s.active[id]; ok {
		return nil
	}
	rec, ok := s.table.Get(id)
	if !ok {
		return fmt.Errorf("activate %s: %w", id, domainerrors.ErrNoGrant)
	}

	handle, stale, err := s.issuer.Redeem(rec.Token)
	if err != nil {
		s.failures[id] = entities.FailureRedeem
		s.config.logger.Warn("failed to redeem grant", "resource", id, "error", err)
		return &domainerrors.RedeemError{Resource: id, Err: err}
	}
	if stale {
		s.failures[id] = entities.FailureStale
		s.config.logger.Warn("grant is stale; resource must be granted again", "resource", id)
		return &domainerrors.StaleError{Resource: id}
	}
	if got := handle.Resource(); got != id {
		s.failures[id] = entities.FailureRedeem
		s.config.logger.Warn("token redeemed to a different resource; not activated",
			"resource", id, "redeemed", got)
		return &domainerrors.RedeemError{Resource: id, Err: domainerrors.ErrResourceMismatch}
	}
	if !handle.StartAccess() {
		s.failures[id] = entities.FailureRedeem
		s.config.logger.Warn("failed to start access", "resource", id)
		return &domainerrors.RedeemError{Resource: id, Err: domainerrors.ErrAccessDenied}
	}

	s.active[id] = handle
	delete(s.failures, id)
	s.config.logger.Debug("activated grant", "resource", id)
	return nil
}

// flushLocked encodes and writes the table. Failures are logged and leave
// the in-memory table authoritative.
func (s *Store) flushLocked() error {
	data, err := s.config.codec.Encode(s.table)
	if err != nil {
		s.config.logger.Error("permission table could not be encoded; not persisted", "error", err)
		return err
	}
	if err := s.durable.Write(data); err != nil {
		if s.persistent {
			s.config.logger.Warn("permission store unavailable; continuing in memory",
				"path", s.durable.Path(), "error", err)
		}
		s.persistent = false
		return err
	}
	if !s.persistent {
		s.config.logger.Info("permission store persisting again", "path", s.durable.Path())
	}
	s.persistent = true
	return nil
}
