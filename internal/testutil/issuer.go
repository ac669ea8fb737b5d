package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
)

const fakeTokenPrefix = "fake:"

// FakeIssuer is a scripted ports.GrantIssuer. Tokens encode the resource and
// a mint sequence number, so every mint yields distinct bytes.
type FakeIssuer struct {
	mu         sync.Mutex
	seq        int
	mintErr    map[entities.ResourceID]error
	redeemErr  map[entities.ResourceID]error
	stale      map[entities.ResourceID]bool
	denyAccess map[entities.ResourceID]bool
	redeems    map[entities.ResourceID]int
	handles    map[entities.ResourceID]*FakeHandle
}

var _ ports.GrantIssuer = (*FakeIssuer)(nil)

// NewFakeIssuer returns an issuer that succeeds for every resource.
func NewFakeIssuer() *FakeIssuer {
	return &FakeIssuer{
		mintErr:    make(map[entities.ResourceID]error),
		redeemErr:  make(map[entities.ResourceID]error),
		stale:      make(map[entities.ResourceID]bool),
		denyAccess: make(map[entities.ResourceID]bool),
		redeems:    make(map[entities.ResourceID]int),
		handles:    make(map[entities.ResourceID]*FakeHandle),
	}
}

// FailMint makes Mint fail for id with err.
func (f *FakeIssuer) FailMint(id entities.ResourceID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintErr[id] = err
}

// FailRedeem makes Redeem fail for id with err.
func (f *FakeIssuer) FailRedeem(id entities.ResourceID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemErr[id] = err
}

// MarkStale makes Redeem report id as stale.
func (f *FakeIssuer) MarkStale(id entities.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale[id] = true
}

// DenyAccess makes StartAccess fail for handles on id.
func (f *FakeIssuer) DenyAccess(id entities.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denyAccess[id] = true
}

// Heal clears every scripted failure for id.
func (f *FakeIssuer) Heal(id entities.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.mintErr, id)
	delete(f.redeemErr, id)
	delete(f.stale, id)
	delete(f.denyAccess, id)
}

// Redeems returns how often a token for id was redeemed.
func (f *FakeIssuer) Redeems(id entities.ResourceID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redeems[id]
}

// Handle returns the most recent handle issued for id.
func (f *FakeIssuer) Handle(id entities.ResourceID) *FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[id]
}

func (f *FakeIssuer) Mint(resource entities.ResourceID) (entities.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mintErr[resource]; err != nil {
		return nil, err
	}
	f.seq++
	return entities.Token(fmt.Sprintf("%s%d:%s", fakeTokenPrefix, f.seq, resource)), nil
}

func (f *FakeIssuer) Redeem(token entities.Token) (ports.ResourceHandle, bool, error) {
	id, err := ResourceFromFakeToken(token)
	if err != nil {
		return nil, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeems[id]++
	if err := f.redeemErr[id]; err != nil {
		return nil, false, err
	}
	h := &FakeHandle{resource: id, deny: f.denyAccess[id]}
	f.handles[id] = h
	return h, f.stale[id], nil
}

// FakeToken returns a token FakeIssuer can redeem, for seeding stores.
func FakeToken(id entities.ResourceID) entities.Token {
	return entities.Token(fakeTokenPrefix + "0:" + string(id))
}

// ResourceFromFakeToken recovers the resource a fake token was minted for.
func ResourceFromFakeToken(token entities.Token) (entities.ResourceID, error) {
	s := string(token)
	if !strings.HasPrefix(s, fakeTokenPrefix) {
		return "", fmt.Errorf("not a fake token")
	}
	_, id, ok := strings.Cut(strings.TrimPrefix(s, fakeTokenPrefix), ":")
	if !ok {
		return "", fmt.Errorf("malformed fake token")
	}
	return entities.ResourceID(id), nil
}

// FakeHandle records StartAccess/StopAccess calls.
type FakeHandle struct {
	mu       sync.Mutex
	resource entities.ResourceID
	deny     bool
	started  bool
	starts   int
	stops    int
}

var _ ports.ResourceHandle = (*FakeHandle)(nil)

func (h *FakeHandle) Resource() entities.ResourceID {
	return h.resource
}

func (h *FakeHandle) StartAccess() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	if h.deny {
		return false
	}
	h.started = true
	return true
}

func (h *FakeHandle) StopAccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	h.started = false
}

// Started reports whether access is currently started.
func (h *FakeHandle) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Starts returns how many times StartAccess was called.
func (h *FakeHandle) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// Stops returns how many times StopAccess was called.
func (h *FakeHandle) Stops() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}
