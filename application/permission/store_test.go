package permission_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/reglet-dev/permstore/application/permission"
	"github.com/reglet-dev/permstore/domain/entities"
	domainerrors "github.com/reglet-dev/permstore/domain/errors"
	"github.com/reglet-dev/permstore/domain/ports"
	"github.com/reglet-dev/permstore/infrastructure/codec"
	"github.com/reglet-dev/permstore/infrastructure/grantstore"
	"github.com/reglet-dev/permstore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func open(t *testing.T, issuer *testutil.FakeIssuer, durable ports.DurableStore, opts ...permission.Option) *permission.Store {
	t.Helper()
	base := []permission.Option{
		permission.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		permission.WithWorkingDirectory("/"),
		permission.WithSymlinkResolution(false),
		permission.WithClock(func() time.Time { return fixedNow }),
	}
	return permission.Open(issuer, durable, append(base, opts...)...)
}

func seed(t *testing.T, ids ...entities.ResourceID) *grantstore.MemoryStore {
	t.Helper()
	table := entities.NewPermissionTable()
	for _, id := range ids {
		table.Put(entities.GrantRecord{Resource: id, Token: testutil.FakeToken(id)})
	}
	data, err := codec.New().Encode(table)
	require.NoError(t, err)
	return grantstore.NewMemoryStoreWith(data)
}

func persisted(t *testing.T, durable *grantstore.MemoryStore) *entities.PermissionTable {
	t.Helper()
	data, found, err := durable.Read()
	require.NoError(t, err)
	require.True(t, found, "table was never flushed")
	table, err := codec.New().Decode(data)
	require.NoError(t, err)
	return table
}

func TestStore_Open_AbsentStoreIsEmpty(t *testing.T) {
	durable := grantstore.NewMemoryStore()
	s := open(t, testutil.NewFakeIssuer(), durable)

	assert.True(t, s.Snapshot().IsEmpty())
	assert.Empty(t, s.Entries())
	assert.True(t, s.Persistent())
	assert.Equal(t, 0, durable.Writes(), "opening an empty store must not write")
	assert.Equal(t, entities.StateNoGrant, s.State("/a"))
}

func TestStore_Mint(t *testing.T) {
	t.Run("Records and flushes", func(t *testing.T) {
		durable := grantstore.NewMemoryStore()
		s := open(t, testutil.NewFakeIssuer(), durable)

		id, err := s.Mint("/Users/me/Documents/")
		require.NoError(t, err)
		assert.Equal(t, entities.ResourceID("/Users/me/Documents"), id)
		assert.Equal(t, entities.StateGranted, s.State(id.Path()))

		rec, ok := s.Snapshot().Get(id)
		require.True(t, ok)
		assert.Equal(t, fixedNow, rec.GrantedAt)
		assert.NotEmpty(t, rec.ID)

		assert.Equal(t, 1, durable.Writes())
		assert.True(t, persisted(t, durable).Equal(s.Snapshot()))
	})

	t.Run("Isolation", func(t *testing.T) {
		s := open(t, testutil.NewFakeIssuer(), grantstore.NewMemoryStore())
		_, err := s.Mint("/a")
		require.NoError(t, err)
		_, err = s.Mint("/b")
		require.NoError(t, err)
		before, _ := s.Snapshot().Get("/b")

		_, err = s.Mint("/a")
		require.NoError(t, err)

		after, _ := s.Snapshot().Get("/b")
		assert.Equal(t, before, after)
	})

	t.Run("Overwrites", func(t *testing.T) {
		s := open(t, testutil.NewFakeIssuer(), grantstore.NewMemoryStore())
		_, err := s.Mint("/a")
		require.NoError(t, err)
		first, _ := s.Snapshot().Get("/a")

		_, err = s.Mint("/a/")
		require.NoError(t, err)
		second, _ := s.Snapshot().Get("/a")

		assert.Equal(t, 1, s.Snapshot().Len())
		assert.False(t, first.Token.Equal(second.Token))
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("Failure leaves table unchanged", func(t *testing.T) {
		issuer := testutil.NewFakeIssuer()
		durable := grantstore.NewMemoryStore()
		s := open(t, issuer, durable)
		_, err := s.Mint("/a")
		require.NoError(t, err)
		original, _ := s.Snapshot().Get("/a")

		declined := errors.New("not selected by user")
		issuer.FailMint("/a", declined)
		issuer.FailMint("/b", declined)

		_, err = s.Mint("/a")
		var mintErr *domainerrors.MintError
		require.ErrorAs(t, err, &mintErr)
		assert.ErrorIs(t, err, declined)
		assert.Equal(t, entities.ResourceID("/a"), mintErr.Resource)

		_, err = s.Mint("/b")
		require.Error(t, err)

		current, _ := s.Snapshot().Get("/a")
		assert.Equal(t, original, current)
		assert.Equal(t, entities.StateNoGrant, s.State("/b"))
		assert.Equal(t, 1, durable.Writes())
	})
}

func TestStore_Activate(t *testing.T) {
	t.Run("NoGrant", func(t *testing.T) {
		s := open(t, testutil.NewFakeIssuer(), grantstore.NewMemoryStore())
		testutil.AssertNoGrant(t, s.Activate("/never"))
	})

	t.Run("Stale", func(t *testing.T) {
		issuer := testutil.NewFakeIssuer()
		s := open(t, issuer, grantstore.NewMemoryStore())
		_, err := s.Mint("/moved")
		require.NoError(t, err)
		issuer.MarkStale("/moved")

		testutil.AssertStale(t, s.Activate("/moved"))
		assert.Equal(t, entities.StateGranted, s.State("/moved"))
		assert.Equal(t, 0, issuer.Handle("/moved").Starts(), "stale grants must not start access")
	})

	t.Run("RedeemFailed", func(t *testing.T) {
		issuer := testutil.NewFakeIssuer()
		s := open(t, issuer, grantstore.NewMemoryStore())
		_, err := s.Mint("/x")
		require.NoError(t, err)
		issuer.FailRedeem("/x", errors.New("bookmark data corrupted"))

		testutil.AssertRedeemFailed(t, s.Activate("/x"))
		assert.Equal(t, entities.StateGranted, s.State("/x"))
	})

	t.Run("AccessDenied", func(t *testing.T) {
		issuer := testutil.NewFakeIssuer()
		s := open(t, issuer, grantstore.NewMemoryStore())
		_, err := s.Mint("/locked")
		require.NoError(t, err)
		issuer.DenyAccess("/locked")

		err = s.Activate("/locked")
		testutil.AssertRedeemFailed(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrAccessDenied)
	})

	t.Run("ActiveIsNoOp", func(t *testing.T) {
		issuer := testutil.NewFakeIssuer()
		durable := grantstore.NewMemoryStore()
		s := open(t, issuer, durable)
		_, err := s.Mint("/a")
		require.NoError(t, err)
		writes := durable.Writes()

		require.NoError(t, s.Activate("/a"))
		require.NoError(t, s.Activate("/a"))

		assert.Equal(t, entities.StateActive, s.State("/a"))
		assert.Equal(t, 1, issuer.Redeems("/a"))
		assert.Equal(t, 1, issuer.Handle("/a").Starts())
		assert.Equal(t, writes, durable.Writes(), "activation does not re-persist")
	})

	t.Run("ManualRetry", func(t *testing.T) {
		issuer := testutil.NewFakeIssuer()
		s := open(t, issuer, grantstore.NewMemoryStore())
		_, err := s.Mint("/a")
		require.NoError(t, err)

		issuer.FailRedeem("/a", errors.New("transient"))
		require.Error(t, s.Activate("/a"))

		issuer.Heal("/a")
		require.NoError(t, s.Activate("/a"))
		assert.Equal(t, entities.StateActive, s.State("/a"))
	})
}

func TestStore_RestartRoundTrip(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	durable := grantstore.NewMemoryStore()

	first := open(t, issuer, durable)
	id, err := first.Mint("/Users/me/Pictures")
	require.NoError(t, err)
	minted := first.Snapshot()
	require.NoError(t, first.Close())

	second := open(t, issuer, durable)
	defer second.Close()

	assert.True(t, second.Snapshot().Equal(minted))
	assert.Equal(t, entities.StateActive, second.State(id.Path()), "startup replay activates recorded grants")

	require.NoError(t, second.Activate(id.Path()))
	assert.Equal(t, 1, issuer.Redeems(id), "explicit activation of an active resource does not redeem again")
}

func TestStore_ReplayKeepsFailedResources(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	issuer.FailRedeem("/a", errors.New("redeem failed"))
	durable := seed(t, "/a", "/b")

	s := open(t, issuer, durable)

	snapshot := s.Snapshot()
	assert.Equal(t, 2, snapshot.Len())
	_, ok := snapshot.Get("/a")
	assert.True(t, ok, "a failed resource stays in the table")

	assert.Equal(t, entities.StateGranted, s.State("/a"))
	assert.Equal(t, entities.StateActive, s.State("/b"))
	assert.Equal(t, []entities.ResourceID{"/b"}, s.Active())

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entities.FailureRedeem, entries[0].LastFailure)
	assert.Equal(t, 1, entries[0].Failures)
	assert.Equal(t, entities.FailureNone, entries[1].LastFailure)

	rec, _ := persisted(t, durable).Get("/a")
	assert.Equal(t, 1, rec.Failures, "failure count is persisted")
}

func TestStore_ReplayStaleIsDistinct(t *testing.T) {
	var logs bytes.Buffer
	issuer := testutil.NewFakeIssuer()
	issuer.MarkStale("/stale")
	issuer.FailRedeem("/broken", errors.New("boom"))

	s := open(t, issuer, seed(t, "/stale", "/broken"),
		permission.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	states := map[entities.ResourceID]entities.FailureKind{}
	for _, e := range s.Entries() {
		states[e.Resource] = e.LastFailure
	}
	assert.Equal(t, entities.FailureStale, states["/stale"])
	assert.Equal(t, entities.FailureRedeem, states["/broken"])
	assert.Contains(t, logs.String(), "grant is stale")
	assert.Contains(t, logs.String(), "failed to redeem grant")
}

func TestStore_ReplayResetsFailuresOnSuccess(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	durable := seed(t, "/a")

	issuer.FailRedeem("/a", errors.New("offline volume"))
	require.NoError(t, open(t, issuer, durable).Close())
	rec, _ := persisted(t, durable).Get("/a")
	require.Equal(t, 1, rec.Failures)

	issuer.Heal("/a")
	s := open(t, issuer, durable)
	assert.Equal(t, entities.StateActive, s.State("/a"))
	require.NoError(t, s.Close())

	rec, _ = persisted(t, durable).Get("/a")
	assert.Zero(t, rec.Failures)
}

func TestStore_PruneAfter(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	issuer.FailRedeem("/gone", errors.New("volume removed"))
	durable := seed(t, "/gone", "/kept")

	first := open(t, issuer, durable, permission.WithPruneAfter(2))
	assert.Equal(t, entities.StateGranted, first.State("/gone"))
	require.NoError(t, first.Close())

	second := open(t, issuer, durable, permission.WithPruneAfter(2))
	assert.Equal(t, entities.StateNoGrant, second.State("/gone"))
	assert.Equal(t, entities.StateActive, second.State("/kept"))

	_, ok := persisted(t, durable).Get("/gone")
	assert.False(t, ok, "pruned grant is removed from the durable store")
}

func TestStore_NeverPrunesByDefault(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	issuer.FailRedeem("/gone", errors.New("volume removed"))
	durable := seed(t, "/gone")

	for i := 0; i < 5; i++ {
		require.NoError(t, open(t, issuer, durable).Close())
	}
	rec, ok := persisted(t, durable).Get("/gone")
	require.True(t, ok)
	assert.Equal(t, 5, rec.Failures)
}

func TestStore_CorruptStoreRecovers(t *testing.T) {
	durable := grantstore.NewMemoryStoreWith([]byte("\x00\xffgarbage that is not a table"))
	var s *permission.Store
	require.NotPanics(t, func() {
		s = open(t, testutil.NewFakeIssuer(), durable)
	})

	assert.True(t, s.Snapshot().IsEmpty())

	_, err := s.Mint("/a")
	require.NoError(t, err)

	table := persisted(t, durable)
	assert.Equal(t, []entities.ResourceID{"/a"}, table.Resources())
}

func TestStore_UnreadableStore(t *testing.T) {
	flaky := testutil.NewFlakyStore(seed(t, "/a"))
	flaky.FailReads(errors.New("permission denied"))

	s := open(t, testutil.NewFakeIssuer(), flaky)
	assert.True(t, s.Snapshot().IsEmpty())
	assert.False(t, s.Persistent())

	_, err := s.Mint("/b")
	require.NoError(t, err)
	assert.True(t, s.Persistent(), "a successful write leaves degraded mode")
}

func TestStore_WriteFailureIsNonFatal(t *testing.T) {
	flaky := testutil.NewFlakyStore(grantstore.NewMemoryStore())
	s := open(t, testutil.NewFakeIssuer(), flaky)

	flaky.FailWrites(&domainerrors.StoreUnavailableError{Operation: "write", Err: errors.New("disk full")})
	id, err := s.Mint("/a")
	require.NoError(t, err, "mint succeeds in memory when the flush fails")
	assert.False(t, s.Persistent())
	require.NoError(t, s.Activate(id.Path()))

	flaky.FailWrites(nil)
	_, err = s.Mint("/b")
	require.NoError(t, err)
	assert.True(t, s.Persistent())

	data, found, err := flaky.Read()
	require.NoError(t, err)
	require.True(t, found)
	table, err := codec.New().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []entities.ResourceID{"/a", "/b"}, table.Resources())
}

func TestStore_Close(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	durable := grantstore.NewMemoryStore()
	s := open(t, issuer, durable)
	_, err := s.Mint("/a")
	require.NoError(t, err)
	require.NoError(t, s.Activate("/a"))
	writes := durable.Writes()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, writes+1, durable.Writes(), "close flushes exactly once")
	assert.False(t, issuer.Handle("/a").Started(), "close stops access")
	assert.Equal(t, 1, issuer.Handle("/a").Stops())

	_, err = s.Mint("/b")
	assert.ErrorIs(t, err, domainerrors.ErrClosed)
	assert.ErrorIs(t, s.Activate("/a"), domainerrors.ErrClosed)
	assert.ErrorIs(t, s.Revoke("/a"), domainerrors.ErrClosed)
	assert.ErrorIs(t, s.Deactivate("/a"), domainerrors.ErrClosed)
}

func TestStore_CloseReportsFlushFailure(t *testing.T) {
	flaky := testutil.NewFlakyStore(grantstore.NewMemoryStore())
	s := open(t, testutil.NewFakeIssuer(), flaky)
	flaky.FailWrites(errors.New("read-only filesystem"))

	assert.Error(t, s.Close())
}

func TestStore_Revoke(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	durable := grantstore.NewMemoryStore()
	s := open(t, issuer, durable)
	_, err := s.Mint("/a")
	require.NoError(t, err)
	require.NoError(t, s.Activate("/a"))

	require.NoError(t, s.Revoke("/a"))
	assert.Equal(t, entities.StateNoGrant, s.State("/a"))
	assert.False(t, issuer.Handle("/a").Started())
	assert.True(t, persisted(t, durable).IsEmpty())

	testutil.AssertNoGrant(t, s.Revoke("/a"))
	testutil.AssertNoGrant(t, s.Activate("/a"))
}

func TestStore_Deactivate(t *testing.T) {
	issuer := testutil.NewFakeIssuer()
	s := open(t, issuer, grantstore.NewMemoryStore())
	_, err := s.Mint("/a")
	require.NoError(t, err)
	require.NoError(t, s.Activate("/a"))

	require.NoError(t, s.Deactivate("/a"))
	assert.Equal(t, entities.StateGranted, s.State("/a"))
	assert.False(t, issuer.Handle("/a").Started())

	require.NoError(t, s.Deactivate("/a"), "deactivating a granted resource is a no-op")
	testutil.AssertNoGrant(t, s.Deactivate("/unknown"))

	require.NoError(t, s.Activate("/a"))
	assert.Equal(t, 2, issuer.Redeems("/a"))
}

func TestStore_IdentityNormalization(t *testing.T) {
	s := open(t, testutil.NewFakeIssuer(), grantstore.NewMemoryStore(),
		permission.WithWorkingDirectory("/home/me"))

	id, err := s.Mint("projects//alpha/")
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceID("/home/me/projects/alpha"), id)

	assert.Equal(t, entities.StateGranted, s.State("/home/me/projects/./alpha"))
	assert.Equal(t, entities.StateGranted, s.State("../me/projects/alpha"))
	assert.Equal(t, 1, s.Snapshot().Len())
}

func TestStore_Covering(t *testing.T) {
	s := open(t, testutil.NewFakeIssuer(), grantstore.NewMemoryStore())
	_, err := s.Mint("/data")
	require.NoError(t, err)
	_, err = s.Mint("/data/projects")
	require.NoError(t, err)

	_, ok := s.Covering("/data/projects/alpha/main.go")
	assert.False(t, ok, "granted but inactive resources do not cover paths")

	require.NoError(t, s.Activate("/data"))
	got, ok := s.Covering("/data/projects/alpha/main.go")
	require.True(t, ok)
	assert.Equal(t, entities.ResourceID("/data"), got)

	require.NoError(t, s.Activate("/data/projects"))
	got, _ = s.Covering("/data/projects/alpha/main.go")
	assert.Equal(t, entities.ResourceID("/data/projects"), got)

	_, ok = s.Covering("/elsewhere")
	assert.False(t, ok)
}

func TestStore_ConcurrentMints(t *testing.T) {
	durable := grantstore.NewMemoryStore()
	s := open(t, testutil.NewFakeIssuer(), durable)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Mint(fmt.Sprintf("/r/%02d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Snapshot().Len())
	require.NoError(t, s.Close())
	assert.Equal(t, n, persisted(t, durable).Len(), "no update may be lost")
}
