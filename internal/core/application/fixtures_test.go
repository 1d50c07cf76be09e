package application_test

import (
	"context"
	"testing"

	"github.com/ark-network/noted/internal/core/application"
	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"github.com/ark-network/noted/internal/infrastructure/db"
	"github.com/ark-network/noted/internal/infrastructure/indexstore"
	"github.com/ark-network/noted/internal/infrastructure/keyring"
	inmemorykv "github.com/ark-network/noted/internal/infrastructure/kv/inmemory"
	naclsealer "github.com/ark-network/noted/internal/infrastructure/sealer/nacl"
	"github.com/ark-network/noted/pkg/keylock"
	"github.com/stretchr/testify/require"
)

const (
	usd   = "0xusd"
	eur   = "0xeur"
	alice = "alice"
	bob   = "bob"
)

var ctx = context.Background()

type fixture struct {
	repo       ports.RepoManager
	index      *indexstore.Store
	keyring    ports.Keyring
	ledger     *application.Ledger
	selector   *application.Selector
	reconciler *application.Reconciler
	// set once a test hands the stores over to a stopped service.
	closed bool
}

func newFixture(t *testing.T) *fixture {
	aliceKeys, err := keyring.Generate(alice)
	require.NoError(t, err)
	bobKeys, err := keyring.Generate(bob)
	require.NoError(t, err)
	kr, err := keyring.New(aliceKeys, bobKeys)
	require.NoError(t, err)

	kv, err := inmemorykv.NewStore()
	require.NoError(t, err)
	index, err := indexstore.New(
		kv, naclsealer.NewSealer(), kr, keylock.New(),
		indexstore.Config{Namespace: "regtest", CacheSize: 64},
	)
	require.NoError(t, err)

	repo, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)
	ledger := application.NewLedger(repo.Notes(), index)
	f := &fixture{
		repo:       repo,
		index:      index,
		keyring:    kr,
		ledger:     ledger,
		selector:   application.NewSelector(index.ValueIndex(), ledger),
		reconciler: application.NewReconciler(ledger, repo.Assets(), index, kr),
	}
	t.Cleanup(func() {
		if f.closed {
			return
		}
		repo.Close()
		_ = index.Close()
	})
	return f
}

func (f *fixture) create(t *testing.T, owner string, value uint64, hashes ...string) {
	for _, hash := range hashes {
		require.NoError(t, f.reconciler.Apply(ctx, domain.NoteCreated{
			Hash: hash, Asset: usd, Owner: owner, Value: value, Confirmed: true,
		}))
	}
}

func (f *fixture) destroy(t *testing.T, hashes ...string) {
	for _, hash := range hashes {
		require.NoError(t, f.reconciler.Apply(ctx, domain.NoteDestroyed{Hash: hash}))
	}
}
