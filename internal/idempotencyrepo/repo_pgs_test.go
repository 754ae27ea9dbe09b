//go:build integration

package idempotencyrepo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/internal/idempotencyrepo"
	"github.com/go-petr/fx-bank/internal/test"
	"github.com/go-petr/fx-bank/pkg/configpkg"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/randompkg"
)

var (
	dbDriver string
	dbSource string
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	os.Exit(m.Run())
}

func TestCreateAndGet(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := idempotencyrepo.NewRepoPGS(tx)

		from := test.SeedAccountWith1000USDBalance(t, tx, randompkg.Owner())
		to := test.SeedAccount(t, tx, randompkg.Owner(), "1000", currencypkg.EUR)
		transfer := test.SeedTransfer(t, tx, from, to, "100", "0.92")

		key := randompkg.IdempotencyKey()

		created, err := repo.Create(context.Background(), key, from.Owner, transfer.ID)
		require.NoError(t, err)
		require.Equal(t, key, created.Key)
		require.Equal(t, from.Owner, created.Owner)
		require.Equal(t, transfer.ID, created.TransferID)
		require.NotZero(t, created.CreatedAt)

		got, found, err := repo.Get(context.Background(), key)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, created.TransferID, got.TransferID)

		// The key column is the primary key.
		_, err = repo.Create(context.Background(), key, from.Owner, transfer.ID)
		require.ErrorIs(t, err, domain.ErrKeyConflict)
	})

	t.Run("Miss", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := idempotencyrepo.NewRepoPGS(tx)

		_, found, err := repo.Get(context.Background(), randompkg.IdempotencyKey())
		require.NoError(t, err)
		require.False(t, found)
	})
}
