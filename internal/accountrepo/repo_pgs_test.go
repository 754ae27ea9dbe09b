//go:build integration

package accountrepo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/fx-bank/internal/accountrepo"
	"github.com/go-petr/fx-bank/internal/domain"
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

func TestCreate(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := accountrepo.NewRepoPGS(tx)

		arg := domain.CreateAccountParams{
			Owner:    randompkg.Owner(),
			Currency: currencypkg.USD,
			Balance:  decimal.Zero,
		}

		account, err := repo.Create(context.Background(), arg)
		require.NoError(t, err)
		require.NotZero(t, account.ID)
		require.Equal(t, arg.Owner, account.Owner)
		require.Equal(t, arg.Currency, account.Currency)
		require.True(t, account.Balance.IsZero())
		require.False(t, account.FixedCommission.Valid)
		require.NotZero(t, account.CreatedAt)
	})

	t.Run("CommissionOverrides", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := accountrepo.NewRepoPGS(tx)

		arg := domain.CreateAccountParams{
			Owner:                randompkg.Owner(),
			Currency:             currencypkg.EUR,
			Balance:              decimal.Zero,
			FixedCommission:      decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
			PercentageCommission: decimal.NewNullDecimal(decimal.RequireFromString("0.02")),
		}

		account, err := repo.Create(context.Background(), arg)
		require.NoError(t, err)
		require.True(t, account.FixedCommission.Valid)
		require.True(t, account.FixedCommission.Decimal.Equal(decimal.RequireFromString("2.5")))
		require.True(t, account.PercentageCommission.Valid)
	})

	t.Run("DuplicateCurrency", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := accountrepo.NewRepoPGS(tx)

		owner := randompkg.Owner()
		test.SeedAccount(t, tx, owner, "0", currencypkg.USD)

		_, err := repo.Create(context.Background(), domain.CreateAccountParams{
			Owner:    owner,
			Currency: currencypkg.USD,
			Balance:  decimal.Zero,
		})
		require.ErrorIs(t, err, domain.ErrCurrencyAlreadyExists)
	})
}

func TestAddBalance(t *testing.T) {
	t.Run("DebitAndCredit", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := accountrepo.NewRepoPGS(tx)

		account := test.SeedAccountWith1000USDBalance(t, tx, randompkg.Owner())

		debited, err := repo.AddBalance(context.Background(), decimal.RequireFromString("-100.50"), account.ID)
		require.NoError(t, err)
		require.True(t, debited.Balance.Equal(decimal.RequireFromString("899.50")))

		credited, err := repo.AddBalance(context.Background(), decimal.RequireFromString("0.50"), account.ID)
		require.NoError(t, err)
		require.True(t, credited.Balance.Equal(decimal.RequireFromString("900")))
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := accountrepo.NewRepoPGS(tx)

		account := test.SeedAccountWith1000USDBalance(t, tx, randompkg.Owner())

		_, err := repo.AddBalance(context.Background(), decimal.RequireFromString("-1000.01"), account.ID)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)

		// The failed decrement must not have touched the row.
		got, err := repo.Get(context.Background(), account.ID)
		require.NoError(t, err)
		require.True(t, got.Balance.Equal(decimal.RequireFromString("1000")))
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := accountrepo.NewRepoPGS(tx)

		_, err := repo.AddBalance(context.Background(), decimal.RequireFromString("1"), 0)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	tx := dbpkg.SetupTX(t, dbDriver, dbSource)
	repo := accountrepo.NewRepoPGS(tx)

	account := test.SeedAccountWith1000USDBalance(t, tx, randompkg.Owner())

	got, err := repo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)
	require.Equal(t, account.Owner, got.Owner)

	_, err = repo.Get(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestList(t *testing.T) {
	t.Parallel()

	tx := dbpkg.SetupTX(t, dbDriver, dbSource)
	repo := accountrepo.NewRepoPGS(tx)

	owner := randompkg.Owner()
	test.SeedAccount(t, tx, owner, "1000", currencypkg.USD)
	test.SeedAccount(t, tx, owner, "1000", currencypkg.EUR)
	test.SeedAccount(t, tx, randompkg.Owner(), "1000", currencypkg.USD)

	accounts, err := repo.List(context.Background(), owner, 10, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	for _, a := range accounts {
		require.Equal(t, owner, a.Owner)
	}
}
