//go:build integration

package fxrepo_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/internal/fxrepo"
	"github.com/go-petr/fx-bank/internal/fxservice"
	"github.com/go-petr/fx-bank/internal/test"
	"github.com/go-petr/fx-bank/pkg/configpkg"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
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

func TestGetLatest(t *testing.T) {
	t.Run("ReturnsNewestByDate", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := fxrepo.NewRepoPGS(tx)

		yesterday := test.TruncatedNow().AddDate(0, 0, -1)

		_, err := repo.Create(context.Background(), currencypkg.USD, currencypkg.EUR,
			decimal.RequireFromString("0.90"), yesterday, "test")
		require.NoError(t, err)

		want := test.SeedRate(t, tx, currencypkg.USD, currencypkg.EUR, "0.92")

		got, err := repo.GetLatest(context.Background(), currencypkg.USD, currencypkg.EUR)
		require.NoError(t, err)
		require.Equal(t, want.ID, got.ID)
		require.True(t, got.Rate.Equal(decimal.RequireFromString("0.92")))
		require.Equal(t, "test", got.Source)
		require.WithinDuration(t, want.RateDate, got.RateDate, time.Second)
	})

	t.Run("NoRate", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := fxrepo.NewRepoPGS(tx)

		_, err := repo.GetLatest(context.Background(), currencypkg.USD, currencypkg.GBP)
		require.ErrorIs(t, err, domain.ErrRateUnavailable)
	})

	t.Run("DeadlineExpired", func(t *testing.T) {
		t.Parallel()

		tx := dbpkg.SetupTX(t, dbDriver, dbSource)
		repo := fxrepo.NewRepoPGS(tx)

		test.SeedRate(t, tx, currencypkg.USD, currencypkg.EUR, "0.92")

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		_, err := repo.GetLatest(ctx, currencypkg.USD, currencypkg.EUR)
		require.ErrorIs(t, err, domain.ErrRateUnavailable)
	})
}

type staleCache struct{}

func (staleCache) Get(ctx context.Context, key string) (string, error) { return "", ctx.Err() }

func (staleCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return ctx.Err()
}

// A rate lookup that outlives its deadline must surface as unavailable all
// the way through the oracle, not as an internal error.
func TestGetRateDeadlineExpired(t *testing.T) {
	t.Parallel()

	tx := dbpkg.SetupTX(t, dbDriver, dbSource)

	test.SeedRate(t, tx, currencypkg.USD, currencypkg.EUR, "0.92")

	service := fxservice.New(fxrepo.NewRepoPGS(tx), staleCache{}, "", time.Minute)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := service.GetRate(ctx, currencypkg.USD, currencypkg.EUR)
	require.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestListCurrencies(t *testing.T) {
	t.Parallel()

	tx := dbpkg.SetupTX(t, dbDriver, dbSource)
	repo := fxrepo.NewRepoPGS(tx)

	test.SeedRate(t, tx, currencypkg.USD, currencypkg.EUR, "0.92")
	test.SeedRate(t, tx, currencypkg.EUR, currencypkg.GBP, "0.85")

	currencies, err := repo.ListCurrencies(context.Background())
	require.NoError(t, err)
	require.Subset(t, currencies, []string{currencypkg.USD, currencypkg.EUR, currencypkg.GBP})
}
