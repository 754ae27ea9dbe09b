// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/go-petr/fx-bank/internal/accountrepo"
	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/internal/fxrepo"
	"github.com/go-petr/fx-bank/internal/transferrepo"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/randompkg"
)

// SeedAccount creates an account with the given balance inside a test transaction.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface, owner, balance, currency string) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		Owner:    owner,
		Currency: currency,
		Balance:  decimal.RequireFromString(balance),
	}

	accountRepo := accountrepo.NewRepoPGS(tx)

	account, err := accountRepo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedAccountWith1000USDBalance creates a USD account with 1000 USD on balance inside a test transaction.
func SeedAccountWith1000USDBalance(t *testing.T, tx dbpkg.SQLInterface, owner string) domain.Account {
	t.Helper()

	return SeedAccount(t, tx, owner, "1000", currencypkg.USD)
}

// SeedTransfer creates a created-status transfer between the two accounts
// inside a test transaction.
func SeedTransfer(t *testing.T, tx dbpkg.SQLInterface, from, to domain.Account, fromAmount, rate string) domain.Transfer {
	t.Helper()

	fa := decimal.RequireFromString(fromAmount)
	r := decimal.RequireFromString(rate)

	arg := domain.Transfer{
		FromAccountID:    from.ID,
		ToAccountID:      to.ID,
		FromCurrency:     from.Currency,
		ToCurrency:       to.Currency,
		FromAmount:       fa,
		ToAmount:         fa.Mul(r).Round(2),
		ExchangeRate:     r,
		CommissionAmount: fa.Mul(decimal.RequireFromString("0.01")).Round(2),
		Status:           domain.StatusCreated,
		Owner:            from.Owner,
	}

	transferRepo := transferrepo.NewTxRepoPGS(tx)

	transfer, err := transferRepo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("transferRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return transfer
}

// SeedRate stores a dated rate quote inside a test transaction.
func SeedRate(t *testing.T, tx dbpkg.SQLInterface, base, quote, rate string) domain.FxRate {
	t.Helper()

	fxRepo := fxrepo.NewRepoPGS(tx)

	fr, err := fxRepo.Create(context.Background(), base, quote,
		decimal.RequireFromString(rate), TruncatedNow(), "test")
	if err != nil {
		t.Fatalf("fxRepo.Create(context.Background(), %v, %v, %v) returned error: %v",
			base, quote, rate, err)
	}

	return fr
}

// RandomOwner generates a random owner name.
func RandomOwner() string {
	return randompkg.Owner()
}
