package test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/randompkg"
)

// TruncatedNow returns the current UTC time truncated to seconds, matching
// what survives a round trip through the database.
func TruncatedNow() time.Time {
	return time.Now().Truncate(time.Second).UTC()
}

// RandomAccount returns a random account owned by the given owner.
func RandomAccount(owner string) domain.Account {
	return domain.Account{
		ID:        int32(randompkg.Intn(100) + 1),
		Owner:     owner,
		Balance:   randompkg.MoneyAmountBetween(1000, 10_000),
		Currency:  randompkg.Currency(),
		CreatedAt: TruncatedNow(),
	}
}

// RandomTransfer returns a random created-status transfer between the accounts.
func RandomTransfer(from, to domain.Account) domain.Transfer {
	fromAmount := randompkg.MoneyAmountBetween(10, 100)
	rate := randompkg.MoneyAmountBetween(0.5, 2)

	return domain.Transfer{
		ID:               randompkg.Intn(1000) + 1,
		FromAccountID:    from.ID,
		ToAccountID:      to.ID,
		FromCurrency:     from.Currency,
		ToCurrency:       to.Currency,
		FromAmount:       fromAmount,
		ToAmount:         fromAmount.Mul(rate).Round(2),
		ExchangeRate:     rate,
		CommissionAmount: fromAmount.Mul(decimal.NewFromFloat(0.01)).Round(2),
		Status:           domain.StatusCreated,
		Owner:            from.Owner,
		CreatedAt:        TruncatedNow(),
		UpdatedAt:        TruncatedNow(),
	}
}
