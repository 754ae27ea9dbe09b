// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCurrencyAlreadyExists indicates that the account with the given currency already exists.
	ErrCurrencyAlreadyExists = errors.New("account currency already exists")
	// ErrCurrencyNotSupported indicates an unknown currency code.
	ErrCurrencyNotSupported = errors.New("currency not supported")
)

// Account holds user balance data for a specific currency.
//
// Balance is non-negative at all times and only the execution worker mutates it.
// Commission overrides are optional; unset means system defaults apply.
type Account struct {
	ID                   int32               `json:"id"`
	Owner                string              `json:"owner"`
	Balance              decimal.Decimal     `json:"balance"`
	Currency             string              `json:"currency"`
	FixedCommission      decimal.NullDecimal `json:"fixed_commission,omitempty"`
	PercentageCommission decimal.NullDecimal `json:"percentage_commission,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

// CreateAccountParams is the input data to open an account.
type CreateAccountParams struct {
	Owner                string
	Currency             string
	Balance              decimal.Decimal
	FixedCommission      decimal.NullDecimal
	PercentageCommission decimal.NullDecimal
}
