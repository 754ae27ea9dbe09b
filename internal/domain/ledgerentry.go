package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType marks a ledger entry as a debit or a credit.
type EntryType string

// Ledger entry types.
const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// LedgerEntry is an immutable record of one balance movement on one account,
// tied to the transfer that caused it. BalanceAfter snapshots the account
// balance right after the movement was applied.
type LedgerEntry struct {
	ID           int64           `json:"id"`
	AccountID    int32           `json:"account_id"`
	TransferID   int64           `json:"transfer_id"`
	Type         EntryType       `json:"type"`
	Amount       decimal.Decimal `json:"amount"` // always positive
	Currency     string          `json:"currency"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
