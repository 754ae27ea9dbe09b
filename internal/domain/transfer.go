package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates an amount that cannot be parsed as money.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeAmount indicates a zero or negative amount.
	ErrNegativeAmount = errors.New("amount must be positive")
	// ErrAmbiguousAmount indicates that none or both of source and destination amounts were given.
	ErrAmbiguousAmount = errors.New("exactly one of source or destination amount must be given")
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidOwner indicates that the user is unauthorized to transfer money from the account.
	ErrInvalidOwner = errors.New("unauthorized owner")
	// ErrTransferNotFound indicates that the transfer is not found.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrStatusTransition indicates a transfer status change outside the transition table.
	ErrStatusTransition = errors.New("transfer status transition not allowed")
)

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

// All transfer statuses. A transfer starts in StatusCreated and finishes in
// StatusCompleted or StatusFailed; terminal statuses are immutable.
const (
	StatusCreated    TransferStatus = "created"
	StatusProcessing TransferStatus = "processing"
	StatusCompleted  TransferStatus = "completed"
	StatusFailed     TransferStatus = "failed"
)

var statusTransitions = map[TransferStatus][]TransferStatus{
	StatusCreated:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving from s to next is in the transition table.
func (s TransferStatus) CanTransition(next TransferStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// IsTerminal reports whether s admits no further transitions.
func (s TransferStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// Transfer holds the full record of one money movement between two accounts,
// including the quote it was admitted with.
type Transfer struct {
	ID               int64           `json:"id"`
	FromAccountID    int32           `json:"from_account_id"`
	ToAccountID      int32           `json:"to_account_id"`
	FromCurrency     string          `json:"from_currency"`
	ToCurrency       string          `json:"to_currency"`
	FromAmount       decimal.Decimal `json:"from_amount"`
	ToAmount         decimal.Decimal `json:"to_amount"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	Status           TransferStatus  `json:"status"`
	Owner            string          `json:"owner"`
	IdempotencyKey   string          `json:"idempotency_key,omitempty"`
	Description      string          `json:"description,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CompletedAt      time.Time       `json:"completed_at,omitempty"`
}

// CreateTransferParams is the client input for transfer admission.
// Exactly one of FromAmount and ToAmount must be non-empty.
type CreateTransferParams struct {
	FromAccountID  int32
	ToAccountID    int32
	FromAmount     string
	ToAmount       string
	IdempotencyKey string
	Description    string
}

// ListTransfersParams pages through a user's transfers, newest first.
type ListTransfersParams struct {
	Owner  string
	Limit  int32
	Offset int32
}

// TransferTxResult is the result of the atomic transfer execution transaction.
type TransferTxResult struct {
	Transfer    Transfer    `json:"transfer"`
	FromAccount Account     `json:"from_account"`
	ToAccount   Account     `json:"to_account"`
	DebitEntry  LedgerEntry `json:"debit_entry"`
	CreditEntry LedgerEntry `json:"credit_entry"`
}
