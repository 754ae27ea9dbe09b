// Package ledgerrepo manages repository layer of the append-only ledger.
package ledgerrepo

import (
	"context"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    ledger_entries (account_id, transfer_id, entry_type, amount, currency, balance_after)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING id, account_id, transfer_id, entry_type, amount, currency, balance_after, created_at
`

// Create appends a ledger entry and returns it. Entries are never updated or
// deleted once written.
func (r *RepoPGS) Create(ctx context.Context, accountID int32, transferID int64,
	entryType domain.EntryType, amount decimal.Decimal, currency string,
	balanceAfter decimal.Decimal) (domain.LedgerEntry, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		accountID, transferID, entryType, amount, currency, balanceAfter)

	var e domain.LedgerEntry

	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.TransferID,
		&e.Type,
		&e.Amount,
		&e.Currency,
		&e.BalanceAfter,
		&e.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()
		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const listByAccountQuery = `
SELECT
	id, account_id, transfer_id, entry_type, amount, currency, balance_after, created_at
FROM ledger_entries
WHERE account_id = $1
ORDER BY id DESC
LIMIT $2 OFFSET $3
`

// ListByAccount returns the account's ledger entries, newest first.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID int32, limit, offset int32) ([]domain.LedgerEntry, error) {
	return r.list(ctx, listByAccountQuery, int64(accountID), limit, offset)
}

const listByTransferQuery = `
SELECT
	id, account_id, transfer_id, entry_type, amount, currency, balance_after, created_at
FROM ledger_entries
WHERE transfer_id = $1
ORDER BY id
LIMIT $2 OFFSET $3
`

// ListByTransfer returns the entries posted for one transfer.
func (r *RepoPGS) ListByTransfer(ctx context.Context, transferID int64) ([]domain.LedgerEntry, error) {
	return r.list(ctx, listByTransferQuery, transferID, 10, 0)
}

func (r *RepoPGS) list(ctx context.Context, query string, id int64, limit, offset int32) ([]domain.LedgerEntry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, id, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.LedgerEntry{}

	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.TransferID,
			&e.Type,
			&e.Amount,
			&e.Currency,
			&e.BalanceAfter,
			&e.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
