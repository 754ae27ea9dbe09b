// Package transferrepo manages repository layer of transfers.
package transferrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/fx-bank/internal/accountrepo"
	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/internal/idempotencyrepo"
	"github.com/go-petr/fx-bank/internal/ledgerrepo"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns transfer RepoPGS bound to an open transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns transfer RepoPGS with a connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const transferFields = `
	id, from_account_id, to_account_id, from_currency, to_currency,
	from_amount, to_amount, exchange_rate, commission_amount, status, owner,
	idempotency_key, description, error_message, created_at, updated_at, completed_at
`

const createQuery = `
INSERT INTO
    transfers (from_account_id, to_account_id, from_currency, to_currency,
               from_amount, to_amount, exchange_rate, commission_amount, status, owner,
               idempotency_key, description)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''))
RETURNING` + transferFields

// Create inserts the transfer row as computed at admission.
func (r *RepoPGS) Create(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		t.FromAccountID,
		t.ToAccountID,
		t.FromCurrency,
		t.ToCurrency,
		t.FromAmount,
		t.ToAmount,
		t.ExchangeRate,
		t.CommissionAmount,
		t.Status,
		t.Owner,
		t.IdempotencyKey,
		t.Description,
	)

	created, err := scanTransfer(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, transfer from %v to %v)", t.FromAccountID, t.ToAccountID)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transfers_from_account_id_fkey", "transfers_to_account_id_fkey":
				return created, domain.ErrAccountNotFound
			case "transfers_from_amount_check", "transfers_to_amount_check":
				return created, domain.ErrNegativeAmount
			case "transfers_idempotency_key_key":
				return created, domain.ErrKeyConflict
			}
		}

		return created, errorspkg.ErrInternal
	}

	return created, nil
}

// Admit persists the transfer and, when an idempotency key is supplied, its
// idempotency record in a single transaction. Nothing is committed when the
// key insert loses a uniqueness race; the caller re-reads the winner.
//
// A repo bound to an open transaction runs within it instead of starting
// its own.
func (r *RepoPGS) Admit(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return admitIn(ctx, r.db, t)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Transfer{}, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	created, err := admitIn(ctx, tx, t)
	if err != nil {
		return domain.Transfer{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.Transfer{}, errorspkg.ErrInternal
	}

	return created, nil
}

func admitIn(ctx context.Context, db dbpkg.SQLInterface, t domain.Transfer) (domain.Transfer, error) {
	created, err := NewTxRepoPGS(db).Create(ctx, t)
	if err != nil {
		return domain.Transfer{}, err
	}

	if t.IdempotencyKey != "" {
		keyRepo := idempotencyrepo.NewRepoPGS(db)

		if _, err := keyRepo.Create(ctx, t.IdempotencyKey, t.Owner, created.ID); err != nil {
			return domain.Transfer{}, err
		}
	}

	return created, nil
}

const getQuery = `
SELECT` + transferFields + `
FROM transfers
WHERE id = $1
`

// Get returns the transfer with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	t, err := scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrTransferNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const getByKeyQuery = `
SELECT` + transferFields + `
FROM transfers
WHERE idempotency_key = $1
`

// GetByIdempotencyKey returns the transfer bound to the given idempotency key.
func (r *RepoPGS) GetByIdempotencyKey(ctx context.Context, key string) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByKeyQuery, key)

	t, err := scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrTransferNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listByOwnerQuery = `
SELECT` + transferFields + `
FROM transfers
WHERE owner = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

// List returns the user's transfers, newest first.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransfersParams) ([]domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByOwnerQuery, arg.Owner, arg.Limit, arg.Offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transfer{}

	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const markProcessingQuery = `
UPDATE transfers
SET status = 'processing', updated_at = now()
WHERE id = $1 AND status = 'created'
RETURNING` + transferFields

// MarkProcessing advances the transfer from created to processing as a single
// guarded update. Concurrent redeliveries race on the row itself; losers get
// advanced=false and must inspect the current status.
func (r *RepoPGS) MarkProcessing(ctx context.Context, id int64) (domain.Transfer, bool, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, markProcessingQuery, id)

	t, err := scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			current, err := r.Get(ctx, id)
			return current, false, err
		}

		l.Error().Err(err).Send()

		return t, false, errorspkg.ErrInternal
	}

	return t, true, nil
}

const markFailedQuery = `
UPDATE transfers
SET status = 'failed', error_message = $2, updated_at = now()
WHERE id = $1 AND status IN ('created', 'processing')
RETURNING` + transferFields

// MarkFailed moves the transfer to its terminal failed status with the error
// message. Terminal rows are left untouched.
func (r *RepoPGS) MarkFailed(ctx context.Context, id int64, message string) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, markFailedQuery, id, message)

	t, err := scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrStatusTransition
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const completeQuery = `
UPDATE transfers
SET status = 'completed', completed_at = now(), updated_at = now()
WHERE id = $1 AND status = 'processing'
RETURNING` + transferFields

// Execute applies the transfer's balance changes, posts the paired ledger
// entries and completes the transfer within a single database transaction.
//
// The transfer must already be in processing status. Balance updates run in
// account id order to avoid deadlocks between opposing transfers; the ledger
// entry for each account is posted right after its balance change so that
// balance_after snapshots the post-movement balance.
func (r *RepoPGS) Execute(ctx context.Context, t domain.Transfer) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return executeIn(ctx, r.db, t)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.TransferTxResult{}, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	result, err := executeIn(ctx, tx, t)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferTxResult{}, errorspkg.ErrInternal
	}

	return result, nil
}

func executeIn(ctx context.Context, db dbpkg.SQLInterface, t domain.Transfer) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var (
		result domain.TransferTxResult
		err    error
	)

	accountRepo := accountrepo.NewRepoPGS(db)
	ledgerRepo := ledgerrepo.NewRepoPGS(db)

	totalDebit := t.FromAmount.Add(t.CommissionAmount)

	debit := func() error {
		result.FromAccount, err = accountRepo.AddBalance(ctx, totalDebit.Neg(), t.FromAccountID)
		if err != nil {
			return err
		}

		result.DebitEntry, err = ledgerRepo.Create(ctx, t.FromAccountID, t.ID,
			domain.EntryDebit, totalDebit, t.FromCurrency, result.FromAccount.Balance)

		return err
	}

	credit := func() error {
		result.ToAccount, err = accountRepo.AddBalance(ctx, t.ToAmount, t.ToAccountID)
		if err != nil {
			return err
		}

		result.CreditEntry, err = ledgerRepo.Create(ctx, t.ToAccountID, t.ID,
			domain.EntryCredit, t.ToAmount, t.ToCurrency, result.ToAccount.Balance)

		return err
	}

	// Lock rows in consistent id order to avoid deadlocks.
	if t.FromAccountID < t.ToAccountID {
		err = debit()
		if err == nil {
			err = credit()
		}
	} else {
		err = credit()
		if err == nil {
			err = debit()
		}
	}

	if err != nil {
		return domain.TransferTxResult{}, err
	}

	row := db.QueryRowContext(ctx, completeQuery, t.ID)

	result.Transfer, err = scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.TransferTxResult{}, domain.ErrStatusTransition
		}

		l.Error().Err(err).Send()

		return domain.TransferTxResult{}, errorspkg.ErrInternal
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (domain.Transfer, error) {
	var (
		t            domain.Transfer
		key          sql.NullString
		description  sql.NullString
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&t.ID,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.FromCurrency,
		&t.ToCurrency,
		&t.FromAmount,
		&t.ToAmount,
		&t.ExchangeRate,
		&t.CommissionAmount,
		&t.Status,
		&t.Owner,
		&key,
		&description,
		&errorMessage,
		&t.CreatedAt,
		&t.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return t, err
	}

	t.IdempotencyKey = key.String
	t.Description = description.String
	t.ErrorMessage = errorMessage.String
	t.CompletedAt = completedAt.Time

	return t, nil
}
