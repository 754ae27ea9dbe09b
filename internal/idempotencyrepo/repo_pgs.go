// Package idempotencyrepo manages repository layer of idempotency records.
package idempotencyrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// unique_violation per the Postgres error code table.
var uniqueViolation = pq.ErrorCode("23505")

// RepoPGS facilitates idempotency repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns idempotency RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const getQuery = `
SELECT
	key, owner, transfer_id, created_at
FROM idempotency_keys
WHERE key = $1
`

// Get returns the record bound to the key or sql.ErrNoRows-mapped nil record.
func (r *RepoPGS) Get(ctx context.Context, key string) (domain.IdempotencyRecord, bool, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, key)

	var rec domain.IdempotencyRecord

	err := row.Scan(&rec.Key, &rec.Owner, &rec.TransferID, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return rec, false, nil
		}

		l.Error().Err(err).Send()

		return rec, false, errorspkg.ErrInternal
	}

	return rec, true, nil
}

const createQuery = `
INSERT INTO
    idempotency_keys (key, owner, transfer_id)
VALUES
    ($1, $2, $3)
RETURNING key, owner, transfer_id, created_at
`

// Create binds the key to the transfer. When two admissions race on the same
// key exactly one insert wins; the loser gets domain.ErrKeyConflict and must
// re-read the winner's record.
func (r *RepoPGS) Create(ctx context.Context, key, owner string, transferID int64) (domain.IdempotencyRecord, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, key, owner, transferID)

	var rec domain.IdempotencyRecord

	err := row.Scan(&rec.Key, &rec.Owner, &rec.TransferID, &rec.CreatedAt)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return rec, domain.ErrKeyConflict
		}

		return rec, errorspkg.ErrInternal
	}

	return rec, nil
}
