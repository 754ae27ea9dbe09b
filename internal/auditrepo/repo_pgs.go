// Package auditrepo manages repository layer of audit records.
package auditrepo

import (
	"context"
	"encoding/json"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"

	"github.com/rs/zerolog"
)

// RepoPGS facilitates audit repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns audit RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    audits (action, entity_type, entity_id, actor, old_values, new_values)
VALUES
    ($1, $2, $3, NULLIF($4, ''), $5, $6)
RETURNING id, action, entity_type, entity_id, COALESCE(actor, ''), old_values, new_values, created_at
`

// Create appends an audit record.
func (r *RepoPGS) Create(ctx context.Context, arg domain.AuditRecord) (domain.AuditRecord, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Action,
		arg.EntityType,
		arg.EntityID,
		arg.Actor,
		nullableJSON(arg.OldValues),
		nullableJSON(arg.NewValues),
	)

	var a domain.AuditRecord

	err := row.Scan(
		&a.ID,
		&a.Action,
		&a.EntityType,
		&a.EntityID,
		&a.Actor,
		&a.OldValues,
		&a.NewValues,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()
		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listByEntityQuery = `
SELECT
	id, action, entity_type, entity_id, COALESCE(actor, ''), old_values, new_values, created_at
FROM audits
WHERE entity_type = $1 AND entity_id = $2
ORDER BY id DESC
LIMIT $3 OFFSET $4
`

// ListByEntity returns the entity's audit records, newest first.
func (r *RepoPGS) ListByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int32) ([]domain.AuditRecord, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByEntityQuery, entityType, entityID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.AuditRecord{}

	for rows.Next() {
		var a domain.AuditRecord
		if err := rows.Scan(
			&a.ID,
			&a.Action,
			&a.EntityType,
			&a.EntityID,
			&a.Actor,
			&a.OldValues,
			&a.NewValues,
			&a.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}

	return []byte(raw)
}
