// Package auditservice manages business logic layer of the audit trail.
package auditservice

import (
	"context"
	"encoding/json"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by audit service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package auditservice
type Repo interface {
	Create(ctx context.Context, arg domain.AuditRecord) (domain.AuditRecord, error)
	ListByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int32) ([]domain.AuditRecord, error)
}

// Service facilitates audit trail logic.
type Service struct {
	repo Repo
}

// New returns audit Service.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// Record appends an audit record. It is fire-and-forget: failures are logged
// and never propagated, so an audit outage cannot roll back a transfer.
func (s *Service) Record(ctx context.Context, action, entityType string, entityID int64, actor string, oldValues, newValues any) {
	l := zerolog.Ctx(ctx)

	arg := domain.AuditRecord{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
	}

	var err error

	if oldValues != nil {
		if arg.OldValues, err = json.Marshal(oldValues); err != nil {
			l.Error().Err(err).Str("action", action).Msg("audit old values marshal failed")
		}
	}

	if newValues != nil {
		if arg.NewValues, err = json.Marshal(newValues); err != nil {
			l.Error().Err(err).Str("action", action).Msg("audit new values marshal failed")
		}
	}

	if _, err := s.repo.Create(ctx, arg); err != nil {
		l.Error().Err(err).Str("action", action).Str("entity_type", entityType).
			Int64("entity_id", entityID).Msg("audit record failed")
	}
}

// ListByEntity returns the entity's audit records, newest first.
func (s *Service) ListByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int32) ([]domain.AuditRecord, error) {
	return s.repo.ListByEntity(ctx, entityType, entityID, limit, offset)
}
