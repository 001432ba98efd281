package service

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

// auditListLimit caps the trail listing at the most recent entries.
const auditListLimit = 100

// AuditService exposes read access to the mutation trail.
type AuditService struct {
	logs repository.AuditLogRepository
}

// NewAuditService constructs the service.
func NewAuditService(logs repository.AuditLogRepository) *AuditService {
	return &AuditService{logs: logs}
}

// ListRecent returns up to the 100 most recent entries, newest first, joined
// with their actor.
func (s *AuditService) ListRecent(ctx context.Context) ([]domain.AuditDetail, error) {
	return s.logs.ListRecent(ctx, auditListLimit)
}
