package dto

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// AuditLogResponse is one trail entry joined with its actor. A nil user marks
// a system-initiated action.
type AuditLogResponse struct {
	ID          int64                 `json:"id"`
	UserID      *int64                `json:"userId"`
	User        *domain.AuditActorRef `json:"user"`
	Action      domain.AuditAction    `json:"action"`
	EntityType  string                `json:"entityType"`
	EntityID    int64                 `json:"entityId"`
	OldValues   map[string]any        `json:"oldValues"`
	NewValues   map[string]any        `json:"newValues"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// NewAuditLogListResponse maps audit details to the wire shape.
func NewAuditLogListResponse(details []domain.AuditDetail) []AuditLogResponse {
	result := make([]AuditLogResponse, 0, len(details))
	for _, detail := range details {
		result = append(result, AuditLogResponse{
			ID:          detail.ID,
			UserID:      detail.UserID,
			User:        detail.Actor,
			Action:      detail.Action,
			EntityType:  detail.EntityType,
			EntityID:    detail.EntityID,
			OldValues:   detail.OldValues,
			NewValues:   detail.NewValues,
			Description: detail.Description,
			CreatedAt:   detail.CreatedAt,
		})
	}
	return result
}
