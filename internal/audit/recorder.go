// Package audit appends entries to the mutation trail. Writes here are
// log-and-continue: a failed audit insert is logged and swallowed so it can
// never abort the mutation that triggered it.
package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/policy"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

// EntityTypeTicket tags ticket entries in the trail.
const EntityTypeTicket = "Ticket"

// Recorder converts field-level changes into durable audit entries.
type Recorder struct {
	logs   repository.AuditLogRepository
	users  repository.UserRepository
	logger *zap.Logger
}

// NewRecorder constructs a recorder. The user repository resolves assignee
// ids to display names for assignment descriptions.
func NewRecorder(logs repository.AuditLogRepository, users repository.UserRepository, logger *zap.Logger) *Recorder {
	return &Recorder{logs: logs, users: users, logger: logger}
}

// TicketCreated records a CREATE entry with the full creation payload.
func (r *Recorder) TicketCreated(ctx context.Context, actorID *int64, ticket *domain.Ticket) {
	description := fmt.Sprintf("Ticket %q created with priority %q", ticket.Title, ticket.Priority)
	r.record(ctx, &domain.AuditLog{
		UserID:      actorID,
		Action:      domain.AuditActionCreate,
		EntityType:  EntityTypeTicket,
		EntityID:    ticket.ID,
		NewValues:   ticket.Snapshot(),
		Description: description,
	})
}

// TicketFieldChanged records one UPDATE entry for a single changed field.
func (r *Recorder) TicketFieldChanged(ctx context.Context, actorID *int64, ticketID int64, field string, oldValue, newValue any) {
	r.record(ctx, &domain.AuditLog{
		UserID:      actorID,
		Action:      domain.AuditActionUpdate,
		EntityType:  EntityTypeTicket,
		EntityID:    ticketID,
		OldValues:   map[string]any{field: oldValue},
		NewValues:   map[string]any{field: newValue},
		Description: r.changeDescription(ctx, field, oldValue, newValue),
	})
}

// TicketDeleted records a DELETE entry capturing the full prior snapshot.
func (r *Recorder) TicketDeleted(ctx context.Context, actorID *int64, ticket *domain.Ticket) {
	r.record(ctx, &domain.AuditLog{
		UserID:      actorID,
		Action:      domain.AuditActionDelete,
		EntityType:  EntityTypeTicket,
		EntityID:    ticket.ID,
		OldValues:   ticket.Snapshot(),
		Description: fmt.Sprintf("Ticket %q permanently deleted", ticket.Title),
	})
}

// TicketAutoDeleted records an AUTO_DELETE entry with no actor, marking a
// system-initiated retention deletion.
func (r *Recorder) TicketAutoDeleted(ctx context.Context, ticket *domain.Ticket, windowDays int) {
	r.record(ctx, &domain.AuditLog{
		UserID:      nil,
		Action:      domain.AuditActionAutoDelete,
		EntityType:  EntityTypeTicket,
		EntityID:    ticket.ID,
		OldValues:   ticket.Snapshot(),
		Description: fmt.Sprintf("Auto-cleanup: ticket %q removed after %d days", ticket.Title, windowDays),
	})
}

func (r *Recorder) record(ctx context.Context, entry *domain.AuditLog) {
	if err := r.logs.Create(ctx, entry); err != nil {
		r.logger.Error("audit write failed",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Int64("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

func (r *Recorder) changeDescription(ctx context.Context, field string, oldValue, newValue any) string {
	switch field {
	case policy.FieldStatus:
		return fmt.Sprintf("Status changed from %q to %q", formatValue(oldValue), formatValue(newValue))
	case policy.FieldAssignee:
		oldName := r.assigneeName(ctx, oldValue)
		newName := r.assigneeName(ctx, newValue)
		return fmt.Sprintf("Assignment changed from %q to %q", oldName, newName)
	case policy.FieldPriority:
		return fmt.Sprintf("Priority changed from %q to %q", formatValue(oldValue), formatValue(newValue))
	case policy.FieldTitle:
		return fmt.Sprintf("Title changed from %q to %q", formatValue(oldValue), formatValue(newValue))
	default:
		return fmt.Sprintf("%s updated", field)
	}
}

// assigneeName resolves an assignee id to a display name. Nil and
// unresolvable ids both render as "Unassigned".
func (r *Recorder) assigneeName(ctx context.Context, value any) string {
	id, ok := value.(*int64)
	if !ok || id == nil {
		return "Unassigned"
	}
	user, err := r.users.GetByID(ctx, *id)
	if err != nil {
		return "Unassigned"
	}
	return user.Name
}

func formatValue(v any) string {
	return fmt.Sprintf("%v", v)
}
