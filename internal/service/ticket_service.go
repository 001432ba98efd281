package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/audit"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/policy"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// Actor identifies the authenticated caller of a mutation. It always comes
// from a verified token, never from the payload.
type Actor struct {
	ID   int64
	Role domain.Role
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    string
	CustomerID  int64
	AssigneeID  *int64
}

// TicketService orchestrates ticket mutations: it applies the authorization
// policy, computes field diffs, persists state and hands every change to the
// audit recorder.
type TicketService struct {
	tickets  repository.TicketRepository
	recorder *audit.Recorder
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, recorder *audit.Recorder) *TicketService {
	return &TicketService{tickets: tickets, recorder: recorder}
}

// Create validates and persists a new ticket, emitting one CREATE audit
// entry. For customer callers the triage fields are silently forced to their
// defaults and the ticket is always owned by the caller.
func (s *TicketService) Create(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.TicketDetail, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		Category:    domain.DefaultCategory,
		CustomerID:  actor.ID,
	}

	if policy.CanSetOnCreate(actor.Role, policy.FieldPriority) && input.Priority != "" {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
		}
		ticket.Priority = input.Priority
	}
	if policy.CanSetOnCreate(actor.Role, policy.FieldCategory) && input.Category != "" {
		ticket.Category = input.Category
	}
	if policy.CanSetOnCreate(actor.Role, policy.FieldAssignee) {
		ticket.AssigneeID = input.AssigneeID
	}
	if actor.Role.Privileged() && input.CustomerID != 0 {
		ticket.CustomerID = input.CustomerID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.recorder.TicketCreated(ctx, &actor.ID, ticket)

	return s.tickets.GetDetail(ctx, ticket.ID)
}

// List returns tickets visible to the actor, newest first. Customers only see
// their own.
func (s *TicketService) List(ctx context.Context, actor Actor) ([]domain.TicketDetail, error) {
	filter := repository.TicketFilter{}
	if !policy.CanViewAllTickets(actor.Role) {
		customerID := actor.ID
		filter.CustomerID = &customerID
	}
	return s.tickets.ListDetails(ctx, filter)
}

// Get fetches one ticket visible to the actor.
func (s *TicketService) Get(ctx context.Context, actor Actor, id int64) (*domain.TicketDetail, error) {
	detail, err := s.tickets.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	if !policy.CanViewTicket(actor.Role, actor.ID, detail.CustomerID) {
		return nil, apperrors.NewForbidden("ticket belongs to another customer")
	}
	return detail, nil
}

// Update applies a partial update. Authorization is checked per present field
// before anything is written; the write then happens in one statement and one
// audit entry is emitted per field that actually changed. A no-op payload
// still performs the write but records nothing.
func (s *TicketService) Update(ctx context.Context, actor Actor, id int64, patch TicketPatch) (*domain.TicketDetail, error) {
	for _, field := range patch.Fields() {
		if !policy.CanUpdateField(actor.Role, field) {
			return nil, apperrors.NewForbidden(fmt.Sprintf("role %s may not change %s", actor.Role, field))
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}

	changes := applyPatch(ticket, patch)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	for _, change := range changes {
		s.recorder.TicketFieldChanged(ctx, &actor.ID, ticket.ID, change.Field, change.Old, change.New)
	}

	return s.tickets.GetDetail(ctx, ticket.ID)
}

// Delete removes a ticket after recording a DELETE entry with the full prior
// snapshot. Admin only.
func (s *TicketService) Delete(ctx context.Context, actor Actor, id int64) error {
	if !policy.CanDeleteTicket(actor.Role) {
		return apperrors.NewForbidden("only admins may delete tickets")
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return err
	}

	s.recorder.TicketDeleted(ctx, &actor.ID, ticket)

	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return err
	}
	return nil
}
