package service

import (
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/policy"
)

// FieldChange describes one changed ticket field with its prior and proposed
// values, in the shape the audit trail stores them.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// TicketPatch carries the fields present in an update payload. A nil pointer
// means the field was absent. AssigneeSet distinguishes "assigneeId absent"
// from "assigneeId: null" so clearing an assignee is expressible.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *string
	AssigneeID  *int64
	AssigneeSet bool
}

// Fields lists the payload keys present in the patch.
func (p TicketPatch) Fields() []string {
	fields := []string{}
	if p.Title != nil {
		fields = append(fields, policy.FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, policy.FieldDescription)
	}
	if p.Status != nil {
		fields = append(fields, policy.FieldStatus)
	}
	if p.Priority != nil {
		fields = append(fields, policy.FieldPriority)
	}
	if p.Category != nil {
		fields = append(fields, policy.FieldCategory)
	}
	if p.AssigneeSet {
		fields = append(fields, policy.FieldAssignee)
	}
	return fields
}

// applyPatch mutates ticket in place with every field present in the patch
// and returns the set of fields whose value actually changed. Each field uses
// its own equality rule; assignee ids compare numerically with nil meaning
// "no assignee", so clearing an already-unassigned ticket is a no-op.
func applyPatch(ticket *domain.Ticket, patch TicketPatch) []FieldChange {
	changes := []FieldChange{}

	if patch.Title != nil && *patch.Title != ticket.Title {
		changes = append(changes, FieldChange{policy.FieldTitle, ticket.Title, *patch.Title})
		ticket.Title = *patch.Title
	}
	if patch.Description != nil && *patch.Description != ticket.Description {
		changes = append(changes, FieldChange{policy.FieldDescription, ticket.Description, *patch.Description})
		ticket.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != ticket.Status {
		changes = append(changes, FieldChange{policy.FieldStatus, ticket.Status, *patch.Status})
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil && *patch.Priority != ticket.Priority {
		changes = append(changes, FieldChange{policy.FieldPriority, ticket.Priority, *patch.Priority})
		ticket.Priority = *patch.Priority
	}
	if patch.Category != nil && *patch.Category != ticket.Category {
		changes = append(changes, FieldChange{policy.FieldCategory, ticket.Category, *patch.Category})
		ticket.Category = *patch.Category
	}
	if patch.AssigneeSet && !assigneeEqual(ticket.AssigneeID, patch.AssigneeID) {
		changes = append(changes, FieldChange{policy.FieldAssignee, ticket.AssigneeID, patch.AssigneeID})
		ticket.AssigneeID = patch.AssigneeID
	}

	return changes
}

func assigneeEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
