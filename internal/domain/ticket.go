package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Transitions are
// caller-driven; any status is reachable from any other.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// DefaultCategory is applied when a ticket is created without one, and always
// for customer-created tickets.
const DefaultCategory = "General"

// Ticket is the aggregate for support requests. CustomerID is set once at
// creation and never altered; AssigneeID is nil while unassigned.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Category    string
	CustomerID  int64
	AssigneeID  *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot captures the full ticket state for audit old/new values.
func (t *Ticket) Snapshot() map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"category":    t.Category,
		"customerId":  t.CustomerID,
		"assigneeId":  t.AssigneeID,
	}
}

// TicketDetail is the read-time projection joining customer and assignee.
type TicketDetail struct {
	Ticket
	Customer *UserRef
	Assignee *UserRef
}
