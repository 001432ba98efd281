// Package policy holds the pure role-based authorization rules for tickets.
// Decisions here have no side effects; callers translate a denial into a
// rejection before any store write happens.
package policy

import "github.com/spec-kit/ticket-tracker/internal/domain"

// Field names as they appear in update payloads and audit entries.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldCategory    = "category"
	FieldAssignee    = "assigneeId"
)

// CanViewAllTickets reports whether the role sees every ticket in listings.
// Customers are restricted to tickets they own.
func CanViewAllTickets(role domain.Role) bool {
	return role.Privileged()
}

// CanViewTicket reports whether the caller may see a ticket owned by customerID.
func CanViewTicket(role domain.Role, callerID, customerID int64) bool {
	if role.Privileged() {
		return true
	}
	return callerID == customerID
}

// CanSetOnCreate reports whether the role may set the given field when
// creating a ticket. Denied fields are silently forced to their defaults, not
// rejected.
func CanSetOnCreate(role domain.Role, field string) bool {
	switch field {
	case FieldPriority, FieldCategory, FieldAssignee:
		return role.Privileged()
	}
	return true
}

// CanUpdateField reports whether the role may change the given field on an
// existing ticket. Title and description are deliberately open to any
// authenticated caller, matching the upstream behavior this service replaces.
func CanUpdateField(role domain.Role, field string) bool {
	switch field {
	case FieldStatus, FieldPriority, FieldCategory, FieldAssignee:
		return role.Privileged()
	}
	return true
}

// CanDeleteTicket reports whether the role may delete tickets.
func CanDeleteTicket(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// CanViewAuditLogs reports whether the role may read the audit trail.
func CanViewAuditLogs(role domain.Role) bool {
	return role == domain.RoleAdmin
}
