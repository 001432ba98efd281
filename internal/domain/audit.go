package domain

import "time"

// AuditAction enumerates the recorded mutation kinds.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionAutoDelete AuditAction = "AUTO_DELETE"
)

// AuditLog is one append-only trail entry. UserID is nil for system-initiated
// actions (the retention sweeper). Updates produce one entry per changed
// field, so the trail reads as a field-level timeline.
type AuditLog struct {
	ID          int64
	UserID      *int64
	Action      AuditAction
	EntityType  string
	EntityID    int64
	OldValues   map[string]any
	NewValues   map[string]any
	Description string
	CreatedAt   time.Time
}

// AuditActorRef is the actor projection joined into audit listings.
type AuditActorRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// AuditDetail joins the entry with its actor; Actor is nil for system entries.
type AuditDetail struct {
	AuditLog
	Actor *AuditActorRef
}
