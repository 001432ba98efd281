package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// AuditLogRepository stores the append-only mutation trail. Entries are never
// updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditDetail, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_logs (user_id, action, entity_type, entity_id, old_values, new_values, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.OldValues,
		entry.NewValues,
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditDetail, error) {
	const query = `
        SELECT l.id, l.user_id, l.action, l.entity_type, l.entity_id,
               l.old_values, l.new_values, l.description, l.created_at,
               u.id, u.name, u.email, u.role
        FROM audit_logs l
        LEFT JOIN users u ON u.id = l.user_id
        ORDER BY l.created_at DESC
        LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AuditDetail{}
	for rows.Next() {
		var detail domain.AuditDetail
		var actorID *int64
		var actorName, actorEmail *string
		var actorRole *domain.Role
		if err := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.Action,
			&detail.EntityType,
			&detail.EntityID,
			&detail.OldValues,
			&detail.NewValues,
			&detail.Description,
			&detail.CreatedAt,
			&actorID,
			&actorName,
			&actorEmail,
			&actorRole,
		); err != nil {
			return nil, err
		}
		if actorID != nil {
			detail.Actor = &domain.AuditActorRef{
				ID:    *actorID,
				Name:  *actorName,
				Email: *actorEmail,
				Role:  *actorRole,
			}
		}
		result = append(result, detail)
	}
	return result, rows.Err()
}
