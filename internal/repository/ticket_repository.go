package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// TicketFilter captures listing parameters. A nil CustomerID means no owner
// restriction (admin/agent scope).
type TicketFilter struct {
	CustomerID *int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error)
	ListDetails(ctx context.Context, filter TicketFilter) ([]domain.TicketDetail, error)
	ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, category, customer_id, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CustomerID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update writes every mutable column in one statement; customer_id is never
// touched after creation.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            category=$5, assignee_id=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssigneeID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, priority, category, customer_id, assignee_id, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.CustomerID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

const detailColumns = `
        t.id, t.title, t.description, t.status, t.priority, t.category,
        t.customer_id, t.assignee_id, t.created_at, t.updated_at,
        c.id, c.name, c.email,
        a.id, a.name, a.email`

const detailJoins = `
        FROM tickets t
        JOIN users c ON c.id = t.customer_id
        LEFT JOIN users a ON a.id = t.assignee_id`

func (r *ticketRepository) GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error) {
	query := `SELECT` + detailColumns + detailJoins + ` WHERE t.id=$1`
	detail, err := scanTicketDetail(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (r *ticketRepository) ListDetails(ctx context.Context, filter TicketFilter) ([]domain.TicketDetail, error) {
	query := `SELECT` + detailColumns + detailJoins
	args := []any{}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += ` WHERE t.customer_id=$1`
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketDetail{}
	for rows.Next() {
		detail, err := scanTicketDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, priority, category, customer_id, assignee_id, created_at, updated_at
        FROM tickets WHERE status=$1 AND updated_at < $2
        ORDER BY updated_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusResolved, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Category,
			&ticket.CustomerID,
			&ticket.AssigneeID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicketDetail(row pgx.Row) (*domain.TicketDetail, error) {
	var detail domain.TicketDetail
	var customer domain.UserRef
	var assigneeID *int64
	var assigneeName, assigneeEmail *string

	if err := row.Scan(
		&detail.ID,
		&detail.Title,
		&detail.Description,
		&detail.Status,
		&detail.Priority,
		&detail.Category,
		&detail.CustomerID,
		&detail.AssigneeID,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&assigneeID,
		&assigneeName,
		&assigneeEmail,
	); err != nil {
		return nil, err
	}

	detail.Customer = &customer
	if assigneeID != nil {
		detail.Assignee = &domain.UserRef{ID: *assigneeID, Name: *assigneeName, Email: *assigneeEmail}
	}
	return &detail, nil
}
