package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/audit"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

type memUserRepo struct {
	users map[int64]*domain.User
}

func (r *memUserRepo) Create(context.Context, *domain.User) error { return nil }

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

type memAuditRepo struct {
	entries []domain.AuditLog
}

func (r *memAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListRecent(context.Context, int) ([]domain.AuditDetail, error) {
	return nil, nil
}

type memTicketRepo struct {
	tickets map[int64]*domain.Ticket
	users   *memUserRepo
	nextID  int64
	updates int
}

func newMemTicketRepo(users *memUserRepo) *memTicketRepo {
	return &memTicketRepo{tickets: map[int64]*domain.Ticket{}, users: users, nextID: 1}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.nextID
	r.nextID++
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	// customer_id is deliberately not part of the update statement.
	customerID := stored.CustomerID
	clone := *ticket
	clone.CustomerID = customerID
	clone.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = &clone
	ticket.UpdatedAt = clone.UpdatedAt
	r.updates++
	return nil
}

func (r *memTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *memTicketRepo) GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.detail(ticket), nil
}

func (r *memTicketRepo) ListDetails(_ context.Context, filter repository.TicketFilter) ([]domain.TicketDetail, error) {
	result := []domain.TicketDetail{}
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		clone := *ticket
		result = append(result, *r.detail(&clone))
	}
	return result, nil
}

func (r *memTicketRepo) ListResolvedBefore(_ context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusResolved && ticket.UpdatedAt.Before(cutoff) {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (r *memTicketRepo) detail(ticket *domain.Ticket) *domain.TicketDetail {
	detail := &domain.TicketDetail{Ticket: *ticket}
	if customer, ok := r.users.users[ticket.CustomerID]; ok {
		ref := customer.Ref()
		detail.Customer = &ref
	}
	if ticket.AssigneeID != nil {
		if assignee, ok := r.users.users[*ticket.AssigneeID]; ok {
			ref := assignee.Ref()
			detail.Assignee = &ref
		}
	}
	return detail
}

type fixture struct {
	service *TicketService
	tickets *memTicketRepo
	audits  *memAuditRepo
}

func newFixture() *fixture {
	users := &memUserRepo{users: map[int64]*domain.User{
		1: {ID: 1, Name: "Lisa Rodriguez", Email: "lisa@company.com", Role: domain.RoleAdmin},
		2: {ID: 2, Name: "Sarah Johnson", Email: "agent@test.com", Role: domain.RoleAgent},
		3: {ID: 3, Name: "John Customer", Email: "customer@test.com", Role: domain.RoleCustomer},
	}}
	tickets := newMemTicketRepo(users)
	audits := &memAuditRepo{}
	recorder := audit.NewRecorder(audits, users, zap.NewNop())
	return &fixture{
		service: NewTicketService(tickets, recorder),
		tickets: tickets,
		audits:  audits,
	}
}

var (
	adminActor    = Actor{ID: 1, Role: domain.RoleAdmin}
	agentActor    = Actor{ID: 2, Role: domain.RoleAgent}
	customerActor = Actor{ID: 3, Role: domain.RoleCustomer}
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func prioPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func idPtr(v int64) *int64 { return &v }

func TestCreateForcesCustomerDefaults(t *testing.T) {
	f := newFixture()

	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{
		Title:       "Printer broken",
		Description: "It smokes",
		Priority:    domain.TicketPriorityCritical,
		Category:    "Hardware",
		CustomerID:  1,
		AssigneeID:  idPtr(2),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, detail.Status)
	assert.Equal(t, domain.TicketPriorityMedium, detail.Priority)
	assert.Equal(t, domain.DefaultCategory, detail.Category)
	assert.Nil(t, detail.AssigneeID)
	// Ownership always follows the verified caller, not the payload.
	assert.Equal(t, customerActor.ID, detail.CustomerID)

	require.Len(t, f.audits.entries, 1)
	entry := f.audits.entries[0]
	assert.Equal(t, domain.AuditActionCreate, entry.Action)
	assert.Equal(t, customerActor.ID, *entry.UserID)
	assert.Equal(t, `Ticket "Printer broken" created with priority "Medium"`, entry.Description)
}

func TestCreateHonorsPrivilegedFields(t *testing.T) {
	f := newFixture()

	detail, err := f.service.Create(context.Background(), agentActor, TicketCreateInput{
		Title:      "VPN down",
		Priority:   domain.TicketPriorityHigh,
		Category:   "Network",
		CustomerID: 3,
		AssigneeID: idPtr(2),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityHigh, detail.Priority)
	assert.Equal(t, "Network", detail.Category)
	assert.Equal(t, int64(3), detail.CustomerID)
	require.NotNil(t, detail.AssigneeID)
	assert.Equal(t, int64(2), *detail.AssigneeID)
	require.NotNil(t, detail.Customer)
	assert.Equal(t, "John Customer", detail.Customer.Name)
	require.NotNil(t, detail.Assignee)
	assert.Equal(t, "Sarah Johnson", detail.Assignee.Name)
}

func TestCreateRequiresTitle(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, f.audits.entries)
}

func TestUpdateEmitsOneAuditRowPerChangedField(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	f.audits.entries = nil

	_, err = f.service.Update(context.Background(), agentActor, detail.ID, TicketPatch{
		Status:      statusPtr(domain.TicketStatusInProgress),
		Priority:    prioPtr(domain.TicketPriorityHigh),
		AssigneeID:  idPtr(2),
		AssigneeSet: true,
	})
	require.NoError(t, err)

	require.Len(t, f.audits.entries, 3)
	descriptions := make([]string, 0, len(f.audits.entries))
	for _, entry := range f.audits.entries {
		assert.Equal(t, domain.AuditActionUpdate, entry.Action)
		assert.Equal(t, agentActor.ID, *entry.UserID)
		descriptions = append(descriptions, entry.Description)
	}
	assert.Contains(t, descriptions, `Status changed from "Open" to "In Progress"`)
	assert.Contains(t, descriptions, `Priority changed from "Medium" to "High"`)
	assert.Contains(t, descriptions, `Assignment changed from "Unassigned" to "Sarah Johnson"`)
}

func TestNoOpUpdateEmitsNothingButStillWrites(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	f.audits.entries = nil
	writesBefore := f.tickets.updates

	_, err = f.service.Update(context.Background(), agentActor, detail.ID, TicketPatch{
		Status:      statusPtr(domain.TicketStatusOpen),
		Priority:    prioPtr(domain.TicketPriorityMedium),
		AssigneeSet: true,
	})
	require.NoError(t, err)

	assert.Empty(t, f.audits.entries)
	assert.Equal(t, writesBefore+1, f.tickets.updates)
}

func TestCustomerCannotTouchPrivilegedFields(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	f.audits.entries = nil
	writesBefore := f.tickets.updates

	_, err = f.service.Update(context.Background(), customerActor, detail.ID, TicketPatch{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	// Denial happens before any store write.
	assert.Equal(t, writesBefore, f.tickets.updates)
	assert.Empty(t, f.audits.entries)
}

func TestCustomerMayEditTitleAndDescription(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	f.audits.entries = nil

	updated, err := f.service.Update(context.Background(), customerActor, detail.ID, TicketPatch{
		Title:       strPtr("Printer on fire"),
		Description: strPtr("Much worse now"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", updated.Title)

	require.Len(t, f.audits.entries, 2)
	descriptions := []string{f.audits.entries[0].Description, f.audits.entries[1].Description}
	assert.Contains(t, descriptions, `Title changed from "Printer broken" to "Printer on fire"`)
	assert.Contains(t, descriptions, "description updated")
}

func TestCustomerIDInvariantAcrossUpdates(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)

	patches := []TicketPatch{
		{Status: statusPtr(domain.TicketStatusInProgress)},
		{AssigneeID: idPtr(2), AssigneeSet: true},
		{Status: statusPtr(domain.TicketStatusResolved), Priority: prioPtr(domain.TicketPriorityLow)},
	}
	for _, patch := range patches {
		_, err := f.service.Update(context.Background(), adminActor, detail.ID, patch)
		require.NoError(t, err)
	}

	final, err := f.service.Get(context.Background(), adminActor, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, customerActor.ID, final.CustomerID)
}

func TestUpdateMissingTicketReturnsNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.Update(context.Background(), adminActor, 999, TicketPatch{Title: strPtr("x")})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDeleteRecordsSnapshotThenRemoves(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	prior, err := f.tickets.GetByID(context.Background(), detail.ID)
	require.NoError(t, err)
	f.audits.entries = nil

	require.NoError(t, f.service.Delete(context.Background(), adminActor, detail.ID))

	require.Len(t, f.audits.entries, 1)
	entry := f.audits.entries[0]
	assert.Equal(t, domain.AuditActionDelete, entry.Action)
	assert.Equal(t, prior.Snapshot(), entry.OldValues)
	assert.Nil(t, entry.NewValues)

	_, err = f.service.Get(context.Background(), adminActor, detail.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	f.audits.entries = nil

	for _, actor := range []Actor{agentActor, customerActor} {
		err := f.service.Delete(context.Background(), actor, detail.ID)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	}
	assert.Empty(t, f.audits.entries)

	_, err = f.service.Get(context.Background(), adminActor, detail.ID)
	assert.NoError(t, err)
}

func TestListScopesCustomersToOwnTickets(t *testing.T) {
	f := newFixture()
	_, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Mine"})
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), agentActor, TicketCreateInput{Title: "Someone else's", CustomerID: 1})
	require.NoError(t, err)

	mine, err := f.service.List(context.Background(), customerActor)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	for _, ticket := range mine {
		assert.Equal(t, customerActor.ID, ticket.CustomerID)
	}

	all, err := f.service.List(context.Background(), agentActor)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCustomerCannotFetchForeignTicket(t *testing.T) {
	f := newFixture()
	detail, err := f.service.Create(context.Background(), agentActor, TicketCreateInput{Title: "Foreign", CustomerID: 1})
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), customerActor, detail.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

// Lifecycle from the original system: customer files, agent triages, admin
// deletes, every step leaving its trail entry.
func TestTicketLifecycleScenario(t *testing.T) {
	f := newFixture()

	detail, err := f.service.Create(context.Background(), customerActor, TicketCreateInput{Title: "Printer broken"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Status)
	assert.Equal(t, domain.TicketPriorityMedium, detail.Priority)
	require.Len(t, f.audits.entries, 1)
	assert.Equal(t, domain.AuditActionCreate, f.audits.entries[0].Action)

	_, err = f.service.Update(context.Background(), agentActor, detail.ID, TicketPatch{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	require.Len(t, f.audits.entries, 2)
	assert.Equal(t, `Status changed from "Open" to "In Progress"`, f.audits.entries[1].Description)

	require.NoError(t, f.service.Delete(context.Background(), adminActor, detail.ID))
	require.Len(t, f.audits.entries, 3)
	assert.Equal(t, domain.AuditActionDelete, f.audits.entries[2].Action)

	_, err = f.service.Get(context.Background(), adminActor, detail.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
