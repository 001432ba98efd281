package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/policy"
)

type fakeAuditRepo struct {
	entries []domain.AuditLog
	failing bool
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	if f.failing {
		return errors.New("audit store unavailable")
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListRecent(context.Context, int) ([]domain.AuditDetail, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func (f *fakeUserRepo) Create(context.Context, *domain.User) error { return nil }

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func newTestRecorder(repo *fakeAuditRepo, users map[int64]*domain.User) *Recorder {
	return NewRecorder(repo, &fakeUserRepo{users: users}, zap.NewNop())
}

func int64Ptr(v int64) *int64 { return &v }

func TestTicketCreatedEntry(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := newTestRecorder(repo, nil)

	ticket := &domain.Ticket{
		ID:         42,
		Title:      "Printer broken",
		Status:     domain.TicketStatusOpen,
		Priority:   domain.TicketPriorityMedium,
		Category:   domain.DefaultCategory,
		CustomerID: 7,
	}
	recorder.TicketCreated(context.Background(), int64Ptr(7), ticket)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, domain.AuditActionCreate, entry.Action)
	assert.Equal(t, EntityTypeTicket, entry.EntityType)
	assert.Equal(t, int64(42), entry.EntityID)
	assert.Equal(t, int64(7), *entry.UserID)
	assert.Nil(t, entry.OldValues)
	assert.Equal(t, "Printer broken", entry.NewValues["title"])
	assert.Equal(t, `Ticket "Printer broken" created with priority "Medium"`, entry.Description)
}

func TestFieldChangeDescriptions(t *testing.T) {
	users := map[int64]*domain.User{
		3: {ID: 3, Name: "Sarah Johnson"},
	}

	tests := []struct {
		name  string
		field string
		old   any
		new   any
		want  string
	}{
		{
			name:  "status",
			field: policy.FieldStatus,
			old:   domain.TicketStatusOpen,
			new:   domain.TicketStatusInProgress,
			want:  `Status changed from "Open" to "In Progress"`,
		},
		{
			name:  "priority",
			field: policy.FieldPriority,
			old:   domain.TicketPriorityMedium,
			new:   domain.TicketPriorityCritical,
			want:  `Priority changed from "Medium" to "Critical"`,
		},
		{
			name:  "title",
			field: policy.FieldTitle,
			old:   "Printer broken",
			new:   "Printer on fire",
			want:  `Title changed from "Printer broken" to "Printer on fire"`,
		},
		{
			name:  "assign from unassigned",
			field: policy.FieldAssignee,
			old:   (*int64)(nil),
			new:   int64Ptr(3),
			want:  `Assignment changed from "Unassigned" to "Sarah Johnson"`,
		},
		{
			name:  "unassign",
			field: policy.FieldAssignee,
			old:   int64Ptr(3),
			new:   (*int64)(nil),
			want:  `Assignment changed from "Sarah Johnson" to "Unassigned"`,
		},
		{
			name:  "unresolvable assignee renders as unassigned",
			field: policy.FieldAssignee,
			old:   (*int64)(nil),
			new:   int64Ptr(999),
			want:  `Assignment changed from "Unassigned" to "Unassigned"`,
		},
		{
			name:  "other field",
			field: policy.FieldCategory,
			old:   "General",
			new:   "Hardware",
			want:  "category updated",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeAuditRepo{}
			recorder := newTestRecorder(repo, users)

			recorder.TicketFieldChanged(context.Background(), int64Ptr(1), 42, tc.field, tc.old, tc.new)

			require.Len(t, repo.entries, 1)
			entry := repo.entries[0]
			assert.Equal(t, domain.AuditActionUpdate, entry.Action)
			assert.Equal(t, tc.want, entry.Description)
			assert.Equal(t, map[string]any{tc.field: tc.old}, entry.OldValues)
			assert.Equal(t, map[string]any{tc.field: tc.new}, entry.NewValues)
		})
	}
}

func TestTicketDeletedCapturesSnapshot(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := newTestRecorder(repo, nil)

	ticket := &domain.Ticket{
		ID:         9,
		Title:      "Old ticket",
		Status:     domain.TicketStatusResolved,
		Priority:   domain.TicketPriorityLow,
		Category:   "General",
		CustomerID: 2,
		AssigneeID: int64Ptr(3),
	}
	recorder.TicketDeleted(context.Background(), int64Ptr(1), ticket)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, domain.AuditActionDelete, entry.Action)
	assert.Equal(t, ticket.Snapshot(), entry.OldValues)
	assert.Nil(t, entry.NewValues)
	assert.Equal(t, `Ticket "Old ticket" permanently deleted`, entry.Description)
}

func TestTicketAutoDeletedHasNoActor(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := newTestRecorder(repo, nil)

	ticket := &domain.Ticket{ID: 5, Title: "Stale", Status: domain.TicketStatusResolved}
	recorder.TicketAutoDeleted(context.Background(), ticket, 30)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, domain.AuditActionAutoDelete, entry.Action)
	assert.Nil(t, entry.UserID)
	assert.Equal(t, ticket.Snapshot(), entry.OldValues)
	assert.Nil(t, entry.NewValues)
	assert.Equal(t, `Auto-cleanup: ticket "Stale" removed after 30 days`, entry.Description)
}

func TestRecorderSwallowsWriteFailure(t *testing.T) {
	repo := &fakeAuditRepo{failing: true}
	recorder := newTestRecorder(repo, nil)

	assert.NotPanics(t, func() {
		recorder.TicketCreated(context.Background(), int64Ptr(1), &domain.Ticket{ID: 1, Title: "x"})
		recorder.TicketFieldChanged(context.Background(), int64Ptr(1), 1, policy.FieldStatus, "Open", "Resolved")
		recorder.TicketDeleted(context.Background(), int64Ptr(1), &domain.Ticket{ID: 1, Title: "x"})
	})
	assert.Empty(t, repo.entries)
}
