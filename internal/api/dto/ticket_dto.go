package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

// CreateTicketRequest payload. CustomerID is honored only for admin/agent
// callers; customers always own the tickets they create.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
	Category    string                `json:"category,omitempty"`
	CustomerID  int64                 `json:"customerId,omitempty"`
	AssigneeID  *int64                `json:"assigneeId,omitempty"`
}

// UpdateTicketRequest carries a partial update. Pointer fields distinguish
// absent keys from present ones; AssigneeID stays raw so "assigneeId": null
// (clear the assignee) is distinguishable from the key being absent.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Category    *string                `json:"category"`
	AssigneeID  json.RawMessage        `json:"assigneeId"`
}

// Patch converts the request into the service-level patch.
func (r UpdateTicketRequest) Patch() (service.TicketPatch, error) {
	patch := service.TicketPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Category:    r.Category,
	}
	if len(r.AssigneeID) > 0 {
		patch.AssigneeSet = true
		if !bytes.Equal(bytes.TrimSpace(r.AssigneeID), []byte("null")) {
			var id int64
			if err := json.Unmarshal(r.AssigneeID, &id); err != nil {
				return service.TicketPatch{}, fmt.Errorf("invalid assigneeId: %w", err)
			}
			patch.AssigneeID = &id
		}
	}
	return patch, nil
}

// TicketResponse is the joined ticket projection.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    string                `json:"category"`
	CustomerID  int64                 `json:"customerId"`
	AssigneeID  *int64                `json:"assigneeId"`
	Customer    *domain.UserRef       `json:"customer"`
	Assignee    *domain.UserRef       `json:"assignee"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// NewTicketResponse maps a ticket detail to the wire shape.
func NewTicketResponse(detail *domain.TicketDetail) TicketResponse {
	return TicketResponse{
		ID:          detail.ID,
		Title:       detail.Title,
		Description: detail.Description,
		Status:      detail.Status,
		Priority:    detail.Priority,
		Category:    detail.Category,
		CustomerID:  detail.CustomerID,
		AssigneeID:  detail.AssigneeID,
		Customer:    detail.Customer,
		Assignee:    detail.Assignee,
		CreatedAt:   detail.CreatedAt,
		UpdatedAt:   detail.UpdatedAt,
	}
}

// NewTicketListResponse maps a listing.
func NewTicketListResponse(details []domain.TicketDetail) []TicketResponse {
	result := make([]TicketResponse, 0, len(details))
	for i := range details {
		result = append(result, NewTicketResponse(&details[i]))
	}
	return result
}
