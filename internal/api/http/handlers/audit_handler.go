package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-tracker/internal/api/dto"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

// AuditHandler exposes the audit trail. Routing restricts it to admins.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: auditService}
}

// List handles GET /audit-logs.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	details, err := h.audits.ListRecent(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditLogListResponse(details)})
}
