package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	settlementapp "github.com/stockbook/backend/internal/application/settlement"
)

// PaymentHandler handles payment and refund endpoints
type PaymentHandler struct {
	BaseHandler
	settlementService *settlementapp.SettlementService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(settlementService *settlementapp.SettlementService) *PaymentHandler {
	return &PaymentHandler{
		settlementService: settlementService,
	}
}

// Apply records a payment or refund and reconciles it against the
// counterparty's outstanding documents oldest first
func (h *PaymentHandler) Apply(c *gin.Context) {
	var req settlementapp.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	payment, err := h.settlementService.ApplyPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, payment)
}

// GetByID retrieves a payment by ID
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.settlementService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// List retrieves payments with filtering and pagination
func (h *PaymentHandler) List(c *gin.Context) {
	filter, err := parseFilter(c, "type", "counterparty_id", "reconciled")
	if err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.settlementService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Update edits a payment's metadata
func (h *PaymentHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req settlementapp.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	payment, err := h.settlementService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// Delete removes a payment and unwinds its allocations
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	if err := h.settlementService.DeletePayment(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
