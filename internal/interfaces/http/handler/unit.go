package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	uomapp "github.com/stockbook/backend/internal/application/uom"
)

// UnitHandler handles unit-of-measure endpoints
type UnitHandler struct {
	BaseHandler
	unitService *uomapp.UnitService
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(unitService *uomapp.UnitService) *UnitHandler {
	return &UnitHandler{
		unitService: unitService,
	}
}

// Create creates a new unit
func (h *UnitHandler) Create(c *gin.Context) {
	var req uomapp.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	unit, err := h.unitService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, unit)
}

// GetByID retrieves a unit by ID
func (h *UnitHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid unit ID format")
		return
	}

	unit, err := h.unitService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, unit)
}

// List retrieves units with filtering and pagination
func (h *UnitHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.unitService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Update renames a unit
func (h *UnitHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid unit ID format")
		return
	}

	var req uomapp.UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	unit, err := h.unitService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, unit)
}

// Delete deletes a unit
func (h *UnitHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid unit ID format")
		return
	}

	if err := h.unitService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
