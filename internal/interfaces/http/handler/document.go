package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/stockbook/backend/internal/application/billing"
	"github.com/stockbook/backend/internal/domain/billing"
)

// DocumentHandler serves one document family's endpoints. The same handler
// type backs purchases, sales, purchase returns and sale returns; the bound
// family decides numbering, lifecycle and which operations are available.
type DocumentHandler struct {
	BaseHandler
	family          billing.Family
	documentService *billingapp.DocumentService
}

// NewDocumentHandler creates a handler bound to one family
func NewDocumentHandler(family billing.Family, documentService *billingapp.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		family:          family,
		documentService: documentService,
	}
}

// Family returns the document family this handler serves
func (h *DocumentHandler) Family() billing.Family {
	return h.family
}

// Create creates a new invoice document
func (h *DocumentHandler) Create(c *gin.Context) {
	var req billingapp.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), h.family, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, doc)
}

// CreateReturn creates a return against a completed source invoice
func (h *DocumentHandler) CreateReturn(c *gin.Context) {
	var req billingapp.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	doc, err := h.documentService.CreateReturn(c.Request.Context(), h.family, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, doc)
}

// GetByID retrieves a document by ID
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), h.family, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// List retrieves documents of this family with filtering and pagination
func (h *DocumentHandler) List(c *gin.Context) {
	filter, err := parseFilter(c, "status", "counterparty_id", "warehouse_id", "return_state", "source_document_id")
	if err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.documentService.List(c.Request.Context(), h.family, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Update edits a pending document's header fields
func (h *DocumentHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	var req billingapp.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	doc, err := h.documentService.Update(c.Request.Context(), h.family, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// AddLine adds a line to a pending invoice
func (h *DocumentHandler) AddLine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	var req billingapp.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	doc, err := h.documentService.AddLine(c.Request.Context(), h.family, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// UpdateLine changes a pending document line's quantity
func (h *DocumentHandler) UpdateLine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	lineID, err := uuid.Parse(c.Param("line_id"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	var req billingapp.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	doc, err := h.documentService.UpdateLine(c.Request.Context(), h.family, id, lineID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// RemoveLine removes a line from a pending document
func (h *DocumentHandler) RemoveLine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	lineID, err := uuid.Parse(c.Param("line_id"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	doc, err := h.documentService.RemoveLine(c.Request.Context(), h.family, id, lineID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// Complete moves a pending document to its family's final status,
// recording stock movements and, for returns, crediting the source invoice
func (h *DocumentHandler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documentService.Complete(c.Request.Context(), h.family, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// Cancel cancels a pending document
func (h *DocumentHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	var req billingapp.CancelDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	doc, err := h.documentService.Cancel(c.Request.Context(), h.family, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// Delete deletes a pending document
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), h.family, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ReturnableItems lists how much of each source line can still be returned.
// Only registered on return families.
func (h *DocumentHandler) ReturnableItems(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("source_id"))
	if err != nil {
		h.BadRequest(c, "Invalid source document ID format")
		return
	}

	items, err := h.documentService.ReturnableItems(c.Request.Context(), h.family, sourceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}
