package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	appreceiving "github.com/retailops/ledger/internal/application/receiving"
	"github.com/retailops/ledger/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader lets clients retry receipt intake safely
const IdempotencyKeyHeader = "Idempotency-Key"

// ReceiptHandler handles goods receipt endpoints
type ReceiptHandler struct {
	BaseHandler
	service *appreceiving.ReceivingService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(service *appreceiving.ReceivingService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// Create godoc
// @ID           createReceipt
// @Summary      Record a goods receipt
// @Description  Create a PENDING receipt. Stock is not touched until the receipt is approved.
// @Description  A repeated Idempotency-Key returns the receipt created by the first request.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client key for safe retries"
// @Param        request body appreceiving.CreateReceiptRequest true "Receipt lines and attachments"
// @Success      201 {object} dto.Response{data=appreceiving.ReceiptResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /receipts [post]
func (h *ReceiptHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req appreceiving.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	receipt, err := h.service.CreateReceipt(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, receipt)
}

// GetByID godoc
// @ID           getReceiptById
// @Summary      Get a receipt
// @Description  Return one receipt with its lines and freshly signed attachment URLs
// @Tags         receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} dto.Response{data=appreceiving.ReceiptResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /receipts/{id} [get]
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	receipt, err := h.service.GetReceipt(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// List godoc
// @ID           listReceipts
// @Summary      List receipts
// @Description  Return a page of receipts visible to the caller
// @Tags         receipts
// @Produce      json
// @Param        status query string false "Filter by status" Enums(PENDING, APPROVED, REJECTED)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]appreceiving.ReceiptListItemResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /receipts [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter appreceiving.ReceiptListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items, total, err := h.service.ListReceipts(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, items, total, page, pageSize)
}

// Approve godoc
// @ID           approveReceipt
// @Summary      Approve a receipt
// @Description  Approve a PENDING receipt, add every line to stock and record the decision.
// @Description  A receipt that was already decided answers 409.
// @Tags         receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} dto.Response{data=appreceiving.DecisionResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /receipts/{id}/approve [post]
func (h *ReceiptHandler) Approve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	decision, err := h.service.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, decision)
}

// Reject godoc
// @ID           rejectReceipt
// @Summary      Reject a receipt
// @Description  Reject a PENDING receipt without touching stock. The body is optional.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        request body appreceiving.RejectReceiptRequest false "Rejection reason"
// @Success      200 {object} dto.Response{data=appreceiving.DecisionResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /receipts/{id}/reject [post]
func (h *ReceiptHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req appreceiving.RejectReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	decision, err := h.service.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, decision)
}

// Audit godoc
// @ID           listReceiptAudit
// @Summary      List receipt audit entries
// @Description  Return the recorded transitions of a receipt, most recent first
// @Tags         receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appreceiving.AuditEntryResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /receipts/{id}/audit [get]
func (h *ReceiptHandler) Audit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	entries, err := h.service.ListAudit(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}
