package handler

import (
	"context"
	"net/http"

	"expensehub/internal/middleware"
	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/service"
	"expensehub/pkg/pagination"
	"expensehub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	jwtSecret      []byte
}

func NewInvoiceHandler(invoiceService service.InvoiceService, jwtSecret []byte) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, jwtSecret: jwtSecret}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices", middleware.RequireAuth(h.jwtSecret))
	{
		invoices.POST("", middleware.RequireRole(model.RoleVendor), h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/my", h.ListMyInvoices)
		invoices.GET("/pending", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.ListPendingInvoices)
		invoices.GET("/stats", h.InvoiceStats)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", h.UpdateInvoice)
		invoices.PUT("/:id/submit", h.SubmitInvoice)
		invoices.PUT("/:id/approve", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.ApproveInvoice)
		invoices.PUT("/:id/reject", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.RejectInvoice)
		invoices.PUT("/:id/pay", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.MarkInvoicePaid)
		invoices.PUT("/:id/cancel", h.CancelInvoice)
		invoices.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteInvoice)
	}
}

// CreateInvoice submits a new vendor invoice; totals are computed server-side
// @Summary      Create invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceDTO  true  "Invoice payload"
// @Success      201      {object}  response.Response{data=model.Invoice}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request payload: "+err.Error()))
		return
	}

	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, inv))
}

// ListInvoices returns invoices visible to the caller; reviewers see all,
// vendors see their own
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "Filter by status"
// @Param        vendor  query  string  false  "Filter by vendor ID (reviewers)"
// @Param        from    query  string  false  "Created after (RFC3339)"
// @Param        to      query  string  false  "Created before (RFC3339)"
// @Param        page    query  int     false  "Page number"
// @Param        limit   query  int     false  "Items per page"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	h.list(c, h.invoiceService.List)
}

// ListMyInvoices returns only the caller's own invoices
// @Summary      List my invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/invoices/my [get]
func (h *InvoiceHandler) ListMyInvoices(c *gin.Context) {
	h.list(c, h.invoiceService.ListMine)
}

// ListPendingInvoices returns the review queue ordered by due date
// @Summary      Pending invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/invoices/pending [get]
func (h *InvoiceHandler) ListPendingInvoices(c *gin.Context) {
	p := pagination.Parse(c)
	actor, _ := middleware.ActorFrom(c)

	records, total, err := h.invoiceService.ListPending(c.Request.Context(), actor, p)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"invoices":   records,
		"pagination": pagination.NewMeta(p, len(records), total),
	}))
}

// InvoiceStats returns aggregates, scoped to the caller unless reviewer
// @Summary      Invoice statistics
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.InvoiceStats}
// @Router       /api/invoices/stats [get]
func (h *InvoiceHandler) InvoiceStats(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	stats, err := h.invoiceService.Stats(c.Request.Context(), actor)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetInvoice returns one invoice with items and attachments
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// UpdateInvoice edits a draft or pending invoice owned by the caller
// @Summary      Update invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceDTO  true  "Fields to update"
// @Success      200      {object}  response.Response{data=model.Invoice}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.UpdateInvoiceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request payload: "+err.Error()))
		return
	}

	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// SubmitInvoice moves a draft invoice into the review queue
// @Summary      Submit draft invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/submit [put]
func (h *InvoiceHandler) SubmitInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.Submit(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// ApproveInvoice moves a pending invoice to approved
// @Summary      Approve invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/approve [put]
func (h *InvoiceHandler) ApproveInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// RejectInvoice moves a pending invoice to rejected with a reason
// @Summary      Reject invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true   "Invoice ID"
// @Param        payload  body      service.RejectDTO  false  "Rejection reason"
// @Success      200      {object}  response.Response{data=model.Invoice}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/reject [put]
func (h *InvoiceHandler) RejectInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.RejectDTO
	_ = c.ShouldBindJSON(&req) // body optional

	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// MarkInvoicePaid records payment of an approved invoice
// @Summary      Mark invoice paid
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true   "Invoice ID"
// @Param        payload  body      service.MarkPaidDTO  false  "Payment details"
// @Success      200      {object}  response.Response{data=model.Invoice}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/pay [put]
func (h *InvoiceHandler) MarkInvoicePaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.MarkPaidDTO
	_ = c.ShouldBindJSON(&req) // body optional

	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.MarkPaid(c.Request.Context(), actor, id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// CancelInvoice lets the owner withdraw a draft or pending invoice
// @Summary      Cancel invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/cancel [put]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	inv, err := h.invoiceService.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// DeleteInvoice hard-deletes an invoice and its items (admin only)
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	if err := h.invoiceService.Delete(c.Request.Context(), actor, id); err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "invoice deleted"}))
}

// list is the shared body of the full and owner-scoped listings.
func (h *InvoiceHandler) list(c *gin.Context, fn func(ctx context.Context, actor policy.Actor, filter service.InvoiceListFilter, p pagination.Params) ([]model.Invoice, int64, error)) {
	p := pagination.Parse(c)
	actor, _ := middleware.ActorFrom(c)

	filter := service.InvoiceListFilter{
		Status:      c.Query("status"),
		CreatedFrom: parseTimeQuery(c, "from"),
		CreatedTo:   parseTimeQuery(c, "to"),
	}
	if raw := c.Query("vendor"); raw != "" {
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid vendor id"))
			return
		}
		filter.Vendor = &vendorID
	}

	records, total, err := fn(c.Request.Context(), actor, filter, p)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"invoices":   records,
		"pagination": pagination.NewMeta(p, len(records), total),
	}))
}
