package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/repository"
	"expensehub/internal/websocket"
	"expensehub/internal/workflow"
	"expensehub/pkg/apperrors"
	"expensehub/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type InvoiceItemDTO struct {
	Description string          `json:"description" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type VendorDetailsDTO struct {
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	TaxID       string `json:"tax_id"`
}

type ClientDetailsDTO struct {
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	Email       string `json:"email"`
}

type CreateInvoiceDTO struct {
	Title         string            `json:"title" binding:"required,min=3,max=200"`
	Description   string            `json:"description" binding:"max=2000"`
	Status        string            `json:"status" binding:"omitempty,oneof=draft pending"`
	Items         []InvoiceItemDTO  `json:"items" binding:"required,min=1,dive"`
	TaxRate       decimal.Decimal   `json:"tax_rate"`
	Discount      decimal.Decimal   `json:"discount"`
	Currency      string            `json:"currency"`
	IssueDate     *time.Time        `json:"issue_date"`
	DueDate       time.Time         `json:"due_date" binding:"required"`
	PaymentMethod string            `json:"payment_method" binding:"omitempty,oneof=bank_transfer check credit_card cash other"`
	VendorDetails VendorDetailsDTO  `json:"vendor_details"`
	Client        *ClientDetailsDTO `json:"client"`
	Notes         string            `json:"notes"`
	Attachments   []AttachmentDTO   `json:"attachments" binding:"omitempty,dive"`
}

type UpdateInvoiceDTO struct {
	Title         *string           `json:"title"`
	Description   *string           `json:"description"`
	Items         []InvoiceItemDTO  `json:"items"`
	TaxRate       *decimal.Decimal  `json:"tax_rate"`
	Discount      *decimal.Decimal  `json:"discount"`
	Currency      *string           `json:"currency"`
	IssueDate     *time.Time        `json:"issue_date"`
	DueDate       *time.Time        `json:"due_date"`
	PaymentMethod *string           `json:"payment_method"`
	VendorDetails *VendorDetailsDTO `json:"vendor_details"`
	Client        *ClientDetailsDTO `json:"client"`
	Notes         *string           `json:"notes"`
}

type MarkPaidDTO struct {
	PaymentMethod    string `json:"payment_method" binding:"omitempty,oneof=bank_transfer check credit_card cash other"`
	PaymentReference string `json:"payment_reference"`
}

type InvoiceListFilter struct {
	Status      string
	Vendor      *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, actor policy.Actor, req CreateInvoiceDTO) (*model.Invoice, error)
	GetByID(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, actor policy.Actor, filter InvoiceListFilter, p pagination.Params) ([]model.Invoice, int64, error)
	ListMine(ctx context.Context, actor policy.Actor, filter InvoiceListFilter, p pagination.Params) ([]model.Invoice, int64, error)
	ListPending(ctx context.Context, actor policy.Actor, p pagination.Params) ([]model.Invoice, int64, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, req UpdateInvoiceDTO) (*model.Invoice, error)
	Submit(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error)
	Approve(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error)
	Reject(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*model.Invoice, error)
	MarkPaid(ctx context.Context, actor policy.Actor, id uuid.UUID, req MarkPaidDTO) (*model.Invoice, error)
	Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error)
	Stats(ctx context.Context, actor policy.Actor) (*model.InvoiceStats, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type invoiceService struct {
	invoices  repository.InvoiceRepository
	sequences repository.SequenceRepository
	audits    repository.AuditRepository
	txm       repository.TransactionManager
	hub       *websocket.Hub
	logger    *zap.Logger
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	sequences repository.SequenceRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	hub *websocket.Hub,
	logger *zap.Logger,
) InvoiceService {
	return &invoiceService{
		invoices:  invoices,
		sequences: sequences,
		audits:    audits,
		txm:       txm,
		hub:       hub,
		logger:    logger,
	}
}

// --- Implementation ---

func (s *invoiceService) Create(ctx context.Context, actor policy.Actor, req CreateInvoiceDTO) (*model.Invoice, error) {
	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}
	if err := validateRates(req.TaxRate, req.Discount); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = workflow.Initial(workflow.EntityInvoice)
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = model.PaymentMethodBankTransfer
	}
	issueDate := time.Now()
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}
	client := model.ClientDetails{CompanyName: model.DefaultClientName}
	if req.Client != nil {
		client = model.ClientDetails(*req.Client)
		if client.CompanyName == "" {
			client.CompanyName = model.DefaultClientName
		}
	}

	inv := &model.Invoice{
		Title:         req.Title,
		Description:   req.Description,
		VendorID:      actor.ID,
		VendorDetails: model.VendorDetails(req.VendorDetails),
		Client:        client,
		Items:         items,
		TaxRate:       req.TaxRate,
		Discount:      req.Discount,
		Currency:      currency,
		Status:        status,
		IssueDate:     issueDate,
		DueDate:       req.DueDate,
		PaymentMethod: paymentMethod,
		Notes:         req.Notes,
		Attachments:   buildAttachments(req.Attachments),
	}
	inv.Recalculate()

	// Number assignment and insert share one transaction: the sequence row
	// lock serializes concurrent creates, and a rollback leaves a gap in the
	// sequence, never a duplicate.
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		year := time.Now().Year()
		n, err := s.sequences.NextInvoiceNo(txCtx, year)
		if err != nil {
			return apperrors.Persistence("failed to assign invoice number", err)
		}
		inv.InvoiceNumber = fmt.Sprintf("INV-%d-%05d", year, n)

		if err := s.invoices.Create(txCtx, inv); err != nil {
			return apperrors.Persistence("failed to create invoice", err)
		}
		return writeAuditEntry(txCtx, s.audits, actor, model.ActionCreateInvoice, inv.ID.String(), inv.InvoiceNumber, map[string]interface{}{
			"total":  inv.TotalAmount.String(),
			"status": inv.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("vendor_id", actor.ID.String()))
	s.notify(inv)

	return s.invoices.GetByID(ctx, inv.ID)
}

func (s *invoiceService) GetByID(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, inv.VendorID) {
		return nil, apperrors.Authorization("you do not have access to this invoice")
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, actor policy.Actor, filter InvoiceListFilter, p pagination.Params) ([]model.Invoice, int64, error) {
	if !policy.CanViewAll(actor) {
		return s.ListMine(ctx, actor, filter, p)
	}
	return s.list(ctx, filter, nil, repository.SortNewestFirst, p)
}

func (s *invoiceService) ListMine(ctx context.Context, actor policy.Actor, filter InvoiceListFilter, p pagination.Params) ([]model.Invoice, int64, error) {
	owner := actor.ID
	return s.list(ctx, filter, &owner, repository.SortNewestFirst, p)
}

func (s *invoiceService) ListPending(ctx context.Context, actor policy.Actor, p pagination.Params) ([]model.Invoice, int64, error) {
	if !policy.CanReview(actor) {
		return nil, 0, apperrors.Authorization("only managers and admins can view the review queue")
	}
	// Review queue surfaces the most urgent due dates first.
	return s.list(ctx, InvoiceListFilter{Status: model.InvoiceStatusPending}, nil, repository.SortDueDateAsc, p)
}

func (s *invoiceService) list(ctx context.Context, filter InvoiceListFilter, owner *uuid.UUID, sort repository.InvoiceSort, p pagination.Params) ([]model.Invoice, int64, error) {
	if filter.Status != "" && !validInvoiceStatus(filter.Status) {
		return nil, 0, apperrors.Validation("invalid status filter %q", filter.Status)
	}

	// Owner scoping wins over the reviewer's vendor filter.
	vendorID := filter.Vendor
	if owner != nil {
		vendorID = owner
	}

	records, total, err := s.invoices.List(ctx, repository.InvoiceFilter{
		Status:      filter.Status,
		VendorID:    vendorID,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
	}, sort, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperrors.Persistence("failed to list invoices", err)
	}
	return records, total, nil
}

func (s *invoiceService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, req UpdateInvoiceDTO) (*model.Invoice, error) {
	current, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(actor, current.VendorID) {
		return nil, apperrors.Authorization("only the owner can edit this invoice")
	}
	if !workflow.Mutable(workflow.EntityInvoice, current.Status) {
		return nil, apperrors.Conflict("a %s invoice can no longer be edited", current.Status)
	}

	var newItems []model.InvoiceItem
	if req.Items != nil {
		newItems, err = buildItems(req.Items)
		if err != nil {
			return nil, err
		}
	}
	if req.TaxRate != nil || req.Discount != nil {
		taxRate := current.TaxRate
		if req.TaxRate != nil {
			taxRate = *req.TaxRate
		}
		discount := current.Discount
		if req.Discount != nil {
			discount = *req.Discount
		}
		if err := validateRates(taxRate, discount); err != nil {
			return nil, err
		}
	}
	if req.PaymentMethod != nil && !model.ValidPaymentMethod(*req.PaymentMethod) {
		return nil, apperrors.Validation("invalid payment method %q", *req.PaymentMethod)
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock: the whole items-rewrite plus totals recompute must be
		// atomic against a concurrent approve or a second edit.
		inv, err := s.invoices.LockByID(txCtx, id)
		if err != nil {
			return apperrors.Persistence("failed to lock invoice", err)
		}
		if !workflow.Mutable(workflow.EntityInvoice, inv.Status) {
			return apperrors.Conflict("a %s invoice can no longer be edited", inv.Status)
		}

		if req.Title != nil {
			inv.Title = *req.Title
		}
		if req.Description != nil {
			inv.Description = *req.Description
		}
		if req.TaxRate != nil {
			inv.TaxRate = *req.TaxRate
		}
		if req.Discount != nil {
			inv.Discount = *req.Discount
		}
		if req.Currency != nil {
			inv.Currency = *req.Currency
		}
		if req.IssueDate != nil {
			inv.IssueDate = *req.IssueDate
		}
		if req.DueDate != nil {
			inv.DueDate = *req.DueDate
		}
		if req.PaymentMethod != nil {
			inv.PaymentMethod = *req.PaymentMethod
		}
		if req.VendorDetails != nil {
			inv.VendorDetails = model.VendorDetails(*req.VendorDetails)
		}
		if req.Client != nil {
			inv.Client = model.ClientDetails(*req.Client)
			if inv.Client.CompanyName == "" {
				inv.Client.CompanyName = model.DefaultClientName
			}
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}

		if newItems != nil {
			inv.Items = newItems
		} else {
			// Rate changes still need the stored lines for the recompute.
			full, err := s.invoices.GetByID(txCtx, id)
			if err != nil {
				return apperrors.Persistence("failed to load invoice items", err)
			}
			inv.Items = full.Items
		}
		inv.Recalculate()

		if newItems != nil {
			if err := s.invoices.ReplaceItems(txCtx, id, inv.Items); err != nil {
				return apperrors.Persistence("failed to replace invoice items", err)
			}
		}
		if err := s.invoices.Save(txCtx, inv); err != nil {
			return apperrors.Persistence("failed to update invoice", err)
		}
		return writeAuditEntry(txCtx, s.audits, actor, model.ActionUpdateInvoice, id.String(), inv.InvoiceNumber, map[string]interface{}{
			"total": inv.TotalAmount.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	// No broadcast here: subscribers only track status changes, and a
	// field edit leaves the status untouched.
	return s.invoices.GetByID(ctx, id)
}

// Submit moves a draft invoice into the review queue.
func (s *invoiceService) Submit(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(actor, inv.VendorID) {
		return nil, apperrors.Authorization("only the owner can submit this invoice")
	}
	if inv.Status != model.InvoiceStatusDraft {
		return nil, apperrors.Conflict("only a draft invoice can be submitted")
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.invoices.UpdateFields(txCtx, id, model.InvoiceStatusDraft, map[string]interface{}{
			"status": model.InvoiceStatusPending,
		})
		if err != nil {
			return apperrors.Persistence("failed to submit invoice", err)
		}
		if rows == 0 {
			return apperrors.Conflict("invoice status changed concurrently, reload and retry")
		}
		return writeAuditEntry(txCtx, s.audits, actor, model.ActionUpdateInvoice, id.String(), inv.InvoiceNumber, map[string]interface{}{
			"from": model.InvoiceStatusDraft,
			"to":   model.InvoiceStatusPending,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("failed to reload invoice", err)
	}
	s.notify(updated)
	return updated, nil
}

func (s *invoiceService) Approve(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error) {
	return s.transition(ctx, actor, id, workflow.OpApprove, "", MarkPaidDTO{})
}

func (s *invoiceService) Reject(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*model.Invoice, error) {
	if reason == "" {
		reason = DefaultRejectionReason
	}
	return s.transition(ctx, actor, id, workflow.OpReject, reason, MarkPaidDTO{})
}

func (s *invoiceService) MarkPaid(ctx context.Context, actor policy.Actor, id uuid.UUID, req MarkPaidDTO) (*model.Invoice, error) {
	return s.transition(ctx, actor, id, workflow.OpPay, "", req)
}

func (s *invoiceService) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Invoice, error) {
	return s.transition(ctx, actor, id, workflow.OpCancel, "", MarkPaidDTO{})
}

func (s *invoiceService) transition(ctx context.Context, actor policy.Actor, id uuid.UUID, op workflow.Op, reason string, pay MarkPaidDTO) (*model.Invoice, error) {
	inv, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	switch op {
	case workflow.OpCancel:
		if !policy.CanCancel(actor, inv.VendorID) {
			return nil, apperrors.Authorization("only the owner can cancel this invoice")
		}
	case workflow.OpPay:
		if !policy.CanMarkPaid(actor) {
			return nil, apperrors.Authorization("only managers and admins can mark invoices paid")
		}
	default:
		if !policy.CanReview(actor) {
			return nil, apperrors.Authorization("only managers and admins can review invoices")
		}
	}

	next, err := workflow.Next(workflow.EntityInvoice, op, inv.Status)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{"status": next}
	action := model.ActionCancelInvoice
	switch op {
	case workflow.OpApprove:
		updates["approved_by"] = actor.ID
		updates["approval_date"] = now
		action = model.ActionApproveInvoice
	case workflow.OpReject:
		updates["approved_by"] = actor.ID
		updates["approval_date"] = now
		updates["rejection_reason"] = reason
		action = model.ActionRejectInvoice
	case workflow.OpPay:
		updates["paid_date"] = now
		if pay.PaymentMethod != "" {
			updates["payment_method"] = pay.PaymentMethod
		}
		if pay.PaymentReference != "" {
			updates["payment_reference"] = pay.PaymentReference
		}
		action = model.ActionPayInvoice
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.invoices.UpdateFields(txCtx, id, inv.Status, updates)
		if err != nil {
			return apperrors.Persistence("failed to update invoice status", err)
		}
		if rows == 0 {
			return apperrors.Conflict("invoice status changed concurrently, reload and retry")
		}
		return writeAuditEntry(txCtx, s.audits, actor, action, id.String(), inv.InvoiceNumber, map[string]interface{}{
			"from": inv.Status,
			"to":   next,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice transitioned",
		zap.String("invoice_id", id.String()),
		zap.String("from", inv.Status),
		zap.String("to", next),
		zap.String("actor", actor.ID.String()))

	updated, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("failed to reload invoice", err)
	}
	s.notify(updated)
	return updated, nil
}

func (s *invoiceService) Stats(ctx context.Context, actor policy.Actor) (*model.InvoiceStats, error) {
	var owner *uuid.UUID
	if !policy.CanViewAll(actor) {
		id := actor.ID
		owner = &id
	}

	total, err := s.invoices.Count(ctx, owner)
	if err != nil {
		return nil, apperrors.Persistence("failed to count invoices", err)
	}
	byStatus, err := s.invoices.StatsByStatus(ctx, owner)
	if err != nil {
		return nil, apperrors.Persistence("failed to aggregate by status", err)
	}
	monthly, err := s.invoices.StatsByMonth(ctx, owner, 12)
	if err != nil {
		return nil, apperrors.Persistence("failed to aggregate by month", err)
	}

	return &model.InvoiceStats{
		TotalInvoices: total,
		ByStatus:      byStatus,
		Monthly:       monthly,
	}, nil
}

func (s *invoiceService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if !policy.CanDelete(actor) {
		return apperrors.Authorization("only admins can delete invoices")
	}
	inv, err := s.loadInvoice(ctx, id)
	if err != nil {
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.invoices.Delete(txCtx, id); err != nil {
			return apperrors.Persistence("failed to delete invoice", err)
		}
		return writeAuditEntry(txCtx, s.audits, actor, model.ActionDeleteInvoice, id.String(), inv.InvoiceNumber, nil)
	})
}

// --- Helpers ---

func (s *invoiceService) loadInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("invoice %s not found", id)
		}
		return nil, apperrors.Persistence("failed to load invoice", err)
	}
	return inv, nil
}

func (s *invoiceService) notify(inv *model.Invoice) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(websocket.Event{
		Entity: "invoice",
		ID:     inv.ID.String(),
		Status: inv.Status,
	})
}

func buildItems(dtos []InvoiceItemDTO) ([]model.InvoiceItem, error) {
	if len(dtos) == 0 {
		return nil, apperrors.Validation("an invoice requires at least one line item")
	}
	items := make([]model.InvoiceItem, 0, len(dtos))
	for i, dto := range dtos {
		if dto.Quantity < 1 {
			return nil, apperrors.Validation("item %d: quantity must be at least 1", i+1)
		}
		if dto.UnitPrice.IsNegative() {
			return nil, apperrors.Validation("item %d: unit price cannot be negative", i+1)
		}
		items = append(items, model.InvoiceItem{
			Description: dto.Description,
			Quantity:    dto.Quantity,
			UnitPrice:   dto.UnitPrice,
		})
	}
	return items, nil
}

func validateRates(taxRate, discount decimal.Decimal) error {
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return apperrors.Validation("tax rate must be between 0 and 100")
	}
	if discount.IsNegative() {
		return apperrors.Validation("discount cannot be negative")
	}
	return nil
}

func validInvoiceStatus(status string) bool {
	switch status {
	case model.InvoiceStatusDraft, model.InvoiceStatusPending, model.InvoiceStatusApproved,
		model.InvoiceStatusPaid, model.InvoiceStatusRejected, model.InvoiceStatusCancelled:
		return true
	}
	return false
}
