package service

import (
	"context"
	"errors"
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

// DefaultRejectionReason is recorded when a reviewer rejects without a reason
const DefaultRejectionReason = "No reason provided"

// --- DTOs ---

type CreateRequestDTO struct {
	Title         string          `json:"title" binding:"required,min=3,max=200"`
	Description   string          `json:"description" binding:"required,max=2000"`
	Type          string          `json:"type" binding:"required,oneof=expense leave equipment travel training other"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Priority      string          `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	Category      string          `json:"category"`
	ReceiptNumber string          `json:"receipt_number"`
	Attachments   []AttachmentDTO `json:"attachments" binding:"omitempty,dive"`
}

type UpdateRequestDTO struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency"`
	Priority      *string          `json:"priority"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	Category      *string          `json:"category"`
	ReceiptNumber *string          `json:"receipt_number"`
}

type RejectDTO struct {
	Reason string `json:"reason"`
}

type AddCommentDTO struct {
	Text string `json:"text" binding:"required,min=1,max=2000"`
}

type AttachmentDTO struct {
	FileName string `json:"file_name" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
	FileType string `json:"file_type"`
}

func buildAttachments(dtos []AttachmentDTO) []model.Attachment {
	if len(dtos) == 0 {
		return nil
	}
	attachments := make([]model.Attachment, 0, len(dtos))
	for _, dto := range dtos {
		attachments = append(attachments, model.Attachment{
			FileName: dto.FileName,
			FileURL:  dto.FileURL,
			FileType: dto.FileType,
		})
	}
	return attachments
}

type RequestListFilter struct {
	Status      string
	Type        string
	Priority    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// --- Interface ---

type RequestService interface {
	Create(ctx context.Context, actor policy.Actor, req CreateRequestDTO) (*model.Request, error)
	GetByID(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, actor policy.Actor, filter RequestListFilter, p pagination.Params) ([]model.Request, int64, error)
	ListMine(ctx context.Context, actor policy.Actor, filter RequestListFilter, p pagination.Params) ([]model.Request, int64, error)
	ListPending(ctx context.Context, actor policy.Actor, p pagination.Params) ([]model.Request, int64, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, req UpdateRequestDTO) (*model.Request, error)
	Approve(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Request, error)
	Reject(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*model.Request, error)
	Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Request, error)
	AddComment(ctx context.Context, actor policy.Actor, id uuid.UUID, req AddCommentDTO) (*model.Comment, error)
	GetComments(ctx context.Context, actor policy.Actor, id uuid.UUID) ([]model.Comment, error)
	Stats(ctx context.Context, actor policy.Actor) (*model.RequestStats, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type requestService struct {
	requests repository.RequestRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	hub      *websocket.Hub
	logger   *zap.Logger
}

func NewRequestService(
	requests repository.RequestRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	hub *websocket.Hub,
	logger *zap.Logger,
) RequestService {
	return &requestService{
		requests: requests,
		audits:   audits,
		txm:      txm,
		hub:      hub,
		logger:   logger,
	}
}

// --- Implementation ---

func (s *requestService) Create(ctx context.Context, actor policy.Actor, req CreateRequestDTO) (*model.Request, error) {
	if req.Amount.IsNegative() {
		return nil, apperrors.Validation("amount cannot be negative")
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, apperrors.Validation("end date cannot be before start date")
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	record := &model.Request{
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        workflow.Initial(workflow.EntityRequest),
		Priority:      priority,
		RequestedBy:   actor.ID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Category:      req.Category,
		ReceiptNumber: req.ReceiptNumber,
		Attachments:   buildAttachments(req.Attachments),
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, record); err != nil {
			return apperrors.Persistence("failed to create request", err)
		}
		return s.writeAudit(txCtx, actor, model.ActionCreateRequest, record.ID.String(), record.Title, map[string]interface{}{
			"type":   record.Type,
			"amount": record.Amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request created",
		zap.String("request_id", record.ID.String()),
		zap.String("type", record.Type),
		zap.String("requested_by", actor.ID.String()))
	s.notify(record)

	return s.requests.GetByID(ctx, record.ID)
}

func (s *requestService) GetByID(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Request, error) {
	record, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, record.RequestedBy) {
		return nil, apperrors.Authorization("you do not have access to this request")
	}
	return record, nil
}

func (s *requestService) List(ctx context.Context, actor policy.Actor, filter RequestListFilter, p pagination.Params) ([]model.Request, int64, error) {
	if !policy.CanViewAll(actor) {
		return s.ListMine(ctx, actor, filter, p)
	}
	return s.list(ctx, filter, nil, p)
}

func (s *requestService) ListMine(ctx context.Context, actor policy.Actor, filter RequestListFilter, p pagination.Params) ([]model.Request, int64, error) {
	owner := actor.ID
	return s.list(ctx, filter, &owner, p)
}

func (s *requestService) ListPending(ctx context.Context, actor policy.Actor, p pagination.Params) ([]model.Request, int64, error) {
	if !policy.CanReview(actor) {
		return nil, 0, apperrors.Authorization("only managers and admins can view the review queue")
	}
	return s.list(ctx, RequestListFilter{Status: model.RequestStatusPending}, nil, p)
}

func (s *requestService) list(ctx context.Context, filter RequestListFilter, owner *uuid.UUID, p pagination.Params) ([]model.Request, int64, error) {
	if filter.Status != "" && !validRequestStatus(filter.Status) {
		return nil, 0, apperrors.Validation("invalid status filter %q", filter.Status)
	}
	if filter.Type != "" && !model.ValidRequestType(filter.Type) {
		return nil, 0, apperrors.Validation("invalid type filter %q", filter.Type)
	}
	if filter.Priority != "" && !model.ValidPriority(filter.Priority) {
		return nil, 0, apperrors.Validation("invalid priority filter %q", filter.Priority)
	}

	records, total, err := s.requests.List(ctx, repository.RequestFilter{
		Status:      filter.Status,
		Type:        filter.Type,
		Priority:    filter.Priority,
		RequestedBy: owner,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
	}, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperrors.Persistence("failed to list requests", err)
	}
	return records, total, nil
}

func (s *requestService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, req UpdateRequestDTO) (*model.Request, error) {
	record, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(actor, record.RequestedBy) {
		return nil, apperrors.Authorization("only the owner can edit this request")
	}
	if !workflow.Mutable(workflow.EntityRequest, record.Status) {
		return nil, apperrors.Conflict("a %s request can no longer be edited", record.Status)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if len(*req.Title) < 3 {
			return nil, apperrors.Validation("title must be at least 3 characters")
		}
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, apperrors.Validation("amount cannot be negative")
		}
		updates["amount"] = *req.Amount
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Priority != nil {
		if !model.ValidPriority(*req.Priority) {
			return nil, apperrors.Validation("invalid priority %q", *req.Priority)
		}
		updates["priority"] = *req.Priority
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.ReceiptNumber != nil {
		updates["receipt_number"] = *req.ReceiptNumber
	}
	if len(updates) == 0 {
		return record, nil
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.requests.UpdateFields(txCtx, id, record.Status, updates)
		if err != nil {
			return apperrors.Persistence("failed to update request", err)
		}
		if rows == 0 {
			return apperrors.Conflict("request was modified concurrently, reload and retry")
		}
		return s.writeAudit(txCtx, actor, model.ActionUpdateRequest, id.String(), record.Title, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.requests.GetByID(ctx, id)
}

func (s *requestService) Approve(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Request, error) {
	return s.transition(ctx, actor, id, workflow.OpApprove, "")
}

func (s *requestService) Reject(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*model.Request, error) {
	if reason == "" {
		reason = DefaultRejectionReason
	}
	return s.transition(ctx, actor, id, workflow.OpReject, reason)
}

func (s *requestService) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Request, error) {
	return s.transition(ctx, actor, id, workflow.OpCancel, "")
}

// transition applies a status-changing operation. The UPDATE is conditional
// on the status observed at read time, so two racing reviewers cannot both
// win: the loser sees zero rows and gets a conflict.
func (s *requestService) transition(ctx context.Context, actor policy.Actor, id uuid.UUID, op workflow.Op, reason string) (*model.Request, error) {
	record, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	switch op {
	case workflow.OpCancel:
		if !policy.CanCancel(actor, record.RequestedBy) {
			return nil, apperrors.Authorization("only the owner can cancel this request")
		}
	default:
		if !policy.CanReview(actor) {
			return nil, apperrors.Authorization("only managers and admins can review requests")
		}
	}

	next, err := workflow.Next(workflow.EntityRequest, op, record.Status)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{"status": next}
	action := model.ActionCancelRequest
	switch op {
	case workflow.OpApprove:
		updates["approved_by"] = actor.ID
		updates["approval_date"] = now
		action = model.ActionApproveRequest
	case workflow.OpReject:
		updates["approved_by"] = actor.ID
		updates["approval_date"] = now
		updates["rejection_reason"] = reason
		action = model.ActionRejectRequest
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.requests.UpdateFields(txCtx, id, record.Status, updates)
		if err != nil {
			return apperrors.Persistence("failed to update request status", err)
		}
		if rows == 0 {
			return apperrors.Conflict("request status changed concurrently, reload and retry")
		}
		return s.writeAudit(txCtx, actor, action, id.String(), record.Title, map[string]interface{}{
			"from": record.Status,
			"to":   next,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request transitioned",
		zap.String("request_id", id.String()),
		zap.String("from", record.Status),
		zap.String("to", next),
		zap.String("actor", actor.ID.String()))

	updated, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("failed to reload request", err)
	}
	s.notify(updated)
	return updated, nil
}

func (s *requestService) AddComment(ctx context.Context, actor policy.Actor, id uuid.UUID, req AddCommentDTO) (*model.Comment, error) {
	record, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanComment(actor, record.RequestedBy) {
		return nil, apperrors.Authorization("you do not have access to this request")
	}

	comment := &model.Comment{
		RequestID: id,
		UserID:    actor.ID,
		Text:      req.Text,
	}
	if err := s.requests.AddComment(ctx, comment); err != nil {
		return nil, apperrors.Persistence("failed to add comment", err)
	}
	return comment, nil
}

func (s *requestService) GetComments(ctx context.Context, actor policy.Actor, id uuid.UUID) ([]model.Comment, error) {
	record, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, record.RequestedBy) {
		return nil, apperrors.Authorization("you do not have access to this request")
	}

	comments, err := s.requests.GetComments(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("failed to list comments", err)
	}
	return comments, nil
}

func (s *requestService) Stats(ctx context.Context, actor policy.Actor) (*model.RequestStats, error) {
	var owner *uuid.UUID
	if !policy.CanViewAll(actor) {
		id := actor.ID
		owner = &id
	}

	total, err := s.requests.Count(ctx, owner)
	if err != nil {
		return nil, apperrors.Persistence("failed to count requests", err)
	}
	byStatus, err := s.requests.StatsByStatus(ctx, owner)
	if err != nil {
		return nil, apperrors.Persistence("failed to aggregate by status", err)
	}
	byType, err := s.requests.StatsByType(ctx, owner)
	if err != nil {
		return nil, apperrors.Persistence("failed to aggregate by type", err)
	}

	return &model.RequestStats{
		TotalRequests: total,
		ByStatus:      byStatus,
		ByType:        byType,
	}, nil
}

func (s *requestService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if !policy.CanDelete(actor) {
		return apperrors.Authorization("only admins can delete requests")
	}
	record, err := s.loadRequest(ctx, id)
	if err != nil {
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Delete(txCtx, id); err != nil {
			return apperrors.Persistence("failed to delete request", err)
		}
		return s.writeAudit(txCtx, actor, model.ActionDeleteRequest, id.String(), record.Title, nil)
	})
}

// --- Helpers ---

func (s *requestService) loadRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	record, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("request %s not found", id)
		}
		return nil, apperrors.Persistence("failed to load request", err)
	}
	return record, nil
}

func (s *requestService) writeAudit(ctx context.Context, actor policy.Actor, action, entityID, entityName string, details map[string]interface{}) error {
	return writeAuditEntry(ctx, s.audits, actor, action, entityID, entityName, details)
}

func (s *requestService) notify(record *model.Request) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(websocket.Event{
		Entity: "request",
		ID:     record.ID.String(),
		Status: record.Status,
	})
}

func validRequestStatus(status string) bool {
	switch status {
	case model.RequestStatusPending, model.RequestStatusApproved,
		model.RequestStatusRejected, model.RequestStatusCancelled:
		return true
	}
	return false
}
