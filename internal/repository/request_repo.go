package repository

import (
	"context"
	"time"

	"expensehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter is the allow-listed set of request listing filters. Unknown
// query keys never reach this struct.
type RequestFilter struct {
	Status      string
	Type        string
	Priority    string
	RequestedBy *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// RequestRepository defines data access for Request entities
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter, offset, limit int) ([]model.Request, int64, error)
	// UpdateFields applies updates only while the record still holds
	// expectedStatus, returning the number of rows changed. Zero rows means
	// a concurrent transition won.
	UpdateFields(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error)
	AddComment(ctx context.Context, comment *model.Comment) error
	GetComments(ctx context.Context, requestID uuid.UUID) ([]model.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	StatsByStatus(ctx context.Context, owner *uuid.UUID) ([]model.StatusStat, error)
	StatsByType(ctx context.Context, owner *uuid.UUID) ([]model.TypeStat, error)
	Count(ctx context.Context, owner *uuid.UUID) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new instance of RequestRepository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Approver").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).
		Preload("Comments.User").
		Preload("Attachments").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter, offset, limit int) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyRequestFilter(db.Model(&model.Request{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := applyRequestFilter(db.Model(&model.Request{}), filter).
		Preload("Requester").
		Preload("Approver").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit)
	if err := fetch.Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func applyRequestFilter(query *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.RequestedBy != nil {
		query = query.Where("requested_by = ?", *filter.RequestedBy)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

func (r *requestRepository) UpdateFields(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
	result := GetDB(ctx, r.db).
		Model(&model.Request{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *requestRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	return GetDB(ctx, r.db).Create(comment).Error
}

func (r *requestRepository) GetComments(ctx context.Context, requestID uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	err := GetDB(ctx, r.db).
		Preload("User").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("owner_id = ? AND owner_type = ?", id, "request").Delete(&model.Attachment{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Request{}, "id = ?", id).Error
}

func (r *requestRepository) StatsByStatus(ctx context.Context, owner *uuid.UUID) ([]model.StatusStat, error) {
	var rows []model.StatusStat
	query := GetDB(ctx, r.db).Model(&model.Request{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Group("status")
	if owner != nil {
		query = query.Where("requested_by = ?", *owner)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *requestRepository) StatsByType(ctx context.Context, owner *uuid.UUID) ([]model.TypeStat, error) {
	var rows []model.TypeStat
	query := GetDB(ctx, r.db).Model(&model.Request{}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Group("type")
	if owner != nil {
		query = query.Where("requested_by = ?", *owner)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *requestRepository) Count(ctx context.Context, owner *uuid.UUID) (int64, error) {
	var total int64
	query := GetDB(ctx, r.db).Model(&model.Request{})
	if owner != nil {
		query = query.Where("requested_by = ?", *owner)
	}
	err := query.Count(&total).Error
	return total, err
}
