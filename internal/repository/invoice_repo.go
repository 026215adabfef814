package repository

import (
	"context"
	"time"

	"expensehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceFilter is the allow-listed set of invoice listing filters
type InvoiceFilter struct {
	Status      string
	VendorID    *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// InvoiceSort selects the listing order
type InvoiceSort int

const (
	SortNewestFirst InvoiceSort = iota
	SortDueDateAsc              // pending review queues surface the most urgent first
)

// InvoiceRepository defines data access for Invoice entities
type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// LockByID takes a row lock on the invoice for the duration of the
	// surrounding transaction. Use before rewriting line items.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter, sort InvoiceSort, offset, limit int) ([]model.Invoice, int64, error)
	// UpdateFields applies updates only while the record still holds
	// expectedStatus, returning the number of rows changed.
	UpdateFields(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error)
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error
	Save(ctx context.Context, inv *model.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	StatsByStatus(ctx context.Context, vendor *uuid.UUID) ([]model.StatusStat, error)
	StatsByMonth(ctx context.Context, vendor *uuid.UUID, months int) ([]model.MonthlyStat, error)
	Count(ctx context.Context, vendor *uuid.UUID) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository returns a new instance of InvoiceRepository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *model.Invoice) error {
	return GetDB(ctx, r.db).Create(inv).Error
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Vendor").
		Preload("Approver").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.position ASC")
		}).
		Preload("Attachments").
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceFilter, sort InvoiceSort, offset, limit int) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyInvoiceFilter(db.Model(&model.Invoice{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC, id DESC"
	if sort == SortDueDateAsc {
		order = "due_date ASC, id ASC"
	}

	fetch := applyInvoiceFilter(db.Model(&model.Invoice{}), filter).
		Preload("Vendor").
		Preload("Approver").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.position ASC")
		}).
		Order(order).
		Offset(offset).
		Limit(limit)
	if err := fetch.Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func applyInvoiceFilter(query *gorm.DB, filter InvoiceFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

func (r *invoiceRepository) UpdateFields(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
	result := GetDB(ctx, r.db).
		Model(&model.Invoice{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = uuid.Nil
		items[i].InvoiceID = invoiceID
	}
	return db.Create(&items).Error
}

func (r *invoiceRepository) Save(ctx context.Context, inv *model.Invoice) error {
	return GetDB(ctx, r.db).Omit("Items", "Vendor", "Approver", "Attachments").Save(inv).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("owner_id = ? AND owner_type = ?", id, "invoice").Delete(&model.Attachment{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Invoice{}, "id = ?", id).Error
}

func (r *invoiceRepository) StatsByStatus(ctx context.Context, vendor *uuid.UUID) ([]model.StatusStat, error) {
	var rows []model.StatusStat
	query := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount").
		Group("status")
	if vendor != nil {
		query = query.Where("vendor_id = ?", *vendor)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *invoiceRepository) StatsByMonth(ctx context.Context, vendor *uuid.UUID, months int) ([]model.MonthlyStat, error) {
	var rows []model.MonthlyStat
	query := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("EXTRACT(YEAR FROM created_at)::int AS year, EXTRACT(MONTH FROM created_at)::int AS month, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount").
		Group("1, 2").
		Order("year DESC, month DESC").
		Limit(months)
	if vendor != nil {
		query = query.Where("vendor_id = ?", *vendor)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *invoiceRepository) Count(ctx context.Context, vendor *uuid.UUID) (int64, error) {
	var total int64
	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if vendor != nil {
		query = query.Where("vendor_id = ?", *vendor)
	}
	err := query.Count(&total).Error
	return total, err
}
