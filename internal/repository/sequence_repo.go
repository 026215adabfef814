package repository

import (
	"context"

	"expensehub/internal/model"

	"gorm.io/gorm"
)

// SequenceRepository hands out invoice numbers. The counter is a per-year row
// incremented atomically, so two concurrent creates can never claim the same
// number — the second upsert blocks on the row lock until the first commits.
type SequenceRepository interface {
	NextInvoiceNo(ctx context.Context, year int) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) NextInvoiceNo(ctx context.Context, year int) (int64, error) {
	var seq model.InvoiceSequence
	err := GetDB(ctx, r.db).Raw(`
		INSERT INTO invoice_sequences (year, last_no)
		VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET last_no = invoice_sequences.last_no + 1
		RETURNING year, last_no
	`, year).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq.LastNo, nil
}
