package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/repository"
	"expensehub/pkg/apperrors"
	"expensehub/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newInvoiceService(repo *stubInvoiceRepo, seq *stubSequenceRepo) InvoiceService {
	if seq == nil {
		seq = &stubSequenceRepo{}
	}
	return NewInvoiceService(repo, seq, &stubAuditRepo{}, stubTxManager{}, nil, zap.NewNop())
}

func validCreateDTO() CreateInvoiceDTO {
	return CreateInvoiceDTO{
		Title:   "September consulting",
		DueDate: time.Now().AddDate(0, 1, 0),
		Items: []InvoiceItemDTO{
			{Description: "Consulting hours", Quantity: 2, UnitPrice: decimal.RequireFromString("10")},
			{Description: "Travel", Quantity: 1, UnitPrice: decimal.RequireFromString("5")},
		},
		TaxRate:  decimal.RequireFromString("10"),
		Discount: decimal.RequireFromString("2"),
	}
}

func TestInvoiceCreateComputesTotals(t *testing.T) {
	vendor := policy.Actor{ID: uuid.New(), Role: model.RoleVendor}

	var created *model.Invoice
	repo := &stubInvoiceRepo{
		CreateFn: func(_ context.Context, inv *model.Invoice) error {
			inv.ID = uuid.New()
			created = inv
			return nil
		},
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return created, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	inv, err := svc.Create(context.Background(), vendor, validCreateDTO())
	require.NoError(t, err)

	assert.Equal(t, "25", inv.Subtotal.String())
	assert.Equal(t, "2.5", inv.TaxAmount.String())
	assert.Equal(t, "25.5", inv.TotalAmount.String())
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, vendor.ID, inv.VendorID)
	assert.Equal(t, model.DefaultClientName, inv.Client.CompanyName)
}

func TestInvoiceCreateAssignsSequentialNumbers(t *testing.T) {
	vendor := policy.Actor{ID: uuid.New(), Role: model.RoleVendor}

	var created *model.Invoice
	repo := &stubInvoiceRepo{
		CreateFn: func(_ context.Context, inv *model.Invoice) error {
			inv.ID = uuid.New()
			created = inv
			return nil
		},
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return created, nil
		},
	}
	seq := &stubSequenceRepo{}
	svc := newInvoiceService(repo, seq)

	year := time.Now().Year()

	first, err := svc.Create(context.Background(), vendor, validCreateDTO())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), vendor, validCreateDTO())
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("INV-%d-00001", year), first.InvoiceNumber)
	assert.Equal(t, fmt.Sprintf("INV-%d-00002", year), second.InvoiceNumber)
}

func TestInvoiceCreateValidation(t *testing.T) {
	vendor := policy.Actor{ID: uuid.New(), Role: model.RoleVendor}
	svc := newInvoiceService(&stubInvoiceRepo{}, nil)

	tests := []struct {
		name   string
		mutate func(dto *CreateInvoiceDTO)
	}{
		{"no items", func(dto *CreateInvoiceDTO) { dto.Items = nil }},
		{"zero quantity", func(dto *CreateInvoiceDTO) { dto.Items[0].Quantity = 0 }},
		{"negative unit price", func(dto *CreateInvoiceDTO) {
			dto.Items[0].UnitPrice = decimal.RequireFromString("-1")
		}},
		{"tax rate above 100", func(dto *CreateInvoiceDTO) {
			dto.TaxRate = decimal.RequireFromString("101")
		}},
		{"negative discount", func(dto *CreateInvoiceDTO) {
			dto.Discount = decimal.RequireFromString("-1")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := validCreateDTO()
			tt.mutate(&dto)
			_, err := svc.Create(context.Background(), vendor, dto)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}

func TestInvoiceUpdateOnlyOwner(t *testing.T) {
	ownerID := uuid.New()
	inv := &model.Invoice{
		ID:       uuid.New(),
		VendorID: ownerID,
		Status:   model.InvoiceStatusPending,
	}
	repo := &stubInvoiceRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return inv, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	title := "New title"

	// Another vendor cannot touch it, and neither can a manager.
	otherVendor := policy.Actor{ID: uuid.New(), Role: model.RoleVendor}
	_, err := svc.Update(context.Background(), otherVendor, inv.ID, UpdateInvoiceDTO{Title: &title})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	_, err = svc.Update(context.Background(), manager, inv.ID, UpdateInvoiceDTO{Title: &title})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestInvoiceUpdateImmutableAfterApproval(t *testing.T) {
	ownerID := uuid.New()
	inv := &model.Invoice{
		ID:       uuid.New(),
		VendorID: ownerID,
		Status:   model.InvoiceStatusApproved,
	}
	repo := &stubInvoiceRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return inv, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	title := "New title"
	owner := policy.Actor{ID: ownerID, Role: model.RoleVendor}
	_, err := svc.Update(context.Background(), owner, inv.ID, UpdateInvoiceDTO{Title: &title})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestInvoiceMarkPaid(t *testing.T) {
	inv := &model.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2026-00001",
		VendorID:      uuid.New(),
		Status:        model.InvoiceStatusApproved,
	}

	var gotUpdates map[string]interface{}
	var gotExpected string
	repo := &stubInvoiceRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return inv, nil
		},
		UpdateFieldsFn: func(_ context.Context, _ uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
			gotExpected = expectedStatus
			gotUpdates = updates
			return 1, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	_, err := svc.MarkPaid(context.Background(), manager, inv.ID, MarkPaidDTO{
		PaymentMethod:    model.PaymentMethodCheck,
		PaymentReference: "CHK-554",
	})
	require.NoError(t, err)

	assert.Equal(t, model.InvoiceStatusApproved, gotExpected)
	assert.Equal(t, model.InvoiceStatusPaid, gotUpdates["status"])
	assert.Equal(t, model.PaymentMethodCheck, gotUpdates["payment_method"])
	assert.Equal(t, "CHK-554", gotUpdates["payment_reference"])
	assert.Contains(t, gotUpdates, "paid_date")
}

func TestInvoiceMarkPaidRequiresApprovedStatus(t *testing.T) {
	inv := &model.Invoice{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Status:   model.InvoiceStatusPending,
	}
	repo := &stubInvoiceRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return inv, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	_, err := svc.MarkPaid(context.Background(), manager, inv.ID, MarkPaidDTO{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestInvoiceSubmitDraftOnly(t *testing.T) {
	ownerID := uuid.New()
	inv := &model.Invoice{
		ID:       uuid.New(),
		VendorID: ownerID,
		Status:   model.InvoiceStatusDraft,
	}
	repo := &stubInvoiceRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			return inv, nil
		},
		UpdateFieldsFn: func(_ context.Context, _ uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
			assert.Equal(t, model.InvoiceStatusDraft, expectedStatus)
			assert.Equal(t, model.InvoiceStatusPending, updates["status"])
			return 1, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	owner := policy.Actor{ID: ownerID, Role: model.RoleVendor}
	_, err := svc.Submit(context.Background(), owner, inv.ID)
	require.NoError(t, err)

	inv.Status = model.InvoiceStatusPending
	_, err = svc.Submit(context.Background(), owner, inv.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestInvoiceListVendorFilter(t *testing.T) {
	vendorID := uuid.New()

	var gotVendor *uuid.UUID
	repo := &stubInvoiceRepo{
		ListFn: func(_ context.Context, filter repository.InvoiceFilter, _ repository.InvoiceSort, _, _ int) ([]model.Invoice, int64, error) {
			gotVendor = filter.VendorID
			return nil, 0, nil
		},
	}
	svc := newInvoiceService(repo, nil)
	p := pagination.Normalize(1, 10)

	// A reviewer's vendor filter reaches the repository.
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	_, _, err := svc.List(context.Background(), manager, InvoiceListFilter{Vendor: &vendorID}, p)
	require.NoError(t, err)
	require.NotNil(t, gotVendor)
	assert.Equal(t, vendorID, *gotVendor)

	// On the owner-scoped listing the caller's own ID wins over any
	// vendor filter in the query.
	vendor := policy.Actor{ID: uuid.New(), Role: model.RoleVendor}
	_, _, err = svc.ListMine(context.Background(), vendor, InvoiceListFilter{Vendor: &vendorID}, p)
	require.NoError(t, err)
	require.NotNil(t, gotVendor)
	assert.Equal(t, vendor.ID, *gotVendor)

	// A vendor's unscoped listing falls back to their own records too.
	_, _, err = svc.List(context.Background(), vendor, InvoiceListFilter{Vendor: &vendorID}, p)
	require.NoError(t, err)
	require.NotNil(t, gotVendor)
	assert.Equal(t, vendor.ID, *gotVendor)
}

func TestInvoiceUpdateRewritesItemsAndTotals(t *testing.T) {
	ownerID := uuid.New()
	stored := &model.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2026-00007",
		VendorID:      ownerID,
		Status:        model.InvoiceStatusPending,
		TaxRate:       decimal.RequireFromString("10"),
		Discount:      decimal.RequireFromString("2"),
		Items: []model.InvoiceItem{
			{Description: "old line", Quantity: 1, UnitPrice: decimal.RequireFromString("99")},
		},
	}

	var replaced []model.InvoiceItem
	var saved *model.Invoice
	repo := &stubInvoiceRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			if saved != nil {
				return saved, nil
			}
			return stored, nil
		},
		LockByIDFn: func(context.Context, uuid.UUID) (*model.Invoice, error) {
			locked := *stored
			locked.Items = nil
			return &locked, nil
		},
		ReplaceItemsFn: func(_ context.Context, _ uuid.UUID, items []model.InvoiceItem) error {
			replaced = items
			return nil
		},
		SaveFn: func(_ context.Context, inv *model.Invoice) error {
			saved = inv
			return nil
		},
	}
	svc := newInvoiceService(repo, nil)

	owner := policy.Actor{ID: ownerID, Role: model.RoleVendor}
	_, err := svc.Update(context.Background(), owner, stored.ID, UpdateInvoiceDTO{
		Items: []InvoiceItemDTO{
			{Description: "Consulting hours", Quantity: 2, UnitPrice: decimal.RequireFromString("10")},
			{Description: "Travel", Quantity: 1, UnitPrice: decimal.RequireFromString("5")},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, "25", saved.Subtotal.String())
	assert.Equal(t, "2.5", saved.TaxAmount.String())
	assert.Equal(t, "25.5", saved.TotalAmount.String())

	require.Len(t, replaced, 2)
	assert.Equal(t, "20", replaced[0].Amount.String())
	assert.Equal(t, "5", replaced[1].Amount.String())
	assert.Equal(t, 0, replaced[0].Position)
	assert.Equal(t, 1, replaced[1].Position)
}

func TestInvoiceListPendingUsesDueDateOrder(t *testing.T) {
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}

	repo := &stubInvoiceRepo{
		ListFn: func(_ context.Context, filter repository.InvoiceFilter, sort repository.InvoiceSort, _, _ int) ([]model.Invoice, int64, error) {
			assert.Equal(t, model.InvoiceStatusPending, filter.Status)
			assert.Equal(t, repository.SortDueDateAsc, sort)
			return nil, 0, nil
		},
	}
	svc := newInvoiceService(repo, nil)

	p := pagination.Normalize(1, 10)
	_, _, err := svc.ListPending(context.Background(), manager, p)
	require.NoError(t, err)

	employee := policy.Actor{ID: uuid.New(), Role: model.RoleEmployee}
	_, _, err = svc.ListPending(context.Background(), employee, p)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}
