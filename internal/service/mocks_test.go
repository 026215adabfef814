package service

import (
	"context"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
)

// Function-field stubs for the repository interfaces. Tests set only the
// methods they expect to be called; anything else panics loudly.

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type stubAuditRepo struct {
	entries []model.AuditLog
}

func (s *stubAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAuditRepo) List(context.Context, int, int) ([]model.AuditLog, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}

type stubRequestRepo struct {
	CreateFn        func(ctx context.Context, req *model.Request) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Request, error)
	ListFn          func(ctx context.Context, filter repository.RequestFilter, offset, limit int) ([]model.Request, int64, error)
	UpdateFieldsFn  func(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error)
	AddCommentFn    func(ctx context.Context, comment *model.Comment) error
	GetCommentsFn   func(ctx context.Context, requestID uuid.UUID) ([]model.Comment, error)
	DeleteFn        func(ctx context.Context, id uuid.UUID) error
	StatsByStatusFn func(ctx context.Context, owner *uuid.UUID) ([]model.StatusStat, error)
	StatsByTypeFn   func(ctx context.Context, owner *uuid.UUID) ([]model.TypeStat, error)
	CountFn         func(ctx context.Context, owner *uuid.UUID) (int64, error)
}

func (s *stubRequestRepo) Create(ctx context.Context, req *model.Request) error {
	return s.CreateFn(ctx, req)
}

func (s *stubRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return s.GetByIDFn(ctx, id)
}

func (s *stubRequestRepo) List(ctx context.Context, filter repository.RequestFilter, offset, limit int) ([]model.Request, int64, error) {
	return s.ListFn(ctx, filter, offset, limit)
}

func (s *stubRequestRepo) UpdateFields(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
	return s.UpdateFieldsFn(ctx, id, expectedStatus, updates)
}

func (s *stubRequestRepo) AddComment(ctx context.Context, comment *model.Comment) error {
	return s.AddCommentFn(ctx, comment)
}

func (s *stubRequestRepo) GetComments(ctx context.Context, requestID uuid.UUID) ([]model.Comment, error) {
	return s.GetCommentsFn(ctx, requestID)
}

func (s *stubRequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DeleteFn(ctx, id)
}

func (s *stubRequestRepo) StatsByStatus(ctx context.Context, owner *uuid.UUID) ([]model.StatusStat, error) {
	return s.StatsByStatusFn(ctx, owner)
}

func (s *stubRequestRepo) StatsByType(ctx context.Context, owner *uuid.UUID) ([]model.TypeStat, error) {
	return s.StatsByTypeFn(ctx, owner)
}

func (s *stubRequestRepo) Count(ctx context.Context, owner *uuid.UUID) (int64, error) {
	return s.CountFn(ctx, owner)
}

type stubInvoiceRepo struct {
	CreateFn        func(ctx context.Context, inv *model.Invoice) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	LockByIDFn      func(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	ListFn          func(ctx context.Context, filter repository.InvoiceFilter, sort repository.InvoiceSort, offset, limit int) ([]model.Invoice, int64, error)
	UpdateFieldsFn  func(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error)
	ReplaceItemsFn  func(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error
	SaveFn          func(ctx context.Context, inv *model.Invoice) error
	DeleteFn        func(ctx context.Context, id uuid.UUID) error
	StatsByStatusFn func(ctx context.Context, vendor *uuid.UUID) ([]model.StatusStat, error)
	StatsByMonthFn  func(ctx context.Context, vendor *uuid.UUID, months int) ([]model.MonthlyStat, error)
	CountFn         func(ctx context.Context, vendor *uuid.UUID) (int64, error)
}

func (s *stubInvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return s.CreateFn(ctx, inv)
}

func (s *stubInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.GetByIDFn(ctx, id)
}

func (s *stubInvoiceRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.LockByIDFn(ctx, id)
}

func (s *stubInvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter, sort repository.InvoiceSort, offset, limit int) ([]model.Invoice, int64, error) {
	return s.ListFn(ctx, filter, sort, offset, limit)
}

func (s *stubInvoiceRepo) UpdateFields(ctx context.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
	return s.UpdateFieldsFn(ctx, id, expectedStatus, updates)
}

func (s *stubInvoiceRepo) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	return s.ReplaceItemsFn(ctx, invoiceID, items)
}

func (s *stubInvoiceRepo) Save(ctx context.Context, inv *model.Invoice) error {
	return s.SaveFn(ctx, inv)
}

func (s *stubInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DeleteFn(ctx, id)
}

func (s *stubInvoiceRepo) StatsByStatus(ctx context.Context, vendor *uuid.UUID) ([]model.StatusStat, error) {
	return s.StatsByStatusFn(ctx, vendor)
}

func (s *stubInvoiceRepo) StatsByMonth(ctx context.Context, vendor *uuid.UUID, months int) ([]model.MonthlyStat, error) {
	return s.StatsByMonthFn(ctx, vendor, months)
}

func (s *stubInvoiceRepo) Count(ctx context.Context, vendor *uuid.UUID) (int64, error) {
	return s.CountFn(ctx, vendor)
}

type stubSequenceRepo struct {
	next int64
}

func (s *stubSequenceRepo) NextInvoiceNo(context.Context, int) (int64, error) {
	s.next++
	return s.next, nil
}

type stubUserRepo struct {
	CreateFn     func(ctx context.Context, user *model.User) error
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmailFn func(ctx context.Context, email string) (*model.User, error)
	ListFn       func(ctx context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error)
	UpdateFn     func(ctx context.Context, user *model.User) error
	StatsFn      func(ctx context.Context) (*model.UserStats, error)
}

func (s *stubUserRepo) Create(ctx context.Context, user *model.User) error {
	return s.CreateFn(ctx, user)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.GetByIDFn(ctx, id)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.GetByEmailFn(ctx, email)
}

func (s *stubUserRepo) List(ctx context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	return s.ListFn(ctx, filter, offset, limit)
}

func (s *stubUserRepo) Update(ctx context.Context, user *model.User) error {
	return s.UpdateFn(ctx, user)
}

func (s *stubUserRepo) Stats(ctx context.Context) (*model.UserStats, error) {
	return s.StatsFn(ctx)
}

type stubTokenRepo struct {
	CreateFn        func(ctx context.Context, token *model.RefreshToken) error
	GetByTokenFn    func(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteFn        func(ctx context.Context, token string) error
	DeleteForUserFn func(ctx context.Context, userID uuid.UUID) error
}

func (s *stubTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	return s.CreateFn(ctx, token)
}

func (s *stubTokenRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return s.GetByTokenFn(ctx, token)
}

func (s *stubTokenRepo) Delete(ctx context.Context, token string) error {
	return s.DeleteFn(ctx, token)
}

func (s *stubTokenRepo) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return s.DeleteForUserFn(ctx, userID)
}

func (s *stubTokenRepo) DeleteExpired(context.Context) error {
	return nil
}
