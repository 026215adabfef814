package service

import (
	"context"

	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/repository"
	"expensehub/pkg/apperrors"
	"expensehub/pkg/pagination"
)

// AuditService exposes the audit trail to admins.
type AuditService interface {
	List(ctx context.Context, actor policy.Actor, p pagination.Params) ([]model.AuditLog, int64, error)
}

type auditService struct {
	audits repository.AuditRepository
}

func NewAuditService(audits repository.AuditRepository) AuditService {
	return &auditService{audits: audits}
}

func (s *auditService) List(ctx context.Context, actor policy.Actor, p pagination.Params) ([]model.AuditLog, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Authorization("only admins can view the audit trail")
	}
	logs, total, err := s.audits.List(ctx, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperrors.Persistence("failed to list audit logs", err)
	}
	return logs, total, nil
}
