package service

import (
	"context"
	"encoding/json"

	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/repository"
	"expensehub/pkg/apperrors"
)

// writeAuditEntry records one workflow mutation. It is always called inside
// the transaction that performed the mutation.
func writeAuditEntry(ctx context.Context, audits repository.AuditRepository, actor policy.Actor, action, entityID, entityName string, details map[string]interface{}) error {
	payload := "{}"
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			payload = string(raw)
		}
	}
	actorID := actor.ID
	entry := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if err := audits.Log(ctx, entry); err != nil {
		return apperrors.Persistence("failed to write audit log", err)
	}
	return nil
}
