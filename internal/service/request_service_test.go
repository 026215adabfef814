package service

import (
	"context"
	"testing"

	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRequestService(repo *stubRequestRepo) RequestService {
	return NewRequestService(repo, &stubAuditRepo{}, stubTxManager{}, nil, zap.NewNop())
}

func pendingRequest(owner uuid.UUID) *model.Request {
	return &model.Request{
		ID:          uuid.New(),
		Title:       "Conference travel",
		Type:        model.RequestTypeTravel,
		Status:      model.RequestStatusPending,
		RequestedBy: owner,
	}
}

func TestRequestApprove(t *testing.T) {
	owner := uuid.New()
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	record := pendingRequest(owner)

	var gotUpdates map[string]interface{}
	var gotExpected string
	repo := &stubRequestRepo{
		GetByIDFn: func(_ context.Context, id uuid.UUID) (*model.Request, error) {
			return record, nil
		},
		UpdateFieldsFn: func(_ context.Context, _ uuid.UUID, expectedStatus string, updates map[string]interface{}) (int64, error) {
			gotExpected = expectedStatus
			gotUpdates = updates
			return 1, nil
		},
	}
	svc := newRequestService(repo)

	_, err := svc.Approve(context.Background(), manager, record.ID)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, gotExpected)
	assert.Equal(t, model.RequestStatusApproved, gotUpdates["status"])
	assert.Equal(t, manager.ID, gotUpdates["approved_by"])
	assert.Contains(t, gotUpdates, "approval_date")
}

func TestRequestApproveNonPendingConflict(t *testing.T) {
	owner := uuid.New()
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	record := pendingRequest(owner)
	record.Status = model.RequestStatusApproved

	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
	}
	svc := newRequestService(repo)

	_, err := svc.Approve(context.Background(), manager, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRequestApproveRequiresReviewer(t *testing.T) {
	owner := uuid.New()
	record := pendingRequest(owner)
	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
	}
	svc := newRequestService(repo)

	employee := policy.Actor{ID: owner, Role: model.RoleEmployee}
	_, err := svc.Approve(context.Background(), employee, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestRequestApproveLostRace(t *testing.T) {
	owner := uuid.New()
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	record := pendingRequest(owner)

	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
		// Another reviewer committed first: the conditional update matches
		// zero rows.
		UpdateFieldsFn: func(context.Context, uuid.UUID, string, map[string]interface{}) (int64, error) {
			return 0, nil
		},
	}
	svc := newRequestService(repo)

	_, err := svc.Approve(context.Background(), manager, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRequestRejectDefaultReason(t *testing.T) {
	owner := uuid.New()
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	record := pendingRequest(owner)

	var gotUpdates map[string]interface{}
	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
		UpdateFieldsFn: func(_ context.Context, _ uuid.UUID, _ string, updates map[string]interface{}) (int64, error) {
			gotUpdates = updates
			return 1, nil
		},
	}
	svc := newRequestService(repo)

	_, err := svc.Reject(context.Background(), manager, record.ID, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRejectionReason, gotUpdates["rejection_reason"])
}

func TestRequestUpdateOnlyOwner(t *testing.T) {
	owner := uuid.New()
	record := pendingRequest(owner)
	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
	}
	svc := newRequestService(repo)

	title := "Updated title"

	// A manager can read but never edit someone else's request.
	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	_, err := svc.Update(context.Background(), manager, record.ID, UpdateRequestDTO{Title: &title})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestRequestUpdateImmutableAfterApproval(t *testing.T) {
	owner := uuid.New()
	record := pendingRequest(owner)
	record.Status = model.RequestStatusApproved
	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
	}
	svc := newRequestService(repo)

	title := "Updated title"
	actor := policy.Actor{ID: owner, Role: model.RoleEmployee}
	_, err := svc.Update(context.Background(), actor, record.ID, UpdateRequestDTO{Title: &title})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRequestCancelOnlyOwner(t *testing.T) {
	owner := uuid.New()
	record := pendingRequest(owner)
	repo := &stubRequestRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.Request, error) {
			return record, nil
		},
	}
	svc := newRequestService(repo)

	admin := policy.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	_, err := svc.Cancel(context.Background(), admin, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestRequestStatsScopedForEmployee(t *testing.T) {
	employee := policy.Actor{ID: uuid.New(), Role: model.RoleEmployee}

	var gotOwner *uuid.UUID
	repo := &stubRequestRepo{
		CountFn: func(_ context.Context, owner *uuid.UUID) (int64, error) {
			gotOwner = owner
			return 3, nil
		},
		StatsByStatusFn: func(context.Context, *uuid.UUID) ([]model.StatusStat, error) {
			return nil, nil
		},
		StatsByTypeFn: func(context.Context, *uuid.UUID) ([]model.TypeStat, error) {
			return nil, nil
		},
	}
	svc := newRequestService(repo)

	stats, err := svc.Stats(context.Background(), employee)
	require.NoError(t, err)
	require.NotNil(t, gotOwner)
	assert.Equal(t, employee.ID, *gotOwner)
	assert.Equal(t, int64(3), stats.TotalRequests)
}

func TestRequestDeleteRequiresAdmin(t *testing.T) {
	svc := newRequestService(&stubRequestRepo{})

	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	err := svc.Delete(context.Background(), manager, uuid.New())
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestRequestGetComments(t *testing.T) {
	owner := uuid.New()
	record := pendingRequest(owner)
	stored := []model.Comment{
		{ID: uuid.New(), RequestID: record.ID, Text: "looks fine"},
		{ID: uuid.New(), RequestID: record.ID, Text: "approved after review"},
	}

	repo := &stubRequestRepo{
		GetByIDFn: func(_ context.Context, id uuid.UUID) (*model.Request, error) {
			return record, nil
		},
		GetCommentsFn: func(_ context.Context, requestID uuid.UUID) ([]model.Comment, error) {
			assert.Equal(t, record.ID, requestID)
			return stored, nil
		},
	}
	svc := newRequestService(repo)

	tests := []struct {
		name    string
		actor   policy.Actor
		allowed bool
	}{
		{"owner", policy.Actor{ID: owner, Role: model.RoleEmployee}, true},
		{"manager", policy.Actor{ID: uuid.New(), Role: model.RoleManager}, true},
		{"unrelated employee", policy.Actor{ID: uuid.New(), Role: model.RoleEmployee}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comments, err := svc.GetComments(context.Background(), tt.actor, record.ID)
			if !tt.allowed {
				assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, stored, comments)
		})
	}
}
