package service

import (
	"context"
	"testing"
	"time"

	"expensehub/internal/config"
	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newUserService(users *stubUserRepo, tokens *stubTokenRepo) UserService {
	if tokens == nil {
		tokens = &stubTokenRepo{
			CreateFn: func(context.Context, *model.RefreshToken) error { return nil },
		}
	}
	cfg := config.JWTConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	return NewUserService(users, tokens, &stubAuditRepo{}, stubTxManager{}, cfg, zap.NewNop())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := &stubUserRepo{
		GetByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{Email: email}, nil
		},
	}
	svc := newUserService(users, nil)

	_, err := svc.Register(context.Background(), RegisterDTO{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "password123",
		Role:     model.RoleEmployee,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRegisterIssuesTokens(t *testing.T) {
	users := &stubUserRepo{
		GetByEmailFn: func(context.Context, string) (*model.User, error) {
			return nil, gorm.ErrRecordNotFound
		},
		CreateFn: func(_ context.Context, user *model.User) error {
			user.ID = uuid.New()
			return nil
		},
	}
	svc := newUserService(users, nil)

	resp, err := svc.Register(context.Background(), RegisterDTO{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "password123",
		Role:     model.RoleVendor,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, model.RoleVendor, resp.User.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &stubUserRepo{
		GetByEmailFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: uuid.New(), Password: string(hash), IsActive: true}, nil
		},
	}
	svc := newUserService(users, nil)

	_, err = svc.Login(context.Background(), LoginDTO{
		Email:    "dana@example.com",
		Password: "wrong-password",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestLoginDeactivatedAccount(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &stubUserRepo{
		GetByEmailFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: uuid.New(), Password: string(hash), IsActive: false}, nil
		},
	}
	svc := newUserService(users, nil)

	_, err = svc.Login(context.Background(), LoginDTO{
		Email:    "dana@example.com",
		Password: "password123",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestRefreshRotatesToken(t *testing.T) {
	userID := uuid.New()
	deleted := ""
	tokens := &stubTokenRepo{
		GetByTokenFn: func(_ context.Context, token string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				UserID:    userID,
				Token:     token,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		DeleteFn: func(_ context.Context, token string) error {
			deleted = token
			return nil
		},
		CreateFn: func(context.Context, *model.RefreshToken) error { return nil },
	}
	users := &stubUserRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.User, error) {
			return &model.User{ID: userID, Role: model.RoleEmployee, IsActive: true}, nil
		},
	}
	svc := newUserService(users, tokens)

	resp, err := svc.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.Equal(t, "old-token", deleted)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
}

func TestRefreshExpiredToken(t *testing.T) {
	tokens := &stubTokenRepo{
		GetByTokenFn: func(_ context.Context, token string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				Token:     token,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
		DeleteFn: func(context.Context, string) error { return nil },
	}
	svc := newUserService(&stubUserRepo{}, tokens)

	_, err := svc.Refresh(context.Background(), "stale-token")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestDeactivateGuards(t *testing.T) {
	svc := newUserService(&stubUserRepo{}, nil)

	manager := policy.Actor{ID: uuid.New(), Role: model.RoleManager}
	err := svc.Deactivate(context.Background(), manager, uuid.New())
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	admin := policy.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	err = svc.Deactivate(context.Background(), admin, admin.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAdminUpdateInvalidRole(t *testing.T) {
	users := &stubUserRepo{
		GetByIDFn: func(context.Context, uuid.UUID) (*model.User, error) {
			return &model.User{ID: uuid.New(), Role: model.RoleEmployee}, nil
		},
	}
	svc := newUserService(users, nil)

	admin := policy.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	bad := "superuser"
	_, err := svc.AdminUpdate(context.Background(), admin, uuid.New(), AdminUpdateUserDTO{Role: &bad})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
