package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"expensehub/internal/config"
	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/repository"
	"expensehub/pkg/apperrors"
	"expensehub/pkg/pagination"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type RegisterDTO struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required,oneof=employee vendor"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileDTO struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Phone      *string `json:"phone"`
	Avatar     *string `json:"avatar"`
}

type AdminUpdateUserDTO struct {
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	Phone      *string `json:"phone"`
	IsActive   *bool   `json:"is_active"`
}

type UserListFilter struct {
	Role     string
	IsActive *bool
	Search   string
}

type UserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterDTO) (AuthResponse, error)
	Login(ctx context.Context, req LoginDTO) (AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByID(ctx context.Context, id uuid.UUID) (UserResponse, error)
	List(ctx context.Context, filter UserListFilter, p pagination.Params) ([]UserResponse, int64, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, req UpdateProfileDTO) (UserResponse, error)
	AdminUpdate(ctx context.Context, actor policy.Actor, id uuid.UUID, req AdminUpdateUserDTO) (UserResponse, error)
	Deactivate(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	Stats(ctx context.Context, actor policy.Actor) (*model.UserStats, error)
}

type userService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
	jwtCfg config.JWTConfig
	logger *zap.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	jwtCfg config.JWTConfig,
	logger *zap.Logger,
) UserService {
	return &userService{
		users:  users,
		tokens: tokens,
		audits: audits,
		txm:    txm,
		jwtCfg: jwtCfg,
		logger: logger,
	}
}

// --- Implementation ---

func (s *userService) Register(ctx context.Context, req RegisterDTO) (AuthResponse, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return AuthResponse{}, apperrors.Conflict("email %s is already registered", req.Email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AuthResponse{}, apperrors.Persistence("failed to check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, apperrors.Persistence("failed to hash password", err)
	}

	user := &model.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   string(hash),
		Role:       req.Role,
		Department: req.Department,
		Phone:      req.Phone,
		IsActive:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return AuthResponse{}, apperrors.Persistence("failed to create user", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role))

	return s.issueTokens(ctx, user)
}

func (s *userService) Login(ctx context.Context, req LoginDTO) (AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuthResponse{}, apperrors.Authorization("invalid email or password")
		}
		return AuthResponse{}, apperrors.Persistence("failed to look up user", err)
	}
	if !user.IsActive {
		return AuthResponse{}, apperrors.Authorization("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return AuthResponse{}, apperrors.Authorization("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	stored, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuthResponse{}, apperrors.Authorization("invalid refresh token")
		}
		return AuthResponse{}, apperrors.Persistence("failed to look up refresh token", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.tokens.Delete(ctx, refreshToken)
		return AuthResponse{}, apperrors.Authorization("refresh token has expired")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return AuthResponse{}, apperrors.Authorization("invalid refresh token")
	}
	if !user.IsActive {
		return AuthResponse{}, apperrors.Authorization("account is deactivated")
	}

	// Rotate: the old refresh token is single-use.
	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return AuthResponse{}, apperrors.Persistence("failed to rotate refresh token", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return apperrors.Persistence("failed to delete refresh token", err)
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, apperrors.NotFound("user %s not found", id)
		}
		return UserResponse{}, apperrors.Persistence("failed to load user", err)
	}
	return toUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, filter UserListFilter, p pagination.Params) ([]UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Role:     filter.Role,
		IsActive: filter.IsActive,
		Search:   filter.Search,
	}, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperrors.Persistence("failed to list users", err)
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor policy.Actor, req UpdateProfileDTO) (UserResponse, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return UserResponse{}, apperrors.NotFound("user %s not found", actor.ID)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return UserResponse{}, apperrors.Validation("name cannot be empty")
		}
		user.Name = *req.Name
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		return UserResponse{}, apperrors.Persistence("failed to update profile", err)
	}
	return toUserResponse(user), nil
}

func (s *userService) AdminUpdate(ctx context.Context, actor policy.Actor, id uuid.UUID, req AdminUpdateUserDTO) (UserResponse, error) {
	if !policy.CanManageUsers(actor) {
		return UserResponse{}, apperrors.Authorization("only admins can manage users")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, apperrors.NotFound("user %s not found", id)
		}
		return UserResponse{}, apperrors.Persistence("failed to load user", err)
	}

	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return UserResponse{}, apperrors.Validation("invalid role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return apperrors.Persistence("failed to update user", err)
		}
		return s.writeAudit(txCtx, actor, model.ActionUpdateUser, user.ID.String(), user.Name, map[string]interface{}{
			"role":      user.Role,
			"is_active": user.IsActive,
		})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *userService) Deactivate(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if !policy.CanManageUsers(actor) {
		return apperrors.Authorization("only admins can manage users")
	}
	if actor.ID == id {
		return apperrors.Validation("cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user %s not found", id)
		}
		return apperrors.Persistence("failed to load user", err)
	}

	user.IsActive = false

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return apperrors.Persistence("failed to deactivate user", err)
		}
		if err := s.tokens.DeleteForUser(txCtx, id); err != nil {
			return apperrors.Persistence("failed to revoke sessions", err)
		}
		return s.writeAudit(txCtx, actor, model.ActionDeactivateUser, user.ID.String(), user.Name, nil)
	})
}

func (s *userService) Stats(ctx context.Context, actor policy.Actor) (*model.UserStats, error) {
	if !policy.CanManageUsers(actor) {
		return nil, apperrors.Authorization("only admins can view user statistics")
	}
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, apperrors.Persistence("failed to aggregate user statistics", err)
	}
	return stats, nil
}

// --- Helpers ---

func (s *userService) issueTokens(ctx context.Context, user *model.User) (AuthResponse, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"name": user.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(s.jwtCfg.AccessTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return AuthResponse{}, apperrors.Persistence("failed to sign access token", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return AuthResponse{}, apperrors.Persistence("failed to generate refresh token", err)
	}
	stored := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(s.jwtCfg.RefreshTTL),
	}
	if err := s.tokens.Create(ctx, stored); err != nil {
		return AuthResponse{}, apperrors.Persistence("failed to store refresh token", err)
	}

	return AuthResponse{
		User:         toUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *userService) writeAudit(ctx context.Context, actor policy.Actor, action, entityID, entityName string, details map[string]interface{}) error {
	return writeAuditEntry(ctx, s.audits, actor, action, entityID, entityName, details)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Phone:      u.Phone,
		Avatar:     u.Avatar,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
	}
}
