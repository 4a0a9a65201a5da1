package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/jwt"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/metrics"
)

var (
	ErrInvalidCredentials = pkgerrors.Unauthorized("Invalid credentials")
	ErrAccountInactive    = pkgerrors.Unauthorized("Account is deactivated")
	ErrInvalidToken       = pkgerrors.Unauthorized("Invalid or expired token")
	ErrTokenRevoked       = pkgerrors.Unauthorized("Token has been revoked")
	ErrUserNotFound       = pkgerrors.NotFound("User not found")
	ErrEmailTaken         = pkgerrors.Conflict("email", "User with this email already exists")
	ErrWrongPassword      = pkgerrors.Validation("Current password is incorrect",
		pkgerrors.FieldError{Field: "currentPassword", Message: "Current password is incorrect"})
)

// Principal is an authenticated request's identity.
type Principal struct {
	User      *model.User
	Actor     authz.Actor
	TokenID   string
	ExpiresAt time.Time
}

// AuthService credentials and session operations.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Authenticate(ctx context.Context, token string) (*Principal, error)
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	tokens TokenStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates an AuthService. tokens may be nil, in which case
// logout is client-side only.
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.repo.User.ExistsByEmail(ctx, email, "")
	if err != nil {
		s.logger.Error("check email failed", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.Auth.BcryptCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:              req.Name,
		Email:             email,
		PasswordHash:      string(hash),
		Role:              model.RoleUser,
		AssignedLocations: model.StringArray{},
		IsActive:          true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrEmailTaken
		}
		s.logger.Error("create user failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	token, err := s.jwtMgr.GenerateToken(user.UserID)
	if err != nil {
		s.logger.Error("generate token failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.UserID))
	return &dto.AuthResponse{User: toUserResponse(user), Token: token}, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LoginAttempts.WithLabelValues("unknown_user").Inc()
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("load user failed", zap.Error(err))
		return nil, err
	}

	if !user.IsActive {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("bad_password").Inc()
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.User.UpdateLastLogin(ctx, user.UserID, now); err != nil {
		s.logger.Error("update last login failed", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, err
	}
	user.LastLogin = &now

	token, err := s.jwtMgr.GenerateToken(user.UserID)
	if err != nil {
		s.logger.Error("generate token failed", zap.Error(err))
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &dto.AuthResponse{User: toUserResponse(user), Token: token}, nil
}

// ────────────────────── Authenticate ──────────────────────

// Authenticate verifies token and reloads its user. Role and affiliation
// always come from the store, never from the token.
func (s *authService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if s.tokens != nil {
		revoked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("token blacklist unavailable", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("load user failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	actor, err := authz.ActorFor(user)
	if err != nil {
		s.logger.Error("inconsistent user record", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, ErrInvalidToken
	}

	p := &Principal{User: user, Actor: actor, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// ────────────────────── Profile ──────────────────────

func (s *authService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("load user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("load user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			exists, err := s.repo.User.ExistsByEmail(ctx, email, user.UserID)
			if err != nil {
				s.logger.Error("check email failed", zap.Error(err))
				return nil, err
			}
			if exists {
				return nil, ErrEmailTaken
			}
			user.Email = email
		}
	}
	user.UpdatedBy = &userID

	if err := s.repo.User.Update(ctx, user); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrEmailTaken
		}
		s.logger.Error("update profile failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("load user failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.Auth.BcryptCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return err
	}

	if err := s.repo.User.UpdatePassword(ctx, userID, string(hash)); err != nil {
		s.logger.Error("update password failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.tokens == nil || tokenID == "" {
		return nil
	}
	if err := s.tokens.BlacklistToken(ctx, tokenID, expiresAt.Sub(s.now())); err != nil {
		s.logger.Error("blacklist token failed", zap.String("jti", tokenID), zap.Error(err))
		return err
	}
	return nil
}
