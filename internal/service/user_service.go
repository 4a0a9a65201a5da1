package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
)

// UserService admin user management.
type UserService interface {
	List(ctx context.Context, actor authz.Actor, req *dto.UserListRequest) (*dto.PageResponse[dto.UserResponse], error)
	GetByID(ctx context.Context, actor authz.Actor, id string) (*dto.UserResponse, error)
	Create(ctx context.Context, actor authz.Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, actor authz.Actor, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	SetActive(ctx context.Context, actor authz.Actor, id string, active bool) (*dto.UserResponse, error)
	Stats(ctx context.Context, actor authz.Actor) (*dto.UserStatsResponse, error)
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Read ──────────────────────

func (s *userService) List(ctx context.Context, actor authz.Actor, req *dto.UserListRequest) (*dto.PageResponse[dto.UserResponse], error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionReadUsers}); err != nil {
		return nil, err
	}

	active := boolOr(req.IsActive, true)
	f := repository.UserFilter{
		Search:     req.Search,
		Role:       req.Role,
		Department: req.Department,
		IsActive:   &active,
		Offset:     req.GetOffset(),
		Limit:      req.GetLimit(),
	}
	if da, ok := actor.(authz.DepartmentAdmin); ok && s.cfg.Feature.ScopeLists {
		f.Department = da.Department
	}

	users, total, err := s.repo.User.List(ctx, f)
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}
	return dto.NewPage(items, total, &req.PaginationRequest), nil
}

func (s *userService) GetByID(ctx context.Context, actor authz.Actor, id string) (*dto.UserResponse, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionReadUsers}); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) Stats(ctx context.Context, actor authz.Actor) (*dto.UserStatsResponse, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionReadUsers}); err != nil {
		return nil, err
	}
	total, err := s.repo.User.CountActive(ctx)
	if err != nil {
		s.logger.Error("count users failed", zap.Error(err))
		return nil, err
	}
	byRole, err := s.repo.User.CountActiveByRole(ctx)
	if err != nil {
		s.logger.Error("count users by role failed", zap.Error(err))
		return nil, err
	}
	return &dto.UserStatsResponse{TotalUsers: total, RoleDistribution: toCounts(byRole)}, nil
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, actor authz.Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Name:              req.Name,
		Email:             normalizeEmail(req.Email),
		Role:              role,
		Department:        req.Department,
		Faculty:           req.Faculty,
		AssignedLocations: model.StringArray(req.AssignedLocations),
		IsActive:          boolOr(req.IsActive, true),
	}
	if user.AssignedLocations == nil {
		user.AssignedLocations = model.StringArray{}
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	change := &authz.UserChange{
		Role:              &role,
		Department:        req.Department,
		AssignedLocations: len(req.AssignedLocations) > 0,
	}
	if req.IsActive != nil && !*req.IsActive {
		change.IsActive = req.IsActive
	}
	if err := authorize(actor, authz.Request{
		Action:     authz.ActionCreateUser,
		User:       &authz.UserTarget{Role: role, Department: req.Department},
		UserChange: change,
	}); err != nil {
		return nil, err
	}

	exists, err := s.repo.User.ExistsByEmail(ctx, user.Email, "")
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
	user.PasswordHash = string(hash)
	user.CreatedBy = actorIDPtr(actor)
	user.UpdatedBy = actorIDPtr(actor)

	if err := s.repo.User.Create(ctx, user); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrEmailTaken
		}
		s.logger.Error("create user failed", zap.String("email", user.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
		zap.String("actor_id", actor.ActorID()))
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, actor authz.Actor, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	change := &authz.UserChange{Department: req.Department}
	if req.Role != nil && *req.Role != user.Role {
		change.Role = req.Role
	}
	if req.AssignedLocations != nil && !user.AssignedLocations.Equal(*req.AssignedLocations) {
		change.AssignedLocations = true
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		change.IsActive = req.IsActive
	}
	if err := authorize(actor, authz.Request{
		Action:     authz.ActionUpdateUser,
		User:       &authz.UserTarget{ID: user.UserID, Role: user.Role, Department: user.Department},
		UserChange: change,
	}); err != nil {
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
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Faculty != nil {
		user.Faculty = req.Faculty
	}
	if req.AssignedLocations != nil {
		user.AssignedLocations = model.StringArray(*req.AssignedLocations)
		if user.AssignedLocations == nil {
			user.AssignedLocations = model.StringArray{}
		}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	// Leaving the departmentAdmin role drops the affiliation, unless the
	// request tries to set it at the same time.
	if user.Role != model.RoleDepartmentAdmin &&
		req.Department == nil && req.Faculty == nil && req.AssignedLocations == nil {
		user.NormalizeAffiliation()
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}
	user.UpdatedBy = actorIDPtr(actor)

	if err := s.repo.User.Update(ctx, user); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrEmailTaken
		}
		s.logger.Error("update user failed", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Delete / status ──────────────────────

func (s *userService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, authz.Request{
		Action: authz.ActionDeleteUser,
		User:   &authz.UserTarget{ID: user.UserID, Role: user.Role, Department: user.Department},
	}); err != nil {
		return err
	}

	if err := s.repo.User.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("delete user failed", zap.String("user_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.ActorID()))
	return nil
}

func (s *userService) SetActive(ctx context.Context, actor authz.Actor, id string, active bool) (*dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	action := authz.ActionDeactivateUser
	if active {
		action = authz.ActionActivateUser
	}
	if err := authorize(actor, authz.Request{
		Action: action,
		User:   &authz.UserTarget{ID: user.UserID, Role: user.Role, Department: user.Department},
	}); err != nil {
		return nil, err
	}

	if err := s.repo.User.SetActive(ctx, id, active, actor.ActorID()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("set user status failed", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	user.IsActive = active

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── helpers ──────────────────────

func (s *userService) load(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("load user failed", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// validateUser checks the rules binding tags cannot express.
func validateUser(u *model.User) error {
	if field, msg := u.CheckAffiliation(); field != "" {
		return pkgerrors.Validation(msg, pkgerrors.FieldError{Field: field, Message: msg})
	}
	if u.Role != model.RoleDepartmentAdmin && len(u.AssignedLocations) > 0 {
		msg := "Locations can only be assigned to department admins"
		return pkgerrors.Validation(msg, pkgerrors.FieldError{Field: "assignedLocations", Message: msg})
	}
	for _, id := range u.AssignedLocations {
		if _, err := uuid.Parse(id); err != nil {
			msg := "Assigned locations must be location ids"
			return pkgerrors.Validation(msg, pkgerrors.FieldError{Field: "assignedLocations", Message: msg})
		}
	}
	if u.IsSuperAdmin() && !u.IsActive {
		return pkgerrors.Forbidden("Super admin accounts cannot be deleted, deactivated or demoted")
	}
	return nil
}
