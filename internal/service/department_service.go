package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
)

var (
	ErrDepartmentNotFound  = pkgerrors.NotFound("Department not found")
	ErrDepartmentNameTaken = pkgerrors.Conflict("name", "Department with this name already exists")
	ErrInvalidHead         = pkgerrors.Validation("Invalid department head user",
		pkgerrors.FieldError{Field: "headId", Message: "Head must be an existing active user"})
	ErrDepartmentHasLocations = pkgerrors.Conflict("", "Cannot delete department with active locations")
	ErrDepartmentHasUsers     = pkgerrors.Conflict("", "Cannot delete department with active users")
)

// DepartmentService department management.
type DepartmentService interface {
	List(ctx context.Context, req *dto.DepartmentListRequest) (*dto.PageResponse[dto.DepartmentResponse], error)
	GetByID(ctx context.Context, id string) (*dto.DepartmentResponse, error)
	Create(ctx context.Context, actor authz.Actor, req *dto.CreateDepartmentRequest) (*dto.DepartmentResponse, error)
	Update(ctx context.Context, actor authz.Actor, id string, req *dto.UpdateDepartmentRequest) (*dto.DepartmentResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	Stats(ctx context.Context) (*dto.DepartmentStatsResponse, error)
	Users(ctx context.Context, actor authz.Actor, id string, p *dto.PaginationRequest) (*dto.PageResponse[dto.UserResponse], error)
	Locations(ctx context.Context, actor authz.Actor, id string, p *dto.PaginationRequest) (*dto.PageResponse[dto.LocationResponse], error)
}

type departmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDepartmentService creates a DepartmentService.
func NewDepartmentService(repo *repository.Repository, logger *zap.Logger) DepartmentService {
	return &departmentService{repo: repo, logger: logger}
}

// ────────────────────── Read ──────────────────────

func (s *departmentService) List(ctx context.Context, req *dto.DepartmentListRequest) (*dto.PageResponse[dto.DepartmentResponse], error) {
	active := boolOr(req.IsActive, true)
	depts, total, err := s.repo.Department.List(ctx, repository.DepartmentFilter{
		Search:   req.Search,
		IsActive: &active,
		Offset:   req.GetOffset(),
		Limit:    req.GetLimit(),
	})
	if err != nil {
		s.logger.Error("list departments failed", zap.Error(err))
		return nil, err
	}

	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, toDepartmentResponse(&depts[i]))
	}
	return dto.NewPage(items, total, &req.PaginationRequest), nil
}

func (s *departmentService) GetByID(ctx context.Context, id string) (*dto.DepartmentResponse, error) {
	dept, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toDepartmentResponse(dept)
	return &resp, nil
}

// Stats reports active user and location counts per active department.
// Counts match department names case-insensitively.
func (s *departmentService) Stats(ctx context.Context) (*dto.DepartmentStatsResponse, error) {
	active := true
	depts, _, err := s.repo.Department.List(ctx, repository.DepartmentFilter{IsActive: &active})
	if err != nil {
		s.logger.Error("list departments failed", zap.Error(err))
		return nil, err
	}
	userRows, err := s.repo.User.CountByDepartment(ctx)
	if err != nil {
		s.logger.Error("count users by department failed", zap.Error(err))
		return nil, err
	}
	locRows, err := s.repo.Location.CountActiveByDepartment(ctx)
	if err != nil {
		s.logger.Error("count locations by department failed", zap.Error(err))
		return nil, err
	}

	users := foldCounts(userRows)
	locations := foldCounts(locRows)

	stats := make([]dto.DepartmentStat, 0, len(depts))
	for i := range depts {
		key := strings.ToLower(depts[i].Name)
		stats = append(stats, dto.DepartmentStat{
			Department:    depts[i].Name,
			LocationCount: locations[key],
			UserCount:     users[key],
			Head:          toUserRef(depts[i].Head),
		})
	}
	return &dto.DepartmentStatsResponse{TotalDepartments: int64(len(depts)), DepartmentStats: stats}, nil
}

func (s *departmentService) Users(ctx context.Context, actor authz.Actor, id string, p *dto.PaginationRequest) (*dto.PageResponse[dto.UserResponse], error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionReadDepartmentMembers}); err != nil {
		return nil, err
	}
	dept, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	active := true
	users, total, err := s.repo.User.List(ctx, repository.UserFilter{
		Department: dept.Name,
		IsActive:   &active,
		Offset:     p.GetOffset(),
		Limit:      p.GetLimit(),
	})
	if err != nil {
		s.logger.Error("list department users failed", zap.String("department_id", id), zap.Error(err))
		return nil, err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}
	return dto.NewPage(items, total, p), nil
}

func (s *departmentService) Locations(ctx context.Context, actor authz.Actor, id string, p *dto.PaginationRequest) (*dto.PageResponse[dto.LocationResponse], error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionReadDepartmentMembers}); err != nil {
		return nil, err
	}
	dept, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	active := true
	locs, total, err := s.repo.Location.List(ctx, repository.LocationFilter{
		Department: dept.Name,
		IsActive:   &active,
		Offset:     p.GetOffset(),
		Limit:      p.GetLimit(),
	})
	if err != nil {
		s.logger.Error("list department locations failed", zap.String("department_id", id), zap.Error(err))
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		items = append(items, toLocationResponse(&locs[i]))
	}
	return dto.NewPage(items, total, p), nil
}

// ────────────────────── Write ──────────────────────

func (s *departmentService) Create(ctx context.Context, actor authz.Actor, req *dto.CreateDepartmentRequest) (*dto.DepartmentResponse, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionWriteDepartment}); err != nil {
		return nil, err
	}

	exists, err := s.repo.Department.ExistsByName(ctx, req.Name, "")
	if err != nil {
		s.logger.Error("check department name failed", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrDepartmentNameTaken
	}

	dept := &model.Department{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if req.HeadID != nil {
		if err := s.checkHead(ctx, *req.HeadID); err != nil {
			return nil, err
		}
		dept.HeadID = req.HeadID
	}
	dept.CreatedBy = actorIDPtr(actor)
	dept.UpdatedBy = actorIDPtr(actor)

	if err := s.repo.Department.Create(ctx, dept); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrDepartmentNameTaken
		}
		s.logger.Error("create department failed", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, dept.DepartmentID)
}

// Update applies a partial update. Renaming does not touch the users or
// locations that carry the old name.
func (s *departmentService) Update(ctx context.Context, actor authz.Actor, id string, req *dto.UpdateDepartmentRequest) (*dto.DepartmentResponse, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionWriteDepartment}); err != nil {
		return nil, err
	}
	dept, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != dept.Name {
		exists, err := s.repo.Department.ExistsByName(ctx, *req.Name, dept.DepartmentID)
		if err != nil {
			s.logger.Error("check department name failed", zap.Error(err))
			return nil, err
		}
		if exists {
			return nil, ErrDepartmentNameTaken
		}
		dept.Name = *req.Name
	}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.HeadID != nil {
		if *req.HeadID == "" {
			dept.HeadID = nil
		} else {
			if err := s.checkHead(ctx, *req.HeadID); err != nil {
				return nil, err
			}
			dept.HeadID = req.HeadID
		}
		dept.Head = nil
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}
	dept.UpdatedBy = actorIDPtr(actor)

	if err := s.repo.Department.Update(ctx, dept); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrDepartmentNameTaken
		}
		s.logger.Error("update department failed", zap.String("department_id", id), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a department nobody active references any more.
func (s *departmentService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if err := authorize(actor, authz.Request{Action: authz.ActionWriteDepartment}); err != nil {
		return err
	}
	dept, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	locCount, err := s.repo.Location.CountActiveInDepartment(ctx, dept.Name)
	if err != nil {
		s.logger.Error("count department locations failed", zap.String("department_id", id), zap.Error(err))
		return err
	}
	if locCount > 0 {
		return ErrDepartmentHasLocations
	}
	userCount, err := s.repo.User.CountActiveInDepartment(ctx, dept.Name)
	if err != nil {
		s.logger.Error("count department users failed", zap.String("department_id", id), zap.Error(err))
		return err
	}
	if userCount > 0 {
		return ErrDepartmentHasUsers
	}

	if err := s.repo.Department.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDepartmentNotFound
		}
		s.logger.Error("delete department failed", zap.String("department_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("department deleted", zap.String("department_id", id), zap.String("actor_id", actor.ActorID()))
	return nil
}

// ────────────────────── helpers ──────────────────────

func (s *departmentService) load(ctx context.Context, id string) (*model.Department, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDepartmentNotFound
	}
	dept, err := s.repo.Department.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		s.logger.Error("load department failed", zap.String("department_id", id), zap.Error(err))
		return nil, err
	}
	return dept, nil
}

func (s *departmentService) checkHead(ctx context.Context, headID string) error {
	if _, err := uuid.Parse(headID); err != nil {
		return ErrInvalidHead
	}
	user, err := s.repo.User.GetByID(ctx, headID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidHead
		}
		s.logger.Error("load head user failed", zap.String("user_id", headID), zap.Error(err))
		return err
	}
	if !user.IsActive {
		return ErrInvalidHead
	}
	return nil
}

func foldCounts(rows []repository.GroupCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[strings.ToLower(r.Key)] += r.Count
	}
	return out
}
