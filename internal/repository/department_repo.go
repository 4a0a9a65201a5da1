package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
)

// DepartmentFilter narrows List.
type DepartmentFilter struct {
	Search   string
	IsActive *bool
	Offset   int
	Limit    int
}

// DepartmentRepository department data access.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByID(ctx context.Context, id string) (*model.Department, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, f DepartmentFilter) ([]model.Department, int64, error)
	Update(ctx context.Context, dept *model.Department) error
	Delete(ctx context.Context, id string) error
}

type departmentRepo struct {
	db *gorm.DB
}

// NewDepartmentRepo creates a DepartmentRepository.
func NewDepartmentRepo(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) Create(ctx context.Context, dept *model.Department) error {
	return translateError(r.db.WithContext(ctx).Omit("Head").Create(dept).Error)
}

func (r *departmentRepo) GetByID(ctx context.Context, id string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Preload("Head").
		Where("department_id = ?", id).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

// ExistsByName compares names case-insensitively.
func (r *departmentRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Department{}).
		Scopes(departmentScope("name", name))
	if excludeID != "" {
		db = db.Where("department_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *departmentRepo) List(ctx context.Context, f DepartmentFilter) ([]model.Department, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Department{}).
		Scopes(searchScope(f.Search, "name", "description"))
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var depts []model.Department
	err := db.Preload("Head").
		Order("name ASC").
		Scopes(pageScope(f.Offset, f.Limit)).
		Find(&depts).Error
	return depts, total, err
}

func (r *departmentRepo) Update(ctx context.Context, dept *model.Department) error {
	return translateError(r.db.WithContext(ctx).Omit("Head").Save(dept).Error)
}

func (r *departmentRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("department_id = ?", id).
		Delete(&model.Department{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
