package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
)

// UserFilter narrows List.
type UserFilter struct {
	Search     string
	Role       string
	Department string
	IsActive   *bool
	Offset     int
	Limit      int
}

// UserRepository user data access.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, f UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool, updatedBy string) error
	Delete(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int64, error)
	CountActiveByRole(ctx context.Context) ([]GroupCount, error)
	CountByDepartment(ctx context.Context) ([]GroupCount, error)
	CountActiveInDepartment(ctx context.Context, dept string) (int64, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a UserRepository.
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if excludeID != "" {
		db = db.Where("user_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *userRepo) List(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.User{}).
		Scopes(searchScope(f.Search, "name", "email", "department"))

	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}
	if f.Department != "" {
		db = db.Scopes(departmentScope("department", f.Department))
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := db.Order("created_at DESC").
		Scopes(pageScope(f.Offset, f.Limit)).
		Find(&users).Error
	return users, total, err
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Save(user).Error)
}

// UpdateLastLogin touches only last_login so a concurrent profile edit is not overwritten.
func (r *userRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		UpdateColumn("last_login", at).Error
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    gorm.Expr("NOW()"),
		}).Error
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", id).
		Delete(&model.User{}).Error
}

func (r *userRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *userRepo) CountActiveByRole(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("role AS key, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("role").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

// CountByDepartment counts active users per lower-cased department name.
func (r *userRepo) CountByDepartment(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("LOWER(department) AS key, COUNT(*) AS count").
		Where("is_active = ? AND department IS NOT NULL", true).
		Group("LOWER(department)").
		Scan(&rows).Error
	return rows, err
}

func (r *userRepo) CountActiveInDepartment(ctx context.Context, dept string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("is_active = ?", true).
		Scopes(departmentScope("department", dept)).
		Count(&count).Error
	return count, err
}
