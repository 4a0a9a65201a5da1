package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
)

// LocationFilter narrows List.
type LocationFilter struct {
	Search     string
	Department string
	IsActive   *bool
	IDs        []string // restrict to these ids when non-nil
	Offset     int
	Limit      int
}

// MediaUpdate describes media written back after an upload.
type MediaUpdate struct {
	AppendImages []string
	// MaxImages caps the stored image count after the append. Zero disables the cap.
	MaxImages    int
	Audio        *string
	Video        *string
	View360      *string
}

// LocationRepository location data access.
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	GetByID(ctx context.Context, id string) (*model.Location, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, f LocationFilter) ([]model.Location, int64, error)
	Update(ctx context.Context, loc *model.Location, columns ...string) error
	UpdateMedia(ctx context.Context, id string, m MediaUpdate, updatedBy string) error
	Delete(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int64, error)
	CountActiveByDepartment(ctx context.Context) ([]GroupCount, error)
	CountActiveInDepartment(ctx context.Context, dept string) (int64, error)
}

type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepo creates a LocationRepository.
func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, loc *model.Location) error {
	return translateError(r.db.WithContext(ctx).Omit("Creator").Create(loc).Error)
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (*model.Location, error) {
	var loc model.Location
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("location_id = ?", id).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *locationRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Location{}).Where("name = ?", name)
	if excludeID != "" {
		db = db.Where("location_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *locationRepo) List(ctx context.Context, f LocationFilter) ([]model.Location, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Location{}).
		Scopes(searchScope(f.Search, "name", "description", "department"))

	if f.Department != "" {
		db = db.Scopes(departmentScope("department", f.Department))
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []model.Location{}, 0, nil
		}
		db = db.Where("location_id IN ?", f.IDs)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var locations []model.Location
	err := db.Preload("Creator").
		Order("created_at DESC").
		Scopes(pageScope(f.Offset, f.Limit)).
		Find(&locations).Error
	return locations, total, err
}

// Update writes only the named columns of loc, plus the audit columns.
// Columns left out, such as images appended by a concurrent upload, keep
// their stored value.
func (r *locationRepo) Update(ctx context.Context, loc *model.Location, columns ...string) error {
	cols := append([]string{"updated_by", "updated_at"}, columns...)
	res := r.db.WithContext(ctx).
		Model(loc).
		Select(cols).
		Omit("Creator").
		Updates(loc)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateMedia appends images and replaces single-asset slots in one statement
// so concurrent uploads do not drop each other's images.
func (r *locationRepo) UpdateMedia(ctx context.Context, id string, m MediaUpdate, updatedBy string) error {
	updates := map[string]interface{}{
		"updated_by": updatedBy,
		"updated_at": gorm.Expr("NOW()"),
	}
	if len(m.AppendImages) > 0 {
		updates["images"] = gorm.Expr("array_cat(images, ?::text[])", model.StringArray(m.AppendImages))
	}
	if m.Audio != nil {
		updates["audio"] = *m.Audio
	}
	if m.Video != nil {
		updates["video"] = *m.Video
	}
	if m.View360 != nil {
		updates["view360"] = *m.View360
	}

	q := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("location_id = ?", id)
	capped := len(m.AppendImages) > 0 && m.MaxImages > 0
	if capped {
		q = q.Where("COALESCE(cardinality(images), 0) + ? <= ?", len(m.AppendImages), m.MaxImages)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if capped {
			var n int64
			if err := r.db.WithContext(ctx).Model(&model.Location{}).Where("location_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrImageLimit
			}
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the location and strips its id from every admin's assignments.
func (r *locationRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("location_id = ?", id).Delete(&model.Location{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.User{}).
			Where("? = ANY(assigned_locations)", id).
			UpdateColumn("assigned_locations", gorm.Expr("array_remove(assigned_locations, ?)", id)).Error
	})
}

func (r *locationRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

// CountActiveByDepartment groups active locations by department as written.
func (r *locationRepo) CountActiveByDepartment(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Select("department AS key, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("department").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *locationRepo) CountActiveInDepartment(ctx context.Context, dept string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("is_active = ?", true).
		Scopes(departmentScope("department", dept)).
		Count(&count).Error
	return count, err
}
