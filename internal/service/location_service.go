package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
)

// uploadConcurrency bounds parallel transfers to object storage per request.
const uploadConcurrency = 4

// maxLocationImages matches the images limit accepted on create and update.
const maxLocationImages = 20

var (
	ErrLocationNotFound = pkgerrors.NotFound("Location not found")
	ErrLocationNameTaken = pkgerrors.Conflict("name", "Location with this name already exists")
)

// MediaFile is one file of a multipart upload.
type MediaFile struct {
	Field    media.Field
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// LocationService location management.
type LocationService interface {
	List(ctx context.Context, actor authz.Actor, req *dto.LocationListRequest) (*dto.PageResponse[dto.LocationResponse], error)
	GetByID(ctx context.Context, id string) (*dto.LocationResponse, error)
	ByDepartment(ctx context.Context, department string) ([]dto.LocationResponse, error)
	Stats(ctx context.Context) (*dto.LocationStatsResponse, error)
	Managed(ctx context.Context, actor authz.Actor, req *dto.LocationListRequest) (*dto.PageResponse[dto.LocationResponse], error)
	Create(ctx context.Context, actor authz.Actor, req *dto.CreateLocationRequest) (*dto.LocationResponse, error)
	Update(ctx context.Context, actor authz.Actor, id string, req *dto.UpdateLocationRequest) (*dto.LocationResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	UploadMedia(ctx context.Context, actor authz.Actor, id string, files []MediaFile) (*dto.UploadMediaResponse, error)
}

type locationService struct {
	cfg      *config.Config
	repo     *repository.Repository
	uploader media.Uploader
	logger   *zap.Logger
}

// NewLocationService creates a LocationService. A nil uploader disables
// server-side uploads.
func NewLocationService(cfg *config.Config, repo *repository.Repository, uploader media.Uploader, logger *zap.Logger) LocationService {
	if uploader == nil {
		uploader = media.Disabled{}
	}
	return &locationService{cfg: cfg, repo: repo, uploader: uploader, logger: logger}
}

// ────────────────────── Read ──────────────────────

func (s *locationService) List(ctx context.Context, actor authz.Actor, req *dto.LocationListRequest) (*dto.PageResponse[dto.LocationResponse], error) {
	active := boolOr(req.IsActive, true)
	f := repository.LocationFilter{
		Search:     req.Search,
		Department: req.Department,
		IsActive:   &active,
		Offset:     req.GetOffset(),
		Limit:      req.GetLimit(),
	}
	if da, ok := actor.(authz.DepartmentAdmin); ok && s.cfg.Feature.ScopeLists {
		f.Department = da.Department
	}
	return s.page(ctx, f, &req.PaginationRequest)
}

func (s *locationService) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	loc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toLocationResponse(loc)
	return &resp, nil
}

// ByDepartment returns every active location of department, matched
// case-insensitively.
func (s *locationService) ByDepartment(ctx context.Context, department string) ([]dto.LocationResponse, error) {
	active := true
	locs, _, err := s.repo.Location.List(ctx, repository.LocationFilter{
		Department: strings.TrimSpace(department),
		IsActive:   &active,
	})
	if err != nil {
		s.logger.Error("list locations by department failed", zap.String("department", department), zap.Error(err))
		return nil, err
	}
	out := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		out = append(out, toLocationResponse(&locs[i]))
	}
	return out, nil
}

func (s *locationService) Stats(ctx context.Context) (*dto.LocationStatsResponse, error) {
	total, err := s.repo.Location.CountActive(ctx)
	if err != nil {
		s.logger.Error("count locations failed", zap.Error(err))
		return nil, err
	}
	byDept, err := s.repo.Location.CountActiveByDepartment(ctx)
	if err != nil {
		s.logger.Error("count locations by department failed", zap.Error(err))
		return nil, err
	}
	return &dto.LocationStatsResponse{TotalLocations: total, DepartmentDistribution: toCounts(byDept)}, nil
}

// Managed lists the locations actor may edit: everything for a superAdmin,
// the assignment list for a departmentAdmin.
func (s *locationService) Managed(ctx context.Context, actor authz.Actor, req *dto.LocationListRequest) (*dto.PageResponse[dto.LocationResponse], error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionReadManagedLocations}); err != nil {
		return nil, err
	}
	f := repository.LocationFilter{
		Search:     req.Search,
		Department: req.Department,
		IsActive:   req.IsActive,
		Offset:     req.GetOffset(),
		Limit:      req.GetLimit(),
	}
	if da, ok := actor.(authz.DepartmentAdmin); ok {
		f.IDs = append([]string{}, da.AssignedLocations...)
	}
	return s.page(ctx, f, &req.PaginationRequest)
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, actor authz.Actor, req *dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionCreateLocation}); err != nil {
		return nil, err
	}

	exists, err := s.repo.Location.ExistsByName(ctx, req.Name, "")
	if err != nil {
		s.logger.Error("check location name failed", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrLocationNameTaken
	}

	category := req.Category
	if category == "" {
		category = model.CategoryAcademic
	}
	images := model.StringArray(req.Images)
	if images == nil {
		images = model.StringArray{}
	}

	loc := &model.Location{
		Name:        req.Name,
		Description: req.Description,
		Department:  req.Department,
		Category:    category,
		Latitude:    *req.Coordinates.Latitude,
		Longitude:   *req.Coordinates.Longitude,
		Images:      images,
		Audio:       req.Audio,
		Video:       req.Video,
		View360:     req.View360,
		IsActive:    true,
	}
	loc.CreatedBy = actorIDPtr(actor)
	loc.UpdatedBy = actorIDPtr(actor)

	if err := s.repo.Location.Create(ctx, loc); err != nil {
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrLocationNameTaken
		}
		s.logger.Error("create location failed", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("location created",
		zap.String("location_id", loc.LocationID),
		zap.String("actor_id", actor.ActorID()))
	return s.GetByID(ctx, loc.LocationID)
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, actor authz.Actor, id string, req *dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	loc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorize(actor, authz.Request{
		Action:         authz.ActionUpdateLocation,
		Location:       &authz.LocationTarget{ID: loc.LocationID, Department: loc.Department},
		LocationChange: &authz.LocationChange{Department: req.Department},
	}); err != nil {
		return nil, err
	}

	var columns []string
	if req.Name != nil && *req.Name != loc.Name {
		exists, err := s.repo.Location.ExistsByName(ctx, *req.Name, loc.LocationID)
		if err != nil {
			s.logger.Error("check location name failed", zap.Error(err))
			return nil, err
		}
		if exists {
			return nil, ErrLocationNameTaken
		}
		loc.Name = *req.Name
		columns = append(columns, "name")
	}
	if req.Description != nil {
		loc.Description = *req.Description
		columns = append(columns, "description")
	}
	if req.Department != nil {
		loc.Department = *req.Department
		columns = append(columns, "department")
	}
	if req.Category != nil {
		loc.Category = *req.Category
		columns = append(columns, "category")
	}
	if c := req.Coordinates; c != nil {
		loc.Latitude = *c.Latitude
		loc.Longitude = *c.Longitude
		columns = append(columns, "latitude", "longitude")
	}
	if req.Images != nil {
		loc.Images = model.StringArray(req.Images)
		columns = append(columns, "images")
	}
	if req.Audio != nil {
		loc.Audio = req.Audio
		columns = append(columns, "audio")
	}
	if req.Video != nil {
		loc.Video = req.Video
		columns = append(columns, "video")
	}
	if req.View360 != nil {
		loc.View360 = req.View360
		columns = append(columns, "view360")
	}
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
		columns = append(columns, "is_active")
	}
	loc.UpdatedBy = actorIDPtr(actor)

	if err := s.repo.Location.Update(ctx, loc, columns...); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		if _, ok := repository.IsDuplicateKey(err); ok {
			return nil, ErrLocationNameTaken
		}
		s.logger.Error("update location failed", zap.String("location_id", id), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *locationService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	loc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, authz.Request{
		Action:   authz.ActionDeleteLocation,
		Location: &authz.LocationTarget{ID: loc.LocationID, Department: loc.Department},
	}); err != nil {
		return err
	}

	if err := s.repo.Location.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLocationNotFound
		}
		s.logger.Error("delete location failed", zap.String("location_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("location deleted", zap.String("location_id", id), zap.String("actor_id", actor.ActorID()))
	return nil
}

// ────────────────────── UploadMedia ──────────────────────

type uploadResult struct {
	url string
	err error
}

// UploadMedia stores files in object storage and attaches the resulting
// URLs to the location. Successful files are kept even when others fail;
// failures come back as a validation error naming each file.
func (s *locationService) UploadMedia(ctx context.Context, actor authz.Actor, id string, files []MediaFile) (*dto.UploadMediaResponse, error) {
	loc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, authz.Request{
		Action:   authz.ActionUploadLocationMedia,
		Location: &authz.LocationTarget{ID: loc.LocationID, Department: loc.Department},
	}); err != nil {
		return nil, err
	}
	if err := s.checkFiles(files); err != nil {
		return nil, err
	}
	if err := checkImageRoom(loc, files); err != nil {
		return nil, err
	}

	results := make([]uploadResult, len(files))
	var g errgroup.Group
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			results[i].url, results[i].err = s.uploadOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	var (
		update   = repository.MediaUpdate{MaxImages: maxLocationImages}
		uploaded = make(map[string][]string)
		failed   []pkgerrors.FieldError
	)
	for i, f := range files {
		r := results[i]
		if r.err != nil {
			s.logger.Warn("media upload failed",
				zap.String("location_id", id),
				zap.String("field", string(f.Field)),
				zap.String("filename", f.Filename),
				zap.Error(r.err))
			failed = append(failed, pkgerrors.FieldError{
				Field:   string(f.Field),
				Message: fmt.Sprintf("%s: %s", f.Filename, uploadFailureMessage(r.err)),
			})
			continue
		}
		uploaded[string(f.Field)] = append(uploaded[string(f.Field)], r.url)
		url := r.url
		switch f.Field {
		case media.FieldImages:
			update.AppendImages = append(update.AppendImages, url)
		case media.FieldAudio:
			update.Audio = &url
		case media.FieldVideo:
			update.Video = &url
		case media.FieldView360:
			update.View360 = &url
		}
	}

	if len(uploaded) > 0 {
		if err := s.repo.Location.UpdateMedia(ctx, id, update, actor.ActorID()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrLocationNotFound
			}
			if errors.Is(err, repository.ErrImageLimit) {
				s.logger.Warn("image limit reached while saving uploads", zap.String("location_id", id))
				return nil, imageLimitError()
			}
			s.logger.Error("save media failed", zap.String("location_id", id), zap.Error(err))
			return nil, err
		}
	}

	if len(failed) > 0 {
		return nil, pkgerrors.Validation(
			fmt.Sprintf("%d of %d files failed to upload", len(failed), len(files)), failed...)
	}

	fresh, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.UploadMediaResponse{Location: toLocationResponse(fresh), Uploaded: uploaded}, nil
}

func (s *locationService) uploadOne(ctx context.Context, f MediaFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return s.uploader.Upload(ctx, rc, media.OptionsFor(f.Field, f.Filename))
}

// checkImageRoom rejects uploads that would push the location past
// maxLocationImages.
func checkImageRoom(loc *model.Location, files []MediaFile) error {
	n := 0
	for _, f := range files {
		if f.Field == media.FieldImages {
			n++
		}
	}
	if n > 0 && len(loc.Images)+n > maxLocationImages {
		return imageLimitError()
	}
	return nil
}

func imageLimitError() error {
	msg := fmt.Sprintf("A location can hold at most %d images", maxLocationImages)
	return pkgerrors.Validation(msg, pkgerrors.FieldError{Field: string(media.FieldImages), Message: msg})
}

// checkFiles enforces count, size and type limits before anything is sent.
func (s *locationService) checkFiles(files []MediaFile) error {
	if len(files) == 0 {
		msg := "No files uploaded"
		return pkgerrors.Validation(msg, pkgerrors.FieldError{Field: "files", Message: msg})
	}
	limits := s.cfg.Upload
	if len(files) > limits.MaxFiles {
		msg := fmt.Sprintf("At most %d files can be uploaded at once", limits.MaxFiles)
		return pkgerrors.Validation(msg, pkgerrors.FieldError{Field: "files", Message: msg})
	}

	var fields []pkgerrors.FieldError
	counts := make(map[media.Field]int)
	for _, f := range files {
		counts[f.Field]++
		if !media.AllowedExtension(f.Field, f.Filename) {
			fields = append(fields, pkgerrors.FieldError{
				Field: string(f.Field),
				Message: fmt.Sprintf("%s: unsupported file type, allowed: %s",
					f.Filename, strings.Join(media.Extensions(f.Field), ", ")),
			})
		}
		if f.Size > limits.MaxFileSize {
			fields = append(fields, pkgerrors.FieldError{
				Field:   string(f.Field),
				Message: fmt.Sprintf("%s: file exceeds %d bytes", f.Filename, limits.MaxFileSize),
			})
		}
	}
	for _, field := range media.Fields {
		allowed := 1
		if field == media.FieldImages {
			allowed = limits.MaxImages
		}
		if counts[field] > allowed {
			fields = append(fields, pkgerrors.FieldError{
				Field:   string(field),
				Message: fmt.Sprintf("At most %d %s file(s) allowed", allowed, field),
			})
		}
	}
	if len(fields) > 0 {
		return pkgerrors.Validation("Invalid upload", fields...)
	}
	return nil
}

func uploadFailureMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrNotConfigured):
		return "media storage is not configured"
	case errors.Is(err, media.ErrStorageUnavailable):
		return "media storage is temporarily unavailable, retry later"
	default:
		return "upload failed, retry this file"
	}
}

// ────────────────────── helpers ──────────────────────

func (s *locationService) load(ctx context.Context, id string) (*model.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrLocationNotFound
	}
	loc, err := s.repo.Location.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		s.logger.Error("load location failed", zap.String("location_id", id), zap.Error(err))
		return nil, err
	}
	return loc, nil
}

func (s *locationService) page(ctx context.Context, f repository.LocationFilter, p *dto.PaginationRequest) (*dto.PageResponse[dto.LocationResponse], error) {
	locs, total, err := s.repo.Location.List(ctx, f)
	if err != nil {
		s.logger.Error("list locations failed", zap.Error(err))
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		items = append(items, toLocationResponse(&locs[i]))
	}
	return dto.NewPage(items, total, p), nil
}
