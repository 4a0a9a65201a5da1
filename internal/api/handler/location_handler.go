package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// multipartOverhead is headroom for form boundaries and text parts.
const multipartOverhead = 1 << 20

// LocationHandler location endpoints.
type LocationHandler struct {
	locationSvc service.LocationService
	upload      *config.UploadConfig
}

// NewLocationHandler creates a LocationHandler.
func NewLocationHandler(locationSvc service.LocationService, upload *config.UploadConfig) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc, upload: upload}
}

// List GET /api/locations
func (h *LocationHandler) List(c *gin.Context) {
	var req dto.LocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.locationSvc.List(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Locations retrieved successfully", gin.H{
		"locations":  page.Items,
		"pagination": page.Pagination,
	})
}

// Managed GET /api/locations/managed
func (h *LocationHandler) Managed(c *gin.Context) {
	var req dto.LocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.locationSvc.Managed(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Managed locations retrieved successfully", gin.H{
		"locations":  page.Items,
		"pagination": page.Pagination,
	})
}

// Stats GET /api/locations/stats
func (h *LocationHandler) Stats(c *gin.Context) {
	stats, err := h.locationSvc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Location statistics retrieved successfully", stats)
}

// ByDepartment GET /api/locations/department/:department
func (h *LocationHandler) ByDepartment(c *gin.Context) {
	locations, err := h.locationSvc.ByDepartment(c.Request.Context(), c.Param("department"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department locations retrieved successfully", locations)
}

// GetByID GET /api/locations/:id
func (h *LocationHandler) GetByID(c *gin.Context) {
	location, err := h.locationSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Location retrieved successfully", location)
}

// Create POST /api/locations
func (h *LocationHandler) Create(c *gin.Context) {
	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Location created successfully", location)
}

// Update PUT /api/locations/:id
func (h *LocationHandler) Update(c *gin.Context) {
	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), actorFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Location updated successfully", location)
}

// Delete DELETE /api/locations/:id
func (h *LocationHandler) Delete(c *gin.Context) {
	if err := h.locationSvc.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Location deleted successfully", nil)
}

// Upload POST /api/locations/:id/upload
// multipart fields: images (or images[]), audio, video, view360.
func (h *LocationHandler) Upload(c *gin.Context) {
	maxBody := int64(h.upload.MaxFiles)*h.upload.MaxFileSize + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondBindError(c, err)
			return
		}
		response.BadRequest(c, "Invalid multipart form",
			pkgerrors.FieldError{Field: "files", Message: "request must be multipart/form-data"})
		return
	}
	defer func() { _ = form.RemoveAll() }()

	files, unexpected := collectMediaFiles(form)
	if len(unexpected) > 0 {
		fields := make([]pkgerrors.FieldError, 0, len(unexpected))
		for _, name := range unexpected {
			fields = append(fields, pkgerrors.FieldError{Field: name, Message: fmt.Sprintf("unexpected file field %q", name)})
		}
		response.BadRequest(c, "Unexpected file field", fields...)
		return
	}

	result, err := h.locationSvc.UploadMedia(c.Request.Context(), actorFrom(c), c.Param("id"), files)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Files uploaded successfully", result)
}

// collectMediaFiles maps multipart parts onto media slots and reports part
// names that match none.
func collectMediaFiles(form *multipart.Form) ([]service.MediaFile, []string) {
	known := map[string]media.Field{"images[]": media.FieldImages}
	for _, f := range media.Fields {
		known[string(f)] = f
	}

	var files []service.MediaFile
	var unexpected []string
	for name, headers := range form.File {
		field, ok := known[name]
		if !ok {
			unexpected = append(unexpected, name)
			continue
		}
		for _, fh := range headers {
			fh := fh
			files = append(files, service.MediaFile{
				Field:    field,
				Filename: fh.Filename,
				Size:     fh.Size,
				Open:     func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}

	sort.Strings(unexpected)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Field < files[j].Field })
	return files, unexpected
}
