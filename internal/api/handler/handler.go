package handler

import (
	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
)

// Handler aggregates every HTTP handler.
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Location   *LocationHandler
	Department *DepartmentHandler
	Upload     *UploadHandler
	Export     *ExportHandler
}

// NewHandler builds the handler set.
func NewHandler(svc *service.Service, upload *config.UploadConfig) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Location:   NewLocationHandler(svc.Location, upload),
		Department: NewDepartmentHandler(svc.Department),
		Upload:     NewUploadHandler(svc.Upload),
		Export:     NewExportHandler(svc.Export),
	}
}
