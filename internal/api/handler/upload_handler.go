package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// UploadHandler direct-upload signing.
type UploadHandler struct {
	uploadSvc service.UploadService
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploadSvc service.UploadService) *UploadHandler {
	return &UploadHandler{uploadSvc: uploadSvc}
}

// Sign POST /api/uploads/sign
func (h *UploadHandler) Sign(c *gin.Context) {
	var req dto.SignUploadRequest
	// An empty body signs for the default folder.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	signed, err := h.uploadSvc.Sign(c.Request.Context(), actorFrom(c), req.Folder)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Upload signed successfully", signed)
}
