package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
)

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"statusCode"`
	Errors     []pkgerrors.FieldError `json:"errors,omitempty"`
}

// Pagination page metadata.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total items at limit per page.
func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(total) / limit
		if int(total)%limit > 0 {
			pages++
		}
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// ── success ──

// OK 200.
func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created 201.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// ── errors ──

// Fail writes the error envelope with the given status.
func Fail(c *gin.Context, status int, message string, fields ...pkgerrors.FieldError) {
	c.JSON(status, ErrorResponse{
		Success:    false,
		Message:    message,
		StatusCode: status,
		Errors:     fields,
	})
}

// AppError writes a typed application error. Internal errors never leak their cause.
func AppError(c *gin.Context, err *pkgerrors.Error) {
	status := err.Status()
	msg := err.Message
	if status >= http.StatusInternalServerError {
		msg = "Internal server error"
	}
	Fail(c, status, msg, err.Fields...)
}

// BadRequest 400.
func BadRequest(c *gin.Context, message string, fields ...pkgerrors.FieldError) {
	Fail(c, http.StatusBadRequest, message, fields...)
}

// Unauthorized 401.
func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, message)
}

// Forbidden 403.
func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, message)
}

// NotFound 404.
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

// InternalError 500.
func InternalError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, "Internal server error")
}
