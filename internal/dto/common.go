package dto

import "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PaginationRequest common page/limit query parameters.
type PaginationRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// GetPage returns the 1-indexed page, defaulting to 1.
func (p *PaginationRequest) GetPage() int {
	if p.Page < 1 {
		return DefaultPage
	}
	return p.Page
}

// GetLimit returns the page size, defaulting to 10 and capped at 100.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit < 1:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// GetOffset returns the row offset for the current page.
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetLimit()
}

// PageResponse is a page of items with pagination metadata.
type PageResponse[T any] struct {
	Items      []T                 `json:"items"`
	Pagination response.Pagination `json:"pagination"`
}

// NewPage builds a page response.
func NewPage[T any](items []T, total int64, p *PaginationRequest) *PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResponse[T]{
		Items:      items,
		Pagination: response.NewPagination(total, p.GetPage(), p.GetLimit()),
	}
}

// CountByKey is one bucket of a grouped count.
type CountByKey struct {
	Key   string `json:"_id"`
	Count int64  `json:"count"`
}
