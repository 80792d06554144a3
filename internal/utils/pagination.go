package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and limit query params with sane defaults.
func ParsePagination(c *fiber.Ctx) Pagination {
	return NewPagination(parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), DefaultLimit))
}

// NewPagination normalises page and limit: page defaults to 1, limit to DefaultLimit and is capped at MaxLimit.
func NewPagination(page, limit int) Pagination {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// PageInfo is the pagination block returned with list responses.
type PageInfo struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// Info reports how many items the current page holds given the total count.
func (p Pagination) Info(total int64) PageInfo {
	remaining := total - int64(p.Page-1)*int64(p.Limit)
	size := int64(p.Limit)
	if remaining < size {
		size = remaining
	}
	if size < 0 {
		size = 0
	}

	return PageInfo{
		Page:     p.Page,
		Limit:    p.Limit,
		PageSize: int(size),
		Total:    total,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
