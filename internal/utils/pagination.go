package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/constants"
)

// PaginationParams holds the pagination parameters. A zero Limit means unpaginated.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in list responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// NewPage builds params for page (1-based) of size limit, clamped to the allowed range.
func NewPage(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams reads ?page and ?limit from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))
	return NewPage(page, limit)
}

// Response pairs the params with a total count for the response body
func (p PaginationParams) Response(total int64) PaginationResponse {
	return PaginationResponse{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
	}
}
