package shared

import "math"

// DefaultPerPage is used when callers omit a page size.
const DefaultPerPage = 20

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the [start, end) slice indexes of the current page, clamped
// to Total. Pages past the end yield an empty range.
func (p Pagination) Bounds() (int, int) {
	if p.Total <= 0 || p.PerPage <= 0 || p.Page < 1 || p.Page-1 >= p.TotalPages {
		return max(p.Total, 0), max(p.Total, 0)
	}
	start := (p.Page - 1) * p.PerPage
	if start > p.Total {
		start = p.Total
	}
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}
