// utils/paging.go - offset pagination helpers
package utils

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page normalizes a 1-based page and a limit and returns the row offset.
func Page(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, (page - 1) * limit
}

// TotalPages rounds total/limit up.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
