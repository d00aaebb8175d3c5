package pagination

import "strconv"

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Calculate turns a 1-based page and a size into an offset and a limit.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxSize {
		size = DefaultSize
	}
	return (page - 1) * size, size
}

// Normalize returns the page and size Calculate actually used.
func Normalize(page, size int) (int, int) {
	offset, limit := Calculate(page, size)
	return offset/limit + 1, limit
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
