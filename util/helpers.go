// Package util provides small helpers shared by the REST handlers.
//
//revive:disable-next-line:var-naming
package util

import (
	"errors"
	"strconv"
	"strings"
)

// Pagination defaults and bounds
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ErrInvalidPagination is returned for a page below 1 or a limit outside 1..MaxLimit
var ErrInvalidPagination = errors.New("invalid pagination parameters")

// ParsePagination reads page and limit query values. Empty values take the
// defaults; anything that is not an integer in range is rejected.
func ParsePagination(pageStr, limitStr string) (page, limit int, err error) {
	page, limit = DefaultPage, DefaultLimit

	if s := strings.TrimSpace(pageStr); s != "" {
		if page, err = strconv.Atoi(s); err != nil || page < 1 {
			return 0, 0, ErrInvalidPagination
		}
	}
	if s := strings.TrimSpace(limitStr); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, ErrInvalidPagination
		}
	}
	return page, limit, nil
}

// Offset returns the number of records before page
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// TotalPages returns how many pages of limit records hold total records
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// IsEmpty checks if a string is empty after trimming whitespace
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
