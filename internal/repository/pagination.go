package repository

import (
	"github.com/alexanderramin/timekeeper/internal/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is an offset pagination request. Zero values select the defaults.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and caps the limit. Negative values are
// rejected.
func (p Page) Normalize() (Page, error) {
	if p.Page < 0 {
		return Page{}, apperr.WithMetadata(apperr.CodeValidation, "page must not be negative",
			map[string]string{"field": "page"})
	}
	if p.Limit < 0 {
		return Page{}, apperr.WithMetadata(apperr.CodeValidation, "limit must not be negative",
			map[string]string{"field": "limit"})
	}
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p, nil
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// totalPages is ceil(total/limit), zero when there are no rows.
func totalPages(total, limit int) int {
	if total == 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
