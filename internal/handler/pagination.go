package handler

import (
	"net/http"
	"strconv"
)

// Access log listings page newest-first; the cap keeps a single request from
// dragging an entire audit trail across the wire.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset query parameters, falling back to
// safe defaults on anything missing, malformed or out of range.
func ParsePagination(r *http.Request) PaginationParams {
	p := PaginationParams{Limit: DefaultLimit}

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		p.Limit = limit
		if p.Limit > MaxLimit {
			p.Limit = MaxLimit
		}
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		p.Offset = offset
	}

	return p
}
