// Package pagination converts page/limit requests into skip/limit windows.
package pagination

import "strconv"

// Config bounds page sizes.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Defaults used by list endpoints.
var (
	Projects    = Config{DefaultLimit: 10, MaxLimit: 100}
	Tasks       = Config{DefaultLimit: 50, MaxLimit: 200}
	Invitations = Config{DefaultLimit: 10, MaxLimit: 100}
)

// Request is a requested page.
type Request struct {
	Page  int
	Limit int
}

// Page describes the computed window and its position in the result set.
type Page struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	Skip        int  `json:"skip"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// Normalize applies defaults and clamps the page size.
func (c Config) Normalize(req Request) Request {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = c.DefaultLimit
	}
	if c.MaxLimit > 0 && req.Limit > c.MaxLimit {
		req.Limit = c.MaxLimit
	}
	if req.Limit <= 0 {
		req.Limit = 1
	}
	return req
}

// Compute returns the window for req over total records.
func (c Config) Compute(req Request, total int) Page {
	req = c.Normalize(req)
	totalPages := 0
	if total > 0 {
		totalPages = (total + req.Limit - 1) / req.Limit
	}
	return Page{
		CurrentPage: req.Page,
		PageSize:    req.Limit,
		Skip:        (req.Page - 1) * req.Limit,
		TotalPages:  totalPages,
		Total:       total,
		HasNext:     req.Page < totalPages,
		HasPrev:     req.Page > 1,
	}
}

// Parse reads page and limit from query-string values. Malformed values fall
// back to the defaults.
func Parse(page, limit string) Request {
	p, _ := strconv.Atoi(page)
	l, _ := strconv.Atoi(limit)
	return Request{Page: p, Limit: l}
}
