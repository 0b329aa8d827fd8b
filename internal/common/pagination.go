package common

import (
	"net/http"
	"strconv"
)

// Pagination is the page window echoed back on list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads page and limit from the query. Missing or invalid
// values fall back to page 1 and defaultPerPage; limit is capped at maxPerPage.
func ParsePagination(r *http.Request, defaultPerPage, maxPerPage int) Pagination {
	p := Pagination{Page: 1, PerPage: defaultPerPage}
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		p.PerPage = n
	}
	if maxPerPage > 0 && p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

// Window records total on p and returns the slice bounds of the current page.
func (p *Pagination) Window(total int) (start, end int) {
	p.TotalItems = total
	start = min((p.Page-1)*p.PerPage, total)
	end = min(start+p.PerPage, total)
	return start, end
}
