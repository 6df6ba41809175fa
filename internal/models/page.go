package models

// Pagination defaults shared by every listing.
const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// Page selects one page of a listing. Page numbers start at 1.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps raw page parameters into a valid Page.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

// Limit returns the SQL LIMIT for the page.
func (p Page) Limit() int {
	return NewPage(p.Number, p.PerPage).PerPage
}

// Offset returns the SQL OFFSET for the page.
func (p Page) Offset() int {
	n := NewPage(p.Number, p.PerPage)
	return (n.Number - 1) * n.PerPage
}

// Pagination describes where a page sits within the full result set.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate builds the Pagination block for a page given the total count.
func Paginate(p Page, total int) Pagination {
	n := NewPage(p.Number, p.PerPage)
	pages := (total + n.PerPage - 1) / n.PerPage
	return Pagination{Page: n.Number, PerPage: n.PerPage, Total: total, TotalPages: pages}
}
