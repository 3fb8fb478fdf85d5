package browse

// Pagination is the page indicator of a listing: "Page X of Y".
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	PageSize   int `json:"page_size"`
}

func (p Pagination) HasPrevious() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool     { return p.Page < p.TotalPages }

// Paginate returns the items of the 1-indexed page. Pages outside the range
// of items, and non-positive sizes, yield an empty slice.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size < 1 {
		return []T{}
	}

	total := len(items)
	start := (page - 1) * size
	if start >= total {
		return []T{}
	}
	end := start + size
	if end > total {
		end = total
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// TotalPages is ceil(count/size) but never less than 1, so an empty listing
// still reads "Page 1 of 1".
func TotalPages(count, size int) int {
	if size < 1 || count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// Previous moves one page back, staying on page 1 at the start.
func Previous(page, totalPages int) int {
	return clampPage(page-1, totalPages)
}

// Next moves one page forward, staying on the last page at the end.
func Next(page, totalPages int) int {
	return clampPage(page+1, totalPages)
}

func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
