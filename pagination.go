package confdata

// NormalizePage coerces page/limit parameters into usable values and
// derives the skip offset. Inputs are never rejected: page and limit
// are both clamped to a minimum of 1.
func NormalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	skip := (page - 1) * limit
	return page, limit, skip
}

// TotalPages computes the page count for a result set:
// ceil(total/limit) when limit is positive, else 1.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
