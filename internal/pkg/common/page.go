package common

// PageBounds returns the slice bounds of a 1-based page over total items.
// Pages past the end are empty.
func PageBounds(total, page, limit int) (int, int) {
	if limit <= 0 || page < 1 || page-1 > total/limit {
		return total, total
	}

	start := min((page-1)*limit, total)

	return start, min(start+limit, total)
}
