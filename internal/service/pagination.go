package service

import "math"

// Listing bounds shared by every paginated endpoint.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// MaxPage keeps (page-1)*limit far from overflowing int.
	MaxPage = math.MaxInt32
)

// pageBounds clamps page to 1..MaxPage and limit to 1..MaxPageLimit, then
// converts to a row offset.
func pageBounds(page, limit int) (p, l, offset int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit, (page - 1) * limit
}
