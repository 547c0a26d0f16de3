package model

import "time"

// Blog is a published post. Thumbnail is the public URL of the image on the
// media host; Owner is the ID of the user who created the post.
type Blog struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BlogPatch is a partial blog update. Nil fields are left unchanged.
type BlogPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

func (p BlogPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Thumbnail == nil
}

// Page is one page of a paginated listing, shaped like the listing
// responses clients of this API already consume.
type Page[T any] struct {
	Docs        []T  `json:"docs"`
	TotalDocs   int  `json:"totalDocs"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	HasPrevPage bool `json:"hasPrevPage"`
	HasNextPage bool `json:"hasNextPage"`
	PrevPage    *int `json:"prevPage"`
	NextPage    *int `json:"nextPage"`
}

// NewPage computes the page metadata for docs taken from a result set of
// total rows, with the given 1-based page number and page size.
func NewPage[T any](docs []T, total, page, limit int) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	p := Page[T]{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	return p
}
