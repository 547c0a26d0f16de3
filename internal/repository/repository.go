// Package repository declares the storage interfaces the services depend on.
// Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"
	"errors"

	"github.com/jenilmangukiya/blog-backend/internal/model"
)

// ErrRefreshTokenMismatch is returned by RotateRefreshToken when the stored
// refresh token no longer equals the expected value, i.e. another rotation
// or a logout happened first.
var ErrRefreshTokenMismatch = errors.New("repository: refresh token mismatch")

type ListOptions struct {
	Limit  int
	Offset int
}

// Blog sort columns accepted by BlogListOptions.SortBy.
const (
	SortByTitle       = "title"
	SortByDescription = "description"
	SortByCreatedAt   = "createdAt"
)

// BlogListOptions filters and orders a blog listing. Query is matched
// case-insensitively against title and description. An empty SortBy lists
// newest first.
type BlogListOptions struct {
	ListOptions
	OwnerID  string
	Query    string
	SortBy   string
	SortDesc bool
}

// UserRepository is the credential store. Every method touches a single row
// in a single statement.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, int, error)
	UpdateProfile(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	ResetPassword(ctx context.Context, id, passwordHash string) error
	SetRefreshToken(ctx context.Context, id, token string) error
	RotateRefreshToken(ctx context.Context, id, expected, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type BlogRepository interface {
	Create(ctx context.Context, blog *model.Blog) error
	GetByID(ctx context.Context, id string) (*model.Blog, error)
	List(ctx context.Context, opts BlogListOptions) ([]model.Blog, int, error)
	Update(ctx context.Context, id string, patch model.BlogPatch) (*model.Blog, error)
	Delete(ctx context.Context, id string) error
}
