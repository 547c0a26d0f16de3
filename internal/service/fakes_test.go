package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/repository"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// In-memory stand-ins for the SQLite store. They return the same apperror
// kinds the real store returns, so the services behave identically.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errDiskFull = errors.New("disk full")

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	// failWith, when set, is returned by every call.
	failWith error
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", "email "+user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.nextID, 0, time.UTC)
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) List(_ context.Context, opts repository.ListOptions) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	all := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, opts), len(all), nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	if patch.Email != nil {
		for _, other := range m.users {
			if other.ID != id && other.Email == *patch.Email {
				return nil, apperror.Conflict("user", "email "+*patch.Email)
			}
		}
		u.Email = *patch.Email
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) ResetPassword(_ context.Context, id, hash string) error {
	return m.mutate(id, func(u *model.User) {
		u.PasswordHash = hash
		u.RefreshToken = ""
	})
}

func (m *mockUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	return m.mutate(id, func(u *model.User) { u.RefreshToken = token })
}

func (m *mockUserRepo) RotateRefreshToken(_ context.Context, id, expected, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	u, ok := m.users[id]
	if !ok || expected == "" || u.RefreshToken != expected {
		return repository.ErrRefreshTokenMismatch
	}
	u.RefreshToken = next
	return nil
}

func (m *mockUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	return m.mutate(id, func(u *model.User) { u.RefreshToken = "" })
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) mutate(id string, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	fn(u)
	return nil
}

// stored returns the repository's own copy of a user, bypassing the
// copy-on-read the interface methods do.
func (m *mockUserRepo) stored(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type mockBlogRepo struct {
	blogs    map[string]*model.Blog
	nextID   int
	lastList repository.BlogListOptions
	failWith error
}

var _ repository.BlogRepository = (*mockBlogRepo)(nil)

func newMockBlogRepo() *mockBlogRepo {
	return &mockBlogRepo{blogs: make(map[string]*model.Blog)}
}

func (m *mockBlogRepo) Create(_ context.Context, blog *model.Blog) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	blog.ID = fmt.Sprintf("blog-%d", m.nextID)
	stored := *blog
	m.blogs[blog.ID] = &stored
	return nil
}

func (m *mockBlogRepo) GetByID(_ context.Context, id string) (*model.Blog, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	b, ok := m.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", id)
	}
	result := *b
	return &result, nil
}

func (m *mockBlogRepo) List(_ context.Context, opts repository.BlogListOptions) ([]model.Blog, int, error) {
	m.lastList = opts
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	var all []model.Blog
	for _, b := range m.blogs {
		if opts.OwnerID != "" && b.Owner != opts.OwnerID {
			continue
		}
		if opts.Query != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(opts.Query)) {
			continue
		}
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return windowBlogs(all, opts.ListOptions), len(all), nil
}

func (m *mockBlogRepo) Update(_ context.Context, id string, patch model.BlogPatch) (*model.Blog, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	b, ok := m.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", id)
	}
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Description != nil {
		b.Description = *patch.Description
	}
	if patch.Thumbnail != nil {
		b.Thumbnail = *patch.Thumbnail
	}
	result := *b
	return &result, nil
}

func (m *mockBlogRepo) Delete(_ context.Context, id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.blogs[id]; !ok {
		return apperror.NotFound("blog", id)
	}
	delete(m.blogs, id)
	return nil
}

func window(users []model.User, opts repository.ListOptions) []model.User {
	if opts.Offset >= len(users) {
		return []model.User{}
	}
	users = users[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(users) {
		users = users[:opts.Limit]
	}
	return users
}

func windowBlogs(blogs []model.Blog, opts repository.ListOptions) []model.Blog {
	if opts.Offset >= len(blogs) {
		return []model.Blog{}
	}
	blogs = blogs[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(blogs) {
		blogs = blogs[:opts.Limit]
	}
	return blogs
}

// =========================================================================
// MOCK MEDIA HOST
// =========================================================================

type mockMedia struct {
	uploaded  []string
	removed   []string
	nextID    int
	uploadErr error
	removeErr error
}

var _ media.Host = (*mockMedia)(nil)

func (m *mockMedia) Upload(_ context.Context, f media.File) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.nextID++
	url := fmt.Sprintf("https://cdn.test/blog-backend/%d-%s", m.nextID, f.Name)
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *mockMedia) Remove(_ context.Context, url string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, url)
	return nil
}

func image(name string) media.File {
	return media.File{Name: name, Reader: strings.NewReader("fake image bytes")}
}
