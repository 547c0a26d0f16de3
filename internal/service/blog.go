// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes to the database
//
// Services take repository interfaces, never concrete stores, and return
// apperror values that the handler layer maps to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 50000
)

// BlogService handles business logic for blog posts.
type BlogService struct {
	blogs  repository.BlogRepository
	media  media.Host
	logger *slog.Logger

	// title is plain text: markup is stripped and the literal text stored.
	// description is an HTML fragment: safe formatting is kept and text is
	// entity-escaped, so "a & b" is stored as "a &amp; b".
	title       *bluemonday.Policy
	description *bluemonday.Policy
}

func NewBlogService(blogs repository.BlogRepository, host media.Host, logger *slog.Logger) *BlogService {
	return &BlogService{
		blogs:       blogs,
		media:       host,
		logger:      logger,
		title:       bluemonday.StrictPolicy(),
		description: bluemonday.UGCPolicy(),
	}
}

// BlogQuery is a listing request as it arrives from the client.
type BlogQuery struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string // title, description (or desc), createdAt
	SortType string // asc or desc
	OwnerID  string
}

// BlogInput is a blog edit. Nil fields are left unchanged.
type BlogInput struct {
	Title       *string
	Description *string
}

// Create validates and saves a new blog owned by actor. The thumbnail is
// required and is uploaded before the row is written.
func (s *BlogService) Create(ctx context.Context, actor *model.User, title, description string, thumbnail *media.File) (*model.Blog, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated("unauthorized request")
	}

	title, err := s.cleanTitle(title)
	if err != nil {
		return nil, err
	}
	description, err = s.cleanDescription(description)
	if err != nil {
		return nil, err
	}
	if thumbnail == nil {
		return nil, apperror.ValidationFailed("thumbnail", "thumbnail is required")
	}

	url, err := upload(ctx, s.media, s.logger, "thumbnail", *thumbnail)
	if err != nil {
		return nil, err
	}

	blog := &model.Blog{
		Title:       title,
		Description: description,
		Thumbnail:   url,
		Owner:       actor.ID,
	}
	if err := s.blogs.Create(ctx, blog); err != nil {
		removeQuietly(ctx, s.media, s.logger, url)
		return nil, s.passThrough("creating blog", err)
	}

	s.logger.Info("blog created",
		slog.String("id", blog.ID),
		slog.String("owner", actor.ID),
	)
	return blog, nil
}

// List returns one page of blogs matching q.
//
// Without SortBy the newest blogs come first. With SortBy the default
// direction is ascending.
func (s *BlogService) List(ctx context.Context, q BlogQuery) (model.Page[model.Blog], error) {
	opts := repository.BlogListOptions{
		OwnerID: strings.TrimSpace(q.OwnerID),
		Query:   strings.TrimSpace(q.Query),
	}

	switch strings.TrimSpace(q.SortBy) {
	case "":
	case "title":
		opts.SortBy = repository.SortByTitle
	case "description", "desc":
		opts.SortBy = repository.SortByDescription
	case "createdAt":
		opts.SortBy = repository.SortByCreatedAt
	default:
		return model.Page[model.Blog]{}, apperror.ValidationFailed("sortBy",
			"sortBy must be one of title, description, createdAt")
	}

	switch strings.ToLower(strings.TrimSpace(q.SortType)) {
	case "", "asc":
	case "desc":
		opts.SortDesc = true
	default:
		return model.Page[model.Blog]{}, apperror.ValidationFailed("sortType", "sortType must be asc or desc")
	}

	page, limit, offset := pageBounds(q.Page, q.Limit)
	opts.Limit, opts.Offset = limit, offset

	blogs, total, err := s.blogs.List(ctx, opts)
	if err != nil {
		return model.Page[model.Blog]{}, s.passThrough("listing blogs", err)
	}
	return model.NewPage(blogs, total, page, limit), nil
}

// Get retrieves a blog by its ID.
func (s *BlogService) Get(ctx context.Context, id string) (*model.Blog, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("blogId", "blog ID is required")
	}

	blog, err := s.blogs.GetByID(ctx, id)
	if err != nil {
		return nil, s.passThrough("getting blog", err)
	}
	return blog, nil
}

// Update edits a blog. Only the owner or a superadmin may do so. A new
// thumbnail replaces the old one, which is then removed.
func (s *BlogService) Update(ctx context.Context, actor *model.User, id string, in BlogInput, thumbnail *media.File) (*model.Blog, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.OwnsOrIsSuperAdmin(actor, existing.Owner) {
		return nil, apperror.Forbidden("you can only edit your own blogs")
	}

	var patch model.BlogPatch
	if in.Title != nil {
		title, err := s.cleanTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if in.Description != nil {
		description, err := s.cleanDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		patch.Description = &description
	}
	if thumbnail != nil {
		url, err := upload(ctx, s.media, s.logger, "thumbnail", *thumbnail)
		if err != nil {
			return nil, err
		}
		patch.Thumbnail = &url
	}
	if patch.Empty() {
		return nil, apperror.ValidationFailed("", "nothing to update")
	}

	blog, err := s.blogs.Update(ctx, existing.ID, patch)
	if err != nil {
		if patch.Thumbnail != nil {
			removeQuietly(ctx, s.media, s.logger, *patch.Thumbnail)
		}
		return nil, s.passThrough("updating blog", err)
	}

	if patch.Thumbnail != nil && existing.Thumbnail != *patch.Thumbnail {
		removeQuietly(ctx, s.media, s.logger, existing.Thumbnail)
	}

	s.logger.Info("blog updated",
		slog.String("id", blog.ID),
		slog.String("by", actor.ID),
	)
	return blog, nil
}

// Delete removes a blog and, best-effort, its thumbnail. Only the owner or a
// superadmin may do so.
func (s *BlogService) Delete(ctx context.Context, actor *model.User, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.OwnsOrIsSuperAdmin(actor, existing.Owner) {
		return apperror.Forbidden("you can only delete your own blogs")
	}

	if err := s.blogs.Delete(ctx, existing.ID); err != nil {
		return s.passThrough("deleting blog", err)
	}

	removeQuietly(ctx, s.media, s.logger, existing.Thumbnail)

	s.logger.Info("blog deleted",
		slog.String("id", existing.ID),
		slog.String("by", actor.ID),
	)
	return nil
}

func (s *BlogService) cleanTitle(title string) (string, error) {
	// Sanitize escapes the text it keeps; unescaping restores what the
	// client typed, minus any tags.
	title = strings.TrimSpace(html.UnescapeString(s.title.Sanitize(title)))
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

func (s *BlogService) cleanDescription(description string) (string, error) {
	description = strings.TrimSpace(s.description.Sanitize(description))
	if description == "" {
		return "", apperror.ValidationFailed("description", "description is required")
	}
	if len(description) > MaxDescriptionLength {
		return "", apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return description, nil
}

func (s *BlogService) passThrough(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("blog store failure", slog.String("op", op), slog.String("error", err.Error()))
	return apperror.Internal("something went wrong", err)
}
