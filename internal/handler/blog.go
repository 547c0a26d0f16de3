package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/service"
)

// BlogHandler serves blog CRUD. Creating takes a multipart form because the
// thumbnail is required; updating accepts either a multipart form or JSON.
type BlogHandler struct {
	blogs       *service.BlogService
	bodyLimit   int64
	uploadLimit int64
	logger      *slog.Logger
}

func NewBlogHandler(blogs *service.BlogService, bodyLimit, uploadLimit int64, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{
		blogs:       blogs,
		bodyLimit:   bodyLimit,
		uploadLimit: uploadLimit,
		logger:      logger,
	}
}

type updateBlogRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// HandleList returns a page of blogs.
//
// HTTP: GET /api/v1/blogs?page=1&limit=10&query=go&sortBy=title&sortType=desc&userId=...
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	blogs, err := h.blogs.List(r.Context(), service.BlogQuery{
		Page:     page,
		Limit:    limit,
		Query:    q.Get("query"),
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
		OwnerID:  q.Get("userId"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, blogs, "blogs fetched successfully")
}

// HandleCreate publishes a blog owned by the caller.
//
// HTTP: POST /api/v1/blogs (multipart: title, description, thumbnail)
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	cleanup, err := multipartForm(w, r, h.uploadLimit)
	defer cleanup()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	thumbnail, err := formFile(r, "thumbnail")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFile(thumbnail)

	blog, err := h.blogs.Create(r.Context(), actor, r.FormValue("title"), r.FormValue("description"), thumbnail)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusCreated, blog, "blog created successfully")
}

// HandleGet returns one blog.
//
// HTTP: GET /api/v1/blogs/{blogId}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogs.Get(r.Context(), chi.URLParam(r, "blogId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, blog, "blog fetched successfully")
}

// HandleUpdate edits a blog's title, description or thumbnail.
//
// HTTP: PATCH /api/v1/blogs/{blogId}
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	var (
		in        service.BlogInput
		thumbnail *media.File
	)
	if isMultipart(r) {
		cleanup, err := multipartForm(w, r, h.uploadLimit)
		defer cleanup()
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		in.Title, _ = formValue(r, "title")
		in.Description, _ = formValue(r, "description")
		if thumbnail, err = formFile(r, "thumbnail"); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		defer closeFile(thumbnail)
	} else {
		var req updateBlogRequest
		if err := decodeAndValidate(w, r, h.bodyLimit, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		in.Title, in.Description = req.Title, req.Description
	}

	blog, err := h.blogs.Update(r.Context(), actor, chi.URLParam(r, "blogId"), in, thumbnail)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, blog, "blog updated successfully")
}

// HandleDelete removes a blog.
//
// HTTP: DELETE /api/v1/blogs/{blogId}
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	if err := h.blogs.Delete(r.Context(), actor, chi.URLParam(r, "blogId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "blog deleted successfully")
}
