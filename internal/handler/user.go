package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/service"
)

// UserHandler serves profile reads and edits.
type UserHandler struct {
	users       *service.UserService
	bodyLimit   int64
	uploadLimit int64
	logger      *slog.Logger
}

func NewUserHandler(users *service.UserService, bodyLimit, uploadLimit int64, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:       users,
		bodyLimit:   bodyLimit,
		uploadLimit: uploadLimit,
		logger:      logger,
	}
}

type updateUserRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,max=100"`
	Email    *string `json:"email"    validate:"omitempty,email,max=254"`
}

func (r *updateUserRequest) normalize() {
	trimPtr(r.FullName)
	trimPtr(r.Email)
}

// HandleCurrent returns the caller's own profile.
//
// HTTP: GET /api/v1/users/getCurrentUser
func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	user, err := h.users.Current(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, user, "current user fetched successfully")
}

// HandleList returns a page of users.
//
// HTTP: GET /api/v1/users?page=1&limit=10
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

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

	users, err := h.users.List(r.Context(), actor, page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, users, "users fetched successfully")
}

// HandleUpdate edits a user's name or email.
//
// HTTP: PATCH /api/v1/users/{userId}
// REQUEST BODY: {"fullName":"...","email":"..."} (either may be omitted)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	var req updateUserRequest
	if err := decodeAndValidate(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpdateInfo(r.Context(), actor, chi.URLParam(r, "userId"), service.UserInfoInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, user, "user details updated successfully")
}

// HandleUpdateAvatar replaces the caller's avatar.
//
// HTTP: POST /api/v1/users/updateProfilePic (multipart, file field "avatar")
func (h *UserHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	cleanup, err := multipartForm(w, r, h.uploadLimit)
	defer cleanup()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	file, err := formFile(r, "avatar")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if file == nil {
		writeError(w, r, h.logger, apperror.ValidationFailed("avatar", "avatar file is required"))
		return
	}
	defer closeFile(file)

	user, err := h.users.UpdateAvatar(r.Context(), actor, *file)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, user, "avatar image updated successfully")
}

// HandleDelete removes a user account.
//
// HTTP: DELETE /api/v1/users/{userId}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	if err := h.users.Delete(r.Context(), actor, chi.URLParam(r, "userId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "user deleted successfully")
}
