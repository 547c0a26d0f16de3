package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/repository"
)

// UserService handles profile reads and changes for authenticated callers.
// Every method takes the acting user and enforces its own permission rule.
type UserService struct {
	users  repository.UserRepository
	media  media.Host
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, host media.Host, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		media:  host,
		logger: logger,
	}
}

// UserInfoInput is a profile edit. Nil fields are left unchanged.
type UserInfoInput struct {
	FullName *string
	Email    *string
}

// Current returns the freshest copy of the acting user.
func (s *UserService) Current(ctx context.Context, actor *model.User) (*model.User, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated("unauthorized request")
	}
	user, err := s.users.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, s.passThrough("loading current user", err)
	}
	return user, nil
}

// List returns one page of users. Superadmin only.
func (s *UserService) List(ctx context.Context, actor *model.User, page, limit int) (model.Page[model.User], error) {
	if !auth.IsSuperAdmin(actor) {
		return model.Page[model.User]{}, apperror.Forbidden("only a superadmin can list users")
	}

	page, limit, offset := pageBounds(page, limit)
	users, total, err := s.users.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return model.Page[model.User]{}, s.passThrough("listing users", err)
	}
	return model.NewPage(users, total, page, limit), nil
}

// UpdateInfo edits another user's (or one's own) name and email. The owner
// and any superadmin may do so.
func (s *UserService) UpdateInfo(ctx context.Context, actor *model.User, userID string, in UserInfoInput) (*model.User, error) {
	if !auth.OwnsOrIsSuperAdmin(actor, userID) {
		return nil, apperror.Forbidden("you can only update your own profile")
	}

	var patch model.UserPatch
	if in.FullName != nil {
		name := normalizeName(*in.FullName)
		if name == "" {
			return nil, apperror.ValidationFailed("fullName", "full name cannot be empty")
		}
		patch.FullName = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, apperror.ValidationFailed("email", "email is invalid")
		}
		patch.Email = &email
	}
	if patch.Empty() {
		return nil, apperror.ValidationFailed("", "nothing to update")
	}

	user, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, s.passThrough("updating profile", err)
	}

	s.logger.Info("user profile updated",
		slog.String("userID", userID),
		slog.String("by", actor.ID),
	)
	return user, nil
}

// UpdateAvatar uploads a new avatar for the acting user and then removes the
// previous one.
func (s *UserService) UpdateAvatar(ctx context.Context, actor *model.User, f media.File) (*model.User, error) {
	if actor == nil {
		return nil, apperror.Unauthenticated("unauthorized request")
	}

	current, err := s.users.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, s.passThrough("loading user for avatar", err)
	}

	url, err := upload(ctx, s.media, s.logger, "avatar", f)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, actor.ID, model.UserPatch{AvatarURL: &url})
	if err != nil {
		removeQuietly(ctx, s.media, s.logger, url)
		return nil, s.passThrough("storing avatar", err)
	}

	if current.AvatarURL != url {
		removeQuietly(ctx, s.media, s.logger, current.AvatarURL)
	}

	s.logger.Info("avatar updated", slog.String("userID", actor.ID))
	return user, nil
}

// Delete removes a user account. Superadmin only. The avatar is removed
// afterwards on a best-effort basis; the user's blogs stay, ownerless.
func (s *UserService) Delete(ctx context.Context, actor *model.User, userID string) error {
	if !auth.IsSuperAdmin(actor) {
		return apperror.Forbidden("only a superadmin can delete users")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return s.passThrough("loading user for delete", err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return s.passThrough("deleting user", err)
	}

	removeQuietly(ctx, s.media, s.logger, user.AvatarURL)

	s.logger.Info("user deleted",
		slog.String("userID", userID),
		slog.String("by", actor.ID),
	)
	return nil
}

// passThrough returns domain errors from the store unchanged and turns
// anything else into a logged Internal error.
func (s *UserService) passThrough(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("user store failure", slog.String("op", op), slog.String("error", err.Error()))
	return apperror.Internal("something went wrong", err)
}
