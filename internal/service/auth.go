// Authentication business logic.
//
// AuthService owns the session rules: who may register with which role, how
// a login mints a token pair, and how a refresh token is rotated so that each
// one can be redeemed exactly once.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/repository"
)

// AuthService handles registration, login and the refresh-token lifecycle.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is a new account. An empty Role means RoleUser.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
	Role     model.Role
}

// TokenPair is a freshly minted access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult bundles the user with their new tokens so the handler can set
// cookies and respond in one step.
type AuthResult struct {
	User *model.User
	TokenPair
}

// Register creates an account.
//
// Only a superadmin actor may create an account with a role other than
// RoleUser. The public registration route always passes a nil actor.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, actor *model.User) (*model.User, error) {
	role, ok := model.ParseRole(string(in.Role))
	if !ok {
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", in.Role))
	}
	if role != model.RoleUser && !actor.IsSuperAdmin() {
		return nil, apperror.Forbidden("only a superadmin can assign roles")
	}
	in.Role = role

	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	attrs := []any{slog.String("userID", user.ID), slog.String("role", string(user.Role))}
	if actor != nil {
		attrs = append(attrs, slog.String("createdBy", actor.ID))
	}
	s.logger.Info("user registered", attrs...)

	return user, nil
}

func (s *AuthService) create(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	fullName := normalizeName(in.FullName)

	switch {
	case email == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case fullName == "":
		return nil, apperror.ValidationFailed("fullName", "full name is required")
	case in.Password == "":
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("user", "email "+email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, s.storeFailure("looking up email", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, s.storeFailure("creating user", err)
	}
	return user, nil
}

// Login checks credentials and starts a new session, replacing any refresh
// token issued before.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, s.storeFailure("loading user for login", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Info("login failed", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, s.storeFailure("storing refresh token", err)
	}
	user.RefreshToken = pair.RefreshToken

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

// Refresh redeems a refresh token for a new token pair.
//
// The presented token must be the one currently stored for its user. The
// swap to the new refresh token is a single conditional write, so of two
// concurrent refreshes with the same token exactly one succeeds; the other
// gets TokenReused.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, apperror.MissingToken("refresh token is required")
	}

	claims, err := s.tokens.Verify(presented, auth.PurposeRefresh)
	if err != nil {
		return nil, apperror.TokenInvalid(err)
	}
	userID := claims.Subject

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, s.storeFailure("loading user for refresh", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		s.logger.Warn("refresh token replay detected", slog.String("userID", userID))
		return nil, apperror.TokenReused()
	}

	pair, err := s.issuePair(userID)
	if err != nil {
		return nil, err
	}

	if err := s.users.RotateRefreshToken(ctx, userID, presented, pair.RefreshToken); err != nil {
		switch {
		case errors.Is(err, repository.ErrRefreshTokenMismatch):
			s.logger.Warn("concurrent refresh lost rotation", slog.String("userID", userID))
			return nil, apperror.TokenReused()
		case errors.Is(err, apperror.ErrNotFound):
			return nil, err
		default:
			return nil, s.storeFailure("rotating refresh token", err)
		}
	}
	user.RefreshToken = pair.RefreshToken

	return &AuthResult{User: user, TokenPair: *pair}, nil
}

// Logout ends the user's session. Access tokens already issued stay valid
// until they expire; no further refresh is possible.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return s.storeFailure("clearing refresh token", err)
	}
	s.logger.Info("user logged out", slog.String("userID", userID))
	return nil
}

// ChangePassword replaces the password after checking the old one. The
// stored refresh token is cleared so no other session can refresh.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return apperror.ValidationFailed("newPassword", "new password is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return s.storeFailure("loading user for password change", err)
	}

	if !s.passwords.Verify(user.PasswordHash, oldPassword) {
		return &apperror.AppError{
			Err:     apperror.ErrInvalidCredentials,
			Message: "old password is invalid",
			Field:   "oldPassword",
		}
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.ResetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return s.storeFailure("resetting password", err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// EnsureSuperAdmin creates a superadmin account with the given email unless
// an account with that email already exists. It reports whether an account
// was created. An empty email does nothing.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, fullName, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		if !existing.Role.IsSuperAdmin() {
			s.logger.Warn("bootstrap superadmin email belongs to a regular user",
				slog.String("userID", existing.ID))
		}
		return false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return false, s.storeFailure("looking up bootstrap superadmin", err)
	}

	user, err := s.create(ctx, RegisterInput{
		Email:    email,
		FullName: fullName,
		Password: password,
		Role:     model.RoleSuperAdmin,
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("bootstrap superadmin created", slog.String("userID", user.ID))
	return true, nil
}

func (s *AuthService) issuePair(userID string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, apperror.Internal("could not issue tokens", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, apperror.Internal("could not issue tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// storeFailure logs an unexpected repository error and hides it behind an
// Internal error.
func (s *AuthService) storeFailure(op string, err error) error {
	s.logger.Error("auth store failure", slog.String("op", op), slog.String("error", err.Error()))
	return apperror.Internal("something went wrong", err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
