package auth

import (
	"context"
	"errors"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/model"
)

// UserFinder loads users by ID. Satisfied by repository.UserRepository.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Gate turns an access token into a loaded user and answers role and
// ownership questions about that user.
type Gate struct {
	tokens *TokenService
	users  UserFinder
}

func NewGate(tokens *TokenService, users UserFinder) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate verifies an access token and loads its subject.
//
// A missing, invalid or expired token, and a token whose user no longer
// exists, all yield an Unauthenticated error. Store failures other than
// not-found are returned as Internal.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.Unauthenticated("unauthorized request")
	}

	claims, err := g.tokens.Verify(token, PurposeAccess)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperror.Unauthenticated("access token expired")
		}
		return nil, apperror.Unauthenticated("invalid access token")
	}

	user, err := g.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid access token")
		}
		return nil, apperror.Internal("loading authenticated user", err)
	}
	return user, nil
}

// AuthorizeRole reports whether user holds exactly role. Roles form no
// hierarchy.
func AuthorizeRole(user *model.User, role model.Role) bool {
	return user != nil && user.Role == role
}

// AuthorizeOwnerOrRole reports whether user owns the resource or holds role.
// An empty ownerID is owned by nobody.
func AuthorizeOwnerOrRole(user *model.User, ownerID string, role model.Role) bool {
	if user == nil {
		return false
	}
	if ownerID != "" && user.ID == ownerID {
		return true
	}
	return user.Role == role
}

func IsSuperAdmin(user *model.User) bool {
	return AuthorizeRole(user, model.RoleSuperAdmin)
}

func OwnsOrIsSuperAdmin(user *model.User, ownerID string) bool {
	return AuthorizeOwnerOrRole(user, ownerID, model.RoleSuperAdmin)
}
