package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/model"
)

// AccessTokenCookie and RefreshTokenCookie are the cookie names the API sets
// on login and refresh.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the authenticated user.
type contextKey string

const userKey contextKey = "user"

// ErrorWriter renders an error response. The HTTP layer supplies its own so
// auth failures use the same envelope as every other error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth is a middleware that enforces authentication on protected
// routes.
//
// The access token is read from the "accessToken" cookie, falling back to an
// "Authorization: Bearer <token>" header. On success the loaded user is
// stored in the request context; otherwise onError is called and the chain
// stops.
//
//	req → RequireAuth → RequireRole → handler
func RequireAuth(gate *Gate, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := gate.Authenticate(r.Context(), TokenFromRequest(r))
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole rejects requests whose authenticated user does not hold role.
// It must run after RequireAuth.
func RequireRole(role model.Role, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				onError(w, r, apperror.Unauthenticated("unauthorized request"))
				return
			}
			if !AuthorizeRole(user, role) {
				onError(w, r, apperror.Forbidden("you are not allowed to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) if RequireAuth did not run for this request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// TokenFromRequest returns the access token from the cookie or the bearer
// header, or "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
