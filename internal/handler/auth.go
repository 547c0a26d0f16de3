package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/service"
)

// CookieConfig controls the session cookies set on login and refresh.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler serves registration, login and the session endpoints.
//
// Tokens are returned both in the JSON body and as HttpOnly cookies, so
// browser clients can rely on cookies and other clients on the body.
type AuthHandler struct {
	auth      *service.AuthService
	cookies   CookieConfig
	bodyLimit int64
	logger    *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, bodyLimit int64, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      svc,
		cookies:   cookies,
		bodyLimit: bodyLimit,
		logger:    logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	FullName string `json:"fullName" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role"     validate:"omitempty,oneof=user superadmin"`
}

// Case folding is left to the service; trimming here keeps padded input
// from failing the email check.
func (r *registerRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

type sessionResponse struct {
	User         *model.User `json:"user,omitempty"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/v1/users/register
// REQUEST BODY: {"email":"...","fullName":"...","password":"..."}
//
// The public route never has an acting user, so asking for any role other
// than "user" is refused.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, nil)
}

// HandleAddUser creates an account on behalf of a superadmin, who may pick
// the role.
//
// HTTP: POST /api/v1/users/addUser
func (h *AuthHandler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	h.register(w, r, actor)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, actor *model.User) {
	var req registerRequest
	if err := decodeAndValidate(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     model.Role(req.Role),
	}, actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	respond(w, http.StatusCreated, user, "user registered successfully")
}

// HandleLogin checks credentials and starts a session.
//
// HTTP: POST /api/v1/users/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setSessionCookies(w, result.TokenPair)
	respond(w, http.StatusOK, sessionResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "user logged in successfully")
}

// HandleRefresh swaps a refresh token for a new token pair.
//
// HTTP: POST /api/v1/users/refreshAccessToken
//
// The token is read from the refreshToken cookie, or from a JSON body
// {"refreshToken":"..."} when no cookie is sent.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(auth.RefreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeAndValidate(w, r, h.bodyLimit, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		presented = req.RefreshToken
	}

	result, err := h.auth.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setSessionCookies(w, result.TokenPair)
	respond(w, http.StatusOK, sessionResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "access token refreshed")
}

// HandleLogout ends the session and clears both cookies.
//
// HTTP: POST /api/v1/users/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated("unauthorized request"))
		return
	}

	if err := h.auth.Logout(r.Context(), actor.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.clearSessionCookies(w)
	respond(w, http.StatusOK, struct{}{}, "user logged out")
}

// HandleChangePassword replaces the caller's password.
//
// HTTP: POST /api/v1/users/changePassword
// REQUEST BODY: {"oldPassword":"...","newPassword":"..."}
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated("unauthorized request"))
		return
	}

	var req changePasswordRequest
	if err := decodeAndValidate(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), actor.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	respond(w, http.StatusOK, struct{}{}, "password changed successfully")
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, pair service.TokenPair) {
	http.SetCookie(w, h.cookie(auth.AccessTokenCookie, pair.AccessToken, h.cookies.AccessTTL))
	http.SetCookie(w, h.cookie(auth.RefreshTokenCookie, pair.RefreshToken, h.cookies.RefreshTTL))
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		c := h.cookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// cookie builds a session cookie. HttpOnly keeps tokens away from page
// scripts; SameSite=Lax keeps them off cross-site POSTs.
func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
