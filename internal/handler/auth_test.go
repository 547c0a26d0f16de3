package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jenilmangukiya/blog-backend/internal/auth"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	sqliteRepo "github.com/jenilmangukiya/blog-backend/internal/repository/sqlite"
	"github.com/jenilmangukiya/blog-backend/internal/service"
)

type authFixture struct {
	handler *AuthHandler
	tokens  *auth.TokenService
	users   *sqliteRepo.UserDB
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db, err := sqliteRepo.New(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  "handler-test-access-secret-01",
		RefreshSecret: "handler-test-refresh-secret-1",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	passwords, err := auth.NewPasswordService(bcrypt.MinCost)
	require.NoError(t, err)

	svc := service.NewAuthService(db.Users(), tokens, passwords, discard)
	h := NewAuthHandler(svc, CookieConfig{
		Secure:     true,
		AccessTTL:  tokens.AccessTTL(),
		RefreshTTL: tokens.RefreshTTL(),
	}, 4096, discard)

	return &authFixture{handler: h, tokens: tokens, users: db.Users()}
}

func postJSON(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (f *authFixture) register(t *testing.T, email string) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.HandleRegister(rec, postJSON("/api/v1/users/register",
		`{"email":"`+email+`","fullName":"Test User","password":"correct-horse"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *authFixture) login(t *testing.T, email string) sessionResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.HandleLogin(rec, postJSON("/api/v1/users/login",
		`{"email":"`+email+`","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data sessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestHandleRegister(t *testing.T) {
	f := newAuthFixture(t)

	rec := httptest.NewRecorder()
	f.handler.HandleRegister(rec, postJSON("/api/v1/users/register",
		`{"email":"Ann@Example.com","fullName":"Ann","password":"correct-horse"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ann@example.com"`)
	assert.Contains(t, rec.Body.String(), `"role":"user"`)
	assert.NotContains(t, rec.Body.String(), "correct-horse")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestHandleRegister_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "taken@example.com")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"duplicate email", `{"email":"TAKEN@example.com","fullName":"x","password":"p"}`, 409, "conflict"},
		{"missing password", `{"email":"new@example.com","fullName":"x"}`, 400, "validation_error"},
		{"role escalation", `{"email":"new@example.com","fullName":"x","password":"p","role":"superadmin"}`, 403, "forbidden"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.HandleRegister(rec, postJSON("/api/v1/users/register", tc.body))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantKind, decodeError(t, rec).Error)
		})
	}
}

func TestHandleRegister_PaddedMixedCaseEmailIsSameAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com")

	rec := httptest.NewRecorder()
	f.handler.HandleRegister(rec, postJSON("/api/v1/users/register",
		`{"email":" A@X.com ","fullName":" Someone Else ","password":"p"}`))

	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "conflict", decodeError(t, rec).Error)

	login := httptest.NewRecorder()
	f.handler.HandleLogin(login, postJSON("/api/v1/users/login",
		`{"email":"  A@X.COM","password":"correct-horse"}`))
	assert.Equal(t, http.StatusOK, login.Code, login.Body.String())
}

func TestHandleAddUser_SuperAdminAssignsRole(t *testing.T) {
	f := newAuthFixture(t)
	admin := &model.User{ID: "admin-1", Role: model.RoleSuperAdmin}

	req := postJSON("/api/v1/users/addUser",
		`{"email":"boss@example.com","fullName":"Boss","password":"p","role":"superadmin"}`)
	req = req.WithContext(auth.WithUser(req.Context(), admin))
	rec := httptest.NewRecorder()

	f.handler.HandleAddUser(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"superadmin"`)
}

func TestHandleLogin_SetsCookies(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")

	rec := httptest.NewRecorder()
	f.handler.HandleLogin(rec, postJSON("/api/v1/users/login",
		`{"email":"ann@example.com","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, auth.AccessTokenCookie)
	refresh := cookieByName(rec, auth.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	for _, c := range []*http.Cookie{access, refresh} {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite, c.Name)
		assert.Equal(t, "/", c.Path, c.Name)
	}
	assert.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)
	assert.Equal(t, int(time.Hour.Seconds()), refresh.MaxAge)

	_, err := f.tokens.Verify(access.Value, auth.PurposeAccess)
	assert.NoError(t, err)
	assert.Contains(t, rec.Body.String(), access.Value)
}

func TestHandleLogin_SameMessageForUnknownEmailAndWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")

	wrongPassword := httptest.NewRecorder()
	f.handler.HandleLogin(wrongPassword, postJSON("/", `{"email":"ann@example.com","password":"nope"}`))
	unknownEmail := httptest.NewRecorder()
	f.handler.HandleLogin(unknownEmail, postJSON("/", `{"email":"bob@example.com","password":"nope"}`))

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, decodeError(t, wrongPassword), decodeError(t, unknownEmail))
	assert.Nil(t, cookieByName(wrongPassword, auth.RefreshTokenCookie))
}

func TestHandleRefresh_FromCookie(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")
	session := f.login(t, "ann@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refreshAccessToken", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: session.RefreshToken})
	rec := httptest.NewRecorder()

	f.handler.HandleRefresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := cookieByName(rec, auth.RefreshTokenCookie)
	require.NotNil(t, rotated)
	assert.NotEqual(t, session.RefreshToken, rotated.Value)
}

func TestHandleRefresh_FromBody(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")
	session := f.login(t, "ann@example.com")

	rec := httptest.NewRecorder()
	f.handler.HandleRefresh(rec, postJSON("/api/v1/users/refreshAccessToken",
		`{"refreshToken":"`+session.RefreshToken+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Presenting the same token again is a replay.
	replay := httptest.NewRecorder()
	f.handler.HandleRefresh(replay, postJSON("/api/v1/users/refreshAccessToken",
		`{"refreshToken":"`+session.RefreshToken+`"}`))
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Equal(t, "token_reused", decodeError(t, replay).Error)
}

func TestHandleRefresh_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")
	session := f.login(t, "ann@example.com")

	tests := []struct {
		name     string
		req      *http.Request
		wantKind string
	}{
		{
			name:     "nothing presented",
			req:      httptest.NewRequest(http.MethodPost, "/", nil),
			wantKind: "missing_token",
		},
		{
			name:     "empty body token",
			req:      postJSON("/", `{"refreshToken":""}`),
			wantKind: "missing_token",
		},
		{
			name:     "garbage",
			req:      postJSON("/", `{"refreshToken":"not.a.jwt"}`),
			wantKind: "token_invalid",
		},
		{
			name:     "access token in place of refresh token",
			req:      postJSON("/", `{"refreshToken":"`+session.AccessToken+`"}`),
			wantKind: "token_invalid",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.HandleRefresh(rec, tc.req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tc.wantKind, decodeError(t, rec).Error)
		})
	}
}

func TestHandleLogout_ClearsCookiesAndSession(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")
	session := f.login(t, "ann@example.com")

	user, err := f.users.GetUserByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req = req.WithContext(auth.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	f.handler.HandleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}

	after := httptest.NewRecorder()
	f.handler.HandleRefresh(after, postJSON("/", `{"refreshToken":"`+session.RefreshToken+`"}`))
	assert.Equal(t, "token_reused", decodeError(t, after).Error)
}

func TestHandleChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com")
	user, err := f.users.GetUserByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)

	withUser := func(body string) *http.Request {
		req := postJSON("/api/v1/users/changePassword", body)
		return req.WithContext(auth.WithUser(req.Context(), user))
	}

	wrong := httptest.NewRecorder()
	f.handler.HandleChangePassword(wrong, withUser(`{"oldPassword":"nope","newPassword":"battery-staple"}`))
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, "oldPassword", decodeError(t, wrong).Field)

	ok := httptest.NewRecorder()
	f.handler.HandleChangePassword(ok, withUser(`{"oldPassword":"correct-horse","newPassword":"battery-staple"}`))
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	login := httptest.NewRecorder()
	f.handler.HandleLogin(login, postJSON("/", `{"email":"ann@example.com","password":"battery-staple"}`))
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestHandleLogout_WithoutUser(t *testing.T) {
	f := newAuthFixture(t)

	rec := httptest.NewRecorder()
	f.handler.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
