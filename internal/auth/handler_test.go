package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-starter/internal/httputil"
	"github.com/redmonkez12/go-auth-starter/internal/ratelimit"
	"github.com/redmonkez12/go-auth-starter/internal/storage"
)

const testFrontendURL = "http://app.example.com"

type stubUploader struct{}

func (stubUploader) PresignUpload(_ context.Context, accountID uuid.UUID, contentType string) (*storage.PresignedUpload, error) {
	if contentType != "image/png" {
		return nil, storage.ErrUnsupportedContentType
	}
	return &storage.PresignedUpload{
		UploadURL: "https://bucket.example.com/upload",
		Method:    http.MethodPut,
		AssetURL:  "https://cdn.example.com/avatars/" + accountID.String() + "/a.png",
	}, nil
}

func newTestRouter(env *testEnv, limiter *ratelimit.Limiter, uploader AvatarUploader) http.Handler {
	h := NewHandler(env.svc, limiter, NewCookieConfig("", false, "lax"), testFrontendURL+"/")
	profile := NewProfileHandler(env.svc, uploader)
	mw := NewMiddleware(env.svc)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", h.SignUp)
		r.Post("/sign-in", h.SignIn)
		r.Post("/sign-out", h.SignOut)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/resend-verification", h.ResendVerificationEmail)
		r.Get("/oauth", h.ListProviders)
		r.Get("/oauth/{provider}", h.OAuthStart)
		r.Get("/oauth/{provider}/callback", h.OAuthCallback)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession)
		r.Get("/profile", profile.GetProfile)
		r.Patch("/profile", profile.UpdateProfile)
		r.Post("/profile/avatar/upload-url", profile.CreateAvatarUploadURL)
	})
	return r
}

func newHandlerEnv(t *testing.T, opts ...Option) (*testEnv, http.Handler) {
	t.Helper()
	env := newTestEnv(t, nil, opts...)
	return env, newTestRouter(env, ratelimit.NewLimiter(env.client), stubUploader{})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.Equal(t, code, decodeBody[httputil.ErrorResponse](t, rec).Code)
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	return responseCookie(rec, SessionCookieName)
}

func withCookie(c *http.Cookie) http.Header {
	return http.Header{"Cookie": {c.Name + "=" + c.Value}}
}

func signUpViaAPI(t *testing.T, env *testEnv, h http.Handler) SessionResponse {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/auth/sign-up", SignUpRequest{
		Name: "Ada", Email: "ada@example.com", Password: "longenough1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env.svc.Wait()
	return decodeBody[SessionResponse](t, rec)
}

func TestSignUpHandlerReturnsTokenToAPIClients(t *testing.T) {
	env, h := newHandlerEnv(t)

	resp := signUpViaAPI(t, env, h)
	assert.NotEmpty(t, resp.Token)
	assert.NotEqual(t, uuid.Nil, resp.AccountID)

	rec := doRequest(t, h, http.MethodGet, "/profile", nil, bearer(resp.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.False(t, profile.EmailVerified)
}

func TestSignInHandlerUsesCookieForBrowsers(t *testing.T) {
	env, h := newHandlerEnv(t)
	signUpViaAPI(t, env, h)

	rec := doRequest(t, h, http.MethodPost, "/auth/sign-in", SignInRequest{
		Email: "ada@example.com", Password: "longenough1",
	}, http.Header{"Origin": {testFrontendURL}})
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Empty(t, decodeBody[SessionResponse](t, rec).Token, "token stays out of the body when a cookie is set")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	profileRec := httptest.NewRecorder()
	h.ServeHTTP(profileRec, req)
	assert.Equal(t, http.StatusOK, profileRec.Code)
}

func TestAuthHandlerErrors(t *testing.T) {
	env, h := newHandlerEnv(t)
	signUpViaAPI(t, env, h)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed body", "/auth/sign-up", `{"name":`, http.StatusBadRequest, httputil.CodeInvalidRequestBody},
		{"weak password", "/auth/sign-up", SignUpRequest{Name: "Bob", Email: "bob@example.com", Password: "short"}, http.StatusBadRequest, httputil.CodePasswordTooShort},
		{"bad email", "/auth/sign-up", SignUpRequest{Name: "Bob", Email: "bob", Password: "longenough1"}, http.StatusBadRequest, httputil.CodeInvalidEmailFormat},
		{"blank name", "/auth/sign-up", SignUpRequest{Name: " ", Email: "bob@example.com", Password: "longenough1"}, http.StatusBadRequest, httputil.CodeNameRequired},
		{"duplicate", "/auth/sign-up", SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "longenough1"}, http.StatusConflict, httputil.CodeEmailAlreadyExists},
		{"wrong password", "/auth/sign-in", SignInRequest{Email: "ada@example.com", Password: "nope-nope"}, http.StatusUnauthorized, httputil.CodeInvalidCredentials},
		{"unknown email", "/auth/sign-in", SignInRequest{Email: "who@example.com", Password: "nope-nope"}, http.StatusUnauthorized, httputil.CodeInvalidCredentials},
		{"reset without token", "/auth/reset-password", ResetPasswordRequest{NewPassword: "longenough1"}, http.StatusBadRequest, httputil.CodeTokenRequired},
		{"reset mismatch", "/auth/reset-password", ResetPasswordRequest{Token: "t", NewPassword: "longenough1", ConfirmPassword: "longenough2"}, http.StatusBadRequest, httputil.CodePasswordMismatch},
		{"reset bad token", "/auth/reset-password", ResetPasswordRequest{Token: "t", NewPassword: "longenough1"}, http.StatusBadRequest, httputil.CodeInvalidToken},
		{"verify without token", "/auth/verify-email", TokenRequest{}, http.StatusBadRequest, httputil.CodeTokenRequired},
		{"verify bad token", "/auth/verify-email", TokenRequest{Token: "nope"}, http.StatusBadRequest, httputil.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, tt.path, tt.body, nil)
			assertErrorCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestSignInFailureMessagesMatch(t *testing.T) {
	env, h := newHandlerEnv(t)
	signUpViaAPI(t, env, h)

	wrong := doRequest(t, h, http.MethodPost, "/auth/sign-in", SignInRequest{Email: "ada@example.com", Password: "nope-nope"}, nil)
	unknown := doRequest(t, h, http.MethodPost, "/auth/sign-in", SignInRequest{Email: "who@example.com", Password: "nope-nope"}, nil)

	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestRequireSession(t *testing.T) {
	_, h := newHandlerEnv(t)

	rec := doRequest(t, h, http.MethodGet, "/profile", nil, nil)
	assertErrorCode(t, rec, http.StatusUnauthorized, httputil.CodeUnauthorized)

	rec = doRequest(t, h, http.MethodGet, "/profile", nil, http.Header{"Authorization": {"Token abc"}})
	assertErrorCode(t, rec, http.StatusUnauthorized, httputil.CodeInvalidAuthHeader)

	rec = doRequest(t, h, http.MethodGet, "/profile", nil, bearer("not-a-token"))
	assertErrorCode(t, rec, http.StatusUnauthorized, httputil.CodeUnauthorized)
}

func TestSignOutHandler(t *testing.T) {
	env, h := newHandlerEnv(t)
	resp := signUpViaAPI(t, env, h)

	rec := doRequest(t, h, http.MethodPost, "/auth/sign-out", nil, bearer(resp.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)

	rec = doRequest(t, h, http.MethodGet, "/profile", nil, bearer(resp.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/auth/sign-out", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "signing out without a session is not an error")
}

func TestUpdateProfileHandler(t *testing.T) {
	env, h := newHandlerEnv(t)
	resp := signUpViaAPI(t, env, h)

	avatar := "https://cdn.example.com/avatars/ada.png"
	env.assets.accepted[avatar] = true

	rec := doRequest(t, h, http.MethodPatch, "/profile", map[string]any{"name": "Ada L", "avatar_url": avatar}, bearer(resp.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "Ada L", profile.Name)
	require.NotNil(t, profile.AvatarURL)

	// Omitting avatar_url keeps it
	rec = doRequest(t, h, http.MethodPatch, "/profile", map[string]any{"name": "Ada Lovelace"}, bearer(resp.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	profile = decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, avatar, *profile.AvatarURL)

	rec = doRequest(t, h, http.MethodPatch, "/profile", `{"avatar_url":null}`, bearer(resp.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	profile = decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Nil(t, profile.AvatarURL)

	rec = doRequest(t, h, http.MethodPatch, "/profile", map[string]any{"name": "   "}, bearer(resp.Token))
	assertErrorCode(t, rec, http.StatusBadRequest, httputil.CodeNameRequired)

	rec = doRequest(t, h, http.MethodPatch, "/profile", map[string]any{"avatar_url": "https://evil.example.com/x.png"}, bearer(resp.Token))
	assertErrorCode(t, rec, http.StatusBadRequest, httputil.CodeInvalidAvatar)

	rec = doRequest(t, h, http.MethodPatch, "/profile", `{"avatar_url":42}`, bearer(resp.Token))
	assertErrorCode(t, rec, http.StatusBadRequest, httputil.CodeInvalidAvatar)
}

func TestAvatarUploadURLHandler(t *testing.T) {
	env, h := newHandlerEnv(t)
	resp := signUpViaAPI(t, env, h)

	rec := doRequest(t, h, http.MethodPost, "/profile/avatar/upload-url", AvatarUploadRequest{ContentType: "image/png"}, bearer(resp.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	upload := decodeBody[storage.PresignedUpload](t, rec)
	assert.Equal(t, http.MethodPut, upload.Method)
	assert.Contains(t, upload.AssetURL, resp.AccountID.String())

	rec = doRequest(t, h, http.MethodPost, "/profile/avatar/upload-url", AvatarUploadRequest{ContentType: "image/gif"}, bearer(resp.Token))
	assertErrorCode(t, rec, http.StatusUnsupportedMediaType, httputil.CodeUnsupportedMedia)

	disabled := newTestRouter(env, ratelimit.NewLimiter(env.client), nil)
	rec = doRequest(t, disabled, http.MethodPost, "/profile/avatar/upload-url", AvatarUploadRequest{ContentType: "image/png"}, bearer(resp.Token))
	assertErrorCode(t, rec, http.StatusNotImplemented, httputil.CodeStorageDisabled)
}

func TestForgotPasswordHandler(t *testing.T) {
	env, h := newHandlerEnv(t)
	signUpViaAPI(t, env, h)

	rec := doRequest(t, h, http.MethodPost, "/auth/forgot-password", EmailRequest{Email: "nobody@example.com"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/auth/forgot-password", EmailRequest{Email: "ada@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token := env.dispatcher.lastToken(t, "reset-password")

	rec = doRequest(t, h, http.MethodPost, "/auth/forgot-password", EmailRequest{Email: "ADA@example.com"}, nil)
	assertErrorCode(t, rec, http.StatusTooManyRequests, httputil.CodeCooldownActive)

	rec = doRequest(t, h, http.MethodPost, "/auth/reset-password", ResetPasswordRequest{
		Token: token, NewPassword: "brand-new-pass", ConfirmPassword: "brand-new-pass",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/auth/sign-in", SignInRequest{Email: "ada@example.com", Password: "brand-new-pass"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPasswordHandlerReportsDispatchFailure(t *testing.T) {
	env, h := newHandlerEnv(t)
	signUpViaAPI(t, env, h)
	env.dispatcher.failWith(errors.New("transport down"))

	rec := doRequest(t, h, http.MethodPost, "/auth/forgot-password", EmailRequest{Email: "ada@example.com"}, nil)
	assertErrorCode(t, rec, http.StatusServiceUnavailable, httputil.CodeEmailDispatch)
}

func TestVerifyEmailHandler(t *testing.T) {
	env, h := newHandlerEnv(t)
	resp := signUpViaAPI(t, env, h)
	token := env.dispatcher.lastToken(t, "verify-email")

	rec := doRequest(t, h, http.MethodGet, "/auth/verify-email?token="+url.QueryEscape(token), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/auth/verify-email", TokenRequest{Token: token}, nil)
	require.Equal(t, http.StatusOK, rec.Code, "verification is idempotent")

	rec = doRequest(t, h, http.MethodGet, "/profile", nil, bearer(resp.Token))
	assert.True(t, decodeBody[ProfileResponse](t, rec).EmailVerified)
}

func TestResendVerificationHandler(t *testing.T) {
	env, h := newHandlerEnv(t)
	signUpViaAPI(t, env, h)

	rec := doRequest(t, h, http.MethodPost, "/auth/resend-verification", EmailRequest{Email: "ada@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.dispatcher.emails(), 2)

	rec = doRequest(t, h, http.MethodPost, "/auth/resend-verification", EmailRequest{Email: "ada@example.com"}, nil)
	assertErrorCode(t, rec, http.StatusTooManyRequests, httputil.CodeCooldownActive)
}

func TestIPRateLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	h := newTestRouter(env, ratelimit.NewLimiterWithLimits(env.client, ratelimit.Limits{IPMaxRequests: 2}), nil)

	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, http.MethodPost, "/auth/sign-in", SignInRequest{Email: "a@example.com", Password: "whatever1"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := doRequest(t, h, http.MethodPost, "/auth/sign-in", SignInRequest{Email: "a@example.com", Password: "whatever1"}, nil)
	assertErrorCode(t, rec, http.StatusTooManyRequests, httputil.CodeTooManyRequests)

	// Budgets are per purpose
	rec = doRequest(t, h, http.MethodPost, "/auth/sign-up", SignUpRequest{Name: "A", Email: "a@example.com", Password: "longenough1"}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	env.svc.Wait()
}

func TestRateLimiterFailsOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	h := newTestRouter(env, ratelimit.NewLimiter(env.client), nil)
	env.mr.SetError("redis unavailable")

	rec := doRequest(t, h, http.MethodPost, "/auth/forgot-password", EmailRequest{Email: "nobody@example.com"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOAuthHandlers(t *testing.T) {
	provider := &fakeProvider{
		name:     "fake",
		identity: &ExternalIdentity{Provider: "fake", Subject: "7", Email: "linus@example.com", EmailVerified: true, Name: "Linus"},
	}
	_, h := newHandlerEnv(t, WithIdentityProviders(provider))

	rec := doRequest(t, h, http.MethodGet, "/auth/oauth", nil, nil)
	assert.Equal(t, []string{"fake"}, decodeBody[ProvidersResponse](t, rec).Providers)

	rec = doRequest(t, h, http.MethodGet, "/auth/oauth/myspace", nil, nil)
	assertErrorCode(t, rec, http.StatusNotFound, httputil.CodeUnknownProvider)

	rec = doRequest(t, h, http.MethodGet, "/auth/oauth/fake", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	consent, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	stateCookie := responseCookie(rec, OAuthStateCookieName)
	require.NotNil(t, stateCookie)
	assert.Equal(t, state, stateCookie.Value)
	assert.Equal(t, "/auth/oauth", stateCookie.Path)
	assert.True(t, stateCookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, stateCookie.SameSite)
	assert.Positive(t, stateCookie.MaxAge)

	forged := &http.Cookie{Name: OAuthStateCookieName, Value: "forged"}
	rec = doRequest(t, h, http.MethodGet, "/auth/oauth/fake/callback?state=forged&code=c", nil, withCookie(forged))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/sign-in?error="+httputil.CodeInvalidToken, rec.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rec))

	rec = doRequest(t, h, http.MethodGet, "/auth/oauth/fake/callback?state="+url.QueryEscape(state)+"&code=c", nil, withCookie(stateCookie))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	cleared := responseCookie(rec, OAuthStateCookieName)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	profileRec := httptest.NewRecorder()
	h.ServeHTTP(profileRec, req)
	require.Equal(t, http.StatusOK, profileRec.Code)
	assert.Equal(t, "Linus", decodeBody[ProfileResponse](t, profileRec).Name)

	rec = doRequest(t, h, http.MethodGet, "/auth/oauth/fake/callback?error=access_denied", nil, nil)
	assert.Equal(t, testFrontendURL+"/sign-in?error="+httputil.CodeOAuthFailed, rec.Header().Get("Location"))
}

func TestOAuthCallbackRequiresStateCookie(t *testing.T) {
	provider := &fakeProvider{
		name:     "fake",
		identity: &ExternalIdentity{Provider: "fake", Subject: "9", Email: "mallory@example.com", EmailVerified: true, Name: "Mallory"},
	}
	env, h := newHandlerEnv(t, WithIdentityProviders(provider))

	// One browser starts the flow, another receives the callback link
	rec := doRequest(t, h, http.MethodGet, "/auth/oauth/fake", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	consent, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := consent.Query().Get("state")
	callback := "/auth/oauth/fake/callback?state=" + url.QueryEscape(state) + "&code=c"

	rec = doRequest(t, h, http.MethodGet, callback, nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/sign-in?error="+httputil.CodeInvalidToken, rec.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rec))

	other := &http.Cookie{Name: OAuthStateCookieName, Value: "state-from-another-flow"}
	rec = doRequest(t, h, http.MethodGet, callback, nil, withCookie(other))
	assert.Equal(t, testFrontendURL+"/sign-in?error="+httputil.CodeInvalidToken, rec.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rec))

	// Rejected callbacks leave the server-side state unconsumed
	assert.Len(t, env.keysWithPrefix("oauth_state:"), 1)
}

func TestMapServiceError(t *testing.T) {
	status, code, _ := mapServiceError(errors.Join(errors.New("wrapped"), ErrDispatch))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, httputil.CodeEmailDispatch, code)

	status, code, _ = mapServiceError(ErrInvalidAvatarRef)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, httputil.CodeInvalidAvatar, code)

	status, code, msg := mapServiceError(errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, httputil.CodeInternalError, code)
	assert.Empty(t, msg)
}

func TestShouldUseCookies(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.False(t, ShouldUseCookies(r))

	r.Header.Set("Sec-Fetch-Mode", "cors")
	assert.True(t, ShouldUseCookies(r))
}

func TestNewCookieConfig(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, NewCookieConfig("", true, "Strict").SameSite)
	assert.Equal(t, http.SameSiteNoneMode, NewCookieConfig("", true, "none").SameSite)
	assert.Equal(t, http.SameSiteLaxMode, NewCookieConfig("", true, "bogus").SameSite)
}
