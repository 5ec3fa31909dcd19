package auth

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-starter/internal/account"
	"github.com/redmonkez12/go-auth-starter/internal/httputil"
	"github.com/redmonkez12/go-auth-starter/internal/logging"
	"github.com/redmonkez12/go-auth-starter/internal/ratelimit"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	cookies     CookieConfig
	frontendURL string
	now         func() time.Time
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, cookies CookieConfig, frontendURL string) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// SignUpRequest represents the sign-up request body
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest represents the sign-in request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on sign-up and sign-in.
// Token is omitted when the session was delivered in a cookie.
type SessionResponse struct {
	Token     string    `json:"token,omitempty"`
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MessageResponse carries a human-readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// TokenRequest carries a single-use token in the request body
type TokenRequest struct {
	Token string `json:"token"`
}

// EmailRequest represents forgot-password and resend-verification bodies
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation.
// ConfirmPassword is optional; when present it must equal NewPassword.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

// ProvidersResponse lists the enabled social sign-in providers
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// SignUp handles account registration
// @Summary      Sign up
// @Description  Create an account with name, email and password and start a session. A verification email is sent in the background.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Account details"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/sign-up [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "sign_up") {
		return
	}

	var req SignUpRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid sign-up request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	session, err := h.service.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "failed to sign up")
		return
	}

	logger.Info("account signed up", "account_id", session.AccountID)
	h.respondSession(w, r, session, http.StatusCreated)
}

// SignIn handles password sign-in
// @Summary      Sign in
// @Description  Authenticate with email and password. Browsers receive the session in an HttpOnly cookie, other clients in the body.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Email not verified"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/sign-in [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "sign_in") {
		return
	}

	var req SignInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid sign-in request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "failed to sign in")
		return
	}

	logger.Info("account signed in", "account_id", session.AccountID)
	h.respondSession(w, r, session, http.StatusOK)
}

// SignOut handles sign-out
// @Summary      Sign out
// @Description  Invalidate the current session and clear the session cookie. Succeeds even without a valid session.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/sign-out [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.cookies)

	if err := h.service.SignOut(r.Context(), requestToken(r)); err != nil {
		respondServiceError(w, r, err, "failed to sign out")
		return
	}

	httputil.RespondJSON(w, MessageResponse{Message: "signed out"}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link. The response is the same whether or not an account exists; 503 means the email could not be sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body or email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      503 {object} httputil.ErrorResponse "Email could not be sent"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req EmailRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if !h.allowIP(w, r, "") || !h.allowEmail(w, r, req.Email) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondServiceError(w, r, err, "failed to request password reset")
		return
	}

	httputil.RespondJSON(w, MessageResponse{
		Message: "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Set a new password with a reset token. All sessions of the account are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request, password or token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.Token == "" {
		httputil.RespondErrorWithCode(w, "reset token required", httputil.CodeTokenRequired, http.StatusBadRequest)
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword {
		httputil.RespondErrorWithCode(w, "passwords do not match", httputil.CodePasswordMismatch, http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(w, r, err, "failed to reset password")
		return
	}

	ClearSessionCookie(w, h.cookies)
	httputil.RespondJSON(w, MessageResponse{
		Message: "Password reset successfully. You can now sign in with your new password.",
	}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Verify an email address with the token from the verification email. Repeating the call with the same token succeeds.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token query string false "Verification token (GET)"
// @Param        request body TokenRequest false "Verification token (POST)"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing, invalid or expired token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/verify-email [get]
// @Router       /auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if r.Method == http.MethodPost {
		var req TokenRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			logger.Warn("invalid verify email request body", "error", err.Error())
			httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		token = req.Token
	}

	if token == "" {
		httputil.RespondErrorWithCode(w, "verification token required", httputil.CodeTokenRequired, http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		respondServiceError(w, r, err, "failed to verify email")
		return
	}

	httputil.RespondJSON(w, MessageResponse{Message: "Email verified successfully."}, http.StatusOK)
}

// ResendVerificationEmail handles resending the verification email
// @Summary      Resend verification email
// @Description  Send a new verification link. The response is the same for unknown and already verified emails.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body or email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      503 {object} httputil.ErrorResponse "Email could not be sent"
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req EmailRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid resend verification request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if !h.allowIP(w, r, "") || !h.allowEmail(w, r, req.Email) {
		return
	}

	if err := h.service.ResendVerificationEmail(r.Context(), req.Email); err != nil {
		respondServiceError(w, r, err, "failed to resend verification email")
		return
	}

	httputil.RespondJSON(w, MessageResponse{
		Message: "If your email is registered and not verified, a new verification link has been sent.",
	}, http.StatusOK)
}

// ListProviders returns the enabled social sign-in providers
// @Summary      List identity providers
// @Tags         auth
// @Produce      json
// @Success      200 {object} ProvidersResponse
// @Router       /auth/oauth [get]
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, ProvidersResponse{Providers: h.service.Providers()}, http.StatusOK)
}

// OAuthStart redirects to the provider's consent screen
// @Summary      Start social sign-in
// @Tags         auth
// @Param        provider path string true "Provider name" Enums(google, github)
// @Success      302
// @Failure      404 {object} httputil.ErrorResponse "Unknown provider"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/oauth/{provider} [get]
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if !h.allowIP(w, r, "oauth") {
		return
	}

	redirect, err := h.service.BeginOAuth(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		respondServiceError(w, r, err, "failed to start sign-in")
		return
	}

	SetOAuthStateCookie(w, h.cookies, redirect.State, redirect.ExpiresAt, h.now())
	http.Redirect(w, r, redirect.URL, http.StatusFound)
}

// OAuthCallback completes social sign-in and redirects to the frontend.
// The state must match the cookie set by OAuthStart in the same browser.
// Failures are reported to the frontend as an error query parameter.
// @Summary      Social sign-in callback
// @Tags         auth
// @Param        provider path string true "Provider name" Enums(google, github)
// @Param        state query string true "State issued by the start endpoint"
// @Param        code query string true "Authorization code"
// @Success      302
// @Router       /auth/oauth/{provider}/callback [get]
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()
	ClearOAuthStateCookie(w, h.cookies)

	if providerErr := query.Get("error"); providerErr != "" {
		logger.Warn("provider denied sign-in", "provider", provider, "error", providerErr)
		h.redirectToFrontend(w, r, "/sign-in", httputil.CodeOAuthFailed)
		return
	}

	state := query.Get("state")
	if !OAuthStateMatches(r, state) {
		logger.Warn("oauth state does not match browser", "provider", provider)
		h.redirectToFrontend(w, r, "/sign-in", httputil.CodeInvalidToken)
		return
	}

	session, err := h.service.CompleteOAuth(r.Context(), provider, state, query.Get("code"))
	if err != nil {
		_, code, _ := mapServiceError(err)
		if code == httputil.CodeInternalError {
			logger.Error("social sign-in failed", "provider", provider, "error", err)
		}
		h.redirectToFrontend(w, r, "/sign-in", code)
		return
	}

	logger.Info("account signed in", "account_id", session.AccountID, "provider", provider)
	SetSessionCookie(w, h.cookies, session, h.now())
	h.redirectToFrontend(w, r, "/", "")
}

func (h *Handler) redirectToFrontend(w http.ResponseWriter, r *http.Request, path, errorCode string) {
	target := h.frontendURL + path
	if errorCode != "" {
		target += "?" + url.Values{"error": {errorCode}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, session *Session, statusCode int) {
	resp := SessionResponse{AccountID: session.AccountID, ExpiresAt: session.ExpiresAt}

	if ShouldUseCookies(r) {
		SetSessionCookie(w, h.cookies, session, h.now())
	} else {
		resp.Token = session.Token
	}

	httputil.RespondJSON(w, resp, statusCode)
}

// allowIP checks and records the per-IP limit. Limiter failures let the request through.
func (h *Handler) allowIP(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return true
}

// allowEmail enforces the cooldown between emails sent to one address
func (h *Handler) allowEmail(w http.ResponseWriter, r *http.Request, emailAddr string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	emailAddr = account.NormalizeEmail(emailAddr)
	if emailAddr == "" {
		return true
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), emailAddr)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown")
		httputil.RespondErrorWithCode(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return false
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), emailAddr); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}
	return true
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Specific validation errors come before ErrValidation, which they wrap
var errorMappings = []errorMapping{
	{ErrEmailRequired, http.StatusBadRequest, httputil.CodeEmailRequired},
	{ErrInvalidEmailFormat, http.StatusBadRequest, httputil.CodeInvalidEmailFormat},
	{ErrNameRequired, http.StatusBadRequest, httputil.CodeNameRequired},
	{ErrNameTooLong, http.StatusBadRequest, httputil.CodeNameTooLong},
	{ErrPasswordTooLong, http.StatusBadRequest, httputil.CodePasswordTooLong},
	{ErrInvalidAvatarRef, http.StatusBadRequest, httputil.CodeInvalidAvatar},
	{ErrValidation, http.StatusBadRequest, httputil.CodeValidationFailed},
	{ErrWeakCredential, http.StatusBadRequest, httputil.CodePasswordTooShort},
	{ErrDuplicateEmail, http.StatusConflict, httputil.CodeEmailAlreadyExists},
	{ErrInvalidCredentials, http.StatusUnauthorized, httputil.CodeInvalidCredentials},
	{ErrEmailNotVerified, http.StatusForbidden, httputil.CodeEmailNotVerified},
	{ErrInvalidOrExpiredToken, http.StatusBadRequest, httputil.CodeInvalidToken},
	{ErrUnauthorized, http.StatusUnauthorized, httputil.CodeUnauthorized},
	{ErrDispatch, http.StatusServiceUnavailable, httputil.CodeEmailDispatch},
	{ErrIdentityConflict, http.StatusConflict, httputil.CodeIdentityConflict},
	{ErrUnknownProvider, http.StatusNotFound, httputil.CodeUnknownProvider},
	{ErrProviderExchange, http.StatusBadGateway, httputil.CodeOAuthFailed},
}

// mapServiceError returns the status, code and public message for a service error.
// Unknown errors map to 500 with CodeInternalError.
func mapServiceError(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.target.Error()
		}
	}
	return http.StatusInternalServerError, httputil.CodeInternalError, ""
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.GetLoggerFromContext(r.Context())

	status, code, message := mapServiceError(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, code, status)
		return
	}

	logger.Warn(fallback, "code", code)
	httputil.RespondErrorWithCode(w, message, code, status)
}

// getClientIP returns the peer address. Behind a proxy this is the proxy
// unless TRUST_PROXY enables chi's RealIP middleware.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
