package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-starter/internal/account"
	"github.com/redmonkez12/go-auth-starter/internal/httputil"
	"github.com/redmonkez12/go-auth-starter/internal/logging"
	"github.com/redmonkez12/go-auth-starter/internal/storage"
)

// AvatarUploader hands out direct-upload URLs. Satisfied by *storage.AvatarStore.
type AvatarUploader interface {
	PresignUpload(ctx context.Context, accountID uuid.UUID, contentType string) (*storage.PresignedUpload, error)
}

// ProfileHandler serves the signed-in account's profile.
// Every route must sit behind Middleware.RequireSession.
type ProfileHandler struct {
	service  *Service
	uploader AvatarUploader
}

// NewProfileHandler accepts a nil uploader when avatar storage is disabled
func NewProfileHandler(service *Service, uploader AvatarUploader) *ProfileHandler {
	return &ProfileHandler{service: service, uploader: uploader}
}

// ProfileResponse represents an account in API responses
type ProfileResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AvatarURL     *string   `json:"avatar_url"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpdateProfileRequest is a partial update. An omitted field keeps its value;
// "avatar_url": null or "" removes the avatar.
type UpdateProfileRequest struct {
	Name      *string         `json:"name,omitempty"`
	AvatarURL json.RawMessage `json:"avatar_url,omitempty" swaggertype:"string"`
}

// AvatarUploadRequest names the MIME type of the image to upload
type AvatarUploadRequest struct {
	ContentType string `json:"content_type" example:"image/png"`
}

func newProfileResponse(acc *account.Account) ProfileResponse {
	return ProfileResponse{
		ID:            acc.ID,
		Email:         acc.Email,
		Name:          acc.Name,
		AvatarURL:     acc.AvatarURL,
		EmailVerified: acc.EmailVerified,
		CreatedAt:     acc.CreatedAt,
		UpdatedAt:     acc.UpdatedAt,
	}
}

// GetProfile returns the signed-in account
// @Summary      Get profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ProfileResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /profile [get]
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := GetAccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, newProfileResponse(acc), http.StatusOK)
}

// UpdateProfile changes the display name and avatar
// @Summary      Update profile
// @Description  Update name and avatar. The avatar must be an image uploaded through the upload URL endpoint.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} ProfileResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /profile [patch]
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	session, ok := GetSessionFromContext(r.Context())
	acc, accOK := GetAccountFromContext(r.Context())
	if !ok || !accOK {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid update profile request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	name := acc.Name
	if req.Name != nil {
		name = *req.Name
	}

	avatar := acc.AvatarURL
	if len(req.AvatarURL) > 0 {
		avatar = nil
		if err := json.Unmarshal(req.AvatarURL, &avatar); err != nil {
			httputil.RespondErrorWithCode(w, "avatar_url must be a string or null", httputil.CodeInvalidAvatar, http.StatusBadRequest)
			return
		}
	}

	updated, err := h.service.UpdateProfile(r.Context(), session, name, avatar)
	if err != nil {
		respondServiceError(w, r, err, "failed to update profile")
		return
	}

	logger.Info("profile updated", "account_id", updated.ID)
	httputil.RespondJSON(w, newProfileResponse(updated), http.StatusOK)
}

// CreateAvatarUploadURL returns a presigned URL for uploading an avatar image
// @Summary      Create avatar upload URL
// @Description  Returns a short-lived URL to PUT a JPEG, PNG or WebP image to. Use the returned asset_url in PATCH /profile.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AvatarUploadRequest true "Image content type"
// @Success      200 {object} storage.PresignedUpload
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      415 {object} httputil.ErrorResponse "Unsupported image type"
// @Failure      501 {object} httputil.ErrorResponse "Avatar storage not configured"
// @Router       /profile/avatar/upload-url [post]
func (h *ProfileHandler) CreateAvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	if h.uploader == nil {
		httputil.RespondErrorWithCode(w, "avatar uploads are not configured", httputil.CodeStorageDisabled, http.StatusNotImplemented)
		return
	}

	var req AvatarUploadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid avatar upload request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	upload, err := h.uploader.PresignUpload(r.Context(), session.AccountID, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			httputil.RespondErrorWithCode(w, "avatar must be a JPEG, PNG or WebP image", httputil.CodeUnsupportedMedia, http.StatusUnsupportedMediaType)
			return
		}
		logger.Error("failed to presign avatar upload", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create upload url", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, upload, http.StatusOK)
}
