package handlers

import (
	"net/http"

	"linkup-backend/internal/middleware"
	"linkup-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AvatarHandler handles profile picture uploads
type AvatarHandler struct {
	avatarService *services.AvatarService
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(avatarService *services.AvatarService) *AvatarHandler {
	return &AvatarHandler{
		avatarService: avatarService,
	}
}

// UploadURLRequest represents a request for a pre-signed upload URL
type UploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png image/webp image/gif"`
}

// ConfirmAvatarRequest represents the uploaded object to use as avatar
type ConfirmAvatarRequest struct {
	Key string `json:"key" validate:"required,max=300"`
}

// CreateUploadURL handles POST /api/v1/users/me/avatar/upload
func (h *AvatarHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upload, err := h.avatarService.CreateUploadURL(r.Context(), userID, req.ContentType)
	if err != nil {
		respondServiceError(w, r, err, "Failed to generate pre-signed URL")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("key", upload.Key).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, upload)
}

// ConfirmUpload handles PUT /api/v1/users/me/avatar
func (h *AvatarHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ConfirmAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.avatarService.ConfirmUpload(r.Context(), userID, req.Key)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update avatar")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"profile_pic": url})
}
