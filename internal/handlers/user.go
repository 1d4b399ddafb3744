package handlers

import (
	"net/http"

	"linkup-backend/internal/middleware"
	"linkup-backend/internal/models"
	"linkup-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest represents the request body for registration
type CreateUserRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
}

// OnboardingRequest represents the request body for completing onboarding
type OnboardingRequest struct {
	FullName         string `json:"full_name" validate:"required,max=100"`
	Bio              string `json:"bio" validate:"max=500"`
	NativeLanguage   string `json:"native_language" validate:"required,max=50"`
	LearningLanguage string `json:"learning_language" validate:"required,max=50"`
	Location         string `json:"location" validate:"max=100"`
	ProfilePic       string `json:"profile_pic" validate:"omitempty,url"`
}

// PushTokenRequest represents the request body for registering a device
type PushTokenRequest struct {
	PushToken string `json:"push_token" validate:"max=200"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.userService.Register(r.Context(), req.FullName)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create user")
		return
	}

	log.Info().Str("user_id", reg.User.ID).Msg("User created")

	respondJSON(w, http.StatusCreated, reg)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// CompleteOnboarding handles PUT /api/v1/users/me/onboarding
func (h *UserHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req OnboardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.CompleteOnboarding(r.Context(), userID, models.Profile{
		FullName:         req.FullName,
		Bio:              req.Bio,
		NativeLanguage:   req.NativeLanguage,
		LearningLanguage: req.LearningLanguage,
		Location:         req.Location,
		ProfilePic:       req.ProfilePic,
	})
	if err != nil {
		respondServiceError(w, r, err, "Failed to complete onboarding")
		return
	}

	log.Info().Str("user_id", userID).Msg("User onboarded")

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/v1/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		respondServiceError(w, r, err, "Failed to update push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
