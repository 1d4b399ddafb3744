package handlers

import (
	"net/http"

	"linkup-backend/internal/middleware"
	"linkup-backend/internal/models"
	"linkup-backend/internal/services"
)

// Presence reports whether a user has a live connection
type Presence interface {
	IsOnline(userID string) bool
}

// DirectoryHandler handles user discovery requests
type DirectoryHandler struct {
	directoryService *services.DirectoryService
	presence         Presence
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directoryService *services.DirectoryService, presence Presence) *DirectoryHandler {
	return &DirectoryHandler{
		directoryService: directoryService,
		presence:         presence,
	}
}

// FriendResponse is a friend with presence information
type FriendResponse struct {
	*models.User
	Online bool `json:"online"`
}

// Recommend handles GET /api/v1/users
func (h *DirectoryHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	users, err := h.directoryService.Recommend(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get recommended users")
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// Search handles GET /api/v1/users/search?query=
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	users, err := h.directoryService.Search(r.Context(), userID, r.URL.Query().Get("query"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to search users")
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// ListFriends handles GET /api/v1/users/friends
func (h *DirectoryHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	friends, err := h.directoryService.ListFriends(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get friends")
		return
	}

	response := make([]FriendResponse, 0, len(friends))
	for _, f := range friends {
		response = append(response, FriendResponse{
			User:   f,
			Online: h.presence != nil && h.presence.IsOnline(f.ID),
		})
	}

	respondJSON(w, http.StatusOK, response)
}
