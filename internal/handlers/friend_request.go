package handlers

import (
	"net/http"

	"linkup-backend/internal/middleware"
	"linkup-backend/internal/models"
	"linkup-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// FriendRequestHandler handles friend request HTTP requests
type FriendRequestHandler struct {
	friendRequestService *services.FriendRequestService
}

// NewFriendRequestHandler creates a new friend request handler
func NewFriendRequestHandler(friendRequestService *services.FriendRequestService) *FriendRequestHandler {
	return &FriendRequestHandler{
		friendRequestService: friendRequestService,
	}
}

// TransitionResponse is returned after accepting or rejecting a request
type TransitionResponse struct {
	Message string                `json:"message"`
	Request *models.FriendRequest `json:"request"`
}

// SendRequest handles POST /api/v1/users/friend-requests/{id}
func (h *FriendRequestHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	recipientID := chi.URLParam(r, "id")

	req, err := h.friendRequestService.Send(r.Context(), userID, recipientID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to send friend request")
		return
	}

	respondJSON(w, http.StatusCreated, req)
}

// AcceptRequest handles PUT /api/v1/users/friend-requests/{id}/accept
func (h *FriendRequestHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "id")

	req, err := h.friendRequestService.Accept(r.Context(), userID, requestID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to accept friend request")
		return
	}

	respondJSON(w, http.StatusOK, TransitionResponse{Message: "Friend request accepted", Request: req})
}

// RejectRequest handles PUT /api/v1/users/friend-requests/{id}/reject
func (h *FriendRequestHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "id")

	req, err := h.friendRequestService.Reject(r.Context(), userID, requestID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to reject friend request")
		return
	}

	respondJSON(w, http.StatusOK, TransitionResponse{Message: "Friend request rejected", Request: req})
}

// ListRequests handles GET /api/v1/users/friend-requests
func (h *FriendRequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	requests, err := h.friendRequestService.Incoming(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get friend requests")
		return
	}

	respondJSON(w, http.StatusOK, requests)
}

// ListOutgoing handles GET /api/v1/users/outgoing-friend-requests
func (h *FriendRequestHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	requests, err := h.friendRequestService.ListOutgoingPending(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get outgoing friend requests")
		return
	}

	respondJSON(w, http.StatusOK, requests)
}
