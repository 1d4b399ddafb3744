package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"linkup-backend/internal/middleware"
	"linkup-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsReadLimit = 4096

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub                  *services.WSHub
	tokens               middleware.TokenValidator
	subscriber           *services.EventSubscriber
	friendRequestService *services.FriendRequestService
	upgrader             websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler.
// An empty allowedOrigins list or a "*" entry accepts any origin.
func NewWebSocketHandler(
	hub *services.WSHub,
	tokens middleware.TokenValidator,
	subscriber *services.EventSubscriber,
	friendRequestService *services.FriendRequestService,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                  hub,
		tokens:               tokens,
		subscriber:           subscriber,
		friendRequestService: friendRequestService,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// parseEventKinds parses the events query parameter. Empty means every kind.
func parseEventKinds(raw string) ([]services.EventKind, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var kinds []services.EventKind
	for _, part := range strings.Split(raw, ",") {
		kind := services.EventKind(strings.TrimSpace(part))
		switch kind {
		case services.EventFriendRequestReceived, services.EventFriendRequestAccepted:
			kinds = append(kinds, kind)
		default:
			return nil, false
		}
	}
	return kinds, true
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.tokens.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	kinds, ok := parseEventKinds(r.URL.Query().Get("events"))
	if !ok {
		respondError(w, "unknown event type", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	sub, err := h.subscriber.Subscribe(ctx, userID, kinds...)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to subscribe to events")
		respondError(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	client := h.hub.Register(userID, conn)
	defer h.hub.Unregister(client)

	h.sendStatus(r, client)

	go func() {
		for event := range sub.Events() {
			if err := client.Send(services.WSMessage{
				Type:      string(event.Kind),
				Timestamp: event.Timestamp,
				Data:      event,
			}); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("Failed to forward event")
				return
			}
		}
	}()

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(client, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			_ = client.Send(services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
		case "status":
			h.sendStatus(r, client)
		default:
			h.sendError(client, "Unknown message type")
		}
	}
}

// sendStatus sends the notification_status snapshot with the pending incoming request count
func (h *WebSocketHandler) sendStatus(r *http.Request, client *services.Client) {
	pending, err := h.friendRequestService.ListIncomingPending(r.Context(), client.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", client.UserID).Msg("Failed to count pending requests")
		return
	}

	if err := client.Send(services.WSMessage{
		Type: "notification_status",
		Data: map[string]interface{}{
			"pending_requests": len(pending),
		},
	}); err != nil {
		log.Error().Err(err).Str("user_id", client.UserID).Msg("Failed to send notification_status message")
	}
}

// sendError sends an error message to the WebSocket connection
func (h *WebSocketHandler) sendError(client *services.Client, message string) {
	if err := client.Send(services.WSMessage{Type: "error", Message: message}); err != nil {
		log.Debug().Err(err).Str("user_id", client.UserID).Msg("Failed to send error message")
	}
}
