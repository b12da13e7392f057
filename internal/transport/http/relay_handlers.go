package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// RelayHandlers serves the API used by trusted backends.
type RelayHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRelayHandlers creates a new relay handlers instance.
func NewRelayHandlers(hub *core.Hub, logger *zerolog.Logger) *RelayHandlers {
	return &RelayHandlers{hub: hub, log: logger}
}

// StatusResponse is the envelope returned by backend endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// EmitMessageRequest is a chat message pushed by a backend. The aliased
// fields (threadId, sender, msgId, image) are accepted for older callers.
type EmitMessageRequest struct {
	RoomKey        proto.Key       `json:"roomKey"`
	ThreadID       proto.Key       `json:"threadId"`
	Message        json.RawMessage `json:"message"`
	SenderIdentity json.RawMessage `json:"senderIdentity"`
	Sender         json.RawMessage `json:"sender"`
	SenderDisplay  json.RawMessage `json:"senderDisplay"`
	Timestamp      json.RawMessage `json:"timestamp"`
	From           json.RawMessage `json:"from"`
	Attachment     json.RawMessage `json:"attachment"`
	Image          json.RawMessage `json:"image"`
	MessageID      json.RawMessage `json:"messageId"`
	MsgID          json.RawMessage `json:"msgId"`
}

// AdminBlockRequest changes the blocked state of an identity.
type AdminBlockRequest struct {
	Identity proto.Key `json:"identity"`
	Blocked  bool      `json:"blocked"`
}

var missingFieldsResponse = StatusResponse{Status: statusError, Message: "Missing required fields"}

// EmitMessage relays a message into a room.
// POST /emit-message, POST /api/emit-message
func (h *RelayHandlers) EmitMessage(c *gin.Context) {
	var req EmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid emit-message body")
		c.JSON(http.StatusBadRequest, missingFieldsResponse)
		return
	}

	room, okRoom := canonical(firstKey(req.RoomKey, req.ThreadID))
	sender := lo.Ternary(present(req.SenderIdentity), req.SenderIdentity, req.Sender)
	id := lo.Ternary(present(req.MessageID), req.MessageID, req.MsgID)
	if !okRoom || !present(req.Message) || !present(sender) || !present(req.From) || !present(req.Timestamp) || !present(id) {
		h.log.Warn().Str("room", room).Msg("emit-message missing required fields")
		c.JSON(http.StatusBadRequest, missingFieldsResponse)
		return
	}

	delivered, err := h.hub.SendMessage(core.Message{
		Room:           core.RoomKey(room),
		Text:           req.Message,
		SenderIdentity: sender,
		SenderDisplay:  req.SenderDisplay,
		From:           req.From,
		Timestamp:      req.Timestamp,
		Attachment:     lo.Ternary(present(req.Attachment), req.Attachment, req.Image),
		ID:             id,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: statusError, Message: err.Error()})
		return
	}

	h.log.Debug().Str("room", room).Int("delivered", delivered).Msg("emitted message")
	c.JSON(http.StatusOK, StatusResponse{Status: statusSuccess})
}

// AdminBlock blocks or unblocks an identity.
// POST /api/admin/block
func (h *RelayHandlers) AdminBlock(c *gin.Context) {
	var req AdminBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: statusError, Message: "invalid request body"})
		return
	}
	identity, ok := canonical(req.Identity)
	if !ok {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: statusError, Message: "identity is required"})
		return
	}

	if err := h.hub.AdminSetBlocked(identity, req.Blocked); err != nil {
		h.log.Error().Err(err).Str("identity", identity).Msg("admin block failed")
		c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: statusError, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: statusSuccess})
}

// UserStatus reports the presence of one identity.
// GET /api/users/:identity/status
func (h *RelayHandlers) UserStatus(c *gin.Context) {
	identity := c.Param("identity")
	c.JSON(http.StatusOK, statusPayload(h.hub.LookupStatus(identity)))
}

// OnlineUsers lists every identity with a presence record.
// GET /api/online-users
func (h *RelayHandlers) OnlineUsers(c *gin.Context) {
	users := lo.Map(h.hub.OnlineUsers(), func(s core.StatusInfo, _ int) proto.OnlineUser {
		return proto.OnlineUser{
			Identity:     s.Identity,
			DisplayName:  s.DisplayName,
			ContactEmail: s.ContactEmail,
			Status:       s.Status,
		}
	})
	c.JSON(http.StatusOK, users)
}

// Metrics exposes the hub counters.
// GET /metrics
func (h *RelayHandlers) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Metrics())
}

func firstKey(keys ...proto.Key) proto.Key {
	for _, k := range keys {
		if !k.Empty() {
			return k
		}
	}
	return proto.Key{}
}

// present reports whether a raw field carries a usable value. Null, false,
// zero and the empty string count as missing.
func present(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
