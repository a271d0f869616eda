package wsserver

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Josef1981/EngineersCafe/modules/history"
	"github.com/Josef1981/EngineersCafe/modules/relay"
	"github.com/Josef1981/EngineersCafe/modules/stats"
	"github.com/Josef1981/EngineersCafe/modules/upload"
)

// Envelope frames every event on the websocket. Type carries the event name,
// Payload the event payload as defined by the wire contract.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handlers contains the HTTP and websocket request handlers.
type Handlers struct {
	coord   *relay.Coordinator
	uploads *upload.Service
	stats   *stats.StatsModule
	history history.HistoryPort
	logger  *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(coord *relay.Coordinator, uploads *upload.Service, statsModule *stats.StatsModule, historyPort history.HistoryPort) *Handlers {
	return &Handlers{
		coord:   coord,
		uploads: uploads,
		stats:   statsModule,
		history: historyPort,
		logger:  slog.Default(),
	}
}

// HandleWebSocket owns one websocket connection: it registers the session
// with the coordinator, decodes inbound envelopes into typed coordinator
// calls, and tears the session down when the read loop ends.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	sess := newSession(uuid.New().String(), c, h.logger)
	go sess.writePump()

	h.coord.Connect(sess)

	defer func() {
		// Disconnect is idempotent, so a duplicate signal here is harmless.
		h.coord.Disconnect(sess)
		_ = sess.Close()
	}()

	h.logger.Info("WebSocket connected", "sessionID", sess.ID())

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "sessionID", sess.ID(), "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			sess.SendError("Invalid message format")
			continue
		}

		h.dispatch(sess, env)
	}

	h.logger.Info("WebSocket disconnected", "sessionID", sess.ID())
}

// dispatch decodes one inbound envelope into the matching coordinator call.
// Payloads are decoded once here, at the edge.
func (h *Handlers) dispatch(sess *wsSession, env Envelope) {
	switch env.Type {
	case relay.EventUserJoined:
		var username string
		if err := json.Unmarshal(env.Payload, &username); err != nil || username == "" {
			sess.SendError("Invalid join payload")
			return
		}
		h.coord.Join(sess, username)

	case relay.EventChatMessage:
		var msg relay.ChatMessagePayload
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			sess.SendError("Invalid message payload")
			return
		}
		h.coord.SendText(msg.Msg, msg.Username)

	case relay.EventTyping:
		var username string
		if err := json.Unmarshal(env.Payload, &username); err != nil {
			sess.SendError("Invalid typing payload")
			return
		}
		h.coord.Typing(sess, username)

	default:
		sess.SendError("Unknown message type: " + env.Type)
	}
}

// HandleUpload handles image uploads (POST /upload). On success the stored
// public path is handed to the coordinator, which persists and broadcasts the
// image message.
func (h *Handlers) HandleUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("No file uploaded.")
	}

	username := c.FormValue("username", "Unknown")

	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("No file uploaded.")
	}
	defer file.Close()

	imagePath, err := h.uploads.Store(header.Filename, file, header.Size)
	if err != nil {
		if errors.Is(err, upload.ErrFileTooLarge) {
			return c.Status(fiber.StatusBadRequest).SendString("File too large.")
		}
		h.logger.Error("Failed to store upload", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to save image.")
	}

	h.coord.SendImage(imagePath, username)

	return c.SendString("Image uploaded successfully.")
}

// ListMessages handles history requests (GET /api/v1/messages).
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	messages, err := h.history.ListMessages(c.Context())
	if err != nil {
		h.logger.Error("Failed to list messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"total":    len(messages),
	})
}

// GetStats handles activity counter requests (GET /api/v1/stats).
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.stats.Snapshot())
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"service":      "engineers-cafe",
		"active_users": h.coord.ActiveUsers(),
	})
}
