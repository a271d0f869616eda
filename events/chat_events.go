package events

import (
	"github.com/go-monolith/mono/pkg/helper"
)

// MessageStoredEvent is emitted after a text message has been persisted and
// broadcast to connected sessions.
type MessageStoredEvent struct {
	MessageID uint   `json:"message_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
}

// ImageStoredEvent is emitted after an image message has been persisted.
type ImageStoredEvent struct {
	MessageID uint   `json:"message_id"`
	Username  string `json:"username"`
	ImagePath string `json:"image_path"`
}

// ClientConnectedEvent is emitted when a session joins the live set.
type ClientConnectedEvent struct {
	SessionID   string `json:"session_id"`
	ActiveUsers int    `json:"active_users"`
}

// ClientDisconnectedEvent is emitted when a session leaves the live set.
type ClientDisconnectedEvent struct {
	SessionID   string `json:"session_id"`
	ActiveUsers int    `json:"active_users"`
}

// Event definitions for the chat domain.
var (
	MessageStoredV1 = helper.EventDefinition[MessageStoredEvent](
		"chat",
		"MessageStored",
		"v1",
	)

	ImageStoredV1 = helper.EventDefinition[ImageStoredEvent](
		"chat",
		"ImageStored",
		"v1",
	)

	ClientConnectedV1 = helper.EventDefinition[ClientConnectedEvent](
		"chat",
		"ClientConnected",
		"v1",
	)

	ClientDisconnectedV1 = helper.EventDefinition[ClientDisconnectedEvent](
		"chat",
		"ClientDisconnected",
		"v1",
	)
)
