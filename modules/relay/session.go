package relay

// Event names on the wire. Names and payload shapes are the contract with the
// browser client; do not rename.
const (
	EventUserJoined        = "user joined"
	EventChatMessage       = "chat message"
	EventChatImage         = "chat image"
	EventTyping            = "typing"
	EventLoadMessages      = "load messages"
	EventUpdateActiveUsers = "update active users"
)

// Session is one live client connection as seen by the coordinator. Send must
// never block: a slow or dead consumer drops frames instead of stalling the
// fan-out to everyone else. The transport behind a Session is substitutable;
// the coordinator never touches connection internals.
type Session interface {
	ID() string
	Send(event string, payload any)
	Close() error
}

// ChatMessagePayload is the payload of a "chat message" event, both inbound
// and broadcast.
type ChatMessagePayload struct {
	Msg      string `json:"msg"`
	Username string `json:"username"`
}

// ChatImagePayload is the payload of a "chat image" broadcast.
type ChatImagePayload struct {
	ImagePath string `json:"imagePath"`
	Username  string `json:"username"`
}

// StoredMessage is one history entry inside a "load messages" snapshot.
// Exactly one of Content/Image is non-nil.
type StoredMessage struct {
	Content  *string `json:"content"`
	Image    *string `json:"image"`
	Username string  `json:"username"`
}

// LoadMessagesPayload is the snapshot sent to a newly connected session.
type LoadMessagesPayload struct {
	Messages    []StoredMessage `json:"messages"`
	ActiveUsers int             `json:"activeUsers"`
}
