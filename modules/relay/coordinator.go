package relay

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-monolith/mono"

	"github.com/Josef1981/EngineersCafe/domain/chat"
	"github.com/Josef1981/EngineersCafe/events"
)

// systemUsername is the sender identity for synthetic join announcements.
const systemUsername = "System"

// MessageStore is the durable message log the coordinator persists into.
type MessageStore interface {
	Append(msg *chat.Message) error
	ListAll() ([]*chat.Message, error)
}

// event is one inbound coordinator event. All variants go through a single
// ordered channel so persistence and fan-out for one event always complete
// before the next event is taken.
type event interface {
	isEvent()
}

type connectEvent struct{ sess Session }
type disconnectEvent struct{ sess Session }
type textEvent struct{ msg, username string }
type imageEvent struct{ imagePath, username string }
type typingEvent struct {
	sess     Session
	username string
}
type joinEvent struct {
	sess     Session
	username string
}

func (connectEvent) isEvent()    {}
func (disconnectEvent) isEvent() {}
func (textEvent) isEvent()       {}
func (imageEvent) isEvent()      {}
func (typingEvent) isEvent()     {}
func (joinEvent) isEvent()       {}

// sessionState wraps a registered session with the username learned from its
// first "user joined" event.
type sessionState struct {
	Session
	username string
}

// Coordinator is the single authority for routing events between sessions and
// the durable store. The live session set and the presence count are owned by
// its run loop; the mutex only guards reads from other goroutines.
type Coordinator struct {
	store MessageStore
	bus   mono.EventBus // may be nil; event publishing is then skipped

	events chan event
	done   chan struct{}

	mu       sync.RWMutex
	sessions map[string]*sessionState
	active   int
}

// NewCoordinator creates a new Coordinator. The bus is optional.
func NewCoordinator(store MessageStore, bus mono.EventBus) *Coordinator {
	return &Coordinator{
		store:    store,
		bus:      bus,
		events:   make(chan event, 256),
		done:     make(chan struct{}),
		sessions: make(map[string]*sessionState),
	}
}

// Run processes inbound events one at a time until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[relay] Shutting down...")
			c.closeAllSessions()
			close(c.done)
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Wait blocks until the coordinator has stopped.
func (c *Coordinator) Wait() {
	<-c.done
}

// Connect registers a session: it receives the history snapshot and everyone
// gets the updated presence count.
func (c *Coordinator) Connect(sess Session) {
	c.events <- connectEvent{sess: sess}
}

// Disconnect removes a session. Safe against duplicate disconnect signals for
// the same session; removing an unknown session is a no-op.
func (c *Coordinator) Disconnect(sess Session) {
	c.events <- disconnectEvent{sess: sess}
}

// SendText persists a text message and broadcasts it to all sessions,
// including the sender. Empty text (after trimming) is dropped silently.
func (c *Coordinator) SendText(msg, username string) {
	c.events <- textEvent{msg: msg, username: username}
}

// SendImage persists an image message and broadcasts its public path to all
// sessions. The image bytes themselves are the upload collaborator's concern.
func (c *Coordinator) SendImage(imagePath, username string) {
	c.events <- imageEvent{imagePath: imagePath, username: username}
}

// Typing notifies every session except the sender. Ephemeral: never persisted,
// no delivery guarantee.
func (c *Coordinator) Typing(sess Session, username string) {
	c.events <- typingEvent{sess: sess, username: username}
}

// Join records the session's username and announces it to the room.
func (c *Coordinator) Join(sess Session, username string) {
	c.events <- joinEvent{sess: sess, username: username}
}

// ActiveUsers returns the current presence count.
func (c *Coordinator) ActiveUsers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Coordinator) handle(ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		c.handleConnect(ev.sess)
	case disconnectEvent:
		c.handleDisconnect(ev.sess)
	case textEvent:
		c.handleText(ev.msg, ev.username)
	case imageEvent:
		c.handleImage(ev.imagePath, ev.username)
	case typingEvent:
		c.handleTyping(ev.sess, ev.username)
	case joinEvent:
		c.handleJoin(ev.sess, ev.username)
	}
}

func (c *Coordinator) handleConnect(sess Session) {
	c.mu.Lock()
	c.sessions[sess.ID()] = &sessionState{Session: sess}
	c.active++
	count := c.active
	c.mu.Unlock()

	log.Printf("[relay] Session %s connected (%d active)", sess.ID(), count)

	// Snapshot first, then the count broadcast. Both happen inside this one
	// event, so no message can interleave between them from the new client's
	// point of view.
	messages, err := c.store.ListAll()
	if err != nil {
		log.Printf("[relay] Failed to load history for %s: %v", sess.ID(), err)
	} else {
		snapshot := LoadMessagesPayload{
			Messages:    make([]StoredMessage, 0, len(messages)),
			ActiveUsers: count,
		}
		for _, msg := range messages {
			snapshot.Messages = append(snapshot.Messages, StoredMessage{
				Content:  msg.Content,
				Image:    msg.Image,
				Username: msg.Username,
			})
		}
		sess.Send(EventLoadMessages, snapshot)
	}

	c.broadcastAll(EventUpdateActiveUsers, count)

	c.publishConnected(events.ClientConnectedEvent{
		SessionID:   sess.ID(),
		ActiveUsers: count,
	})
}

func (c *Coordinator) handleDisconnect(sess Session) {
	c.mu.Lock()
	if _, ok := c.sessions[sess.ID()]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, sess.ID())
	c.active--
	count := c.active
	c.mu.Unlock()

	log.Printf("[relay] Session %s disconnected (%d active)", sess.ID(), count)

	c.broadcastAll(EventUpdateActiveUsers, count)

	c.publishDisconnected(events.ClientDisconnectedEvent{
		SessionID:   sess.ID(),
		ActiveUsers: count,
	})
}

func (c *Coordinator) handleText(msg, username string) {
	if strings.TrimSpace(msg) == "" {
		return
	}

	record := &chat.Message{Content: &msg, Username: username}
	if err := c.store.Append(record); err != nil {
		// Best-effort: the sender gets no error signal for a failed send.
		log.Printf("[relay] Failed to store message from %s: %v", username, err)
		return
	}

	c.broadcastAll(EventChatMessage, ChatMessagePayload{Msg: msg, Username: username})

	c.publishMessageStored(events.MessageStoredEvent{
		MessageID: record.ID,
		Username:  username,
		Content:   msg,
	})
}

func (c *Coordinator) handleImage(imagePath, username string) {
	record := &chat.Message{Image: &imagePath, Username: username}
	if err := c.store.Append(record); err != nil {
		log.Printf("[relay] Failed to store image from %s: %v", username, err)
		return
	}

	c.broadcastAll(EventChatImage, ChatImagePayload{ImagePath: imagePath, Username: username})

	c.publishImageStored(events.ImageStoredEvent{
		MessageID: record.ID,
		Username:  username,
		ImagePath: imagePath,
	})
}

func (c *Coordinator) handleTyping(sender Session, username string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, state := range c.sessions {
		if id == sender.ID() {
			continue
		}
		state.Send(EventTyping, username)
	}
}

func (c *Coordinator) handleJoin(sess Session, username string) {
	c.mu.Lock()
	if state, ok := c.sessions[sess.ID()]; ok && state.username == "" {
		state.username = username
	}
	c.mu.Unlock()

	// Join announcements take the same path as regular text sends, so they
	// land in history and reach every session in canonical order.
	c.handleText(fmt.Sprintf("%s joined the conversation", username), systemUsername)
}

// broadcastAll delivers one event to every session. Delivery is per-session
// fire-and-forget; Send never blocks.
func (c *Coordinator) broadcastAll(eventName string, payload any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, state := range c.sessions {
		state.Send(eventName, payload)
	}
}

func (c *Coordinator) closeAllSessions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, state := range c.sessions {
		_ = state.Close()
	}
	c.sessions = make(map[string]*sessionState)
	c.active = 0
}

func (c *Coordinator) publishMessageStored(ev events.MessageStoredEvent) {
	if c.bus == nil {
		return
	}
	if err := events.MessageStoredV1.Publish(c.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish MessageStored event", "error", err)
	}
}

func (c *Coordinator) publishImageStored(ev events.ImageStoredEvent) {
	if c.bus == nil {
		return
	}
	if err := events.ImageStoredV1.Publish(c.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish ImageStored event", "error", err)
	}
}

func (c *Coordinator) publishConnected(ev events.ClientConnectedEvent) {
	if c.bus == nil {
		return
	}
	if err := events.ClientConnectedV1.Publish(c.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish ClientConnected event", "error", err)
	}
}

func (c *Coordinator) publishDisconnected(ev events.ClientDisconnectedEvent) {
	if c.bus == nil {
		return
	}
	if err := events.ClientDisconnectedV1.Publish(c.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish ClientDisconnected event", "error", err)
	}
}
