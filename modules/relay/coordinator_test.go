package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Josef1981/EngineersCafe/domain/chat"
)

// memStore is an in-memory MessageStore for coordinator tests.
type memStore struct {
	mu   sync.Mutex
	msgs []*chat.Message
	next uint
}

func (s *memStore) Append(msg *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	msg.ID = s.next
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *memStore) ListAll() ([]*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Message, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

// failStore fails every append.
type failStore struct {
	memStore
}

func (s *failStore) Append(*chat.Message) error {
	return errors.New("disk on fire")
}

type sentEvent struct {
	Event   string
	Payload any
}

// fakeSession records everything the coordinator sends to it.
type fakeSession struct {
	id string

	mu     sync.Mutex
	events []sentEvent
	closed bool
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Send(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{Event: event, Payload: payload})
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// received returns all payloads recorded for one event name.
func (f *fakeSession) received(event string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, ev := range f.events {
		if ev.Event == event {
			out = append(out, ev.Payload)
		}
	}
	return out
}

func (f *fakeSession) count(event string) int {
	return len(f.received(event))
}

func (f *fakeSession) last(event string) (any, bool) {
	all := f.received(event)
	if len(all) == 0 {
		return nil, false
	}
	return all[len(all)-1], true
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

// startCoordinator runs a coordinator loop for the duration of the test.
func startCoordinator(t *testing.T, store MessageStore) *Coordinator {
	t.Helper()
	c := NewCoordinator(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		c.Wait()
	})
	return c
}

func textMsg(content, username string) *chat.Message {
	return &chat.Message{Content: &content, Username: username}
}

func TestCoordinator_ConnectSnapshot(t *testing.T) {
	store := &memStore{}
	_ = store.Append(textMsg("hello", "alice"))
	_ = store.Append(textMsg("hey", "bob"))

	c := startCoordinator(t, store)
	s1 := newFakeSession("s1")
	c.Connect(s1)

	waitFor(t, func() bool { return s1.count(EventLoadMessages) == 1 }, "s1 receives snapshot")

	payload, _ := s1.last(EventLoadMessages)
	snapshot, ok := payload.(LoadMessagesPayload)
	if !ok {
		t.Fatalf("expected LoadMessagesPayload, got %T", payload)
	}
	if len(snapshot.Messages) != 2 {
		t.Errorf("expected 2 history messages, got %d", len(snapshot.Messages))
	}
	if snapshot.ActiveUsers != 1 {
		t.Errorf("expected activeUsers 1 (including self), got %d", snapshot.ActiveUsers)
	}
	if snapshot.Messages[0].Content == nil || *snapshot.Messages[0].Content != "hello" {
		t.Errorf("expected first history message 'hello', got %+v", snapshot.Messages[0])
	}

	waitFor(t, func() bool { return s1.count(EventUpdateActiveUsers) == 1 }, "s1 receives count broadcast")
	count, _ := s1.last(EventUpdateActiveUsers)
	if count != 1 {
		t.Errorf("expected broadcast count 1, got %v", count)
	}
}

func TestCoordinator_ThreeSessionScenario(t *testing.T) {
	store := &memStore{}
	c := startCoordinator(t, store)

	s1 := newFakeSession("s1")
	s2 := newFakeSession("s2")
	s3 := newFakeSession("s3")

	// Connect in order; each connector's snapshot must count itself.
	c.Connect(s1)
	waitFor(t, func() bool { return s1.count(EventLoadMessages) == 1 }, "s1 snapshot")
	c.Connect(s2)
	waitFor(t, func() bool { return s2.count(EventLoadMessages) == 1 }, "s2 snapshot")
	c.Connect(s3)
	waitFor(t, func() bool { return s3.count(EventLoadMessages) == 1 }, "s3 snapshot")

	for i, sess := range []*fakeSession{s1, s2, s3} {
		payload, _ := sess.last(EventLoadMessages)
		snapshot := payload.(LoadMessagesPayload)
		if snapshot.ActiveUsers != i+1 {
			t.Errorf("session %d: expected snapshot activeUsers %d, got %d", i+1, i+1, snapshot.ActiveUsers)
		}
	}

	// All three see the count reach 3.
	for _, sess := range []*fakeSession{s1, s2, s3} {
		sess := sess
		waitFor(t, func() bool {
			last, ok := sess.last(EventUpdateActiveUsers)
			return ok && last == 3
		}, "count reaches 3 on "+sess.ID())
	}

	// S1 sends a message; everyone, including S1, receives it.
	c.SendText("hi", "alice")
	for _, sess := range []*fakeSession{s1, s2, s3} {
		sess := sess
		waitFor(t, func() bool { return sess.count(EventChatMessage) == 1 }, "chat message on "+sess.ID())
		payload, _ := sess.last(EventChatMessage)
		msg := payload.(ChatMessagePayload)
		if msg.Msg != "hi" || msg.Username != "alice" {
			t.Errorf("%s: expected {hi alice}, got %+v", sess.ID(), msg)
		}
	}

	msgs, _ := store.ListAll()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(msgs))
	}
	if msgs[0].Content == nil || *msgs[0].Content != "hi" {
		t.Errorf("expected stored content 'hi', got %+v", msgs[0])
	}
	if msgs[0].Image != nil {
		t.Error("expected image to be absent on a text message")
	}

	// S2 disconnects; the rest see the count drop to 2.
	c.Disconnect(s2)
	for _, sess := range []*fakeSession{s1, s3} {
		sess := sess
		waitFor(t, func() bool {
			last, ok := sess.last(EventUpdateActiveUsers)
			return ok && last == 2
		}, "count drops to 2 on "+sess.ID())
	}
}

func TestCoordinator_EmptyTextDropped(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{name: "empty", msg: ""},
		{name: "spaces", msg: "   "},
		{name: "whitespace mix", msg: " \t\n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			c := startCoordinator(t, store)
			s1 := newFakeSession("s1")
			c.Connect(s1)
			waitFor(t, func() bool { return s1.count(EventLoadMessages) == 1 }, "s1 snapshot")

			c.SendText(tt.msg, "alice")
			// Barrier: a valid send processed after the empty one.
			c.SendText("ping", "alice")
			waitFor(t, func() bool { return s1.count(EventChatMessage) == 1 }, "barrier message")

			payload, _ := s1.last(EventChatMessage)
			if msg := payload.(ChatMessagePayload); msg.Msg != "ping" {
				t.Errorf("expected only the barrier broadcast, got %+v", msg)
			}
			msgs, _ := store.ListAll()
			if len(msgs) != 1 {
				t.Errorf("expected 1 stored message (barrier only), got %d", len(msgs))
			}
		})
	}
}

func TestCoordinator_TypingExcludesSender(t *testing.T) {
	store := &memStore{}
	c := startCoordinator(t, store)

	s1 := newFakeSession("s1")
	s2 := newFakeSession("s2")
	s3 := newFakeSession("s3")
	for _, sess := range []*fakeSession{s1, s2, s3} {
		c.Connect(sess)
	}
	waitFor(t, func() bool { return s3.count(EventLoadMessages) == 1 }, "all connected")

	c.Typing(s1, "alice")

	for _, sess := range []*fakeSession{s2, s3} {
		sess := sess
		waitFor(t, func() bool { return sess.count(EventTyping) == 1 }, "typing on "+sess.ID())
		payload, _ := sess.last(EventTyping)
		if payload != "alice" {
			t.Errorf("%s: expected typing payload 'alice', got %v", sess.ID(), payload)
		}
	}

	// Barrier to make sure the typing event is fully processed.
	c.SendText("done", "alice")
	waitFor(t, func() bool { return s1.count(EventChatMessage) == 1 }, "barrier")
	if got := s1.count(EventTyping); got != 0 {
		t.Errorf("sender received its own typing notification %d times", got)
	}
}

func TestCoordinator_DisconnectIdempotent(t *testing.T) {
	store := &memStore{}
	c := startCoordinator(t, store)

	s1 := newFakeSession("s1")
	s2 := newFakeSession("s2")
	c.Connect(s1)
	c.Connect(s2)
	waitFor(t, func() bool { return c.ActiveUsers() == 2 }, "both connected")

	c.Disconnect(s2)
	c.Disconnect(s2) // duplicate signal, must be a no-op
	waitFor(t, func() bool { return c.ActiveUsers() == 1 }, "s2 removed once")

	// Give the duplicate a chance to be processed, then recheck.
	c.SendText("barrier", "alice")
	waitFor(t, func() bool { return s1.count(EventChatMessage) == 1 }, "barrier")
	if got := c.ActiveUsers(); got != 1 {
		t.Fatalf("duplicate disconnect changed the count: got %d, want 1", got)
	}

	c.Disconnect(s1)
	c.Disconnect(s1)
	waitFor(t, func() bool { return c.ActiveUsers() == 0 }, "all disconnected")
	if got := c.ActiveUsers(); got < 0 {
		t.Fatalf("presence count went negative: %d", got)
	}
}

func TestCoordinator_JoinAnnouncement(t *testing.T) {
	store := &memStore{}
	c := startCoordinator(t, store)

	s1 := newFakeSession("s1")
	s2 := newFakeSession("s2")
	c.Connect(s1)
	c.Connect(s2)
	waitFor(t, func() bool { return s2.count(EventLoadMessages) == 1 }, "both connected")

	c.Join(s1, "alice")

	want := "alice joined the conversation"
	for _, sess := range []*fakeSession{s1, s2} {
		sess := sess
		waitFor(t, func() bool { return sess.count(EventChatMessage) == 1 }, "announcement on "+sess.ID())
		payload, _ := sess.last(EventChatMessage)
		msg := payload.(ChatMessagePayload)
		if msg.Msg != want || msg.Username != systemUsername {
			t.Errorf("%s: expected {%q %s}, got %+v", sess.ID(), want, systemUsername, msg)
		}
	}

	// The announcement goes through the send-text path, so it is persisted.
	msgs, _ := store.ListAll()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored announcement, got %d", len(msgs))
	}
	if msgs[0].Username != systemUsername {
		t.Errorf("expected stored username %q, got %q", systemUsername, msgs[0].Username)
	}

	c.mu.RLock()
	username := c.sessions["s1"].username
	c.mu.RUnlock()
	if username != "alice" {
		t.Errorf("expected session username 'alice', got %q", username)
	}
}

func TestCoordinator_ImageBroadcast(t *testing.T) {
	store := &memStore{}
	c := startCoordinator(t, store)

	s1 := newFakeSession("s1")
	c.Connect(s1)
	waitFor(t, func() bool { return s1.count(EventLoadMessages) == 1 }, "connected")

	c.SendImage("/uploads/cafe.png", "bob")

	waitFor(t, func() bool { return s1.count(EventChatImage) == 1 }, "image broadcast")
	payload, _ := s1.last(EventChatImage)
	img := payload.(ChatImagePayload)
	if img.ImagePath != "/uploads/cafe.png" || img.Username != "bob" {
		t.Errorf("unexpected image payload: %+v", img)
	}

	msgs, _ := store.ListAll()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(msgs))
	}
	if msgs[0].Image == nil || *msgs[0].Image != "/uploads/cafe.png" {
		t.Errorf("expected stored image path, got %+v", msgs[0])
	}
	if msgs[0].Content != nil {
		t.Error("expected content to be absent on an image message")
	}
}

func TestCoordinator_StoreFailureNoBroadcast(t *testing.T) {
	store := &failStore{}
	c := startCoordinator(t, store)

	s1 := newFakeSession("s1")
	c.Connect(s1)
	waitFor(t, func() bool { return s1.count(EventLoadMessages) == 1 }, "connected")

	c.SendText("doomed", "alice")

	// Barrier: the connect of s2 is processed after the failed send.
	s2 := newFakeSession("s2")
	c.Connect(s2)
	waitFor(t, func() bool {
		last, ok := s1.last(EventUpdateActiveUsers)
		return ok && last == 2
	}, "barrier connect")

	if got := s1.count(EventChatMessage); got != 0 {
		t.Errorf("failed append must not broadcast, got %d chat messages", got)
	}
}

func TestCoordinator_ConcurrentConnectDisconnect(t *testing.T) {
	store := &memStore{}
	c := startCoordinator(t, store)

	const n = 25
	sessions := make([]*fakeSession, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sessions[i] = newFakeSession(fmt.Sprintf("s%d", i))
		wg.Add(1)
		go func(sess *fakeSession) {
			defer wg.Done()
			c.Connect(sess)
		}(sessions[i])
	}
	wg.Wait()

	waitFor(t, func() bool { return c.ActiveUsers() == n }, "all connected")

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(sess *fakeSession) {
			defer wg.Done()
			c.Disconnect(sess)
			c.Disconnect(sess) // duplicates must not skew the count
		}(sessions[i])
	}
	wg.Wait()

	waitFor(t, func() bool { return c.ActiveUsers() == 0 }, "all disconnected")
	if got := c.ActiveUsers(); got != 0 {
		t.Fatalf("expected 0 active users, got %d", got)
	}
}
