package stats

import (
	"context"
	"testing"

	"github.com/Josef1981/EngineersCafe/events"
)

func TestModule_Counters(t *testing.T) {
	ctx := context.Background()
	m := NewModule()

	if snap := m.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("expected zeroed snapshot, got %+v", snap)
	}

	_ = m.handleClientConnected(ctx, events.ClientConnectedEvent{SessionID: "s1", ActiveUsers: 1}, nil)
	_ = m.handleClientConnected(ctx, events.ClientConnectedEvent{SessionID: "s2", ActiveUsers: 2}, nil)
	_ = m.handleMessageStored(ctx, events.MessageStoredEvent{MessageID: 1, Username: "alice", Content: "hi"}, nil)
	_ = m.handleImageStored(ctx, events.ImageStoredEvent{MessageID: 2, Username: "bob", ImagePath: "/uploads/a.png"}, nil)
	_ = m.handleClientDisconnected(ctx, events.ClientDisconnectedEvent{SessionID: "s1", ActiveUsers: 1}, nil)

	snap := m.Snapshot()
	if snap.Messages != 1 {
		t.Errorf("expected 1 message, got %d", snap.Messages)
	}
	if snap.Images != 1 {
		t.Errorf("expected 1 image, got %d", snap.Images)
	}
	if snap.Connects != 2 || snap.Disconnects != 1 {
		t.Errorf("expected 2 connects / 1 disconnect, got %d / %d", snap.Connects, snap.Disconnects)
	}
	if snap.ActiveUsers != 1 {
		t.Errorf("expected 1 active user, got %d", snap.ActiveUsers)
	}
}

func TestModule_PeakTracksHighWaterMark(t *testing.T) {
	ctx := context.Background()
	m := NewModule()

	for i := 1; i <= 5; i++ {
		_ = m.handleClientConnected(ctx, events.ClientConnectedEvent{ActiveUsers: i}, nil)
	}
	for i := 4; i >= 0; i-- {
		_ = m.handleClientDisconnected(ctx, events.ClientDisconnectedEvent{ActiveUsers: i}, nil)
	}
	_ = m.handleClientConnected(ctx, events.ClientConnectedEvent{ActiveUsers: 1}, nil)

	snap := m.Snapshot()
	if snap.PeakActiveUsers != 5 {
		t.Errorf("expected peak 5, got %d", snap.PeakActiveUsers)
	}
	if snap.ActiveUsers != 1 {
		t.Errorf("expected 1 active user, got %d", snap.ActiveUsers)
	}
}

func TestModule_Health(t *testing.T) {
	m := NewModule()

	status := m.Health(context.Background())
	if !status.Healthy {
		t.Error("expected healthy status")
	}
	if _, ok := status.Details["peak_active_users"]; !ok {
		t.Error("expected peak_active_users in health details")
	}
}
