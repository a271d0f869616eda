package stats

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/Josef1981/EngineersCafe/events"
)

// Snapshot is a point-in-time view of the activity counters.
type Snapshot struct {
	Messages        int `json:"messages"`
	Images          int `json:"images"`
	Connects        int `json:"connects"`
	Disconnects     int `json:"disconnects"`
	ActiveUsers     int `json:"active_users"`
	PeakActiveUsers int `json:"peak_active_users"`
}

// StatsModule consumes chat events from the bus and keeps activity counters.
type StatsModule struct {
	mu          sync.Mutex
	messages    int
	images      int
	connects    int
	disconnects int
	active      int
	peak        int
}

// Compile-time interface checks.
var _ mono.Module = (*StatsModule)(nil)
var _ mono.EventConsumerModule = (*StatsModule)(nil)
var _ mono.HealthCheckableModule = (*StatsModule)(nil)

// NewModule creates a new StatsModule.
func NewModule() *StatsModule {
	return &StatsModule{}
}

// Name returns the module name.
func (m *StatsModule) Name() string {
	return "stats"
}

// Start initializes the module.
func (m *StatsModule) Start(_ context.Context) error {
	log.Println("[stats] Module started")
	return nil
}

// Stop shuts down the module.
func (m *StatsModule) Stop(_ context.Context) error {
	snap := m.Snapshot()
	log.Printf("[stats] Module stopped - %d messages, %d images relayed", snap.Messages, snap.Images)
	return nil
}

// RegisterEventConsumers registers event handlers for chat events.
func (m *StatsModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageStoredV1, m.handleMessageStored, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageStored consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ImageStoredV1, m.handleImageStored, m,
	); err != nil {
		return fmt.Errorf("failed to register ImageStored consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ClientConnectedV1, m.handleClientConnected, m,
	); err != nil {
		return fmt.Errorf("failed to register ClientConnected consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ClientDisconnectedV1, m.handleClientDisconnected, m,
	); err != nil {
		return fmt.Errorf("failed to register ClientDisconnected consumer: %w", err)
	}

	log.Println("[stats] Registered event consumers: MessageStored, ImageStored, ClientConnected, ClientDisconnected")
	return nil
}

// Health returns the health status.
func (m *StatsModule) Health(_ context.Context) mono.HealthStatus {
	snap := m.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"messages":          snap.Messages,
			"images":            snap.Images,
			"active_users":      snap.ActiveUsers,
			"peak_active_users": snap.PeakActiveUsers,
		},
	}
}

// Snapshot returns a copy of the current counters.
func (m *StatsModule) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Messages:        m.messages,
		Images:          m.images,
		Connects:        m.connects,
		Disconnects:     m.disconnects,
		ActiveUsers:     m.active,
		PeakActiveUsers: m.peak,
	}
}

func (m *StatsModule) handleMessageStored(_ context.Context, _ events.MessageStoredEvent, _ *mono.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages++
	return nil
}

func (m *StatsModule) handleImageStored(_ context.Context, _ events.ImageStoredEvent, _ *mono.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images++
	return nil
}

func (m *StatsModule) handleClientConnected(_ context.Context, ev events.ClientConnectedEvent, _ *mono.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	m.active = ev.ActiveUsers
	if m.active > m.peak {
		m.peak = m.active
	}
	return nil
}

func (m *StatsModule) handleClientDisconnected(_ context.Context, ev events.ClientDisconnectedEvent, _ *mono.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	m.active = ev.ActiveUsers
	return nil
}
