package relay

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/Josef1981/EngineersCafe/events"
	"github.com/Josef1981/EngineersCafe/modules/history"
)

// RelayModule hosts the broadcast coordinator and wires it to the message
// store and the event bus.
type RelayModule struct {
	historyModule *history.HistoryModule
	eventBus      mono.EventBus
	coord         *Coordinator
	cancel        context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*RelayModule)(nil)
var _ mono.EventBusAwareModule = (*RelayModule)(nil)
var _ mono.EventEmitterModule = (*RelayModule)(nil)
var _ mono.HealthCheckableModule = (*RelayModule)(nil)

// NewModule creates a new RelayModule backed by the given history module.
func NewModule(historyModule *history.HistoryModule) *RelayModule {
	return &RelayModule{
		historyModule: historyModule,
	}
}

// Name returns the module name.
func (m *RelayModule) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *RelayModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *RelayModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageStoredV1.ToBase(),
		events.ImageStoredV1.ToBase(),
		events.ClientConnectedV1.ToBase(),
		events.ClientDisconnectedV1.ToBase(),
	}
}

// Coordinator returns the running coordinator. Valid after Start.
func (m *RelayModule) Coordinator() *Coordinator {
	return m.coord
}

// Start creates the coordinator and runs its event loop. The history module
// is registered before this one, so its repository is available here.
func (m *RelayModule) Start(_ context.Context) error {
	repo := m.historyModule.Repository()
	if repo == nil {
		return fmt.Errorf("history repository not initialized")
	}

	m.coord = NewCoordinator(repo, m.eventBus)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.coord.Run(ctx)

	log.Println("[relay] Module started - coordinator loop running")
	return nil
}

// Stop shuts down the coordinator loop and closes remaining sessions.
func (m *RelayModule) Stop(_ context.Context) error {
	active := 0
	if m.coord != nil {
		active = m.coord.ActiveUsers()
	}
	if m.cancel != nil {
		m.cancel()
		m.coord.Wait()
	}
	log.Printf("[relay] Module stopped - %d sessions were connected", active)
	return nil
}

// Health returns the health status.
func (m *RelayModule) Health(_ context.Context) mono.HealthStatus {
	if m.coord == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "coordinator not running",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_sessions": m.coord.ActiveUsers(),
		},
	}
}
