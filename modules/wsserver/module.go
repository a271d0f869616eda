package wsserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/go-monolith/mono"

	"github.com/Josef1981/EngineersCafe/modules/history"
	"github.com/Josef1981/EngineersCafe/modules/relay"
	"github.com/Josef1981/EngineersCafe/modules/stats"
	"github.com/Josef1981/EngineersCafe/modules/upload"
)

// Module is the HTTP/WebSocket edge built on the Fiber framework.
type Module struct {
	app          *fiber.App
	handlers     *Handlers
	addr         string
	relayModule  *relay.RelayModule
	uploadModule *upload.UploadModule
	statsModule  *stats.StatsModule
	historyPort  history.HistoryPort
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new wsserver module.
func NewModule(relayModule *relay.RelayModule, uploadModule *upload.UploadModule, statsModule *stats.StatsModule) *Module {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return &Module{
		addr:         ":" + port,
		relayModule:  relayModule,
		uploadModule: uploadModule,
		statsModule:  statsModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"history"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "history":
		m.historyPort = history.NewHistoryAdapter(container)
	}
}

// Start initializes and starts the Fiber server.
func (m *Module) Start(_ context.Context) error {
	coord := m.relayModule.Coordinator()
	if coord == nil {
		return fmt.Errorf("relay coordinator dependency not set")
	}
	uploads := m.uploadModule.Service()
	if uploads == nil {
		return fmt.Errorf("upload service dependency not set")
	}
	if m.historyPort == nil {
		return fmt.Errorf("history adapter dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Engineers Cafe",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		BodyLimit:             upload.MaxFileSize + 1<<20,
		ReadTimeout:           30 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.handlers = NewHandlers(coord, uploads, m.statsModule, m.historyPort)

	m.registerRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	fmt.Printf("[ws-server] Listening on %s\n", m.addr)
	return nil
}

// Stop gracefully shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "server not started",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// registerRoutes sets up all HTTP and websocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	m.app.Post("/upload", m.handlers.HandleUpload)

	api := m.app.Group("/api/v1")
	api.Get("/messages", m.handlers.ListMessages)
	api.Get("/stats", m.handlers.GetStats)

	// Static assets, including /uploads under public/
	m.app.Static("/", "./public")
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
