package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Josef1981/EngineersCafe/domain/chat"
)

// HistoryModule provides the durable message log via GORM + SQLite.
type HistoryModule struct {
	db     *gorm.DB
	repo   *Repository
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*HistoryModule)(nil)
var _ mono.ServiceProviderModule = (*HistoryModule)(nil)
var _ mono.HealthCheckableModule = (*HistoryModule)(nil)

// NewModule creates a new HistoryModule.
func NewModule() *HistoryModule {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "chat.db"
	}
	return &HistoryModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *HistoryModule) Name() string {
	return "history"
}

// Repository returns the message repository. Valid after Start.
func (m *HistoryModule) Repository() *Repository {
	return m.repo
}

// Health performs a health check on the history module.
func (m *HistoryModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes service names with "services.<module>." so "list"
// becomes "services.history.list" in the NATS subject.
func (m *HistoryModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "append", json.Unmarshal, json.Marshal, m.appendMessage,
	); err != nil {
		return fmt.Errorf("failed to register append service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.listMessages,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	log.Printf("[history] Registered services: services.history.{append,list}")
	return nil
}

// Start opens the database connection and runs migrations.
func (m *HistoryModule) Start(_ context.Context) error {
	log.Printf("[history] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m.db = db

	if err := m.db.AutoMigrate(&chat.Message{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)

	log.Println("[history] Module started successfully")
	return nil
}

// Stop gracefully closes the database connection.
func (m *HistoryModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[history] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[history] Database connection closed")
	return nil
}
