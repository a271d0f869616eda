package upload

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
)

// UploadModule provides local-disk storage for uploaded chat images.
type UploadModule struct {
	dir     string
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*UploadModule)(nil)
var _ mono.HealthCheckableModule = (*UploadModule)(nil)

// NewModule creates a new UploadModule.
func NewModule() *UploadModule {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "public/uploads"
	}
	return &UploadModule{
		dir: dir,
	}
}

// Name returns the module name.
func (m *UploadModule) Name() string {
	return "upload"
}

// Service returns the upload service. Valid after Start.
func (m *UploadModule) Service() *Service {
	return m.service
}

// Start creates the upload directory and the service.
func (m *UploadModule) Start(_ context.Context) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	m.service = NewService(m.dir)
	log.Printf("[upload] Module started - storing files under %s", m.dir)
	return nil
}

// Stop shuts down the module.
func (m *UploadModule) Stop(_ context.Context) error {
	log.Println("[upload] Module stopped")
	return nil
}

// Health returns the health status.
func (m *UploadModule) Health(_ context.Context) mono.HealthStatus {
	info, err := os.Stat(m.dir)
	if err != nil || !info.IsDir() {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("upload directory unavailable: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"dir":           m.dir,
			"max_file_size": MaxFileSize,
		},
	}
}
