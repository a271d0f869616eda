package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"

	"github.com/Josef1981/EngineersCafe/modules/history"
	"github.com/Josef1981/EngineersCafe/modules/relay"
	"github.com/Josef1981/EngineersCafe/modules/stats"
	"github.com/Josef1981/EngineersCafe/modules/upload"
	"github.com/Josef1981/EngineersCafe/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	log.Println("=== Engineers Cafe - Group Chat Relay ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	historyModule := history.NewModule()
	relayModule := relay.NewModule(historyModule)
	uploadModule := upload.NewModule()
	statsModule := stats.NewModule()
	serverModule := wsserver.NewModule(relayModule, uploadModule, statsModule)

	// Register modules with the framework.
	// Order: dependencies first, the HTTP/WebSocket edge last.
	// - history: durable message log (ServiceProviderModule)
	// - relay:   broadcast coordinator (EventEmitterModule)
	// - upload:  image file storage
	// - stats:   activity counters (EventConsumerModule)
	// - ws-server: Fiber HTTP/WebSocket edge, depends on all of the above
	app.Register(historyModule)
	app.Register(relayModule)
	app.Register(uploadModule)
	app.Register(statsModule)
	app.Register(serverModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Persistence: GORM + SQLite (messages table)")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Println("")
	log.Printf("Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /                      - Chat client")
	log.Println("  GET    /ws                    - WebSocket endpoint")
	log.Println("  POST   /upload                - Image upload (multipart, field 'image')")
	log.Println("  GET    /api/v1/messages       - Full message history")
	log.Println("  GET    /api/v1/stats          - Activity counters")
	log.Println("  GET    /health                - Health check")
	log.Println("")
	log.Println("WebSocket events: 'user joined', 'chat message', 'typing',")
	log.Println("  'load messages', 'update active users', 'chat image'")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
