/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Keystone SIS policy engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Optionally seed fee configuration
  4. Register Prometheus metrics
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: sis.db)
           Use ":memory:" for in-memory database
  -seed    Load the default fee configuration at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/sis.db"

  # Run with in-memory database and default fees
  ./server -db=":memory:" -seed

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  No environment variables currently. All config via flags.
  Future: DATABASE_URL, PORT, LOG_LEVEL

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keystone/sis-engine/api"
	"github.com/keystone/sis-engine/factory"
	"github.com/keystone/sis-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "sis.db", "SQLite database path")
	seed := flag.Bool("seed", false, "Load the default fee configuration at startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed fee configuration on request
	if *seed {
		if err := loadDefaultSeed(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed configuration: %v", err)
		}
		log.Println("Seeded default fee configuration")
	}

	// Metrics
	api.InitMetrics()

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadDefaultSeed(ctx context.Context, store *sqlite.Store) error {
	f := factory.NewConfigFactory()
	seed, err := f.ParseSeed(factory.DefaultSeedJSON())
	if err != nil {
		return err
	}
	for _, cfg := range seed.FeeConfigs {
		if err := store.SaveFeeConfig(ctx, cfg); err != nil {
			return err
		}
	}
	for _, cfg := range seed.ExcessFeeConfigs {
		if err := store.SaveExcessFeeConfig(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}
