/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the form engine server.
  Handles configuration, catalog setup, dependency injection, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Build the doctype catalog (built-in plus -doctypes file)
  3. Initialize the document store
  4. Create API handler and router
  5. Run server and shutdown watcher in an errgroup

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: forms.db)
              Use ":memory:" for an in-memory SQLite database,
              or "" for the plain in-memory store
  -doctypes   Optional JSON/YAML file with additional doctype definitions
  -log-level  debug, info, warn or error (default: info)
  -cors       Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/forms.db"

  # Add site-specific doctypes and watch dispatch
  ./server -doctypes=./doctypes.yaml -log-level=debug

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - factory/doctype.go: Doctype file format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hexplastics/form-engine/api"
	"github.com/hexplastics/form-engine/factory"
	"github.com/hexplastics/form-engine/generic"
	"github.com/hexplastics/form-engine/generic/store"
	"github.com/hexplastics/form-engine/manufacturing"
	"github.com/hexplastics/form-engine/rejection"
	"github.com/hexplastics/form-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "forms.db", "SQLite database path (empty for in-memory store)")
	doctypes := flag.String("doctypes", "", "JSON or YAML file with additional doctype definitions")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	origins := flag.String("cors", "", "Comma-separated allowed CORS origins")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		log.Fatalf("Invalid log level %q: %v", *logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Build catalog
	defs := append([]generic.Definition{rejection.Definition()}, manufacturing.Definitions()...)
	if *doctypes != "" {
		extra, err := factory.NewDefinitionFactory().LoadFile(*doctypes)
		if err != nil {
			log.Fatalf("Failed to load doctypes: %v", err)
		}
		defs = append(defs, extra...)
	}
	catalog, err := generic.NewCatalog(defs, generic.WithLogger(logger))
	if err != nil {
		log.Fatalf("Invalid doctype catalog: %v", err)
	}

	// Initialize store
	var docs api.Store
	if *dbPath == "" {
		docs = store.NewMemory()
	} else {
		db, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		docs = db
	}

	// Initialize handler
	handler := api.NewHandler(docs, catalog)
	handler.Logger = logger

	// Create router
	var allowed []string
	if *origins != "" {
		allowed = strings.Split(*origins, ",")
	}
	router := api.NewRouter(handler, allowed)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Serve until SIGINT/SIGTERM, then drain
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Server starting on http://localhost:%d (%d doctypes)", *port, len(catalog.Types()))
	log.Printf("API available at http://localhost:%d/api", *port)
	if err := serve(ctx, server); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
	log.Println("Server stopped")
}

// serve runs server until ctx is done, then drains it. A listen failure is
// returned.
func serve(ctx context.Context, server *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
