package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/jmoralesv/agrobook/internal/adapter/extractor"
	"github.com/jmoralesv/agrobook/internal/adapter/handler"
	"github.com/jmoralesv/agrobook/internal/adapter/session"
	"github.com/jmoralesv/agrobook/internal/adapter/storage"
	"github.com/jmoralesv/agrobook/internal/core/service"
	"github.com/jmoralesv/agrobook/internal/port"
)

const (
	defaultHTTPAddr = ":8080"
	defaultDBPath   = "agrobook.db"
	defaultModel    = "gemini-2.0-flash"
	sweepInterval   = time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := envOr("HTTP_ADDR", defaultHTTPAddr)
	dbPath := envOr("DB_PATH", defaultDBPath)
	model := envOr("GEMINI_MODEL", defaultModel)

	// Initialize SQLite
	db, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	sqliteAdapter := storage.NewSQLiteAdapter(db)
	if err := sqliteAdapter.CreateSchema(ctx); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}
	log.Printf("opened ledger database at %s", dbPath)

	// Initialize session context store
	sessions := session.NewManager(session.DefaultTTL, session.DefaultMaxContextChars)

	// Initialize Gemini extractor; the server still runs without it,
	// only the natural-language endpoint is unavailable.
	var actionExtractor port.ActionExtractor
	if client, err := genai.NewClient(ctx, nil); err != nil {
		log.Printf("gemini client unavailable, /api/message disabled: %v", err)
	} else {
		actionExtractor = extractor.NewGeminiExtractor(client, model)
		log.Printf("gemini extractor ready (model %s)", model)
	}

	// Initialize services
	ledgerService := service.NewLedgerService(sqliteAdapter)
	messageService := service.NewMessageService(ledgerService, sessions, actionExtractor)

	// Session janitor
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions.Sweep()
			}
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(ledgerService, messageService)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	cancel()
	db.Close()
	log.Println("connections closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
