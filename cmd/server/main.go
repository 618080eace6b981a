package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"chat-relay/internal/config"
	"chat-relay/internal/database"
	"chat-relay/internal/handlers"
	"chat-relay/internal/invite"
	"chat-relay/internal/services"
	"chat-relay/internal/websocket"
	"chat-relay/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Activity journal; the relay runs without one when no database is configured
	journal := database.NewAsyncJournal(openJournalStore(ctx, cfg.Database), cfg.Database.JournalBuffer)

	// Initialize services
	roomService := services.NewRoomService(journal)
	invites, err := invite.NewService(cfg.Invite.Secret, cfg.Invite.TTL)
	if err != nil {
		logger.Fatal("Failed to initialize invites: %v", err)
	}
	if len(cfg.Invite.Secret) == 0 {
		logger.Warn("INVITE_SECRET not set, invites will not survive a restart")
	}

	// The hub owns all room state from here on
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(roomService)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	router := handlers.SetupRouter(cfg.Server, handlers.Handlers{
		Rooms:     handlers.NewRoomHandlers(hub, cfg.TypingTTL),
		Invites:   handlers.NewInviteHandlers(invites),
		WebSocket: handlers.NewWebSocketHandlers(hub, cfg.WebSocket),
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}

	// Closing the client queues ends every write pump with a close frame
	stopHub()
	<-hubDone

	if err := journal.Close(); err != nil {
		logger.Error("Journal close error: %v", err)
	}
	if dropped := journal.Dropped(); dropped > 0 {
		logger.Warn("Journal dropped %d activities", dropped)
	}
	logger.Info("Server stopped")
}

func openJournalStore(ctx context.Context, cfg config.DatabaseConfig) database.JournalStore {
	if cfg.URL == "" {
		logger.Info("DATABASE_URL not set, activity journal disabled")
		return database.NopJournal{}
	}

	db, err := database.NewPostgresJournal(ctx, cfg.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		logger.Fatal("Failed to migrate database: %v", err)
	}
	logger.Info("Activity journal enabled")
	return db
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   GET  /health")
	logger.Info("   GET  /api/stats")
	logger.Info("   GET  /api/config")
	logger.Info("   GET  /api/rooms")
	logger.Info("   GET  /api/rooms/{id}/members")
	logger.Info("   POST /api/invites")
	logger.Info("   GET  /api/invites/{token}")
}
