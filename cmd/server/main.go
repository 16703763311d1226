package main

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/observability"
	"chat-hub/presence"
	"chat-hub/projection"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/search"
	"chat-hub/services"
	"chat-hub/store"
	"chat-hub/transport/httpapi"
	"chat-hub/typing"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB for durability, Bluge for full-text search)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 3. Supervision & Orchestration
	stats := observability.NewStats()
	sup := workers.NewSupervisor(log).WithRestartInterval(config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, registry, stats,
		config.BufferSize, config.SinkTimeout, config.MetricInterval)

	// 4. The in-memory store, fed back to disk through the event pipeline
	s := store.NewStore(log, orchestrator.Events())
	if err := installModerator(s, config); err != nil {
		return err
	}

	userRepository := repositories.NewUserRepository(db, log)
	chatRepository := repositories.NewChatRepository(db, log)
	messageRepository := repositories.NewMessageRepository(db, log)

	if err := loadOrSeed(s, config, userRepository, chatRepository, messageRepository); err != nil {
		return err
	}

	index := projection.NewConversationIndex()
	index.Rebuild(s)
	searchIndex := search.NewMessageIndex(writer, log)
	diskSink := repositories.NewDiskSink(log, userRepository, chatRepository, messageRepository)
	orchestrator.Add(diskSink, index, searchIndex)

	// 5. Domain services
	coordinator := typing.NewCoordinator(log, orchestrator.Events(), config.TypingTimeout)
	defer coordinator.Close()
	tracker := presence.NewTracker(s, log)

	tokens := auth.NewTokenManager(config.AuthTokenSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(s, tokens)
	chatService := services.NewChatService(log, s, index, searchIndex,
		tracker, coordinator, registry, stats)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := orchestrator.Start(ctx); err != nil {
			log.Error("Orchestrator stopped with error", "error", err)
		}
	}()

	// 7. HTTP server
	handlers := httpapi.NewHandlers(log, authService, chatService, s, stats)
	router := httpapi.NewRouter(handlers, httpapi.NewWSHandler(log, chatService), authService)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// installModerator builds the censor pass from configuration. An empty
// word list disables moderation entirely.
func installModerator(s *store.Store, config internal.Config) error {
	words := lo.Filter(strings.Split(config.CensoredWords, ","),
		func(w string, _ int) bool { return strings.TrimSpace(w) != "" })
	if len(words) == 0 {
		return nil
	}

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(words, replacement)
	if err != nil {
		return err
	}
	s.WithModerator(moderator)
	return nil
}

// loadOrSeed rebuilds the store from disk, or seeds demo fixtures on a
// fresh database when enabled. Seeding runs through the normal write path,
// so its events reach the sinks once the fan-out starts.
func loadOrSeed(s *store.Store, config internal.Config,
	users repositories.UserRepository,
	chats repositories.ChatRepository,
	messages repositories.MessageRepository) error {

	diskUsers, err := users.LoadAll()
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	diskChats, err := chats.LoadChats()
	if err != nil {
		return fmt.Errorf("loading chats: %w", err)
	}
	diskMemberships, err := chats.LoadMemberships()
	if err != nil {
		return fmt.Errorf("loading memberships: %w", err)
	}
	diskMessages, err := messages.LoadAll()
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	if len(diskUsers) == 0 && config.SeedDemoData {
		return store.Seed(s, auth.HashPassword)
	}

	s.Load(
		lo.Map(diskUsers, func(u repositories.DiskUser, _ int) domain.User { return repositories.ToUser(u) }),
		lo.Map(diskChats, func(c repositories.DiskChat, _ int) domain.Chat { return repositories.ToChat(c) }),
		lo.Map(diskMemberships, func(m repositories.DiskMembership, _ int) domain.Membership { return repositories.ToMembership(m) }),
		lo.Map(diskMessages, func(m repositories.DiskMessage, _ int) domain.Message { return repositories.ToMessage(m) }),
	)
	return nil
}
