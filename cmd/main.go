package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chat-presence/auth"
	"chat-presence/moderation"
	"chat-presence/observability"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"chat-presence/transport"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	metrics := observability.NewMetrics()

	// 2. Storage
	backend, err := repositories.Open(repositories.StorageConfig{
		Driver:         config.StorageDriver,
		BadgerFilepath: config.BadgerFilepath,
		SQLiteFilepath: config.SQLiteFilepath,
		LimitMessages:  config.LimitMessages,
	}, log)
	if err != nil {
		return fmt.Errorf("storage opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing storage...", "driver", config.StorageDriver)
		_ = backend.Close()
	}()

	// 3. Collaborators of the router
	// Writes and reads trip independently.
	writes := services.NewBreaker(services.BreakerConfig{
		Name:        "storage_writes",
		MaxFailures: uint32(config.BreakerMaxFailures),
		OpenTimeout: config.BreakerOpenTimeout,
	}, log, metrics)
	reads := services.NewBreaker(services.BreakerConfig{
		Name:        "storage_reads",
		MaxFailures: uint32(config.BreakerMaxFailures),
		OpenTimeout: config.BreakerOpenTimeout,
	}, log, metrics)
	verifier := auth.NewVerifier(config.JWTSecret, config.TokenIssuer)
	moderator, err := moderation.NewModerator(config.Words(), config.Replacement())
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	store := services.NewMessageStore(backend.Messages, backend.Users, writes, reads, log, metrics, config.MaxContentLength,
		services.WithCensor(moderator.Censor))
	authority := services.NewMembershipAuthority(backend.Groups, reads)
	users := services.NewUserDirectory(backend.Users, reads)

	directory := runtime.NewDirectory(log, metrics)
	router := runtime.NewRouter(verifier, store, authority, users, directory, log, metrics,
		runtime.RouterConfig{BufferSize: config.ConnectionBufferSize})

	// 4. Servers
	ws := transport.NewWebSocketHandler(log, router, transport.Config{
		AllowedOrigins: config.Origins(),
		MaxFrameSize:   int64(config.MaxFrameSize),
	})
	server := &http.Server{
		Addr:              config.Host + ":" + strconv.Itoa(config.Port),
		Handler:           transport.NewHTTPHandler(ws, router, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Hijacked websocket connections are closed through the router.
	server.RegisterOnShutdown(router.Close)

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(log, server, config.ShutdownTimeout),
		workers.NewHealthServerWorker(log, workers.TCPListener(grpcAddress), router.Accepting, time.Second),
		workers.NewProcessStatsWorker(log, metrics, config.StatsInterval),
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting chat-presence", "address", server.Addr, "grpc_address", grpcAddress, "storage", config.StorageDriver)
	sup.Run(ctx)

	// Workers are gone, make sure no session outlives them.
	router.Close()
	log.Info("Program stopped cleanly")
	return nil
}
