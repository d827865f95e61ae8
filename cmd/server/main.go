package main

import (
	"codeshare/auth"
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/execution"
	"codeshare/gateway"
	"codeshare/internal"
	"codeshare/ledger"
	"codeshare/moderation"
	"codeshare/observability"
	"codeshare/permission"
	"codeshare/repositories"
	"codeshare/runtime"
	"codeshare/runtime/workers"
	"codeshare/services"
	"codeshare/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const serviceName = "codeshare"

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every deferred cleanup run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	if !domain.Visibility(config.DefaultVisibility).Valid() {
		return exitConfig, fmt.Errorf("DEFAULT_VISIBILITY must be public or private, got %q", config.DefaultVisibility)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Workers outlive the signal so the relay can archive sessions on the way out
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	validator, err := auth.NewTokenValidator(config.AuthSecret)
	if err != nil {
		return exitConfig, err
	}

	var keyring *ledger.Keyring
	if keys := config.SealKeys(); keys != nil {
		if keyring, err = ledger.NewKeyring(keys, config.LedgerSealKeyID); err != nil {
			return exitConfig, err
		}
		logger.Info("Archived chains are sealed", "key_id", keyring.ActiveKeyID())
	} else {
		logger.Warn("LEDGER_SEAL_KEY is not set, archived chains will not be sealed")
	}

	moderator, err := moderation.NewModerator(internal.WordList(config.CensoredWords), charReplacement, logger)
	if err != nil {
		return exitConfig, err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
		database.StartDebugServer(db, debugPort, endpoint, ArchiveMapper)
	}

	// 3. Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(promRegistry)

	// 4. Supervision & the session core
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	archiveWorker := workers.NewArchiveWorker(logger, repositories.NewArchiveRepository(db, logger), config.ArchiveBufferSize, metrics)
	sup.Add(archiveWorker)

	queues := []workers.NamedChannel{archiveWorker.Queue()}
	var permanentSinks []contract.EventSink
	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return exitRuntime, fmt.Errorf("redis unreachable at %s: %w", config.RedisAddr, err)
		}
		mirror := sink.NewRedisMirror(logger, client, config.MirrorBufferSize)
		sup.Add(mirror)
		permanentSinks = append(permanentSinks, mirror)
		queues = append(queues, workers.NamedChannel{Name: workers.QueueRedisMirror, Channel: mirror.Buffer()})
		logger.Info("Mirroring session events to redis", "address", config.RedisAddr)
	}

	registry := runtime.NewRegistry(logger, permission.NewEngine(), runtime.WithMaxContentLength(config.MaxContentLength))
	chains := ledger.New()
	sup.Add(workers.NewTelemetryWorker(logger, config.TelemetryInterval, registry.Len, metrics))

	relayOptions := []runtime.RelayOption{
		runtime.WithMetrics(metrics),
		runtime.WithModerator(moderator),
		runtime.WithArchiver(archiveWorker.Offer),
	}
	if keyring != nil {
		relayOptions = append(relayOptions, runtime.WithKeyring(keyring))
	}
	if config.ExecutionEnabled {
		executor := execution.NewProcessExecutor(logger)
		relayOptions = append(relayOptions, runtime.WithExecutor(executor))
		logger.Info("Code execution enabled", "languages", executor.Languages())
	}
	relay := runtime.NewRelay(logger, runtime.RelayConfig{
		MailboxSize:          config.MailboxSize,
		ConnectionBufferSize: config.ConnectionBufferSize,
		IdleTimeout:          config.IdleTimeout,
		DefaultLanguage:      config.DefaultLanguage,
		DefaultVisibility:    domain.Visibility(config.DefaultVisibility),
		SeedDefaultCode:      config.SeedDefaultCode,
		ExecutionTimeout:     config.ExecutionTimeout,
	}, registry, chains, sup, workers.NewEventFanout(logger, config.SinkTimeout, permanentSinks...), relayOptions...)
	relay.Start(runCtx)
	sup.Add(workers.NewChannelCapacityWorker(logger, func() []workers.NamedChannel {
		return append(relay.Mailboxes(), queues...)
	}, config.TelemetryInterval, config.LowCapacityThreshold, metrics))

	// Error (HTTP, gRPC)
	errChan := make(chan error, 2)

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		logger.Info("Starting supervisor...")
		sup.Run(runCtx)
	}()

	// 5. HTTP gateway
	handler := gateway.NewHandler(logger, gateway.Config{}, services.NewSessionService(relay, registry, chains))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.HTTPPort),
		Handler:           gateway.NewRouter(handler, validator, promRegistry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP gateway", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. gRPC health
	address := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	go func() {
		logger.Info("Starting gRPC health server", "address", address)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	exitCode, exitErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		exitCode, exitErr = exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Connections close first, then sessions are archived, then workers drain,
	// then the deferred database close.
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
	stop()
	archiveCtx, cancelArchive := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelArchive()
	relay.Stop(archiveCtx)
	cancelRun()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return exitCode, exitErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
