// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"

	"incidentmap/internal/adapter/feed"
	"incidentmap/internal/adapter/storage"
	"incidentmap/internal/adapter/surface"
	"incidentmap/internal/clock"
	"incidentmap/internal/config"
	"incidentmap/internal/domain/incident"
	"incidentmap/internal/logger"
	"incidentmap/internal/metrics"
	"incidentmap/internal/server"
	"incidentmap/internal/service/reconcile"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	slog.SetDefault(appLog.Logger)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	m := metrics.New()

	// Optional NATS connection, used for the push feed and the event mirror
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = initNATS(cfg.NATS)
		if err != nil {
			fatal(appLog, "Failed to connect to NATS", err)
		}
		defer natsConn.Close()
	}

	// Optional persistent store
	var store incident.Store
	if cfg.Database.Enabled {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			fatal(appLog, "Failed to initialize database", err)
		}
		defer db.Close()

		incidentStore := storage.NewIncidentStore(db, cfg.Reconcile.MaxSidebar)
		if err := incidentStore.EnsureSchema(ctx); err != nil {
			fatal(appLog, "Failed to prepare schema", err)
		}
		store = incidentStore
	}

	// Log feed
	logFeed, err := initFeed(cfg, natsConn, appLog)
	if err != nil {
		fatal(appLog, "Failed to initialize log feed", err)
	}

	// Marker surfaces: websocket clients, mirrored to NATS when available
	hubConfig := surface.DefaultHubConfig()
	hubConfig.MaxSidebar = cfg.Reconcile.MaxSidebar
	hubConfig.MaxDetails = cfg.Reconcile.MaxHistory
	hub := surface.NewHub(hubConfig, appLog)

	var markerSurface incident.Surface = hub
	if natsConn != nil {
		markerSurface = surface.NewFanout(hub, surface.NewBus(natsConn, cfg.NATS.EventsTopic, appLog))
	}

	zone, err := cfg.Reconcile.Location()
	if err != nil {
		fatal(appLog, "Failed to load time zone", err)
	}

	// Initialize reconciliation engine
	engine := reconcile.NewEngine(
		logFeed,
		markerSurface,
		store,
		clock.Real(),
		appLog,
		m,
		reconcile.EngineConfig{
			PollInterval:  cfg.Reconcile.PollInterval,
			FetchTimeout:  cfg.Feed.Timeout,
			ExpireWindow:  cfg.Reconcile.ExpireWindow,
			MinOpacity:    cfg.Reconcile.MinOpacity,
			FadeThreshold: cfg.Reconcile.FadeThreshold,
			MaxHistory:    cfg.Reconcile.MaxHistory,
			MaxSidebar:    cfg.Reconcile.MaxSidebar,
			MaxErrors:     cfg.Reconcile.MaxErrors,
			Zone:          zone,
			Labels:        cfg.Labels,
		},
	)

	if err := engine.Start(ctx); err != nil {
		fatal(appLog, "Failed to start reconciliation engine", err)
	}

	// Initialize HTTP servers
	httpServer := server.NewServer(cfg.Server, cfg.Version, engine, hub)

	go func() {
		appLog.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(appLog, "HTTP server error", err)
		}
	}()

	var diagServer *server.Server
	if cfg.Diagnostics.Enabled {
		diagServer = server.NewDiagnosticsServer(cfg.Diagnostics, m, engine)
		go func() {
			appLog.Info("starting diagnostics server", "host", cfg.Diagnostics.Host, "port", cfg.Diagnostics.Port)
			if err := diagServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("diagnostics server error")
			}
		}()
	}

	// Wait for shutdown signal
	<-shutdown
	appLog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("HTTP server shutdown error")
	}
	if diagServer != nil {
		if err := diagServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("diagnostics server shutdown error")
		}
	}

	if err := engine.Stop(shutdownCtx); err != nil {
		appLog.WithError(err).Error("reconciliation engine shutdown error")
	}

	if closer, ok := logFeed.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			appLog.WithError(err).Warn("log feed close error")
		}
	}

	appLog.Info("shutdown complete")
}

func fatal(l *logger.Logger, msg string, err error) {
	l.WithError(err).Error(msg)
	os.Exit(1)
}

// Initialize the log feed selected by configuration
func initFeed(cfg config.Config, natsConn *nats.Conn, l *logger.Logger) (incident.Feed, error) {
	switch cfg.Feed.Source {
	case config.FeedNATS:
		if natsConn == nil {
			return nil, fmt.Errorf("nats feed selected but NATS is not connected")
		}
		return feed.NewNATSFeed(natsConn, cfg.Feed.Subject, cfg.Feed.BufferSize, l)
	default:
		return feed.NewHTTPFeed(cfg.Feed.URL, feed.NewHTTPClient(cfg.Feed.Timeout)), nil
	}
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
