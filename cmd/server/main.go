package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blog-content-api/internal/api"
	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/monitor"
	"github.com/blog-content-api/internal/repository"
	"github.com/blog-content-api/internal/service"
	"github.com/blog-content-api/internal/upload"
	"github.com/blog-content-api/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting blog content API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Network monitor
	sink, closeSink, err := newSink(cfg.Monitor, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize network monitor")
	}
	defer closeSink()

	// Avatar storage
	if err := os.MkdirAll(cfg.Upload.AvatarDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create avatar directory")
	}
	avatars := upload.NewAvatarStore(cfg.Upload.AvatarDir, cfg.Upload.MaxAvatarSize, log)

	// Initialize services
	services := service.NewServices(repos, cfg, sink, avatars, log)

	// Start network sampler
	go services.Stats.StartSampler(context.Background())

	// Initialize router
	router := api.NewRouter(services, cfg, sink, db, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop network sampler
	services.Stats.StopSampler()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// newSink builds the configured monitor sink, wrapped for DogStatsD when an
// agent address is set. The returned func releases its connections.
func newSink(cfg config.MonitorConfig, log zerolog.Logger) (monitor.Sink, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close monitor connection")
			}
		}
	}

	var sink monitor.Sink
	switch cfg.Sink {
	case config.SinkRedis:
		client, err := monitor.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, client.Close)
		sink = monitor.NewRedisSink(client, cfg.RedisKey, cfg.Window)
	default:
		sink = monitor.NewMemorySink(cfg.Window)
	}

	if cfg.StatsdAddr != "" {
		client, err := monitor.NewDogStatsdClient(cfg.StatsdAddr)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, client.Close)
		sink = monitor.NewStatsdSink(sink, client, []string{"service:" + logger.ServiceName}, log)
	}

	log.Info().Str("sink", cfg.Sink).Bool("statsd", cfg.StatsdAddr != "").Msg("Network monitor ready")
	return sink, closeAll, nil
}
