package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"estatebid-auction-service/internal/adapters/broadcaster"
	"estatebid-auction-service/internal/adapters/db"
	"estatebid-auction-service/internal/adapters/memory"
	"estatebid-auction-service/internal/adapters/notify"
	"estatebid-auction-service/internal/adapters/redis"
	"estatebid-auction-service/internal/adapters/rest"
	"estatebid-auction-service/internal/adapters/scheduler"
	"estatebid-auction-service/internal/adapters/ws"
	"estatebid-auction-service/internal/app"
	"estatebid-auction-service/internal/clock"
	"estatebid-auction-service/internal/config"
	"estatebid-auction-service/internal/ports/outbound"
)

// repositories groups the persistence ports behind the configured driver.
type repositories struct {
	auctions outbound.AuctionRepository
	ledger   outbound.AuctionLedger
	bids     outbound.BidRepository
	deposits outbound.DepositRepository
	watches  outbound.WatchRepository
	close    func() error
}

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting EstateBid Auction Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos := buildRepositories(cfg)
	defer repos.close()

	log.Info().Str("driver", cfg.Storage.Driver).Msg("Storage initialized")

	// Create Redis client
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})

	dispatcher := app.NewDispatcher(app.DispatcherParams{
		Broadcaster: redisBroadcaster,
		Watches:     repos.watches,
		Sink:        notify.NewLogSink(log.Logger),
		Logger:      log.Logger,
	})

	systemClock := clock.System()

	// Create business services
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: repos.auctions,
		BidRepo:     repos.bids,
		Ledger:      repos.ledger,
		Dispatcher:  dispatcher,
		Clock:       systemClock,
		Logger:      log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		Ledger:  repos.ledger,
		BidRepo: repos.bids,
		Gate: app.NewEligibilityGate(app.EligibilityGateParams{
			Deposits: repos.deposits,
			Clock:    systemClock,
			Logger:   log.Logger,
		}),
		Proxy:      app.NewProxyResolver(log.Logger),
		Dispatcher: dispatcher,
		Clock:      systemClock,
		Logger:     log.Logger,
	})
	depositService := app.NewDepositService(app.DepositServiceParams{
		DepositRepo: repos.deposits,
		AuctionRepo: repos.auctions,
		Clock:       systemClock,
		Logger:      log.Logger,
	})
	watchService := app.NewWatchService(app.WatchServiceParams{
		WatchRepo:   repos.watches,
		AuctionRepo: repos.auctions,
		Clock:       systemClock,
		Logger:      log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create auction scheduler
	auctionScheduler := scheduler.NewAuctionScheduler(
		scheduler.AuctionSchedulerParams{
			RedisClient:    redisClient,
			AuctionService: auctionService,
			SweepInterval:  cfg.Scheduler.SweepInterval,
			Logger:         log.Logger,
		},
	)

	auctionScheduler.Start()
	log.Info().Msg("Auction scheduler started")

	// The scheduler closes auctions through the auction service, so it is
	// wired in after construction.
	auctionService.SetScheduler(auctionScheduler)
	bidService.SetScheduler(auctionScheduler)

	wsHandler := ws.NewHandler(ws.WsHandlerParams{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})

	restHandler := rest.NewHandler(rest.HandlerParams{
		AuctionService: auctionService,
		BidService:     bidService,
		DepositService: depositService,
		WatchService:   watchService,
		Logger:         log.Logger,
	})

	server := rest.NewServer(rest.ServerParams{
		Config:    cfg,
		Handler:   restHandler,
		WsHandler: wsHandler,
		Logger:    log.Logger,
	})

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start HTTP server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	auctionScheduler.Stop()
	log.Info().Msg("Auction scheduler stopped")

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}

	dispatcher.Close()

	log.Info().Msg("Graceful shutdown completed")
}

// buildRepositories selects the storage driver. The memory driver keeps
// everything in process, for local development and tests.
func buildRepositories(cfg *config.Config) *repositories {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := memory.NewStore(log.Logger)
		return &repositories{
			auctions: store,
			ledger:   store,
			bids:     store,
			deposits: store.Deposits(),
			watches:  store.Watches(),
			close:    func() error { return nil },
		}
	}

	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	factory := db.NewRepositoryFactory(dbConn, log.Logger)
	return &repositories{
		auctions: factory.GetAuctionRepository(),
		ledger:   factory.GetAuctionLedger(),
		bids:     factory.GetBidRepository(),
		deposits: factory.GetDepositRepository(),
		watches:  factory.GetWatchRepository(),
		close:    dbConn.Close,
	}
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
