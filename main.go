package main

import (
	"context"
	"net/rpc"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careerplay/ccm/achievement"
	"github.com/careerplay/ccm/ai"
	"github.com/careerplay/ccm/broadcast"
	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/config"
	"github.com/careerplay/ccm/dealer"
	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/monitor"
	"github.com/careerplay/ccm/persistence"
	"github.com/careerplay/ccm/room"
	ccmrpc "github.com/careerplay/ccm/rpc"
	"github.com/careerplay/ccm/scoring"
	"github.com/careerplay/ccm/seats"
	"github.com/careerplay/ccm/server"
	"github.com/careerplay/ccm/services"
	"github.com/careerplay/ccm/session"
	"github.com/careerplay/ccm/timer"
)

func main() {
	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Persistence: raw append-only sink plus the relational store.
	sink, err := persistence.NewPostgresSink(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to open results sink: %v", err)
	}
	defer sink.Close()

	store, err := persistence.NewGormStore(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	logger.Log.Info("Database connection successful.")

	// The catalog is loaded once and immutable for the process lifetime.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	data, err := store.LoadCatalog(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Log.Fatalf("Failed to load card catalog: %v", err)
	}
	cardStore := catalog.NewStore(data.Roles, data.Synergies, data.Challenges)
	matrix, err := catalog.NewMatrix(data.MatrixEntries)
	if err != nil {
		logger.Log.Fatalf("Invalid soft-skills matrix: %v", err)
	}
	logger.Log.Infof("Catalog loaded: %d roles, %d synergies, %d challenges, %d matrix entries",
		len(data.Roles), len(data.Synergies), len(data.Challenges), len(data.MatrixEntries))

	engine := scoring.NewEngine(cardStore, matrix)
	cardDealer := dealer.New(cardStore, time.Now().UnixNano())
	allocator := seats.NewAllocator(time.Now().UnixNano())
	bus := events.NewBus()
	timers := timer.NewManager()
	defer timers.Stop()

	sessionManager := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(sessionManager)

	mon := monitor.NewMonitor("ccm")
	mon.StartServer(cfg.Server.MetricsAddress)
	monCh, cancelMon := bus.Subscribe(256)
	defer cancelMon()
	go mon.ConsumeEvents(monCh)

	// Achievement tracking consumes the same bus.
	tracker := achievement.NewTracker(achievement.DefaultDefinitions(), store)
	trackCh, cancelTrack := bus.Subscribe(256)
	defer cancelTrack()
	go tracker.Run(trackCh)

	// Perpetual rooms.
	roomManager := room.NewManager()
	deps := room.Deps{
		Store:       cardStore,
		Engine:      engine,
		Dealer:      cardDealer,
		Allocator:   allocator,
		Sink:        sink,
		Bus:         bus,
		Broadcaster: broadcaster,
		Timers:      timers,
	}
	for _, rc := range cfg.Engine.Rooms {
		roomManager.CreateRoom(room.Config{
			ID:            rc.ID,
			Name:          rc.Name,
			Capacity:      rc.Capacity,
			GradeBand:     rc.GradeBand,
			CardSelection: rc.CardSelectionWindow(),
			MVPSelection:  rc.MVPSelectionWindow(),
			Reveal:        rc.RevealWindow(),
			Intermission:  rc.IntermissionDuration(),
			SeatGrace:     rc.SeatGrace(),
			AIMoveBudget:  cfg.Engine.AIMoveBudget(),
			AIFillEnabled: rc.AIFillEnabled,
			AIDifficulty:  ai.Difficulty(rc.AIDifficulty),
		}, deps)
	}
	defer roomManager.CloseAll()
	mon.SetActiveRooms(len(cfg.Engine.Rooms))
	logger.Log.Infof("Started %d perpetual rooms", len(cfg.Engine.Rooms))

	// Admin RPC surface.
	results := services.NewResultsService(store)
	rpcServer, err := ccmrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpc.Register(ccmrpc.NewCCMService(roomManager, results)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Websocket gateway.
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, roomManager, sessionManager, allocator, broadcaster, mon)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Log.Info("Shutdown signal received.")
		gameServer.Shutdown()
	}()

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
