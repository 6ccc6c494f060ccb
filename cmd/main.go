package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/nikhil/clashforge/internal/broadcast"
	"github.com/nikhil/clashforge/internal/config"
	"github.com/nikhil/clashforge/internal/directory"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/roster"
	"github.com/nikhil/clashforge/internal/routes"
	rosterService "github.com/nikhil/clashforge/internal/service/roster"
	tournamentService "github.com/nikhil/clashforge/internal/service/tournament"
	workflowService "github.com/nikhil/clashforge/internal/service/workflow"
	"github.com/nikhil/clashforge/internal/storage"
	"github.com/nikhil/clashforge/internal/transport"
	"github.com/nikhil/clashforge/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	appLog := logger.NewLogger("clashforge")
	defer appLog.Sync()

	store, err := storage.NewStore(storage.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		appLog.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
	}

	// Broadcast audit log is optional; without a DSN broadcasts still fan out,
	// they just leave no durable trail.
	var recorder broadcast.Recorder
	if cfg.EventLogDSN != "" {
		eventLog, err := storage.NewEventLog(cfg.EventLogDSN)
		if err != nil {
			appLog.Warn("event log unavailable, continuing without it", "error", err)
		} else {
			recorder = eventLog
		}
	}

	gateway := transport.NewGateway(store, cfg.ConnectionTTL, logger.NewLogger("ws-gateway"))
	caster := broadcast.NewBroadcaster(store, gateway, recorder, logger.NewLogger("broadcast"))
	dir := directory.NewStoreDirectory(store)
	engine := roster.NewEngine(store, dir, logger.NewLogger("roster"))
	orchestrator := workflow.NewOrchestrator(store, caster, workflow.NewRunRegistry(), logger.NewLogger("workflow"))

	router := routes.RegisterAllRoutes(routes.Dependencies{
		JWTSecret:  cfg.JWTSecret,
		Roster:     rosterService.NewRosterService(engine, caster),
		Tournament: tournamentService.NewTournamentService(store),
		Workflow:   workflowService.NewWorkflowService(orchestrator),
		Gateway:    gateway,
	})

	fmt.Println("Server is running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, router))
}
