package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/torisu27/jeobot/internal/api"
	"github.com/torisu27/jeobot/internal/bot"
	"github.com/torisu27/jeobot/internal/config"
	"github.com/torisu27/jeobot/internal/db"
	"github.com/torisu27/jeobot/internal/ledger"
	"github.com/torisu27/jeobot/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Connect to database
	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		zlog.Fatalw("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(context.Background()); err != nil {
		zlog.Fatalw("Failed to run migrations", "error", err)
	}
	if err := database.SeedStarterClues(context.Background()); err != nil {
		zlog.Fatalw("Failed to seed clue archive", "error", err)
	}

	ledgerSvc := ledger.NewService(database)

	// Initialize Discord bot
	discordBot, err := bot.New(cfg, database, ledgerSvc, zlog)
	if err != nil {
		zlog.Fatalw("Failed to create discord bot", "error", err)
	}

	// Initialize API server
	apiServer := api.New(cfg, discordBot.Manager(), ledgerSvc, zlog)

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		zlog.Fatalw("Failed to start discord bot", "error", err)
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			zlog.Errorw("API server error", "error", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zlog.Info("Shutting down...")
}
