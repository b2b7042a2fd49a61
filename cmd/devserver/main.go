package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/database"
	"github.com/anjiri1684/skill_exchange/devserver"
	"github.com/anjiri1684/skill_exchange/logger"
)

func main() {
	cfg := config.LoadServer()

	log, err := logger.New(&cfg.Log, logger.ServerServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	srv, err := devserver.New(db, cfg, log)
	if err != nil {
		log.Fatal("server setup failed", zap.Error(err))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Listen(":" + cfg.Port); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}
