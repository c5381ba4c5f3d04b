package main

import (
	"fmt"
	"log"

	"admin-history/internal/config"
	"admin-history/internal/database"
	"admin-history/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	database.Init(cfg)

	r := server.NewRouter(cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	zap.L().Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zap.L().Fatal("server error", zap.Error(err))
	}
}
