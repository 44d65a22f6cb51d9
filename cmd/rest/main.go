package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-review-be/internal/bootstrap"
	"doc-review-be/internal/config"
	"doc-review-be/internal/server"
	"doc-review-be/internal/tracer"
	"doc-review-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	shutdownTracer := tracer.InitTracer(cfg.Otel)
	defer func() { _ = shutdownTracer(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The archive is optional; without a DSN the service runs purely in memory.
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer container.Close()

	go container.WebSocketHub.Run(ctx)

	if container.ConsumerService != nil {
		go func() {
			if err := container.ConsumerService.Consume(ctx); err != nil {
				container.Logger.Error("Main", "Consumer stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			container.Logger.Error("Main", "Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	if err := srv.Run(); err != nil {
		container.Logger.Error("Main", "Server stopped", map[string]interface{}{"error": err.Error()})
	}
}
