package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/yash9657/grainhub/internal/config"
	"github.com/yash9657/grainhub/internal/es"
	"github.com/yash9657/grainhub/internal/events"
	"github.com/yash9657/grainhub/internal/handlers"
	"github.com/yash9657/grainhub/internal/logging"
	"github.com/yash9657/grainhub/internal/search"
	"github.com/yash9657/grainhub/internal/service"
	"github.com/yash9657/grainhub/internal/token"
	httpserver "github.com/yash9657/grainhub/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("initializing database: %v", err)
	}

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		logger.Warn("elasticsearch unavailable, item search disabled", "error", err)
		esClient = nil
	}

	tokens := &token.TokenService{
		DB:            db,
		JWTSecret:     []byte(cfg.JWT_SECRET),
		RefreshSecret: []byte(cfg.REFRESH_SECRET),
	}
	orders := &service.OrderService{DB: db}
	cartHandler := handlers.NewCartHandler(db, orders, producer)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestMiddleware(logger))

	deps := httpserver.Deps{
		AuthHandler:        &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: producer},
		ItemHandler:        &handlers.ItemHandler{DB: db, ES: esClient, Index: search.DefaultIndex, Producer: producer},
		CartHandler:        cartHandler,
		OrderHandler:       &handlers.OrderHandler{DB: db, Orders: orders, Producer: producer},
		StakeholderHandler: &handlers.StakeholderHandler{DB: db, Orders: orders, Producer: producer},
		ProfileHandler:     &handlers.ProfileHandler{DB: db},
		SearchHandler:      &handlers.SearchHandler{ES: esClient, Index: search.DefaultIndex},
		Tokens:             tokens,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + cfg.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Pending debounced cart edits land before the pool closes.
	cartHandler.Close()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
