package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/app"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/config"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/handlers"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/logging"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/router"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/service"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, flush, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.Build(ctx, cfg, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialise simulation", zap.Error(err))
	}
	defer core.Close()

	// Push every status change to subscribed browsers
	hub := websocket.NewHub(logger.Named("websocket"))
	sub := core.Scheduler.Subscribe(hub.Notify)
	defer sub.Unsubscribe()

	flightOps := service.NewFlightOpsService(core.Scheduler, core.Store, logger.Named("service"))
	h := handlers.NewHandler(flightOps, logger.Named("http"))
	r := router.SetupRouter(h, hub.HandleWebSocket, logger.Named("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return lifecycle.NewRunner(core.Scheduler, cfg.TickInterval, logger.Named("runner")).Run(gctx)
	})
	g.Go(func() error {
		logger.Info("API server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server exited")
}
