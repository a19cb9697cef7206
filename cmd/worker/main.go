package main

import (
	"context"
	"log"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/activities"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/app"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/config"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/logging"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/workflows"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, flush, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer flush()

	core, err := app.Build(ctx, cfg, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialise simulation", zap.Error(err))
	}
	defer core.Close()

	// Connect to Temporal
	logger.Info("Connecting to Temporal", zap.String("host", cfg.TemporalHost))
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   logging.NewTemporalLogger(logger.Named("temporal")),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer c.Close()

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.SimulationWorkflow)

	acts := activities.NewActivities(core.Scheduler)
	w.RegisterActivityWithOptions(acts.AdvanceSimulation, activity.RegisterOptions{Name: activities.AdvanceSimulationName})
	w.RegisterActivityWithOptions(acts.InjectDelay, activity.RegisterOptions{Name: activities.InjectDelayName})
	w.RegisterActivityWithOptions(acts.CancelFlight, activity.RegisterOptions{Name: activities.CancelFlightName})
	w.RegisterActivityWithOptions(acts.SetSpeed, activity.RegisterOptions{Name: activities.SetSpeedName})

	// A running simulation with the same ID is reused rather than duplicated
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        cfg.WorkflowID,
		TaskQueue: cfg.TaskQueue,
	}, workflows.SimulationWorkflow, models.SimulationWorkflowInput{
		TickInterval:   cfg.TickInterval,
		MaxTicksPerRun: cfg.MaxTicksPerRun,
	})
	if err != nil {
		logger.Fatal("Failed to start simulation workflow", zap.Error(err))
	}
	logger.Info("Simulation workflow running",
		zap.String("workflowID", run.GetID()), zap.String("runID", run.GetRunID()))

	logger.Info("Starting Temporal worker", zap.String("taskQueue", cfg.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("Worker failed", zap.Error(err))
	}
}
