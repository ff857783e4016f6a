package main

import (
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"bnpl-checkout/config"
	"bnpl-checkout/logger"
	"bnpl-checkout/shared"
	"bnpl-checkout/workflows"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	// Connect to the Temporal server via gRPC. HostPort and Namespace come
	// from TEMPORAL_HOST_PORT and TEMPORAL_NAMESPACE.
	c, err := client.Dial(cfg.ClientOptions())
	if err != nil {
		logger.L.Error("Unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	// Workflow tasks do no I/O, so the default task slots are plenty.
	w := worker.New(c, shared.CheckoutFlowTaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.CheckoutFlowWorkflow)

	logger.L.Info("Starting checkout flow worker", "taskQueue", shared.CheckoutFlowTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.L.Error("Unable to start worker", "error", err)
		os.Exit(1)
	}
}
