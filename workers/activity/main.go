package main

import (
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"bnpl-checkout/activities"
	"bnpl-checkout/config"
	"bnpl-checkout/logger"
	"bnpl-checkout/resume"
	"bnpl-checkout/services"
	"bnpl-checkout/shared"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	c, err := client.Dial(cfg.ClientOptions())
	if err != nil {
		logger.L.Error("Unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	// MaxConcurrentActivityExecutionSize protects the underwriting backend;
	// the price feed has its own limiter.
	w := worker.New(c, shared.ActivityTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 100,
	})

	httpClient := &http.Client{Timeout: 10 * time.Second}
	backend := services.NewBackendClient(cfg.BackendBaseURL, cfg.BackendAPIKey, httpClient)
	a := &activities.Activities{
		Backend: backend,
		Launcher: services.NewVerificationLauncher(services.LauncherConfig{
			StartURL:       cfg.VouchStartURL,
			BackendBaseURL: cfg.BackendBaseURL,
			CustomerID:     cfg.VouchCustomerID,
			Datasources: map[shared.Source]string{
				shared.SourceRevolut: cfg.VouchRevolutDatasourceID,
				shared.SourceBinance: cfg.VouchBinanceDatasourceID,
				shared.SourceEtherfi: cfg.VouchEtherfiDatasourceID,
			},
		}),
		Balances:  services.NewBalanceService(backend, cfg.BalanceCacheTTL),
		Prices:    services.NewPriceService(cfg.PriceSpotURL, cfg.PriceCacheTTL, httpClient),
		Signer:    resume.NewSigner(cfg.ResumeSecret),
		ResumeTTL: cfg.ResumeTokenTTL,
	}
	w.RegisterActivity(a)

	logger.L.Info("Starting activity worker", "taskQueue", shared.ActivityTaskQueue, "backend", backend.BaseURL())
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.L.Error("Unable to start worker", "error", err)
		os.Exit(1)
	}
}
