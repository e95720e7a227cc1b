package main

import (
	"fmt"
	"net/http"

	"pixgen/internal/imagegen"
	"pixgen/internal/infra"
	"pixgen/internal/providers/cloudflare"
	"pixgen/internal/providers/fal"
	"pixgen/internal/storage"
	"pixgen/internal/telemetry"
)

// retryLaterExit tells scripts that the free tier is exhausted and the exact
// same command will succeed again after the quota window resets.
const retryLaterExit = 3

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

// appContext lazily builds the dependency graph shared by all subcommands.
type appContext struct {
	cfg    *infra.Config
	logger infra.Logger
	orch   *imagegen.Orchestrator
}

func (a *appContext) ensure() error {
	if a.orch != nil {
		return nil
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("prepare output directory: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	falClient := fal.NewClient(fal.Options{
		APIKey:     cfg.FalKey,
		HTTPClient: httpClient,
		Logger:     &logger,
		Store:      store,
	})
	cfClient := cloudflare.NewClient(cloudflare.Options{
		AccountID:  cfg.CloudflareAccountID,
		APIToken:   cfg.CloudflareAPIToken,
		HTTPClient: httpClient,
		Logger:     &logger,
		Store:      store,
	})

	var events telemetry.Sink = telemetry.Nop{}
	if cfg.TelemetryPath != "" {
		events = telemetry.NewFileSink(cfg.TelemetryPath)
	}

	a.cfg = cfg
	a.logger = logger
	a.orch = imagegen.NewOrchestrator(imagegen.OrchestratorOptions{
		Sync:     cfClient,
		Queue:    falClient,
		Uploader: falClient,
		Events:   events,
		Logger:   &logger,
	})
	return nil
}

// finish prints the artifact path(s) on success, keeping stdout parseable,
// and converts a failure into the exit contract: retryLaterExit when the
// free tier asks for a later retry, 1 for everything else.
func finish(res imagegen.Result) error {
	if res.Success {
		fmt.Println(res.FilePath)
		if res.VectorPath != "" {
			fmt.Println(res.VectorPath)
		}
		return nil
	}
	code := 1
	if res.RetryLater() {
		code = retryLaterExit
	}
	return &exitError{code: code, message: res.Error}
}
