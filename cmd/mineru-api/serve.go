package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docparse/mineru-api/config"
	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/parse"
	"github.com/docparse/mineru-api/parse/mineru"
	"github.com/docparse/mineru-api/parse/tesseract"
	"github.com/docparse/mineru-api/provision"
	"github.com/docparse/mineru-api/server"
)

var skipProvision bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Provision missing models if needed, then run the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipProvision, "skip-provision", false, "never download models at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := writeDescriptor(cfg, log); err != nil {
		return err
	}
	ensureModels(ctx, cfg, log)

	svc := parse.NewService(
		mineru.New(mineru.Config{ModelsDir: cfg.ModelsDir}, log),
		tesseract.New(tesseract.WithLogger(log)),
		log,
	)
	if !svc.PrimaryAvailable(ctx) {
		log.Warn("layout engine unavailable, serving ocr-only",
			observability.String("models_dir", cfg.ModelsDir))
	}

	go func() {
		if err := server.WatchModels(ctx, cfg.ModelsDir, log); err != nil {
			log.Warn("models watcher stopped", observability.Error("error", err))
		}
	}()

	return server.New(cfg, svc, version, log).Run(ctx)
}

// ensureModels syncs missing model files. Failures are deliberately not
// fatal: the server starts degraded and the watcher picks up a later
// successful provisioning run.
func ensureModels(ctx context.Context, cfg config.Config, log observability.Logger) {
	if skipProvision || provision.Installed(cfg.ModelsDir, nil) {
		return
	}
	log.Info("models missing, provisioning",
		observability.String("repo", cfg.HubRepo),
		observability.String("models_dir", cfg.ModelsDir))

	client := provision.NewClient(cfg.HubRepo, provision.WithLogger(log))
	report, err := client.Sync(ctx, cfg.ModelsDir, false)
	if err != nil {
		log.Warn("model provisioning failed, starting in degraded mode",
			observability.Error("error", err))
		return
	}
	log.Info("models provisioned",
		observability.Int("downloaded", report.Downloaded),
		observability.Int("skipped", report.Skipped),
		observability.Int64("bytes", report.Bytes))
}

func writeDescriptor(cfg config.Config, log observability.Logger) error {
	path, err := cfg.ResolveDescriptorPath()
	if err != nil {
		return err
	}
	if err := config.WriteDescriptor(cfg.Descriptor(), path); err != nil {
		return err
	}
	log.Debug("engine descriptor written", observability.String("path", path))
	return nil
}
