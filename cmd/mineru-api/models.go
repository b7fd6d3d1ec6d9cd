package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/provision"
)

var forceDownload bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Download model weights from the hub into the models directory",
	Long: `Download the pretrained model set (layout analysis, formula detection,
OCR) from the configured hub repository. Files already present with the
expected size are skipped; --force re-downloads everything. The engine
descriptor is rewritten afterwards so it always points at the synced
directory.`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&forceDownload, "force", false, "re-download even if models exist")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if !forceDownload && provision.Installed(cfg.ModelsDir, nil) {
		log.Info("all models found", observability.String("models_dir", cfg.ModelsDir))
		return writeDescriptor(cfg, log)
	}

	client := provision.NewClient(cfg.HubRepo, provision.WithLogger(log))
	report, err := client.Sync(cmd.Context(), cfg.ModelsDir, forceDownload)
	if err != nil {
		return err
	}
	log.Info("sync complete",
		observability.Int("downloaded", report.Downloaded),
		observability.Int("skipped", report.Skipped),
		observability.Int64("bytes", report.Bytes))

	if missing := provision.Missing(cfg.ModelsDir, nil); len(missing) > 0 {
		log.Warn("model set still incomplete after sync",
			observability.String("missing", strings.Join(missing, ", ")))
	}
	return writeDescriptor(cfg, log)
}
