package server

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/provision"
)

// WatchModels observes the models directory and logs transitions between
// the degraded (OCR-only) and full states, so an operator running the
// provisioner against a live server can see the layout engine come online.
// It blocks until ctx is canceled.
func WatchModels(ctx context.Context, modelsDir string, log observability.Logger) error {
	if log == nil {
		log = observability.NopLogger{}
	}
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(modelsDir); err != nil {
		return fmt.Errorf("watch %s: %w", modelsDir, err)
	}

	installed := provision.Installed(modelsDir, nil)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			now := provision.Installed(modelsDir, nil)
			if now == installed {
				continue
			}
			installed = now
			if now {
				log.Info("model set complete, layout engine enabled",
					observability.String("models_dir", modelsDir))
			} else {
				log.Warn("model set incomplete, serving ocr-only",
					observability.String("models_dir", modelsDir))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("models watcher error", observability.Error("error", err))
		}
	}
}
