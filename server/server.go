// Package server exposes the parsing service over HTTP: a health probe,
// the single-file /api/parse endpoint and the legacy multi-file
// /file_parse endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/docparse/mineru-api/config"
	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/parse"
)

// maxUploadBytes caps a single request body. Large scanned PDFs are the
// normal case, so the limit is generous.
const maxUploadBytes = 200 << 20

const shutdownTimeout = 10 * time.Second

// Server carries the handler dependencies.
type Server struct {
	cfg     config.Config
	svc     *parse.Service
	log     observability.Logger
	version string
}

// New wires the HTTP server. version shows up in health responses.
func New(cfg config.Config, svc *parse.Service, version string, log observability.Logger) *Server {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Server{cfg: cfg, svc: svc, log: log, version: version}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/parse", s.handleParse)
	mux.HandleFunc("/file_parse", s.handleFileParse)
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("listening", observability.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
