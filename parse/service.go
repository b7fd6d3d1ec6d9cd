package parse

import (
	"context"
	"fmt"
	"time"

	"github.com/docparse/mineru-api/observability"
)

// Outcome augments an engine result with which engine produced it and how
// long the call took.
type Outcome struct {
	Result
	Engine   string
	Duration time.Duration
}

// Service runs documents through the primary engine and falls back to the
// OCR engine when the primary is unavailable or fails. Nothing is retried
// beyond that single step.
type Service struct {
	primary  Engine
	fallback Engine
	log      observability.Logger
}

// NewService wires the two engines. Either may be nil; a Service with no
// usable engine answers every Parse with an error.
func NewService(primary, fallback Engine, log observability.Logger) *Service {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Service{primary: primary, fallback: fallback, log: log}
}

// Parse applies the primary-then-fallback policy.
func (s *Service) Parse(ctx context.Context, doc Document, opts Options) (Outcome, error) {
	if opts.Method == "" {
		opts.Method = MethodAuto
	}
	start := time.Now()

	var primaryErr error
	if s.primary != nil {
		if s.primary.Available(ctx) {
			res, err := s.primary.Parse(ctx, doc, opts)
			if err == nil {
				return Outcome{Result: res, Engine: s.primary.Name(), Duration: time.Since(start)}, nil
			}
			primaryErr = err
			s.log.Warn("primary engine failed, falling back to ocr",
				observability.String("engine", s.primary.Name()),
				observability.String("file", doc.Name),
				observability.Error("error", err))
		} else {
			primaryErr = ErrUnavailable
			s.log.Debug("primary engine unavailable",
				observability.String("engine", s.primary.Name()))
		}
	}

	if s.fallback == nil || !s.fallback.Available(ctx) {
		if primaryErr != nil {
			return Outcome{}, fmt.Errorf("no engine could parse %s: %w", doc.Name, primaryErr)
		}
		return Outcome{}, fmt.Errorf("no engine could parse %s: %w", doc.Name, ErrUnavailable)
	}

	res, err := s.fallback.Parse(ctx, doc, opts)
	if err != nil {
		if primaryErr != nil {
			return Outcome{}, fmt.Errorf("ocr fallback failed: %w (primary: %v)", err, primaryErr)
		}
		return Outcome{}, fmt.Errorf("ocr fallback failed: %w", err)
	}
	res.OCRApplied = true
	return Outcome{Result: res, Engine: s.fallback.Name(), Duration: time.Since(start)}, nil
}

// PrimaryAvailable reports whether the layout engine can serve requests.
func (s *Service) PrimaryAvailable(ctx context.Context) bool {
	return s.primary != nil && s.primary.Available(ctx)
}

// FallbackAvailable reports whether the OCR engine can serve requests.
func (s *Service) FallbackAvailable(ctx context.Context) bool {
	return s.fallback != nil && s.fallback.Available(ctx)
}
