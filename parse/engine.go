package parse

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by engines that cannot run in the current
// environment (missing binary, missing models).
var ErrUnavailable = errors.New("engine unavailable")

// ErrUnsupported is returned when an engine cannot handle the document's
// file type.
var ErrUnsupported = errors.New("unsupported file type")

// Engine is the provider contract: one document in, one result out.
// Implementations live in the subpackages mineru (layout pipeline) and
// tesseract (generic OCR).
type Engine interface {
	Name() string
	// Available reports whether the engine can currently serve requests.
	// It is probed at startup, on health checks and when the models
	// directory changes, so it must be cheap.
	Available(ctx context.Context) bool
	Parse(ctx context.Context, doc Document, opts Options) (Result, error)
}
