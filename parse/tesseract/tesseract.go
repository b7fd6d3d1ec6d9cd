// Package tesseract is the generic OCR fallback engine, backed by the
// gosseract client. It handles image uploads directly and rasterizes PDFs
// page by page with pdftoppm before recognition. Output quality is well
// below the layout pipeline; it exists so the service keeps answering when
// models are absent.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/parse"
)

// Engine implements parse.Engine on top of Tesseract.
type Engine struct {
	clientFactory func() *gosseract.Client
	// DPI used when rasterizing PDF pages.
	dpi int
	log observability.Logger
}

// Option tunes the engine.
type Option func(*Engine)

// WithDPI overrides the PDF rasterization resolution.
func WithDPI(dpi int) Option {
	return func(e *Engine) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log observability.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New constructs the OCR engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		clientFactory: gosseract.NewClient,
		dpi:           144,
		log:           observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return "tesseract" }

// Available reports whether Tesseract has at least one trained language
// installed.
func (e *Engine) Available(ctx context.Context) bool {
	langs, err := gosseract.GetAvailableLanguages()
	return err == nil && len(langs) > 0
}

// Parse recognizes the document. PDF pages are concatenated with blank
// lines between them; single images yield one page.
func (e *Engine) Parse(ctx context.Context, doc parse.Document, opts parse.Options) (parse.Result, error) {
	if !parse.Supported(doc.Name) {
		return parse.Result{}, fmt.Errorf("%s: %w", doc.Name, parse.ErrUnsupported)
	}

	if doc.IsPDF() {
		return e.parsePDF(ctx, doc, opts)
	}
	return e.parseImage(ctx, doc, opts)
}

func (e *Engine) parseImage(ctx context.Context, doc parse.Document, opts parse.Options) (parse.Result, error) {
	png, err := normalizePNG(doc.Data)
	if err != nil {
		return parse.Result{}, fmt.Errorf("decode %s: %w", doc.Name, err)
	}
	text, err := e.recognize(ctx, png, opts.Language)
	if err != nil {
		return parse.Result{}, err
	}
	return parse.Result{Markdown: text, Pages: 1, OCRApplied: true}, nil
}

func (e *Engine) parsePDF(ctx context.Context, doc parse.Document, opts parse.Options) (parse.Result, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "ocr-*")
		if err != nil {
			return parse.Result{}, fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	pages, err := renderPDF(ctx, doc, workDir, e.dpi)
	if err != nil {
		return parse.Result{}, err
	}

	var sb strings.Builder
	for i, page := range pages {
		select {
		case <-ctx.Done():
			return parse.Result{}, ctx.Err()
		default:
		}
		data, err := os.ReadFile(page)
		if err != nil {
			return parse.Result{}, fmt.Errorf("read rendered page: %w", err)
		}
		text, err := e.recognize(ctx, data, opts.Language)
		if err != nil {
			return parse.Result{}, fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	e.log.Debug("ocr complete",
		observability.String("file", doc.Name),
		observability.Int("pages", len(pages)))

	return parse.Result{Markdown: sb.String(), Pages: len(pages), OCRApplied: true}, nil
}

func (e *Engine) recognize(ctx context.Context, png []byte, lang string) (string, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if lang != "" {
		if err := c.SetLanguage(splitLanguages(lang)...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// splitLanguages accepts both "eng" and tesseract's "eng+fra" form.
func splitLanguages(lang string) []string {
	parts := strings.Split(lang, "+")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
