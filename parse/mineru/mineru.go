// Package mineru adapts the magic-pdf command line pipeline (layout
// analysis, formula and table recognition) to the parse.Engine contract.
// The pipeline itself is an external installation; this package only
// shells out to it and collects the markdown it writes.
package mineru

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/parse"
	"github.com/docparse/mineru-api/provision"
)

// DefaultBinary is the magic-pdf entry point installed alongside the models.
const DefaultBinary = "magic-pdf"

// DefaultMarkers are the model subdirectories that must exist before the
// pipeline can run: formula detection, layout analysis and OCR weights.
// They are the same markers the provisioner syncs.
var DefaultMarkers = provision.RequiredMarkers

// Config describes where the pipeline and its models live.
type Config struct {
	// Binary is the pipeline executable; a bare name is resolved via PATH.
	Binary string
	// ModelsDir holds the downloaded model tree.
	ModelsDir string
	// Markers are subdirectories of ModelsDir whose presence indicates a
	// complete model set. Empty means DefaultMarkers.
	Markers []string
}

// Engine runs documents through magic-pdf.
type Engine struct {
	cfg Config
	log observability.Logger
}

// New builds the engine. Zero-value config fields get defaults.
func New(cfg Config, log observability.Logger) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if len(cfg.Markers) == 0 {
		cfg.Markers = DefaultMarkers
	}
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Engine{cfg: cfg, log: log}
}

func (e *Engine) Name() string { return "mineru" }

// Available reports whether the binary resolves and every model marker
// directory exists.
func (e *Engine) Available(ctx context.Context) bool {
	if _, err := exec.LookPath(e.cfg.Binary); err != nil {
		return false
	}
	for _, marker := range e.cfg.Markers {
		info, err := os.Stat(filepath.Join(e.cfg.ModelsDir, marker))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// Parse writes the document to the work dir, invokes the pipeline and
// returns the markdown it produced.
func (e *Engine) Parse(ctx context.Context, doc parse.Document, opts parse.Options) (parse.Result, error) {
	if !parse.Supported(doc.Name) {
		return parse.Result{}, fmt.Errorf("%s: %w", doc.Name, parse.ErrUnsupported)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "mineru-*")
		if err != nil {
			return parse.Result{}, fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	input := filepath.Join(workDir, filepath.Base(doc.Name))
	if err := os.WriteFile(input, doc.Data, 0o600); err != nil {
		return parse.Result{}, fmt.Errorf("write input: %w", err)
	}
	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return parse.Result{}, fmt.Errorf("create output dir: %w", err)
	}

	method := opts.Method
	if method == "" {
		method = parse.MethodAuto
	}
	args := []string{"-p", input, "-o", outDir, "-m", string(method)}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.cfg.Binary, args...)
	cmd.Stderr = &stderr
	e.log.Debug("running magic-pdf",
		observability.String("file", doc.Name),
		observability.String("method", string(method)))
	if err := cmd.Run(); err != nil {
		return parse.Result{}, fmt.Errorf("magic-pdf %s: %w: %s", doc.Name, err, firstLine(stderr.String()))
	}

	md, err := findMarkdown(outDir)
	if err != nil {
		return parse.Result{}, err
	}

	pages := 0
	if doc.IsPDF() {
		pages = countPages(ctx, input)
	}

	return parse.Result{
		Markdown:   md,
		Pages:      pages,
		OCRApplied: method == parse.MethodOCR,
	}, nil
}

// findMarkdown locates the single .md file the pipeline writes below the
// output directory. The exact nesting varies between pipeline versions, so
// the tree is walked rather than assuming a layout.
func findMarkdown(outDir string) (string, error) {
	var found string
	err := filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		found = path
		return filepath.SkipAll
	})
	if err != nil {
		return "", fmt.Errorf("scan output dir: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("magic-pdf produced no markdown under %s", outDir)
	}
	data, err := os.ReadFile(found)
	if err != nil {
		return "", fmt.Errorf("read markdown output: %w", err)
	}
	return string(data), nil
}

// countPages asks pdfinfo for the page count. Best effort: zero when the
// tool is missing or its output cannot be read.
func countPages(ctx context.Context, pdfPath string) int {
	out, err := exec.CommandContext(ctx, "pdfinfo", pdfPath).Output()
	if err != nil {
		return 0
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			if n, convErr := strconv.Atoi(fields[1]); convErr == nil {
				return n
			}
		}
	}
	return 0
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
