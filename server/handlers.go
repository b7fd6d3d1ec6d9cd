package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/docparse/mineru-api/markdown"
	"github.com/docparse/mineru-api/observability"
	"github.com/docparse/mineru-api/parse"
)

// Metadata is the per-document summary attached to parse responses.
type Metadata struct {
	ParseMethod      parse.Method `json:"parse_method"`
	OCRApplied       bool         `json:"ocr_applied"`
	Pages            int          `json:"pages"`
	ProcessingTimeMS int64        `json:"processing_time_ms"`
	Engine           string       `json:"engine"`
	TablesDetected   int          `json:"tables_detected"`
	FormulasDetected int          `json:"formulas_detected"`
	WordCount        int          `json:"word_count"`
}

// ParseResponse is the /api/parse success body.
type ParseResponse struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

type healthResponse struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Engines map[string]bool `json:"engines"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.version,
		Engines: map[string]bool{
			"primary":  s.svc.PrimaryAvailable(r.Context()),
			"fallback": s.svc.FallbackAvailable(r.Context()),
		},
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer cleanupMultipart(r)

	method, err := parse.ParseMethod(r.FormValue("parse_method"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.FormValue("output_format")))
	switch format {
	case "", "markdown", "html":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid output_format %q (want markdown or html)", format))
		return
	}

	doc, err := readUpload(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !parse.Supported(doc.Name) {
		writeError(w, http.StatusBadRequest, "unsupported file type: "+doc.Ext())
		return
	}

	workDir, cleanup, err := scratchDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scratch dir: "+err.Error())
		return
	}
	defer cleanup()

	out, err := s.svc.Parse(r.Context(), doc, parse.Options{
		Method:   method,
		Language: r.FormValue("lang"),
		WorkDir:  workDir,
	})
	if err != nil {
		s.log.Error("parse failed",
			observability.String("file", doc.Name),
			observability.Error("error", err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	stats := markdown.Analyze(out.Markdown)
	content := out.Markdown
	if format == "html" {
		if content, err = markdown.ToHTML(out.Markdown); err != nil {
			writeError(w, http.StatusInternalServerError, "render html: "+err.Error())
			return
		}
	}

	s.log.Info("parsed",
		observability.String("file", doc.Name),
		observability.String("engine", out.Engine),
		observability.Bool("ocr", out.OCRApplied),
		observability.Int("pages", out.Pages),
		observability.DurationMS(observability.MetricParseTime, out.Duration.Milliseconds()))

	writeJSON(w, http.StatusOK, ParseResponse{
		Content: content,
		Metadata: Metadata{
			ParseMethod:      method,
			OCRApplied:       out.OCRApplied,
			Pages:            out.Pages,
			ProcessingTimeMS: out.Duration.Milliseconds(),
			Engine:           out.Engine,
			TablesDetected:   stats.Tables,
			FormulasDetected: stats.Formulas,
			WordCount:        stats.Words,
		},
	})
}

// fileResult mirrors the legacy endpoint's per-file schema.
type fileResult struct {
	Filename string        `json:"filename"`
	Result   *legacyResult `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type legacyResult struct {
	MD               string `json:"md"`
	Pages            int    `json:"pages"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	OCRApplied       bool   `json:"ocr_applied"`
	TablesDetected   int    `json:"tables_detected"`
	FormulasDetected int    `json:"formulas_detected"`
}

// handleFileParse is the legacy multi-file endpoint. Per-file failures land
// in the corresponding array element; the response as a whole is always 200
// unless the request itself is malformed.
func (s *Server) handleFileParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer cleanupMultipart(r)

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	results := make([]fileResult, 0, len(r.MultipartForm.File["files"]))
	for _, header := range r.MultipartForm.File["files"] {
		if header.Filename == "" {
			continue
		}
		results = append(results, s.parseOne(r, header))
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) parseOne(r *http.Request, header *multipart.FileHeader) fileResult {
	if !parse.Supported(header.Filename) {
		return fileResult{
			Filename: header.Filename,
			Error:    "unsupported file type: " + strings.ToLower(filepath.Ext(header.Filename)),
		}
	}
	doc, err := readHeader(header)
	if err != nil {
		return fileResult{Filename: header.Filename, Error: err.Error()}
	}

	workDir, cleanup, err := scratchDir()
	if err != nil {
		return fileResult{Filename: header.Filename, Error: err.Error()}
	}
	defer cleanup()

	out, err := s.svc.Parse(r.Context(), doc, parse.Options{Method: parse.MethodAuto, WorkDir: workDir})
	if err != nil {
		s.log.Error("parse failed",
			observability.String("file", doc.Name),
			observability.Error("error", err))
		return fileResult{Filename: header.Filename, Error: err.Error()}
	}

	stats := markdown.Analyze(out.Markdown)
	return fileResult{
		Filename: header.Filename,
		Result: &legacyResult{
			MD:               out.Markdown,
			Pages:            out.Pages,
			ProcessingTimeMS: out.Duration.Milliseconds(),
			OCRApplied:       out.OCRApplied,
			TablesDetected:   stats.Tables,
			FormulasDetected: stats.Formulas,
		},
	}
}

func readUpload(r *http.Request, field string) (parse.Document, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return parse.Document{}, errors.New("missing upload field " + field)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return parse.Document{}, fmt.Errorf("read upload: %w", err)
	}
	return parse.Document{Name: header.Filename, Data: data}, nil
}

func readHeader(header *multipart.FileHeader) (parse.Document, error) {
	file, err := header.Open()
	if err != nil {
		return parse.Document{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return parse.Document{}, fmt.Errorf("read upload: %w", err)
	}
	return parse.Document{Name: header.Filename, Data: data}, nil
}

// scratchDir creates a per-request work directory that engines may write
// intermediate files into.
func scratchDir() (string, func(), error) {
	dir := filepath.Join(os.TempDir(), "mineru-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
