package parse

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Method selects how a document is parsed: auto-detect, forced OCR, or
// text-layer extraction only.
type Method string

const (
	MethodAuto Method = "auto"
	MethodOCR  Method = "ocr"
	MethodTxt  Method = "txt"
)

// ParseMethod validates a user-supplied method string. The empty string
// means auto.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodAuto:
		return MethodAuto, nil
	case MethodOCR:
		return MethodOCR, nil
	case MethodTxt:
		return MethodTxt, nil
	}
	return "", fmt.Errorf("invalid parse_method %q (want auto, ocr or txt)", s)
}

// Document is a single uploaded file held in memory for the duration of a
// request.
type Document struct {
	Name string
	Data []byte
}

// Ext returns the lower-cased filename extension including the dot.
func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// IsPDF reports whether the document is a PDF by extension.
func (d Document) IsPDF() bool { return d.Ext() == ".pdf" }

var supportedExts = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".bmp":  {},
}

// Supported reports whether the filename carries an extension the service
// accepts.
func Supported(name string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Options tunes a single parse call.
type Options struct {
	Method Method
	// Language is an optional OCR language hint (e.g. "eng", "fra").
	Language string
	// WorkDir is a scratch directory owned by the caller. Engines may
	// write intermediate artifacts there; the caller removes it afterwards.
	WorkDir string
}

// Result is what an engine produces for one document.
type Result struct {
	// Markdown is the extracted content.
	Markdown string
	// Pages is the page count of the source document, zero when unknown.
	Pages int
	// OCRApplied reports whether optical recognition ran, as opposed to
	// text-layer extraction.
	OCRApplied bool
}
