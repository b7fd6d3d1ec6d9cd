package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFieldConstructors(t *testing.T) {
	err := errors.New("boom")
	cases := []struct {
		field Field
		key   string
		value interface{}
	}{
		{String("engine", "mineru"), "engine", "mineru"},
		{Int("pages", 3), "pages", 3},
		{Int64("bytes", 1 << 32), "bytes", int64(1 << 32)},
		{Bool("ocr", true), "ocr", true},
		{DurationMS("elapsed", 1200), "elapsed", int64(1200)},
		{Error("err", err), "err", err},
	}
	for _, c := range cases {
		if c.field.Key() != c.key {
			t.Fatalf("unexpected key: %s", c.field.Key())
		}
		if c.field.Value() != c.value {
			t.Fatalf("unexpected value for %s: %v", c.key, c.field.Value())
		}
	}
}

func TestNewTextLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewText(&buf, false)
	log.Debug("hidden")
	log.Info("shown", String("k", "v"))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug leaked at info level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "k=v") {
		t.Fatalf("missing info output: %s", out)
	}

	buf.Reset()
	NewText(&buf, true).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("verbose logger dropped debug output: %s", buf.String())
	}
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewText(&buf, false).With(String("request", "abc"))
	log.Info("hello")
	if !strings.Contains(buf.String(), "request=abc") {
		t.Fatalf("with-field missing: %s", buf.String())
	}
}
