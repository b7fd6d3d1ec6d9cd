package parse

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubEngine struct {
	name      string
	available bool
	result    Result
	err       error
	calls     int
}

func (s *stubEngine) Name() string                 { return s.name }
func (s *stubEngine) Available(context.Context) bool { return s.available }

func (s *stubEngine) Parse(_ context.Context, _ Document, _ Options) (Result, error) {
	s.calls++
	return s.result, s.err
}

func TestParseMethod(t *testing.T) {
	cases := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodAuto, false},
		{"auto", MethodAuto, false},
		{"OCR", MethodOCR, false},
		{" txt ", MethodTxt, false},
		{"fast", "", true},
	}
	for _, c := range cases {
		got, err := ParseMethod(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseMethod(%q) expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMethod(%q) error = %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseMethod(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.PNG", "scan.tiff", "c.jpeg", "d.bmp"} {
		if !Supported(name) {
			t.Fatalf("expected %s to be supported", name)
		}
	}
	for _, name := range []string{"a.docx", "noext", "x.txt"} {
		if Supported(name) {
			t.Fatalf("expected %s to be rejected", name)
		}
	}
}

func TestServicePrefersPrimary(t *testing.T) {
	primary := &stubEngine{name: "mineru", available: true, result: Result{Markdown: "# doc", Pages: 2}}
	fallback := &stubEngine{name: "tesseract", available: true}
	svc := NewService(primary, fallback, nil)

	out, err := svc.Parse(context.Background(), Document{Name: "a.pdf"}, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if out.Engine != "mineru" {
		t.Fatalf("unexpected engine: %s", out.Engine)
	}
	if out.OCRApplied {
		t.Fatalf("primary result must not be marked as OCR")
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback should not have been called")
	}
}

func TestServiceFallsBackOnPrimaryError(t *testing.T) {
	primary := &stubEngine{name: "mineru", available: true, err: errors.New("model crash")}
	fallback := &stubEngine{name: "tesseract", available: true, result: Result{Markdown: "text", Pages: 1}}
	svc := NewService(primary, fallback, nil)

	out, err := svc.Parse(context.Background(), Document{Name: "a.pdf"}, Options{Method: MethodAuto})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if out.Engine != "tesseract" {
		t.Fatalf("unexpected engine: %s", out.Engine)
	}
	if !out.OCRApplied {
		t.Fatalf("fallback result must be marked as OCR")
	}
}

func TestServiceFallsBackWhenPrimaryUnavailable(t *testing.T) {
	primary := &stubEngine{name: "mineru", available: false}
	fallback := &stubEngine{name: "tesseract", available: true, result: Result{Markdown: "text"}}
	svc := NewService(primary, fallback, nil)

	out, err := svc.Parse(context.Background(), Document{Name: "scan.png"}, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if primary.calls != 0 {
		t.Fatalf("unavailable primary should not be invoked")
	}
	if out.Engine != "tesseract" || !out.OCRApplied {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestServiceBothFail(t *testing.T) {
	primary := &stubEngine{name: "mineru", available: true, err: errors.New("crash")}
	fallback := &stubEngine{name: "tesseract", available: true, err: errors.New("no text")}
	svc := NewService(primary, fallback, nil)

	_, err := svc.Parse(context.Background(), Document{Name: "a.pdf"}, Options{})
	if err == nil {
		t.Fatalf("expected error when both engines fail")
	}
	if !strings.Contains(err.Error(), "crash") || !strings.Contains(err.Error(), "no text") {
		t.Fatalf("error should mention both failures: %v", err)
	}
}

func TestServiceNoEngines(t *testing.T) {
	svc := NewService(nil, nil, nil)
	_, err := svc.Parse(context.Background(), Document{Name: "a.pdf"}, Options{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
