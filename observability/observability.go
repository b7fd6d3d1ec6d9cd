package observability

// Package observability defines the logging abstraction used across the
// service. Handlers and engines log through the Logger interface so library
// packages stay free of a concrete logging backend; the server binary wires
// in the slog implementation, tests use the nop.

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) Key() string        { return f.key }
func (f int64Field) Value() interface{} { return f.val }

type boolField struct {
	key string
	val bool
}

func (f boolField) Key() string        { return f.key }
func (f boolField) Value() interface{} { return f.val }

type durationField struct {
	key string
	ms  int64
}

func (f durationField) Key() string        { return f.key }
func (f durationField) Value() interface{} { return f.ms }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field      { return stringField{key, value} }
func Int(key string, value int) Field     { return intField{key, value} }
func Int64(key string, value int64) Field { return int64Field{key, value} }
func Bool(key string, value bool) Field   { return boolField{key, value} }
func Error(key string, err error) Field   { return errorField{key, err} }

// DurationMS records an elapsed time as integer milliseconds.
func DurationMS(key string, ms int64) Field { return durationField{key, ms} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Standard metric names emitted by the service.
const (
	MetricParseTime       = "parse.duration"
	MetricParsePages      = "parse.pages.count"
	MetricOCRPages        = "ocr.pages.count"
	MetricDownloadBytes   = "provision.download.bytes"
	MetricDownloadSkipped = "provision.download.skipped"
)
