package observability

import (
	"fmt"
	"io"
	"time"
)

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

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type durationField struct {
	key string
	val time.Duration
}

func (f durationField) Key() string        { return f.key }
func (f durationField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field             { return stringField{key, value} }
func Int(key string, value int) Field            { return intField{key, value} }
func Float64(key string, value float64) Field    { return float64Field{key, value} }
func Duration(key string, d time.Duration) Field { return durationField{key, d} }
func Error(key string, err error) Field          { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// WriterLogger writes one line per event in key=value form. It backs the cmd/
// tools and tests; production callers typically adapt their own logger.
type WriterLogger struct {
	W      io.Writer
	fields []Field
}

func (l *WriterLogger) log(level, msg string, fields []Field) {
	if l.W == nil {
		return
	}
	fmt.Fprintf(l.W, "%s %s", level, msg)
	for _, f := range l.fields {
		fmt.Fprintf(l.W, " %s=%v", f.Key(), f.Value())
	}
	for _, f := range fields {
		fmt.Fprintf(l.W, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.W)
}

func (l *WriterLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields) }
func (l *WriterLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields) }
func (l *WriterLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields) }
func (l *WriterLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields) }

func (l *WriterLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &WriterLogger{W: l.W, fields: merged}
}

// Standard metric names emitted by the pipeline.
const (
	MetricModelLoadTime  = "ocr.model.load.duration"
	MetricDetectTime     = "ocr.detect.duration"
	MetricRegionCount    = "ocr.regions.count"
	MetricRecognizeTime  = "ocr.recognize.duration"
	MetricLineCount      = "ocr.lines.count"
	MetricPageConfidence = "ocr.page.confidence"
)
