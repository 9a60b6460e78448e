// Package gcp holds the Google Cloud integrations: structured logging,
// Secret Manager lookups and metadata server probes.
package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"github.com/andywolf/nebulacalc/internal/security"
	"google.golang.org/api/option"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// DefaultLogID is the Cloud Logging log name.
const DefaultLogID = "nebulacalc"

// Logger is a structured, severity-aware logger.
type Logger interface {
	Log(severity Severity, message string, fields map[string]interface{})
	Info(message string)
	Warning(message string)
	Error(message string)
	Flush() error
	Close() error
}

// LogWriter is the subset of *logging.Logger used by CloudLogger.
type LogWriter interface {
	Log(e logging.Entry)
	Flush() error
}

// CloudLoggerConfig configures a Cloud Logging backed logger.
type CloudLoggerConfig struct {
	ProjectID string
	LogID     string
	Labels    map[string]string
}

// CloudLogger writes entries to Cloud Logging. Messages and string fields
// are scrubbed of credentials before they leave the process.
type CloudLogger struct {
	writer   LogWriter
	client   *logging.Client
	labels   map[string]string
	scrubber *security.Scrubber
	mu       sync.Mutex
	closed   bool
}

// NewCloudLogger connects to Cloud Logging for cfg.ProjectID.
func NewCloudLogger(ctx context.Context, cfg CloudLoggerConfig, opts ...option.ClientOption) (*CloudLogger, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required for cloud logging")
	}
	if cfg.LogID == "" {
		cfg.LogID = DefaultLogID
	}

	client, err := logging.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging client: %w", err)
	}
	client.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "Warning: cloud logging: %v\n", err)
	}

	labels := withDefaultLabels(cfg.Labels)
	cl := NewCloudLoggerWithWriter(client.Logger(cfg.LogID, logging.CommonLabels(labels)), labels)
	cl.client = client
	return cl, nil
}

// NewCloudLoggerWithWriter builds a CloudLogger around any LogWriter.
func NewCloudLoggerWithWriter(writer LogWriter, labels map[string]string) *CloudLogger {
	return &CloudLogger{
		writer:   writer,
		labels:   withDefaultLabels(labels),
		scrubber: security.NewScrubber(),
	}
}

func withDefaultLabels(labels map[string]string) map[string]string {
	out := map[string]string{"component": "nebulacalc"}
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// Log writes a structured entry
func (cl *CloudLogger) Log(severity Severity, message string, fields map[string]interface{}) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return
	}

	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = cl.scrubber.Scrub(s)
		}
		payload[k] = v
	}
	payload["message"] = cl.scrubber.Scrub(message)

	cl.writer.Log(logging.Entry{
		Timestamp: time.Now().UTC(),
		Severity:  logging.ParseSeverity(string(severity)),
		Payload:   payload,
		Labels:    cl.labels,
	})
}

// Info writes an INFO entry
func (cl *CloudLogger) Info(message string) {
	cl.Log(SeverityInfo, message, nil)
}

// Warning writes a WARNING entry
func (cl *CloudLogger) Warning(message string) {
	cl.Log(SeverityWarning, message, nil)
}

// Error writes an ERROR entry
func (cl *CloudLogger) Error(message string) {
	cl.Log(SeverityError, message, nil)
}

// Flush sends buffered entries
func (cl *CloudLogger) Flush() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	return cl.writer.Flush()
}

// Close flushes remaining entries and releases the client
func (cl *CloudLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	cl.closed = true

	if err := cl.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush logs: %w", err)
	}
	if cl.client != nil {
		return cl.client.Close()
	}
	return nil
}

// LogEntry is the JSON line written by FallbackLogger.
type LogEntry struct {
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// FallbackLogger writes JSON lines in the Cloud Logging structured format to
// a local writer. It is used when no project is configured.
type FallbackLogger struct {
	writer   io.Writer
	labels   map[string]string
	scrubber *security.Scrubber
	mu       sync.Mutex
}

// NewFallbackLogger creates a logger that writes structured JSON to writer
func NewFallbackLogger(writer io.Writer, labels map[string]string) *FallbackLogger {
	return &FallbackLogger{
		writer:   writer,
		labels:   withDefaultLabels(labels),
		scrubber: security.NewScrubber(),
	}
}

// Log writes a structured log entry to the writer
func (fl *FallbackLogger) Log(severity Severity, message string, fields map[string]interface{}) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	var scrubbed map[string]interface{}
	if len(fields) > 0 {
		scrubbed = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			if s, ok := v.(string); ok {
				v = fl.scrubber.Scrub(s)
			}
			scrubbed[k] = v
		}
	}

	entry := LogEntry{
		Severity:  severity,
		Message:   fl.scrubber.Scrub(message),
		Timestamp: time.Now().UTC(),
		Labels:    fl.labels,
		Fields:    scrubbed,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(fl.writer, `{"severity":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(fl.writer, "%s\n", data)
}

// Info writes an INFO level log entry
func (fl *FallbackLogger) Info(message string) {
	fl.Log(SeverityInfo, message, nil)
}

// Warning writes a WARNING level log entry
func (fl *FallbackLogger) Warning(message string) {
	fl.Log(SeverityWarning, message, nil)
}

// Error writes an ERROR level log entry
func (fl *FallbackLogger) Error(message string) {
	fl.Log(SeverityError, message, nil)
}

// Flush is a no-op for the fallback logger (writes are synchronous)
func (fl *FallbackLogger) Flush() error {
	return nil
}

// Close is a no-op for the fallback logger
func (fl *FallbackLogger) Close() error {
	return nil
}

// NewLogger returns a CloudLogger when a project is configured and reachable,
// otherwise a FallbackLogger on fallback.
func NewLogger(ctx context.Context, cfg CloudLoggerConfig, fallback io.Writer, opts ...option.ClientOption) Logger {
	if cfg.ProjectID != "" {
		cl, err := NewCloudLogger(ctx, cfg, opts...)
		if err == nil {
			return cl
		}
		fl := NewFallbackLogger(fallback, cfg.Labels)
		fl.Warning(fmt.Sprintf("cloud logging unavailable, using local logs: %v", err))
		return fl
	}
	return NewFallbackLogger(fallback, cfg.Labels)
}

// Writer adapts a Logger to an io.Writer for use with log.New. Each line is
// one entry; "Warning:" and "Error:" prefixes select the severity.
type Writer struct {
	logger Logger
}

// NewWriter returns a Writer over logger.
func NewWriter(logger Logger) *Writer {
	return &Writer{logger: logger}
}

func (w *Writer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		severity, msg := severityFromLine(line)
		w.logger.Log(severity, msg, nil)
	}
	return len(p), nil
}

var severityPrefixes = []struct {
	prefix   string
	severity Severity
}{
	{"Error: ", SeverityError},
	{"Warning: ", SeverityWarning},
	{"Debug: ", SeverityDebug},
}

// severityFromLine picks the earliest severity prefix in line and strips it.
func severityFromLine(line string) (Severity, string) {
	best, at := SeverityInfo, -1
	var plen int
	for _, p := range severityPrefixes {
		if i := strings.Index(line, p.prefix); i >= 0 && (at < 0 || i < at) {
			best, at, plen = p.severity, i, len(p.prefix)
		}
	}
	if at < 0 {
		return SeverityInfo, line
	}
	return best, strings.TrimSpace(line[:at] + line[at+plen:])
}

var (
	_ Logger = (*CloudLogger)(nil)
	_ Logger = (*FallbackLogger)(nil)
)
