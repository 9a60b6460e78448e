// Package solver turns free-text word problems into calculator expressions
// by asking a remote text-completion service, with retry and backoff.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/andywolf/nebulacalc/internal/observability"
	"github.com/andywolf/nebulacalc/internal/retry"
	"github.com/andywolf/nebulacalc/internal/security"
	"github.com/andywolf/nebulacalc/internal/version"
	"github.com/google/uuid"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gemini-2.5-flash-preview-05-20"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// generationName labels each attempt in traces.
	generationName = "WordProblem"

	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// DefaultEndpoint returns the generateContent URL for model.
func DefaultEndpoint(model string) string {
	return fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
}

// Config describes the completion service.
type Config struct {
	Endpoint       string // Defaults to DefaultEndpoint(Model)
	Model          string // Defaults to DefaultModel
	PromptTemplate string // Defaults to DefaultPromptTemplate
	Timeout        time.Duration
	Retry          retry.Policy
}

// Solver sends word problems to the completion service.
type Solver struct {
	config    Config
	client    *http.Client
	auth      Authenticator
	tracer    observability.Tracer
	logger    *log.Logger
	scrubber  *security.Scrubber
	sleep     retry.SleepFunc
	variables map[string]string
}

// Option configures a Solver.
type Option func(*Solver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Solver) {
		s.client = client
	}
}

// WithAuthenticator sets how requests are authorized. Without one, requests
// are sent unauthenticated.
func WithAuthenticator(auth Authenticator) Option {
	return func(s *Solver) {
		s.auth = auth
	}
}

// WithTracer records attempts and backoffs.
func WithTracer(tracer observability.Tracer) Option {
	return func(s *Solver) {
		s.tracer = tracer
	}
}

// WithLogger sets the progress logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Solver) {
		s.logger = logger
	}
}

// WithSleep replaces the backoff wait, typically with a fake clock.
func WithSleep(fn retry.SleepFunc) Option {
	return func(s *Solver) {
		s.sleep = fn
	}
}

// WithPromptVariables supplies extra {{variables}} for the prompt template.
func WithPromptVariables(vars map[string]string) Option {
	return func(s *Solver) {
		s.variables = vars
	}
}

// New creates a Solver. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Solver {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint(cfg.Model)
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}

	s := &Solver{
		config:   cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		tracer:   &observability.NoOpTracer{},
		logger:   log.New(io.Discard, "", 0),
		scrubber: security.NewScrubber(),
		sleep:    retry.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the configured model name.
func (s *Solver) Model() string {
	return s.config.Model
}

type traceInfoKey struct{}

// TraceInfo tags a solve with the calling session and surface.
type TraceInfo struct {
	SessionID string
	Source    string
}

// WithTraceInfo attaches trace tags to ctx.
func WithTraceInfo(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(ctx, traceInfoKey{}, info)
}

func traceInfoFrom(ctx context.Context) TraceInfo {
	info, _ := ctx.Value(traceInfoKey{}).(TraceInfo)
	return info
}

// Solve converts problem into an expression string. The result is returned
// as the service produced it, minus backticks and surrounding whitespace;
// it is not validated or evaluated.
//
// Empty problems fail with ErrEmptyProblem before any request is made. When
// every attempt fails, or ctx ends during a backoff, the error is a
// *NetworkError.
func (s *Solver) Solve(ctx context.Context, problem string) (string, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return "", ErrEmptyProblem
	}

	prompt := BuildPrompt(s.config.PromptTemplate, problem, s.variables)
	info := traceInfoFrom(ctx)
	trace := s.tracer.StartTrace(uuid.New().String(), observability.TraceOptions{
		Model:     s.config.Model,
		SessionID: info.SessionID,
		Source:    info.Source,
	})

	retrier := retry.New(s.config.Retry,
		retry.WithSleep(s.sleep),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			reason := s.scrubber.ScrubError(err)
			s.logger.Printf("Warning: word problem attempt %d failed, retrying in %v: %s", attempt+1, delay, reason)
			s.tracer.RecordBackoff(trace, attempt, delay.Milliseconds(), reason)
		}),
	)

	var expression string
	attempts := 0
	err := retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts++
		start := time.Now()
		text, err := s.complete(ctx, prompt)

		gen := observability.GenerationInput{
			Name:       generationName,
			Model:      s.config.Model,
			Input:      prompt,
			Attempt:    attempt,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			gen.Status = "error"
			gen.Error = s.scrubber.ScrubError(err)
			s.tracer.RecordGeneration(trace, gen)
			return err
		}

		expression = CleanExpression(text)
		gen.Status = "completed"
		gen.Output = expression
		s.tracer.RecordGeneration(trace, gen)
		return nil
	})

	if err != nil {
		s.tracer.CompleteTrace(trace, observability.CompleteOptions{Status: "failed", Attempts: attempts})
		s.logger.Printf("Error: word problem failed after %d attempt(s): %s", attempts, s.scrubber.ScrubError(err))
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return "", &NetworkError{Attempts: exhausted.Attempts, Err: exhausted.Err}
		}
		return "", &NetworkError{Attempts: attempts, Err: err}
	}

	s.tracer.CompleteTrace(trace, observability.CompleteOptions{Status: "completed", Attempts: attempts})
	return expression, nil
}

// complete performs one generateContent call and returns the raw text.
func (s *Solver) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(newRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	if s.auth != nil {
		if err := s.auth.Authorize(ctx, req); err != nil {
			return "", fmt.Errorf("authorize request: %w", err)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return ParseResponse(respBody)
}
