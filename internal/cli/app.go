package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/andywolf/nebulacalc/internal/calculator"
	"github.com/andywolf/nebulacalc/internal/cloud/gcp"
	"github.com/andywolf/nebulacalc/internal/config"
	"github.com/andywolf/nebulacalc/internal/observability"
	"github.com/andywolf/nebulacalc/internal/solver"
)

const shutdownTimeout = 5 * time.Second

// app holds what every command shares: configuration, logging, tracing and
// the optional word problem solver.
type app struct {
	cfg    *config.Config
	logger gcp.Logger
	log    *log.Logger
	tracer observability.Tracer
	solver *solver.Solver // nil when no credentials are configured
}

type appOptions struct {
	// requireSolver fails setup when no solver credentials are configured.
	requireSolver bool

	// logOutput receives local logs when Cloud Logging is not configured.
	logOutput io.Writer

	// newFetcher opens Secret Manager; replaced in tests.
	newFetcher func(context.Context) (gcp.SecretFetcher, error)
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if opts.requireSolver {
		if err := cfg.ValidateForSolve(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.logOutput == nil {
		opts.logOutput = io.Discard
	}
	if opts.newFetcher == nil {
		opts.newFetcher = secretManagerFetcher(cfg.Solver.Project)
	}

	logger := gcp.NewLogger(ctx, gcp.CloudLoggerConfig{
		ProjectID: cfg.Logging.Project,
		LogID:     cfg.Logging.LogID,
	}, opts.logOutput)
	a := &app{
		cfg:    cfg,
		logger: logger,
		log:    log.New(gcp.NewWriter(logger), "", 0),
		tracer: &observability.NoOpTracer{},
	}

	apiKey := &gcp.SecretRef{Name: "solver.api_key", Value: cfg.Solver.APIKey, Secret: cfg.Solver.APIKeySecret}
	refs := []*gcp.SecretRef{apiKey}
	var lfPublic, lfSecret *gcp.SecretRef
	if cfg.Langfuse.Enabled {
		lfPublic = &gcp.SecretRef{Name: "langfuse.public_key", Value: cfg.Langfuse.PublicKey, Secret: cfg.Langfuse.PublicKeySecret}
		lfSecret = &gcp.SecretRef{Name: "langfuse.secret_key", Value: cfg.Langfuse.SecretKey, Secret: cfg.Langfuse.SecretKeySecret}
		refs = append(refs, lfPublic, lfSecret)
	}
	if err := gcp.ResolveSecrets(ctx, opts.newFetcher, refs...); err != nil {
		a.close()
		return nil, err
	}

	if cfg.Langfuse.Enabled {
		a.tracer = observability.NewLangfuseTracer(observability.LangfuseConfig{
			PublicKey: lfPublic.Value,
			SecretKey: lfSecret.Value,
			BaseURL:   cfg.Langfuse.BaseURL,
		}, a.log)
		if cfg.Logging.Verbose {
			a.log.Printf("Langfuse: tracing enabled (%s)", cfg.Langfuse.BaseURL)
		}
	}

	if cfg.SolverConfigured() {
		s, err := a.buildSolver(apiKey.Value)
		if err != nil {
			a.close()
			return nil, err
		}
		a.solver = s
	}
	return a, nil
}

func (a *app) buildSolver(apiKey string) (*solver.Solver, error) {
	cfg := a.cfg
	timeout, err := cfg.SolverTimeout()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}

	var tmpl string
	if cfg.Solver.PromptFile != "" {
		if tmpl, err = solver.LoadPromptTemplate(cfg.Solver.PromptFile); err != nil {
			return nil, err
		}
	}

	var auth solver.Authenticator = solver.APIKeyAuth{Key: apiKey}
	if cfg.Solver.ServiceAccountKeyFile != "" {
		sa, err := solver.LoadServiceAccountAuth(cfg.Solver.ServiceAccountKeyFile, cfg.Solver.Endpoint)
		if err != nil {
			return nil, err
		}
		auth = sa
	}

	return solver.New(solver.Config{
		Endpoint:       cfg.Solver.Endpoint,
		Model:          cfg.Solver.Model,
		PromptTemplate: tmpl,
		Timeout:        timeout,
		Retry:          policy,
	},
		solver.WithAuthenticator(auth),
		solver.WithTracer(a.tracer),
		solver.WithLogger(a.log),
		solver.WithPromptVariables(cfg.Solver.PromptVariables),
	), nil
}

// newSession creates a calculator session wired to the solver, if any.
func (a *app) newSession(source string) *calculator.Session {
	mode, _ := a.cfg.AngleMode() // checked by Validate
	opts := []calculator.Option{
		calculator.WithAngleMode(mode),
		calculator.WithHistorySize(a.cfg.Calculator.HistorySize),
		calculator.WithLogger(a.log),
		calculator.WithSource(source),
	}
	if a.solver != nil {
		opts = append(opts, calculator.WithSolver(a.solver))
	}
	return calculator.NewSession(opts...)
}

// close flushes traces and logs.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tracer.Stop(ctx); err != nil {
		a.log.Printf("Warning: failed to flush traces: %v", err)
	}
	_ = a.logger.Close()
}

func secretManagerFetcher(projectID string) func(context.Context) (gcp.SecretFetcher, error) {
	return func(ctx context.Context) (gcp.SecretFetcher, error) {
		client, err := gcp.NewSecretManagerClient(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
