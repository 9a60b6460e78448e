package config

import (
	"strings"
	"testing"
	"time"

	"github.com/andywolf/nebulacalc/internal/expr"
	"github.com/andywolf/nebulacalc/internal/retry"
	"github.com/andywolf/nebulacalc/internal/solver"
	"github.com/spf13/viper"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Calculator.AngleMode != "RAD" {
		t.Errorf("AngleMode = %q, want RAD", cfg.Calculator.AngleMode)
	}
	if cfg.Calculator.HistorySize != 50 {
		t.Errorf("HistorySize = %d, want 50", cfg.Calculator.HistorySize)
	}
	if cfg.Solver.Model != solver.DefaultModel {
		t.Errorf("Model = %q", cfg.Solver.Model)
	}
	if cfg.Solver.Endpoint != solver.DefaultEndpoint(solver.DefaultModel) {
		t.Errorf("Endpoint = %q", cfg.Solver.Endpoint)
	}
	if cfg.Solver.Timeout != "30s" {
		t.Errorf("Timeout = %q, want 30s", cfg.Solver.Timeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != "1s" || cfg.Retry.Multiplier != 2 {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Logging.LogID != "nebulacalc" {
		t.Errorf("LogID = %q", cfg.Logging.LogID)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.SolveRate != 10 || cfg.Server.SolveInterval != "1m" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_EndpointFollowsModel(t *testing.T) {
	cfg := &Config{Solver: SolverConfig{Model: "gemini-2.0-flash"}}
	applyDefaults(cfg)
	if !strings.Contains(cfg.Solver.Endpoint, "/models/gemini-2.0-flash:generateContent") {
		t.Errorf("Endpoint = %q", cfg.Solver.Endpoint)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Calculator: CalculatorConfig{AngleMode: "DEG"},
		Solver:     SolverConfig{Endpoint: "http://localhost:9999/generate", Timeout: "5s"},
		Retry:      RetryConfig{MaxAttempts: 5, BaseDelay: "250ms", Multiplier: 1.5},
		Server:     ServerConfig{Addr: "127.0.0.1:9000"},
	}
	applyDefaults(cfg)

	if cfg.Calculator.AngleMode != "DEG" || cfg.Solver.Endpoint != "http://localhost:9999/generate" || cfg.Solver.Timeout != "5s" {
		t.Errorf("explicit values overwritten: %+v %+v", cfg.Calculator, cfg.Solver)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay != "250ms" || cfg.Retry.Multiplier != 1.5 {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "degrees lower case",
			mutate: func(c *Config) { c.Calculator.AngleMode = "deg" },
		},
		{
			name:    "invalid angle mode",
			mutate:  func(c *Config) { c.Calculator.AngleMode = "GRAD" },
			wantErr: true,
			errMsg:  "invalid angle mode",
		},
		{
			name:    "negative history",
			mutate:  func(c *Config) { c.Calculator.HistorySize = -1 },
			wantErr: true,
			errMsg:  "invalid history_size",
		},
		{
			name: "api key and service account",
			mutate: func(c *Config) {
				c.Solver.APIKey = "k"
				c.Solver.ServiceAccountKeyFile = "/tmp/sa.json"
			},
			wantErr: true,
			errMsg:  "cannot be combined",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Solver.Timeout = "soon" },
			wantErr: true,
			errMsg:  "invalid solver.timeout",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Solver.Timeout = "0s" },
			wantErr: true,
			errMsg:  "must be positive",
		},
		{
			name:    "bad base delay",
			mutate:  func(c *Config) { c.Retry.BaseDelay = "1 second" },
			wantErr: true,
			errMsg:  "invalid retry.base_delay",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = -1 },
			wantErr: true,
			errMsg:  "invalid retry policy",
		},
		{
			name:    "langfuse without keys",
			mutate:  func(c *Config) { c.Langfuse.Enabled = true },
			wantErr: true,
			errMsg:  "langfuse.public_key",
		},
		{
			name: "langfuse without secret key",
			mutate: func(c *Config) {
				c.Langfuse.Enabled = true
				c.Langfuse.PublicKey = "pk-lf-1"
			},
			wantErr: true,
			errMsg:  "langfuse.secret_key",
		},
		{
			name: "langfuse with secret manager paths",
			mutate: func(c *Config) {
				c.Langfuse.Enabled = true
				c.Langfuse.PublicKeySecret = "langfuse-public"
				c.Langfuse.SecretKeySecret = "langfuse-secret"
			},
		},
		{
			name:    "negative solve rate",
			mutate:  func(c *Config) { c.Server.SolveRate = -1 },
			wantErr: true,
			errMsg:  "invalid solve_rate",
		},
		{
			name:    "bad solve interval",
			mutate:  func(c *Config) { c.Server.SolveInterval = "never" },
			wantErr: true,
			errMsg:  "invalid server.solve_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestConfig_ValidateForSolve(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateForSolve(); err == nil || !strings.Contains(err.Error(), "solver credentials are required") {
		t.Errorf("ValidateForSolve() error = %v", err)
	}

	for _, set := range []func(*Config){
		func(c *Config) { c.Solver.APIKey = "k" },
		func(c *Config) { c.Solver.APIKeySecret = "gemini-api-key" },
		func(c *Config) { c.Solver.ServiceAccountKeyFile = "/etc/sa.json" },
	} {
		cfg := Default()
		set(cfg)
		if err := cfg.ValidateForSolve(); err != nil {
			t.Errorf("ValidateForSolve() error = %v", err)
		}
	}
}

func TestConfig_RetryPolicy(t *testing.T) {
	cfg := Default()
	p, err := cfg.RetryPolicy()
	if err != nil {
		t.Fatalf("RetryPolicy() error = %v", err)
	}
	if p != retry.DefaultPolicy() {
		t.Errorf("RetryPolicy() = %+v, want default", p)
	}

	cfg.Retry = RetryConfig{MaxAttempts: 4, BaseDelay: "500ms", Multiplier: 3}
	p, err = cfg.RetryPolicy()
	if err != nil {
		t.Fatalf("RetryPolicy() error = %v", err)
	}
	if p.Delay(1) != 1500*time.Millisecond {
		t.Errorf("Delay(1) = %v", p.Delay(1))
	}
}

func TestConfig_AngleMode(t *testing.T) {
	cfg := Default()
	cfg.Calculator.AngleMode = "DEGREES"
	mode, err := cfg.AngleMode()
	if err != nil || mode != expr.Degrees {
		t.Errorf("AngleMode() = %v, %v", mode, err)
	}
}

func TestLoadFrom(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	yaml := `
calculator:
  angle_mode: DEG
solver:
  model: gemini-2.0-flash
  api_key_secret: projects/p/secrets/gemini-key
  prompt_variables:
    style: infix
retry:
  max_attempts: 4
server:
  solve_rate: 2
`
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Calculator.AngleMode != "DEG" {
		t.Errorf("AngleMode = %q", cfg.Calculator.AngleMode)
	}
	if cfg.Solver.APIKeySecret != "projects/p/secrets/gemini-key" {
		t.Errorf("APIKeySecret = %q", cfg.Solver.APIKeySecret)
	}
	if cfg.Solver.PromptVariables["style"] != "infix" {
		t.Errorf("PromptVariables = %v", cfg.Solver.PromptVariables)
	}
	if !strings.Contains(cfg.Solver.Endpoint, "gemini-2.0-flash") {
		t.Errorf("Endpoint = %q", cfg.Solver.Endpoint)
	}
	if cfg.Retry.MaxAttempts != 4 || cfg.Retry.BaseDelay != "1s" {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Server.SolveRate != 2 {
		t.Errorf("SolveRate = %d", cfg.Server.SolveRate)
	}
	if err := cfg.ValidateForSolve(); err != nil {
		t.Errorf("ValidateForSolve() error = %v", err)
	}
}
