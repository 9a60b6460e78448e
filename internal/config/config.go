package config

import (
	"fmt"
	"time"

	"github.com/andywolf/nebulacalc/internal/expr"
	"github.com/andywolf/nebulacalc/internal/retry"
	"github.com/andywolf/nebulacalc/internal/solver"
	"github.com/spf13/viper"
)

// Config represents the full nebulacalc configuration
type Config struct {
	Calculator CalculatorConfig `mapstructure:"calculator" yaml:"calculator"`
	Solver     SolverConfig     `mapstructure:"solver" yaml:"solver"`
	Retry      RetryConfig      `mapstructure:"retry" yaml:"retry"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Langfuse   LangfuseConfig   `mapstructure:"langfuse" yaml:"langfuse"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// CalculatorConfig contains calculator session settings
type CalculatorConfig struct {
	AngleMode   string `mapstructure:"angle_mode" yaml:"angle_mode"` // RAD or DEG
	HistorySize int    `mapstructure:"history_size" yaml:"history_size,omitempty"`
}

// SolverConfig contains completion service settings
type SolverConfig struct {
	Endpoint              string            `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Model                 string            `mapstructure:"model" yaml:"model"`
	APIKey                string            `mapstructure:"api_key" yaml:"api_key,omitempty"`
	APIKeySecret          string            `mapstructure:"api_key_secret" yaml:"api_key_secret,omitempty"` // Secret Manager path
	ServiceAccountKeyFile string            `mapstructure:"service_account_key_file" yaml:"service_account_key_file,omitempty"`
	Project               string            `mapstructure:"project" yaml:"project,omitempty"` // for bare secret names
	Timeout               string            `mapstructure:"timeout" yaml:"timeout,omitempty"`
	PromptFile            string            `mapstructure:"prompt_file" yaml:"prompt_file,omitempty"`
	PromptVariables       map[string]string `mapstructure:"prompt_variables" yaml:"prompt_variables,omitempty"`
}

// RetryConfig contains the solver backoff policy
type RetryConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   string  `mapstructure:"base_delay" yaml:"base_delay"`
	Multiplier  float64 `mapstructure:"multiplier" yaml:"multiplier"`
}

// LoggingConfig contains structured logging settings
type LoggingConfig struct {
	Project string `mapstructure:"project" yaml:"project,omitempty"` // Cloud Logging project; empty logs locally
	LogID   string `mapstructure:"log_id" yaml:"log_id,omitempty"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose,omitempty"`
}

// LangfuseConfig contains tracing settings
type LangfuseConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	PublicKey       string `mapstructure:"public_key" yaml:"public_key,omitempty"`
	SecretKey       string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	PublicKeySecret string `mapstructure:"public_key_secret" yaml:"public_key_secret,omitempty"`
	SecretKeySecret string `mapstructure:"secret_key_secret" yaml:"secret_key_secret,omitempty"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr          string `mapstructure:"addr" yaml:"addr"`
	SolveRate     int    `mapstructure:"solve_rate" yaml:"solve_rate"` // 0 disables the limit
	SolveInterval string `mapstructure:"solve_interval" yaml:"solve_interval"`
	MaxSessions   int    `mapstructure:"max_sessions" yaml:"max_sessions,omitempty"`
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Calculator.AngleMode == "" {
		cfg.Calculator.AngleMode = expr.Radians.String()
	}
	if cfg.Calculator.HistorySize == 0 {
		cfg.Calculator.HistorySize = 50
	}

	if cfg.Solver.Model == "" {
		cfg.Solver.Model = solver.DefaultModel
	}
	if cfg.Solver.Endpoint == "" {
		cfg.Solver.Endpoint = solver.DefaultEndpoint(cfg.Solver.Model)
	}
	if cfg.Solver.Timeout == "" {
		cfg.Solver.Timeout = solver.DefaultTimeout.String()
	}

	def := retry.DefaultPolicy()
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}
	if cfg.Retry.BaseDelay == "" {
		cfg.Retry.BaseDelay = def.BaseDelay.String()
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = def.Multiplier
	}

	if cfg.Logging.LogID == "" {
		cfg.Logging.LogID = "nebulacalc"
	}

	if cfg.Langfuse.BaseURL == "" {
		cfg.Langfuse.BaseURL = "https://cloud.langfuse.com"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.SolveRate == 0 {
		cfg.Server.SolveRate = 10
	}
	if cfg.Server.SolveInterval == "" {
		cfg.Server.SolveInterval = "1m"
	}
	if cfg.Server.MaxSessions == 0 {
		cfg.Server.MaxSessions = 1000
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := expr.ParseAngleMode(c.Calculator.AngleMode); err != nil {
		return err
	}
	if c.Calculator.HistorySize < 0 {
		return fmt.Errorf("invalid history_size: %d (must not be negative)", c.Calculator.HistorySize)
	}

	if c.Solver.ServiceAccountKeyFile != "" && (c.Solver.APIKey != "" || c.Solver.APIKeySecret != "") {
		return fmt.Errorf("solver.service_account_key_file cannot be combined with solver.api_key or solver.api_key_secret")
	}
	if _, err := c.SolverTimeout(); err != nil {
		return err
	}

	if _, err := c.RetryPolicy(); err != nil {
		return err
	}

	if c.Langfuse.Enabled {
		if c.Langfuse.PublicKey == "" && c.Langfuse.PublicKeySecret == "" {
			return fmt.Errorf("langfuse.public_key or langfuse.public_key_secret is required when langfuse is enabled")
		}
		if c.Langfuse.SecretKey == "" && c.Langfuse.SecretKeySecret == "" {
			return fmt.Errorf("langfuse.secret_key or langfuse.secret_key_secret is required when langfuse is enabled")
		}
	}

	if c.Server.SolveRate < 0 {
		return fmt.Errorf("invalid solve_rate: %d (must not be negative)", c.Server.SolveRate)
	}
	if _, err := c.SolveInterval(); err != nil {
		return err
	}

	return nil
}

// ValidateForSolve performs additional validation required before solving
// word problems
func (c *Config) ValidateForSolve() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.SolverConfigured() {
		return fmt.Errorf("solver credentials are required: set solver.api_key, solver.api_key_secret or solver.service_account_key_file")
	}
	return nil
}

// SolverConfigured reports whether any solver credential is set
func (c *Config) SolverConfigured() bool {
	return c.Solver.APIKey != "" || c.Solver.APIKeySecret != "" || c.Solver.ServiceAccountKeyFile != ""
}

// AngleMode returns the parsed starting angle mode
func (c *Config) AngleMode() (expr.AngleMode, error) {
	return expr.ParseAngleMode(c.Calculator.AngleMode)
}

// SolverTimeout returns the parsed per-attempt timeout
func (c *Config) SolverTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Solver.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid solver.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid solver.timeout: %s (must be positive)", c.Solver.Timeout)
	}
	return d, nil
}

// RetryPolicy returns the parsed and validated backoff policy
func (c *Config) RetryPolicy() (retry.Policy, error) {
	delay, err := time.ParseDuration(c.Retry.BaseDelay)
	if err != nil {
		return retry.Policy{}, fmt.Errorf("invalid retry.base_delay: %w", err)
	}
	p := retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   delay,
		Multiplier:  c.Retry.Multiplier,
	}
	if err := p.Validate(); err != nil {
		return retry.Policy{}, fmt.Errorf("invalid retry policy: %w", err)
	}
	return p, nil
}

// SolveInterval returns the parsed rate limit window
func (c *Config) SolveInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.SolveInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid server.solve_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid server.solve_interval: %s (must be positive)", c.Server.SolveInterval)
	}
	return d, nil
}
