// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Autofix AutofixConfig `mapstructure:"autofix" yaml:"autofix"`
}

// Policy returns the policy section of the autofix configuration.
func (c *Config) Policy() *schemas.AutoFixPolicy { return &c.Autofix.Policy }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// GitConfig defines the committer identity for the optional transaction commit.
type GitConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	AuthorName  string `mapstructure:"author_name" yaml:"author_name"`
	AuthorEmail string `mapstructure:"author_email" yaml:"author_email"`
}

// AutofixConfig holds settings for the fix orchestration subsystem. The
// embedded Policy carries the user-tunable limits and dispositions; the rest
// are engine knobs.
type AutofixConfig struct {
	Policy schemas.AutoFixPolicy `mapstructure:"policy" yaml:"policy"`

	ProjectRoot string `mapstructure:"project_root" yaml:"project_root"`
	BackupDir   string `mapstructure:"backup_dir" yaml:"backup_dir"`
	DryRun      bool   `mapstructure:"dry_run" yaml:"dry_run"`

	// IssueTimeout bounds a single module invocation. Clamped to >= 1s.
	IssueTimeout time.Duration `mapstructure:"issue_timeout" yaml:"issue_timeout"`

	// Circuit breaker tuning for unreliable fix producers.
	BreakerThreshold int           `mapstructure:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerReset     time.Duration `mapstructure:"breaker_reset" yaml:"breaker_reset"`

	// TransactionLog is where the JSON transaction log is persisted. Empty
	// keeps the log in memory only.
	TransactionLog string `mapstructure:"transaction_log" yaml:"transaction_log"`

	// AIRequestsPerSecond throttles ai-assisted module invocations.
	// Zero or negative means unlimited.
	AIRequestsPerSecond float64 `mapstructure:"ai_requests_per_second" yaml:"ai_requests_per_second"`

	Git GitConfig `mapstructure:"git" yaml:"git"`
}

// MinIssueTimeout is the floor applied to IssueTimeout; shorter values make a
// timeout indistinguishable from ordinary scheduling jitter.
const MinIssueTimeout = time.Second

// EffectiveIssueTimeout returns the configured timeout clamped to the floor.
func (a *AutofixConfig) EffectiveIssueTimeout() time.Duration {
	if a.IssueTimeout < MinIssueTimeout {
		return MinIssueTimeout
	}
	return a.IssueTimeout
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "remedy-cli")
	v.SetDefault("logger.log_file", "remedy.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Autofix engine --
	v.SetDefault("autofix.project_root", ".")
	v.SetDefault("autofix.backup_dir", ".remedy/backups")
	v.SetDefault("autofix.dry_run", false)
	v.SetDefault("autofix.issue_timeout", "30s")
	v.SetDefault("autofix.breaker_threshold", 5)
	v.SetDefault("autofix.breaker_reset", "60s")
	v.SetDefault("autofix.transaction_log", ".remedy/txlog.json")
	v.SetDefault("autofix.ai_requests_per_second", 0.0)
	v.SetDefault("autofix.git.enabled", false)
	v.SetDefault("autofix.git.author_name", "remedy-autofix-bot")
	v.SetDefault("autofix.git.author_email", "autofix@remedy.dev")

	// -- Policy (conservative: low/medium auto-apply, high/critical suggest) --
	v.SetDefault("autofix.policy.enabled", true)
	v.SetDefault("autofix.policy.max_files_per_fix", 5)
	v.SetDefault("autofix.policy.max_lines_per_fix", 200)
	v.SetDefault("autofix.policy.blocked_paths", []string{})
	v.SetDefault("autofix.policy.severity_thresholds", map[string]string{
		"low":      "auto_apply",
		"medium":   "auto_apply",
		"high":     "suggest",
		"critical": "suggest",
	})
	v.SetDefault("autofix.policy.confidence_threshold", 0.7)
	v.SetDefault("autofix.policy.require_tests", false)
	v.SetDefault("autofix.policy.allow_ai_fixes", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Autofix.Validate(); err != nil {
		return fmt.Errorf("autofix configuration invalid: %w", err)
	}
	return nil
}

// validSeverityActions is the closed set a severity threshold may map to.
var validSeverityActions = map[schemas.SeverityAction]bool{
	schemas.ActionAutoApply: true,
	schemas.ActionSuggest:   true,
	schemas.ActionReject:    true,
	schemas.ActionNone:      true,
}

// Validate checks the Autofix configuration, including the embedded policy.
func (a *AutofixConfig) Validate() error {
	if a.BreakerThreshold <= 0 {
		return fmt.Errorf("breaker_threshold must be a positive integer")
	}
	if a.BreakerReset <= 0 {
		return fmt.Errorf("breaker_reset must be a positive duration")
	}

	p := &a.Policy
	if p.ConfidenceThreshold < 0.0 || p.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("policy.confidence_threshold must be between 0.0 and 1.0")
	}
	if p.MaxFilesPerFix <= 0 {
		return fmt.Errorf("policy.max_files_per_fix must be a positive integer")
	}
	if p.MaxLinesPerFix <= 0 {
		return fmt.Errorf("policy.max_lines_per_fix must be a positive integer")
	}
	for sev, action := range p.SeverityThresholds {
		if !validSeverityActions[action] {
			return fmt.Errorf("policy.severity_thresholds[%s] has unknown action %q", sev, action)
		}
	}
	return nil
}
