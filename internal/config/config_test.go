// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "remedy-cli", cfg.Logger.ServiceName)

	autofix := cfg.Autofix
	assert.Equal(t, ".", autofix.ProjectRoot)
	assert.Equal(t, 5, autofix.BreakerThreshold)
	assert.Equal(t, time.Minute, autofix.BreakerReset)
	assert.Equal(t, 30*time.Second, autofix.IssueTimeout)
	assert.False(t, autofix.Git.Enabled)

	policy := cfg.Policy()
	assert.True(t, policy.Enabled)
	assert.InDelta(t, 0.7, policy.ConfidenceThreshold, 1e-9)
	assert.False(t, policy.AllowAIFixes)

	// The conservative defaults: low/medium auto-apply, high/critical suggest.
	assert.Equal(t, schemas.ActionAutoApply, policy.SeverityThresholds[schemas.SeverityLow])
	assert.Equal(t, schemas.ActionAutoApply, policy.SeverityThresholds[schemas.SeverityMedium])
	assert.Equal(t, schemas.ActionSuggest, policy.SeverityThresholds[schemas.SeverityHigh])
	assert.Equal(t, schemas.ActionSuggest, policy.SeverityThresholds[schemas.SeverityCritical])
}

func TestEffectiveIssueTimeout(t *testing.T) {
	t.Parallel()

	a := AutofixConfig{IssueTimeout: 10 * time.Millisecond}
	assert.Equal(t, MinIssueTimeout, a.EffectiveIssueTimeout(), "sub-second timeouts are clamped up")

	a.IssueTimeout = 45 * time.Second
	assert.Equal(t, 45*time.Second, a.EffectiveIssueTimeout())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := func() *Config { return NewDefaultConfig() }

	t.Run("default config is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, base().Validate())
	})

	t.Run("rejects a non-positive breaker threshold", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Autofix.BreakerThreshold = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects an out-of-range confidence threshold", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Autofix.Policy.ConfidenceThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects an unknown severity action", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Autofix.Policy.SeverityThresholds[schemas.SeverityLow] = "yolo"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive fix limits", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Autofix.Policy.MaxLinesPerFix = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	t.Parallel()
	v := viper.New()
	SetDefaults(v)
	v.Set("autofix.policy.confidence_threshold", 0.9)
	v.Set("autofix.policy.allow_ai_fixes", true)
	v.Set("autofix.dry_run", true)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.InDelta(t, 0.9, cfg.Autofix.Policy.ConfidenceThreshold, 1e-9)
	assert.True(t, cfg.Autofix.Policy.AllowAIFixes)
	assert.True(t, cfg.Autofix.DryRun)
}

func TestNewConfigFromViper_RejectsInvalid(t *testing.T) {
	t.Parallel()
	v := viper.New()
	SetDefaults(v)
	v.Set("autofix.breaker_threshold", -1)

	_, err := NewConfigFromViper(v)
	assert.Error(t, err)
}
