// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "green", cfg.Logger().Colors.Info)
	assert.Equal(t, 30*time.Second, cfg.Network().Timeout)
	assert.Equal(t, uint64(3), cfg.Network().MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Network().InitialBackoff)
	assert.Empty(t, cfg.Loader().AllowedHosts, "no host is allowed unless configured")
	assert.Equal(t, 30*time.Second, cfg.Loader().Hub.Timeout)
	assert.Equal(t, "calm_documents", cfg.Database().Table)
	assert.False(t, cfg.Validation().FailOnWarnings)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, cfg.Validate())

		badFormat := *cfg
		badFormat.LoggerCfg.Format = "xml"
		err := badFormat.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger.format")

		badTimeout := *cfg
		badTimeout.NetworkCfg.Timeout = 0
		err = badTimeout.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "network.timeout must be a positive duration")

		badBurst := *cfg
		badBurst.NetworkCfg.Burst = 0
		err = badBurst.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "network.burst")

		unlimited := badBurst
		unlimited.NetworkCfg.RequestsPerSecond = 0
		assert.NoError(t, unlimited.Validate(), "burst is irrelevant without a rate limit")
	})

	t.Run("Hub Validation", func(t *testing.T) {
		valid := HubConfig{URL: "https://hub.example", Timeout: time.Second}
		assert.NoError(t, valid.Validate())
		assert.NoError(t, (&HubConfig{}).Validate(), "an unconfigured hub is valid")

		wrapperOnly := HubConfig{Wrapper: "/usr/bin/hub-fetch", Timeout: time.Second}
		err := wrapperOnly.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")

		noTimeout := valid
		noTimeout.Timeout = 0
		err = noTimeout.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "timeout must be a positive duration")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("reads a YAML document", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yamlConfig := []byte(`
logger:
  level: debug
  format: json
network:
  timeout: 5s
  max_retries: 1
loader:
  schema_dirs: ["~/calm/schemas", "/opt/calm"]
  allowed_hosts: ["calm.finos.org", " example.com "]
  hub:
    url: https://hub.example
    wrapper: ~/bin/hub-fetch
    wrapper_args: ["--profile", "ci"]
validation:
  fail_on_warnings: true
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		home, err := homedir.Dir()
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger().Level)
		assert.Equal(t, 5*time.Second, cfg.Network().Timeout)
		assert.Equal(t, uint64(1), cfg.Network().MaxRetries)
		assert.Equal(t, []string{filepath.Join(home, "calm/schemas"), "/opt/calm"}, cfg.Loader().SchemaDirs)
		assert.Equal(t, []string{"calm.finos.org", "example.com"}, cfg.Loader().AllowedHosts)
		assert.Equal(t, filepath.Join(home, "bin/hub-fetch"), cfg.Loader().Hub.Wrapper)
		assert.Equal(t, []string{"--profile", "ci"}, cfg.Loader().Hub.WrapperArgs)
		assert.True(t, cfg.Validation().FailOnWarnings)
	})

	t.Run("allowed hosts from the environment", func(t *testing.T) {
		t.Setenv(AllowedHostsEnv, "calm.finos.org, hub.example:8443")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"calm.finos.org", "hub.example:8443"}, cfg.Loader().AllowedHosts)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("logger.format", "xml")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
