package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/server"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/store"
)

func TestServeDefaults(t *testing.T) {
	cmd := newServeCmd()
	flags := cmd.Flags()

	tests := []struct {
		flag string
		want string
	}{
		{"http-addr", ":8080"},
		{"store-type", store.TypeMemory},
		{"calendar-backend", server.CalendarBackendAI},
		{"ai-base-url", ai.DefaultBaseURL},
		{"metrics-addr", server.DefaultMetricsAddr},
		{"metrics-enabled", "true"},
		{"session-timeout", "24h0m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := flags.Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("STORE_TYPE", store.TypeRedis)
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("AI_TIMEOUT", "15s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("CALENDAR_BACKEND", server.CalendarBackendGoogle)
	t.Setenv("NUM_THEMES", "7")

	cmd := newServeCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--calendar-backend", "ai"}))

	var cfg ServeConfig
	cfg.CalendarBackend = server.CalendarBackendAI
	require.NoError(t, loadServeEnvVars(cmd, &cfg))

	assert.Equal(t, store.TypeRedis, cfg.Store.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Store.RedisURL)
	assert.Equal(t, 15*time.Second, cfg.AITimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 7, cfg.NumThemes)
	assert.Equal(t, server.CalendarBackendAI, cfg.CalendarBackend, "explicit flag wins over env")
}

func TestLoadServeEnvVars_Invalid(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "a day")

	var cfg ServeConfig
	assert.Error(t, loadServeEnvVars(newServeCmd(), &cfg))
}

func TestServeConfigValidate(t *testing.T) {
	valid := ServeConfig{
		BaseURL:            "https://mail.example.com/",
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		NumThemes:          ai.DefaultThemes,
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "https://mail.example.com/auth/google/callback", valid.RedirectURL())

	tests := []struct {
		name   string
		mutate func(*ServeConfig)
	}{
		{"missing client secret", func(c *ServeConfig) { c.GoogleClientSecret = "" }},
		{"relative base url", func(c *ServeConfig) { c.BaseURL = "mail.example.com" }},
		{"too many themes", func(c *ServeConfig) { c.NumThemes = ai.MaxThemes + 1 }},
		{"too few themes", func(c *ServeConfig) { c.NumThemes = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
