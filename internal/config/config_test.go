package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "newest", cfg.SortMode)
	assert.Equal(t, DeleteSoft, cfg.DeleteMode)
	assert.Equal(t, 20, cfg.IndentStep)
	assert.True(t, cfg.RepliesVisible)
	assert.Equal(t, 5*time.Second, cfg.ToastTTL)
	assert.Equal(t, "alice", cfg.ServeUser)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thread.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://news.example.com
article_id: "17"
sort_mode: oldest
indent_step: 32
replies_visible: false
request_timeout: 3s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://news.example.com", cfg.BaseURL)
	assert.Equal(t, "17", cfg.ArticleID)
	assert.Equal(t, "oldest", cfg.SortMode)
	assert.Equal(t, 32, cfg.IndentStep)
	assert.False(t, cfg.RepliesVisible)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, DeleteSoft, cfg.DeleteMode)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thread.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sort_mode: oldest\nlog_level: warn\n"), 0644))

	t.Setenv("THREAD_SORT_MODE", "most_upvoted")
	t.Setenv("THREAD_DELETE_MODE", "remove")
	t.Setenv("THREAD_TOAST_TTL", "2s")
	t.Setenv("THREAD_AUTHENTICATED", "false")
	t.Setenv("THREAD_SERVE_USER", "carol")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "most_upvoted", cfg.SortMode)
	assert.Equal(t, DeleteRemove, cfg.DeleteMode)
	assert.Equal(t, 2*time.Second, cfg.ToastTTL)
	assert.False(t, cfg.Authenticated)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "carol", cfg.ServeUser)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thread.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sort_mode: [unclosed\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "remove mode", mutate: func(c *Config) { c.DeleteMode = DeleteRemove }, ok: true},
		{name: "unknown sort", mutate: func(c *Config) { c.SortMode = "hot" }},
		{name: "unknown delete mode", mutate: func(c *Config) { c.DeleteMode = "purge" }},
		{name: "negative indent", mutate: func(c *Config) { c.IndentStep = -1 }},
		{name: "no base url", mutate: func(c *Config) { c.BaseURL = "" }},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
