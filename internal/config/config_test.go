package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hookrelay/internal/common"
	"hookrelay/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no inherited configuration.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{
		"WEBHOOK_URL", "WEBHOOK_TYPE", "FEISHU_WEBHOOK_URL", "IMGUR_CLIENT_ID", "IMGUR_API_URL",
		"HOOKRELAY_WEBHOOK_URL", "HOOKRELAY_WEBHOOK_TYPE", "HOOKRELAY_AUTH_API_KEYS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Webhook.URL)
	assert.Equal(t, notification.ProviderGeneric, cfg.Webhook.Type)
	assert.Equal(t, 4591, cfg.Server.Port)
	assert.Equal(t, 4591, cfg.Ask.Port)
	assert.Equal(t, "http://localhost", cfg.Ask.ServerURL)
	assert.False(t, cfg.Ask.Enabled)
	assert.True(t, cfg.MCP.Enabled)
	assert.Zero(t, cfg.HTTPTimeout())
	assert.Empty(t, cfg.Auth.APIKeys)
	assert.Equal(t, UploadNone, cfg.Upload.Provider)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "hookrelay.yaml"), `
webhook:
  url: https://ntfy.sh/alerts
  type: ntfy
  token: tk_123
  default_priority: 4
  templates:
    title: "[{{.env}}] {{.title}}"
  default_actions:
    - action: view
      label: Dashboard
      url: https://grafana.test
ask:
  enabled: true
  server_url: https://relay.example.com
  port: 443
http:
  timeout_sec: 15
server:
  port: 8080
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ntfy.sh/alerts", cfg.Webhook.URL)
	assert.Equal(t, notification.ProviderNtfy, cfg.Webhook.Type)
	assert.Equal(t, "tk_123", cfg.Webhook.Token)
	assert.Equal(t, 4, cfg.Webhook.DefaultPriority)
	assert.Equal(t, "[{{.env}}] {{.title}}", cfg.Webhook.Templates.Title)
	require.Len(t, cfg.Webhook.DefaultActions, 1)
	assert.Equal(t, notification.ActionView, cfg.Webhook.DefaultActions[0].Action)
	assert.Equal(t, "Dashboard", cfg.Webhook.DefaultActions[0].Label)
	assert.True(t, cfg.Ask.Enabled)
	assert.Equal(t, 443, cfg.Ask.Port)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_HomeConfigDir(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".config", "hookrelay", "hookrelay.json"),
		`{"webhook": {"url": "https://discord.test/hook", "type": "discord", "username": "relay"}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://discord.test/hook", cfg.Webhook.URL)
	assert.Equal(t, notification.ProviderDiscord, cfg.Webhook.Type)
	assert.Equal(t, "relay", cfg.Webhook.Username)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("HOOKRELAY_WEBHOOK_URL", "https://slack.test/hook")
	t.Setenv("HOOKRELAY_WEBHOOK_TYPE", "slack")
	t.Setenv("HOOKRELAY_AUTH_API_KEYS", "key-a, key-b")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://slack.test/hook", cfg.Webhook.URL)
	assert.Equal(t, notification.ProviderSlack, cfg.Webhook.Type)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Auth.APIKeys)
}

func TestLoad_LegacyEnv(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		file         string
		expectedURL  string
		expectedType notification.ProviderType
	}{
		{
			name:         "webhook url defaults to generic",
			env:          map[string]string{"WEBHOOK_URL": "https://x.test"},
			expectedURL:  "https://x.test",
			expectedType: notification.ProviderGeneric,
		},
		{
			name:         "webhook type",
			env:          map[string]string{"WEBHOOK_URL": "https://x.test", "WEBHOOK_TYPE": "Teams"},
			expectedURL:  "https://x.test",
			expectedType: notification.ProviderTeams,
		},
		{
			name:         "feishu url forces feishu",
			env:          map[string]string{"WEBHOOK_URL": "https://x.test", "WEBHOOK_TYPE": "slack", "FEISHU_WEBHOOK_URL": "https://feishu.test"},
			expectedURL:  "https://feishu.test",
			expectedType: notification.ProviderFeishu,
		},
		{
			name:         "env overrides file",
			env:          map[string]string{"WEBHOOK_URL": "https://env.test"},
			file:         "webhook:\n  url: https://file.test\n  type: discord\n",
			expectedURL:  "https://env.test",
			expectedType: notification.ProviderDiscord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, "hookrelay.yaml"), tt.file)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedURL, cfg.Webhook.URL)
			assert.Equal(t, tt.expectedType, cfg.Webhook.Type)
		})
	}
}

func TestLoad_LegacyImgurEnv(t *testing.T) {
	isolate(t)
	t.Setenv("IMGUR_CLIENT_ID", "cid")
	t.Setenv("IMGUR_API_URL", "https://imgur.proxy/3/image")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, UploadImgur, cfg.Upload.Provider)
	assert.Equal(t, "cid", cfg.Upload.Imgur.ClientID)
	assert.Equal(t, "https://imgur.proxy/3/image", cfg.Upload.Imgur.APIURL)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "hookrelay.yaml"), "webhook: [unterminated")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Webhook: notification.WebhookConfig{URL: "https://x.test"},
			Server:  ServerConfig{Port: 4591},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty url", func(c *Config) { c.Webhook.URL = "  " }, "webhook.url"},
		{"priority out of range", func(c *Config) { c.Webhook.DefaultPriority = 7 }, "webhook.default_priority"},
		{"unknown uploader", func(c *Config) { c.Upload.Provider = "dropbox" }, "upload.provider"},
		{"s3 without bucket", func(c *Config) { c.Upload.Provider = UploadS3 }, "upload.s3.bucket"},
		{"s3 with bucket", func(c *Config) { c.Upload.Provider = UploadS3; c.Upload.S3.Bucket = "b" }, ""},
		{"negative timeout", func(c *Config) { c.HTTP.TimeoutSec = -1 }, "http.timeout_sec"},
		{"bad port with ask", func(c *Config) { c.Ask.Enabled = true; c.Server.Port = 0 }, "server.port"},
		{"bad port without server", func(c *Config) { c.Server.Port = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *common.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
