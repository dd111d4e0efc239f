package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1000, cfg.Database.MaxSearchResults)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "docs", cfg.Backup.BasePath)
	assert.False(t, cfg.BackupEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	// Point the home directory somewhere without a config file.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
path = "/var/lib/docomatic/db.sqlite"
max_search_results = 250

[logging]
level = "debug"
format = "json"

[server]
http_addr = ":8080"

[github]
token = "ghp_filetoken"

[backup]
schedule = "0 3 * * *"
repo_owner = "acme"
repo_name = "handbook"
format = "multi"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docomatic/db.sqlite", cfg.Database.Path)
	assert.Equal(t, 250, cfg.Database.MaxSearchResults)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "ghp_filetoken", cfg.GitHub.Token)
	assert.True(t, cfg.BackupEnabled())
	assert.Equal(t, "multi", cfg.Backup.Format)
	assert.Equal(t, "docs", cfg.Backup.BasePath, "defaults survive partial sections")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
path = "/from/file.db"

[logging]
level = "warn"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DOCOMATIC_DB_PATH", "/from/env.db")
	t.Setenv("DOCOMATIC_LOG_LEVEL", "error")
	t.Setenv("DOCOMATIC_LOG_FORMAT", "json")
	t.Setenv("DOCOMATIC_HTTP_ADDR", ":9090")
	t.Setenv("GITHUB_TOKEN", "ghp_envtoken")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env.db", cfg.Database.Path)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "ghp_envtoken", cfg.GitHub.Token)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("logging = {"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "[logging]\nlevel = \"verbose\""},
		{"bad log format", "[logging]\nformat = \"xml\""},
		{"bad backup format", "[backup]\nformat = \"tarball\""},
		{"bad search cap", "[database]\nmax_search_results = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestBackupEnabled(t *testing.T) {
	cfg := Default()
	cfg.Backup.Schedule = "@daily"
	assert.False(t, cfg.BackupEnabled(), "repo required")

	cfg.Backup.RepoOwner = "acme"
	cfg.Backup.RepoName = "handbook"
	assert.True(t, cfg.BackupEnabled())
}
