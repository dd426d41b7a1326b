package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
log_level: debug
server:
  port: 9090
accounts:
  - name: work
    description: Work mailbox
    imap:
      host: imap.work.example
      secure: true
      username: jane@work.example
      password: secret-1
  - name: personal
    imap:
      host: imap.home.example
      port: 1143
      username: jane@home.example
      password: secret-2
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	require.Len(t, cfg.Accounts, 2)

	work := cfg.GetAccount("work")
	require.NotNil(t, work)
	assert.Equal(t, "imap.work.example", work.IMAP.Host)
	assert.Equal(t, 993, work.IMAP.Port) // default
	assert.True(t, work.IMAP.Secure)
	assert.Equal(t, "secret-1", work.IMAP.Password)

	personal := cfg.GetAccount("personal")
	require.NotNil(t, personal)
	assert.Equal(t, 1143, personal.IMAP.Port)
	assert.False(t, personal.IMAP.Secure)

	assert.Equal(t, []string{"work", "personal"}, cfg.AccountNames())
	assert.Nil(t, cfg.GetAccount("missing"))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
accounts:
  - name: only
    imap:
      host: imap.example
      username: u
      password: p
`))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		return &Config{
			LogLevel: "info",
			Server:   ServerConfig{Port: 8080},
			Accounts: []Account{{
				Name: "work",
				IMAP: IMAPConfig{Host: "h", Port: 993, Username: "u", Password: "p"},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no accounts",
			mutate:  func(c *Config) { c.Accounts = nil },
			wantErr: "at least one account",
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Accounts = append(c.Accounts, c.Accounts[0])
			},
			wantErr: "duplicate account name",
		},
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Accounts[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Accounts[0].IMAP.Host = "" },
			wantErr: "imap host is required",
		},
		{
			name:    "bad imap port",
			mutate:  func(c *Config) { c.Accounts[0].IMAP.Port = 70000 },
			wantErr: "invalid imap port",
		},
		{
			name:    "missing username",
			mutate:  func(c *Config) { c.Accounts[0].IMAP.Username = "" },
			wantErr: "imap username is required",
		},
		{
			name:    "missing password",
			mutate:  func(c *Config) { c.Accounts[0].IMAP.Password = "" },
			wantErr: "imap password is required",
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
