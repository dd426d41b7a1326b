package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Server   ServerConfig `mapstructure:"server"`
	Accounts []Account    `mapstructure:"accounts"`
}

// ServerConfig holds settings for the MCP HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Account is one configured mailbox identity. Accounts are immutable
// after loading; callers hold pointers into Config.Accounts.
type Account struct {
	Name        string     `mapstructure:"name"`
	Description string     `mapstructure:"description"`
	IMAP        IMAPConfig `mapstructure:"imap"`
}

// IMAPConfig holds the remote credentials for an account.
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Secure   bool   `mapstructure:"secure"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load reads the YAML configuration from the given path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", 8080)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Per-account defaults; viper defaults do not reach slice elements.
	for i := range cfg.Accounts {
		if cfg.Accounts[i].IMAP.Port == 0 {
			cfg.Accounts[i].IMAP.Port = 993
		}
	}

	return &cfg, nil
}

// Validate checks the configuration for completeness. It is called once
// at startup; a failure is fatal.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account must be configured")
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i := range c.Accounts {
		acc := &c.Accounts[i]
		if acc.Name == "" {
			return fmt.Errorf("account %d: name is required", i+1)
		}
		if seen[acc.Name] {
			return fmt.Errorf("duplicate account name: %s", acc.Name)
		}
		seen[acc.Name] = true

		if acc.IMAP.Host == "" {
			return fmt.Errorf("account %s: imap host is required", acc.Name)
		}
		if acc.IMAP.Port < 1 || acc.IMAP.Port > 65535 {
			return fmt.Errorf("account %s: invalid imap port", acc.Name)
		}
		if acc.IMAP.Username == "" {
			return fmt.Errorf("account %s: imap username is required", acc.Name)
		}
		if acc.IMAP.Password == "" {
			return fmt.Errorf("account %s: imap password is required", acc.Name)
		}
	}

	return nil
}

// GetAccount finds an account by name, or nil when no such account is
// configured.
func (c *Config) GetAccount(name string) *Account {
	for i := range c.Accounts {
		if c.Accounts[i].Name == name {
			return &c.Accounts[i]
		}
	}
	return nil
}

// AccountNames returns all configured account names in order.
func (c *Config) AccountNames() []string {
	names := make([]string, len(c.Accounts))
	for i := range c.Accounts {
		names[i] = c.Accounts[i].Name
	}
	return names
}
