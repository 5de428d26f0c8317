// Package config loads the bridge configuration from an optional YAML file
// and CRIBL_* environment variables.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthCloud = "cloud"
	AuthLocal = "local"
)

// Defaults.
const (
	DefaultCloudAuthURL   = "https://login.cribl.cloud"
	DefaultAudience       = "https://api.cribl.cloud"
	DefaultLogLevel       = "info"
	DefaultRequestTimeout = 30 * time.Second
)

const redacted = "********"

// Config is the complete bridge configuration. It is loaded once at startup
// and not modified afterwards.
type Config struct {
	// BaseURL is the Cribl leader, e.g. https://main-acme.cribl.cloud.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// AuthType selects client credentials (cloud) or username/password
	// login (local).
	AuthType string `yaml:"auth_type" mapstructure:"auth_type" validate:"required,oneof=cloud local"`

	ClientID     string `yaml:"client_id,omitempty" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret,omitempty" mapstructure:"client_secret"`
	CloudAuthURL string `yaml:"cloud_auth_url" mapstructure:"cloud_auth_url" validate:"omitempty,url"`
	Audience     string `yaml:"audience" mapstructure:"audience"`

	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`

	LogLevel       string        `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	RequestTimeout time.Duration `yaml:"-" mapstructure:"request_timeout" validate:"gte=0"`

	// MetricsAddr enables the Prometheus listener when set.
	MetricsAddr string `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	// Trace exports spans to stderr.
	Trace bool `yaml:"trace" mapstructure:"trace"`
}

// SetDefaults fills optional fields left empty.
func (c *Config) SetDefaults() {
	if c.CloudAuthURL == "" {
		c.CloudAuthURL = DefaultCloudAuthURL
	}
	if c.Audience == "" {
		c.Audience = DefaultAudience
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Redacted returns a copy with secrets masked.
func (c Config) Redacted() Config {
	if c.ClientSecret != "" {
		c.ClientSecret = redacted
	}
	if c.Password != "" {
		c.Password = redacted
	}
	return c
}

// YAML renders the redacted configuration in config file form.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(struct {
		Config         `yaml:",inline"`
		RequestTimeout string `yaml:"request_timeout"`
	}{c.Redacted(), c.RequestTimeout.String()})
}
