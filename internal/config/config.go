// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database    Database    `yaml:"database"`
	ValKey      ValKey      `yaml:"valkey"`
	Migrate     Migrate     `yaml:"migrate"`
	Auth        Auth        `yaml:"auth"`
	Housekeeper Housekeeper `yaml:"housekeeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	SSLMode  string              `yaml:"sslMode" default:"prefer"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"cogniflow"`
	CacheTTL time.Duration       `yaml:"cacheTTL" default:"15m"`
}

// Auth configures the auth session manager and its identity provider client.
type Auth struct {
	ProviderURL string              `yaml:"providerURL" default:"http://localhost:9999"`
	APIKey      commoncfg.SourceRef `yaml:"apiKey"`

	RequestTimeout      time.Duration `yaml:"requestTimeout" default:"10s"`
	ProfileFetchTimeout time.Duration `yaml:"profileFetchTimeout" default:"5s"`

	// SignUpEstablishesSession controls whether a successful sign-up also
	// establishes a usable session, or whether a subsequent sign-in is
	// required.
	SignUpEstablishesSession bool `yaml:"signUpEstablishesSession" default:"false"`

	// TokenRefreshLeeway is how long before expiry the access token is
	// refreshed by the auto-refresh loop.
	TokenRefreshLeeway time.Duration `yaml:"tokenRefreshLeeway" default:"5m"`

	Retry Retry `yaml:"retry"`
}

// Retry is the backoff policy applied to the session bootstrap. A single
// policy value is injected everywhere instead of ad hoc timers.
type Retry struct {
	MaxAttempts int           `yaml:"maxAttempts" default:"3"`
	BaseDelay   time.Duration `yaml:"baseDelay" default:"500ms"`
	Multiplier  float64       `yaml:"multiplier" default:"2.0"`
}

type Housekeeper struct {
	Interval time.Duration `yaml:"interval" default:"1h"`
}

type Migrate struct {
	// Source is "embedded" for the compiled-in migrations or
	// file://<dir> to run them from disk.
	Source string `yaml:"source" default:"embedded"`
}
