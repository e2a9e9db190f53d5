// Package config provides the configuration schema, loader, and provider
// registry for the Sondera enrichment server.
package config

import (
	"fmt"
	"time"

	"github.com/sondera-ai/sondera/internal/sample"
	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that unmarshals from YAML strings like
// "10s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a standard [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity for the Sondera server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Sondera.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Sampler   sample.Config   `yaml:"sampler"`
	Enrich    EnrichConfig    `yaml:"enrich"`
}

// ServerConfig holds network and logging settings for the Sondera server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// external analysis backend. Each field selects a named provider registered
// in the [Registry].
type ProvidersConfig struct {
	FaceAttr ProviderEntry `yaml:"faceattr"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "remote").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single provider call. Zero selects the provider's
	// built-in default.
	Timeout Duration `yaml:"timeout"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// EnrichConfig holds request-handling limits for the enrichment endpoints.
type EnrichConfig struct {
	// MaxBodyBytes caps the size of an enrichment request body. Zero selects
	// the default of 50 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ValidateFrames enables decode-checking uploaded video frames before
	// they are submitted to the face analysis provider.
	ValidateFrames bool `yaml:"validate_frames"`
}

// DefaultMaxBodyBytes is the request body cap applied when
// [EnrichConfig.MaxBodyBytes] is zero.
const DefaultMaxBodyBytes int64 = 50 << 20

// BodyLimit returns the configured request body cap, falling back to
// [DefaultMaxBodyBytes].
func (c EnrichConfig) BodyLimit() int64 {
	if c.MaxBodyBytes > 0 {
		return c.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}
