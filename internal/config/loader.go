package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"faceattr": {"remote", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("faceattr", cfg.Providers.FaceAttr.Name)

	if cfg.Providers.FaceAttr.Name == "remote" && cfg.Providers.FaceAttr.BaseURL == "" {
		errs = append(errs, errors.New("providers.faceattr.base_url is required for the remote provider"))
	}
	if cfg.Providers.FaceAttr.Timeout < 0 {
		errs = append(errs, fmt.Errorf("providers.faceattr.timeout %v is negative", cfg.Providers.FaceAttr.Timeout.Std()))
	}

	// Provider availability warning — enrichment still works, every request
	// just degrades to the audio and clinical signals.
	if cfg.Providers.FaceAttr.Name == "" {
		slog.Warn("no faceattr provider configured; visual features will not be available")
	}

	// Sampler limits
	if cfg.Sampler.MaxAudioSeconds < 0 {
		errs = append(errs, fmt.Errorf("sampler.max_audio_seconds %.2f is negative", cfg.Sampler.MaxAudioSeconds))
	}
	if cfg.Sampler.ChunkSeconds < 0 {
		errs = append(errs, fmt.Errorf("sampler.chunk_seconds %.2f is negative", cfg.Sampler.ChunkSeconds))
	}
	if cfg.Sampler.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("sampler.max_frames %d is negative", cfg.Sampler.MaxFrames))
	}
	if cfg.Sampler.ChunkSeconds > 0 && cfg.Sampler.MaxAudioSeconds > 0 &&
		cfg.Sampler.ChunkSeconds > cfg.Sampler.MaxAudioSeconds {
		errs = append(errs, fmt.Errorf("sampler.chunk_seconds %.2f exceeds sampler.max_audio_seconds %.2f",
			cfg.Sampler.ChunkSeconds, cfg.Sampler.MaxAudioSeconds))
	}

	// Enrichment limits
	if cfg.Enrich.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("enrich.max_body_bytes %d is negative", cfg.Enrich.MaxBodyBytes))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
