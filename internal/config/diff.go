package config

// ConfigDiff describes what changed between two configs. Only the log level
// is applied live; sampler and enrich changes are surfaced so the watcher
// callback can tell the operator a restart is needed. Provider and server
// changes are not tracked at all and always require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SamplerChanged bool

	EnrichChanged bool
}

// Empty reports whether nothing tracked changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.SamplerChanged && !d.EnrichChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Sampler != new.Sampler {
		d.SamplerChanged = true
	}

	if old.Enrich != new.Enrich {
		d.EnrichChanged = true
	}

	return d
}
