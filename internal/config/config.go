package config

import (
	"fmt"
	"os"
	"strconv"

	"gocoherence/domain/stats"
	"gocoherence/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis  AnalysisConfig
	Server    ServerConfig
	Paths     PathConfig
	Profiling ProfilingConfig
}

// AnalysisConfig holds the coherence pipeline parameters
type AnalysisConfig struct {
	LowHz         float64
	HighHz        float64
	FilterOrder   int
	SampleRateHz  float64
	WindowSeconds int
	Workers       int // 0 means one per CPU
}

// Band converts the filter settings to the domain type.
func (a AnalysisConfig) Band() stats.Band {
	return stats.Band{LowHz: a.LowHz, HighHz: a.HighHz, Order: a.FilterOrder, SampleRateHz: a.SampleRateHz}
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir     string
	ProfileFile string // optional TOML analysis profile
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// DefaultAnalysisConfig returns the 0.01-0.1 Hz, 4th order, 60 s window defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	band := stats.DefaultBand()
	return AnalysisConfig{
		LowHz:         band.LowHz,
		HighHz:        band.HighHz,
		FilterOrder:   band.Order,
		SampleRateHz:  band.SampleRateHz,
		WindowSeconds: stats.DefaultWindowSeconds,
	}
}

// Load reads configuration from environment variables, applies the optional TOML
// profile named by COHERENCE_PROFILE, and validates the result.
func Load() (*Config, error) {
	config := &Config{
		Analysis:  loadAnalysisConfig(),
		Server:    loadServerConfig(),
		Paths:     loadPathConfig(),
		Profiling: loadProfilingConfig(),
	}

	if config.Paths.ProfileFile != "" {
		profile, err := LoadProfile(config.Paths.ProfileFile)
		if err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		profile.Apply(&config.Analysis)
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAnalysisConfig() AnalysisConfig {
	defaults := DefaultAnalysisConfig()
	return AnalysisConfig{
		LowHz:         getEnvFloatOrDefault("COHERENCE_LOW_HZ", defaults.LowHz),
		HighHz:        getEnvFloatOrDefault("COHERENCE_HIGH_HZ", defaults.HighHz),
		FilterOrder:   getEnvIntOrDefault("COHERENCE_FILTER_ORDER", defaults.FilterOrder),
		SampleRateHz:  getEnvFloatOrDefault("COHERENCE_SAMPLE_RATE_HZ", defaults.SampleRateHz),
		WindowSeconds: getEnvIntOrDefault("COHERENCE_WINDOW_SECONDS", defaults.WindowSeconds),
		Workers:       getEnvIntOrDefault("COHERENCE_WORKERS", 0),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		DataDir:     getEnvOrDefault("COHERENCE_DATA_DIR", "./data"),
		ProfileFile: getEnvOrDefault("COHERENCE_PROFILE", ""),
	}
}

func loadProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

// Validate checks the analysis parameters. The band rules mirror the filter designer's,
// so a config that validates never fails filter design.
func Validate(config *Config) error {
	a := config.Analysis
	nyquist := a.SampleRateHz / 2
	switch {
	case !(a.SampleRateHz > 0):
		return errors.ConfigInvalid(fmt.Sprintf("sample rate must be positive, got %g", a.SampleRateHz))
	case !(a.LowHz > 0):
		return errors.ConfigInvalid(fmt.Sprintf("low cutoff must be positive, got %g", a.LowHz))
	case !(a.HighHz < nyquist):
		return errors.ConfigInvalid(fmt.Sprintf("high cutoff %g must be below nyquist %g", a.HighHz, nyquist))
	case !(a.LowHz < a.HighHz):
		return errors.ConfigInvalid(fmt.Sprintf("low cutoff %g must be below high cutoff %g", a.LowHz, a.HighHz))
	case a.FilterOrder < 1:
		return errors.ConfigInvalid(fmt.Sprintf("filter order must be at least 1, got %d", a.FilterOrder))
	case a.WindowSeconds < 1:
		return errors.ConfigInvalid(fmt.Sprintf("window must be at least 1 second, got %d", a.WindowSeconds))
	case a.Workers < 0:
		return errors.ConfigInvalid(fmt.Sprintf("workers must not be negative, got %d", a.Workers))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
