// Package config provides configuration loading and validation for the
// riverlevel exporter.
//
// Configuration comes from one of three sources:
//
//   - a YAML file (the -c/--config flag), with ${VAR} and ${VAR:-default}
//     environment expansion in URL values
//   - environment variables, when CONTAINERISED=YES (deployed mode, all
//     API URLs and the metrics port required)
//   - hardcoded Environment Agency defaults (standalone mode)
//
// Validation is fail-fast and exhaustive: every violation is reported, not
// just the first.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Hardcoded standalone-mode defaults: the Environment Agency flood-monitoring
// measures and stations this exporter was built around.
const (
	DefaultRiverMeasureURL = "https://environment.data.gov.uk/flood-monitoring/id/measures/531160-level-stage-i-15_min-mASD.json"
	DefaultRiverStationURL = "https://environment.data.gov.uk/flood-monitoring/id/stations/531160.json"
	DefaultRainMeasureURL  = "http://environment.data.gov.uk/flood-monitoring/id/measures/53107-rainfall-tipping_bucket_raingauge-t-15_min-mm"
	DefaultRainStationURL  = "https://environment.data.gov.uk/flood-monitoring/id/stations/53107"

	DefaultMetricsPort = 8897
	DefaultHealthPort  = 8898
)

// Timing defaults.
const (
	DefaultPollInterval       = time.Minute
	DefaultErrorRetryInterval = 30 * time.Second
	DefaultRequestTimeout     = 30 * time.Second
)

// Environment variable names read in deployed mode.
const (
	EnvContainerised   = "CONTAINERISED"
	EnvRiverMeasureAPI = "RIVER_MEASURE_API"
	EnvRiverStationAPI = "RIVER_STATION_API"
	EnvRainMeasureAPI  = "RAIN_MEASURE_API"
	EnvRainStationAPI  = "RAIN_STATION_API"
	EnvMetricsPort     = "METRICS_PORT"
	EnvHealthPort      = "HEALTH_PORT"
)

// Config is the complete exporter configuration.
//
// It maps directly to the YAML configuration file structure. All fields have
// defaults; use [Default], [Load], or [FromEnvironment] rather than
// constructing instances by hand.
type Config struct {
	// RiverMeasureURL is the river level measure endpoint.
	RiverMeasureURL string `yaml:"river_measure_url"`

	// RiverStationURL is the river station metadata endpoint.
	RiverStationURL string `yaml:"river_station_url"`

	// RainMeasureURL is the rainfall measure endpoint.
	RainMeasureURL string `yaml:"rain_measure_url"`

	// RainStationURL is the rain station metadata endpoint.
	RainStationURL string `yaml:"rain_station_url"`

	// MetricsPort is the Prometheus exposition listener port.
	MetricsPort int `yaml:"metrics_port"`

	// HealthPort is the health endpoint listener port.
	HealthPort int `yaml:"health_port"`

	// PollInterval is the delay between poll cycles.
	PollInterval Duration `yaml:"poll_interval"`

	// ErrorRetryInterval is the shortened delay used after a cycle that
	// failed unexpectedly.
	ErrorRetryInterval Duration `yaml:"error_retry_interval"`

	// RequestTimeout is the per-attempt HTTP timeout.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the standalone-mode configuration with the hardcoded
// Environment Agency endpoints.
func Default() *Config {
	cfg := &Config{
		RiverMeasureURL: DefaultRiverMeasureURL,
		RiverStationURL: DefaultRiverStationURL,
		RainMeasureURL:  DefaultRainMeasureURL,
		RainStationURL:  DefaultRainStationURL,
		MetricsPort:     DefaultMetricsPort,
		HealthPort:      DefaultHealthPort,
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, expands environment variables in URL
// values, applies defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, u := range []*string{
		&cfg.RiverMeasureURL, &cfg.RiverStationURL,
		&cfg.RainMeasureURL, &cfg.RainStationURL,
	} {
		expanded, err := expandEnvVars(*u)
		if err != nil {
			return nil, err
		}
		*u = expanded
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnvironment builds the configuration the way the deployment expects:
// when CONTAINERISED=YES every API URL and the metrics port must come from
// environment variables; otherwise the hardcoded standalone defaults are
// used. The returned error enumerates every violation.
func FromEnvironment() (*Config, error) {
	if os.Getenv(EnvContainerised) != "YES" {
		return Default(), nil
	}

	var violations []error
	cfg := &Config{}

	required := []struct {
		env  string
		dest *string
	}{
		{EnvRiverMeasureAPI, &cfg.RiverMeasureURL},
		{EnvRiverStationAPI, &cfg.RiverStationURL},
		{EnvRainMeasureAPI, &cfg.RainMeasureURL},
		{EnvRainStationAPI, &cfg.RainStationURL},
	}
	for _, v := range required {
		val, ok := os.LookupEnv(v.env)
		if !ok || val == "" {
			violations = append(violations, fmt.Errorf("required environment variable %s is not set", v.env))
			continue
		}
		*v.dest = val
	}

	portStr, ok := os.LookupEnv(EnvMetricsPort)
	if !ok || portStr == "" {
		violations = append(violations, fmt.Errorf("required environment variable %s is not set", EnvMetricsPort))
	} else {
		port, err := ParsePort(portStr)
		if err != nil {
			violations = append(violations, fmt.Errorf("%s: %w", EnvMetricsPort, err))
		} else {
			cfg.MetricsPort = port
		}
	}

	if healthStr, ok := os.LookupEnv(EnvHealthPort); ok && healthStr != "" {
		port, err := ParsePort(healthStr)
		if err != nil {
			violations = append(violations, fmt.Errorf("%s: %w", EnvHealthPort, err))
		} else {
			cfg.HealthPort = port
		}
	} else {
		cfg.HealthPort = DefaultHealthPort
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		violations = append(violations, err)
	}
	if len(violations) > 0 {
		return nil, errors.Join(violations...)
	}
	return cfg, nil
}

// applyDefaults fills zero-valued optional fields.
func (c *Config) applyDefaults() {
	if c.MetricsPort == 0 {
		c.MetricsPort = DefaultMetricsPort
	}
	if c.HealthPort == 0 {
		c.HealthPort = DefaultHealthPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.ErrorRetryInterval == 0 {
		c.ErrorRetryInterval = Duration(DefaultErrorRetryInterval)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
}

// Validate checks the whole configuration and returns every violation found,
// joined into a single error. A nil return means the configuration is safe
// to start with.
func (c *Config) Validate() error {
	var violations []error

	urls := []struct {
		name  string
		value string
	}{
		{"river measure URL", c.RiverMeasureURL},
		{"river station URL", c.RiverStationURL},
		{"rain measure URL", c.RainMeasureURL},
		{"rain station URL", c.RainStationURL},
	}
	for _, u := range urls {
		if err := validateURL(u.value); err != nil {
			violations = append(violations, fmt.Errorf("%s: %w", u.name, err))
		}
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		violations = append(violations, fmt.Errorf("metrics port %d out of valid range (1-65535)", c.MetricsPort))
	}
	if c.HealthPort < 1 || c.HealthPort > 65535 {
		violations = append(violations, fmt.Errorf("health port %d out of valid range (1-65535)", c.HealthPort))
	}
	if c.MetricsPort == c.HealthPort {
		violations = append(violations, fmt.Errorf("metrics port and health port must differ, both are %d", c.MetricsPort))
	}

	if c.PollInterval.Duration() < time.Second {
		violations = append(violations, fmt.Errorf("poll interval must be at least 1s, got %s", c.PollInterval.Duration()))
	}
	if c.ErrorRetryInterval.Duration() < time.Second {
		violations = append(violations, fmt.Errorf("error retry interval must be at least 1s, got %s", c.ErrorRetryInterval.Duration()))
	}
	if c.RequestTimeout.Duration() < time.Second {
		violations = append(violations, fmt.Errorf("request timeout must be at least 1s, got %s", c.RequestTimeout.Duration()))
	}

	return errors.Join(violations...)
}

// Warnings returns advisory findings that do not block startup, currently
// plain-HTTP API URLs. Callers log these at warn level.
func (c *Config) Warnings() []string {
	var warnings []string
	for _, u := range []string{
		c.RiverMeasureURL, c.RiverStationURL,
		c.RainMeasureURL, c.RainStationURL,
	} {
		parsed, err := url.Parse(u)
		if err == nil && parsed.Scheme == "http" {
			warnings = append(warnings, fmt.Sprintf("URL uses insecure http scheme: %s", SanitizeURL(u)))
		}
	}
	return warnings
}

// ParsePort parses a port number from its string form, as supplied in
// environment variables.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a valid integer", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of valid range (1-65535)", port)
	}
	return port, nil
}

// SanitizeURL returns a URL stripped of its query and fragment, safe to
// include in log output.
func SanitizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "INVALID_URL"
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL %q must be absolute with an http:// or https:// scheme", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
