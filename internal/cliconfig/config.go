package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/obgate-labs/obgate/internal/domain"
)

// DefaultPlatform is the platform tag stamped on payloads sent to the core.
const DefaultPlatform = "qq"

// Config holds CLI configuration for obgate.
type Config struct {
	// Front protocol (ingress) listener.
	Host  string
	Port  int
	Token string

	// Back protocol (core) link.
	CoreHost string
	CorePort int
	Platform string

	// Correlation.
	ResponseTimeout time.Duration

	// Chat filtering.
	GroupListType string
	GroupList     []int64

	// Content detection.
	DetectionEnabled bool
	DetectionAPIURL  string
	DetectionAPIKey  string
	DetectionModel   string
	ReportGroups     []int64

	// Management HTTP endpoint.
	ManagementEnabled bool
	ManagementHost    string
	ManagementPort    int

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8095,
		CoreHost:        "localhost",
		CorePort:        8000,
		Platform:        DefaultPlatform,
		ResponseTimeout: 30 * time.Second,
		GroupListType:   string(ModeWhitelist),
		ManagementHost:  "127.0.0.1",
		ManagementPort:  8090,
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: ingress port %d out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.CorePort < 1 || c.CorePort > 65535 {
		return fmt.Errorf("%w: core port %d out of range", domain.ErrInvalidConfig, c.CorePort)
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("%w: response timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.GroupListType != string(ModeWhitelist) && c.GroupListType != string(ModeBlacklist) {
		return fmt.Errorf("%w: group list type must be whitelist or blacklist", domain.ErrInvalidConfig)
	}
	if c.DetectionEnabled && c.DetectionAPIURL == "" {
		return fmt.Errorf("%w: detection enabled without api url", domain.ErrInvalidConfig)
	}
	if c.ManagementEnabled && (c.ManagementPort < 1 || c.ManagementPort > 65535) {
		return fmt.Errorf("%w: management port %d out of range", domain.ErrInvalidConfig, c.ManagementPort)
	}
	return nil
}

// IngressConfig returns the ingress section as a domain value.
func (c *Config) IngressConfig() domain.IngressConfig {
	return domain.IngressConfig{Host: c.Host, Port: c.Port, Token: c.Token}
}

// CoreURL returns the WebSocket URL of the orchestration core.
func (c *Config) CoreURL() string {
	return "ws://" + c.CoreHost + ":" + strconv.Itoa(c.CorePort) + "/ws"
}

// ManagementAddr returns the bind address of the management endpoint.
func (c *Config) ManagementAddr() string {
	return c.ManagementHost + ":" + strconv.Itoa(c.ManagementPort)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
