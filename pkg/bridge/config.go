package bridge

import (
	"time"

	"github.com/obgate-labs/obgate/internal/cliconfig"
)

// DetectionConfig configures the outbound content-moderation gate.
type DetectionConfig struct {
	Enabled bool
	APIURL  string
	APIKey  string
	Model   string

	// ReportGroups receive a report whenever an outbound message is
	// blocked.
	ReportGroups []int64
}

// ManagementConfig configures the local HTTP endpoint for editing the
// group list at runtime.
type ManagementConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Config holds the bridge configuration. Zero values fall back to the
// defaults documented on each field.
type Config struct {
	// Host and Port are the front-protocol listen address.
	// Defaults: "localhost", 8095.
	Host string
	Port int

	// Token, when non-empty, is required as a Bearer credential on
	// front-protocol upgrades. Empty disables authentication.
	Token string

	// CoreHost and CorePort locate the orchestration core.
	// Defaults: "localhost", 8000.
	CoreHost string
	CorePort int

	// Platform tags payloads forwarded to the core. Default "qq".
	Platform string

	// ResponseTimeout bounds how long an action request waits for its
	// correlated response. Default 30s.
	ResponseTimeout time.Duration

	// GroupListType is "whitelist" or "blacklist". Default "whitelist".
	GroupListType string
	GroupList     []int64

	Detection  DetectionConfig
	Management ManagementConfig

	// ConfigPath, when non-empty, is watched for changes to the ingress
	// section; a change restarts the front listener in place.
	ConfigPath string
}

// SetDefaults fills unset fields with their default values.
func (c *Config) SetDefaults() {
	def := cliconfig.DefaultConfig()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.CoreHost == "" {
		c.CoreHost = def.CoreHost
	}
	if c.CorePort == 0 {
		c.CorePort = def.CorePort
	}
	if c.Platform == "" {
		c.Platform = def.Platform
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = def.ResponseTimeout
	}
	if c.GroupListType == "" {
		c.GroupListType = def.GroupListType
	}
	if c.Management.Host == "" {
		c.Management.Host = def.ManagementHost
	}
	if c.Management.Port == 0 {
		c.Management.Port = def.ManagementPort
	}
}

// Validate checks the configuration. Returns an error wrapping
// ErrInvalidConfig when a field is out of range.
func (c *Config) Validate() error {
	cli := c.toCLI()
	return cli.Validate()
}

func (c *Config) toCLI() cliconfig.Config {
	return cliconfig.Config{
		Host:              c.Host,
		Port:              c.Port,
		Token:             c.Token,
		CoreHost:          c.CoreHost,
		CorePort:          c.CorePort,
		Platform:          c.Platform,
		ResponseTimeout:   c.ResponseTimeout,
		GroupListType:     c.GroupListType,
		GroupList:         c.GroupList,
		DetectionEnabled:  c.Detection.Enabled,
		DetectionAPIURL:   c.Detection.APIURL,
		DetectionAPIKey:   c.Detection.APIKey,
		DetectionModel:    c.Detection.Model,
		ReportGroups:      c.Detection.ReportGroups,
		ManagementEnabled: c.Management.Enabled,
		ManagementHost:    c.Management.Host,
		ManagementPort:    c.Management.Port,
	}
}
